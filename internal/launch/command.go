package launch

import (
	"github.com/kballard/go-shellquote"

	"github.com/mpelaunch/mpelaunch/internal/config"
)

// Command is a fully resolved child process invocation.
type Command struct {
	// Path is the program to run, looked up on PATH when it has no separator.
	Path string

	// Args are the program arguments, excluding Path.
	Args []string

	// Dir is the working directory. Empty means the caller's.
	Dir string

	// Env is the complete child environment. Nil inherits the caller's.
	Env []string
}

// String renders the command as a shell-quoted line.
func (c Command) String() string {
	return shellquote.Join(append([]string{c.Path}, c.Args...)...)
}

// Argv returns Path followed by Args.
func (c Command) Argv() []string {
	return append([]string{c.Path}, c.Args...)
}

// NewCommand builds the interpreter invocation for an entry script.
func NewCommand(fw config.FrameworkConfig, entry string, flags []string, env []string) Command {
	args := make([]string, 0, len(flags)+1)
	args = append(args, fw.EntryPath(entry))
	args = append(args, flags...)
	return Command{
		Path: fw.Python,
		Args: args,
		Dir:  fw.WorkDir,
		Env:  env,
	}
}
