// Package checkpoint resolves the on-disk checkpoint locations the training
// framework writes and the render entry point reads.
//
// The layout below models/ belongs to the framework; this package only builds
// and checks the directory path handed to it.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultRoot is the checkpoint root relative to the working directory.
const DefaultRoot = "checkpoints"

// ModelDir returns <root>/<scenario>/<algorithm>/models.
func ModelDir(root, scenario, algorithm string) string {
	if root == "" {
		root = DefaultRoot
	}
	return filepath.Join(root, scenario, algorithm, "models")
}

// Redact reduces a path to .../<parent>/<base> for log and error output.
func Redact(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	base := filepath.Base(cleaned)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// Validate checks a model directory before it is handed to the framework.
// The path must be non-empty and free of NUL bytes. When roots is non-empty
// the resolved path must also sit inside one of them; symlinks on existing
// ancestors are resolved so a link cannot escape the allowed tree.
func Validate(path string, roots []string) error {
	if path == "" {
		return fmt.Errorf("model dir is empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("model dir contains a NUL byte")
	}
	if len(roots) == 0 {
		return nil
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolving model dir: %w", err)
	}
	resolved, err := resolveExisting(abs)
	if err != nil {
		return fmt.Errorf("resolving model dir: %w", err)
	}

	for _, root := range roots {
		rootAbs, err := filepath.Abs(filepath.Clean(root))
		if err != nil {
			continue
		}
		rootResolved, err := resolveExisting(rootAbs)
		if err != nil {
			continue
		}
		if within(resolved, rootResolved) {
			return nil
		}
	}
	return fmt.Errorf("model dir %q is outside the allowed checkpoint roots", Redact(abs))
}

// Exists reports whether dir exists and is a directory.
func Exists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// resolveExisting evaluates symlinks on the deepest existing ancestor of p
// and re-appends the missing tail.
func resolveExisting(p string) (string, error) {
	if r, err := filepath.EvalSymlinks(p); err == nil {
		return r, nil
	}
	parent := filepath.Dir(p)
	if parent == p {
		return "", fmt.Errorf("cannot resolve %s", Redact(p))
	}
	r, err := resolveExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(r, filepath.Base(p)), nil
}

func within(p, root string) bool {
	if p == root {
		return true
	}
	return strings.HasPrefix(p, root+string(os.PathSeparator))
}
