//go:build windows

package launch

func runPlatformHelper(mode string, rest []string) {}
