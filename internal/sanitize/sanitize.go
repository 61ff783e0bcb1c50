// Package sanitize normalizes free-form names that end up as path segments
// or tracking labels in the training framework's output tree.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxNameLength is the maximum allowed length for experiment and run names.
const MaxNameLength = 80

// DefaultName replaces a name that sanitizes to nothing.
const DefaultName = "check"

var (
	reRepeatedUnderscores = regexp.MustCompile(`_{2,}`)
	reRepeatedHyphens     = regexp.MustCompile(`-{2,}`)
)

// ExperimentName makes name safe to use as a single path segment.
//
// The framework writes results under results/<env>/<scenario>/<algo>/<experiment>,
// so the name must not contain separators or leave that directory.
// Characters outside [a-zA-Z0-9._-] become '_', runs of '_' and '-' collapse,
// leading dots are stripped and the result is truncated to MaxNameLength.
// An empty result falls back to DefaultName.
func ExperimentName(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range stripControlChars(strings.TrimSpace(input)) {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	s := b.String()

	s = reRepeatedUnderscores.ReplaceAllString(s, "_")
	s = reRepeatedHyphens.ReplaceAllString(s, "-")
	s = strings.TrimLeft(s, ".")

	if len(s) > MaxNameLength {
		s = s[:MaxNameLength]
	}
	if strings.Trim(s, "_") == "" {
		return DefaultName
	}
	return s
}

// Label cleans a tracking label such as a wandb user or project name.
// It only strips control characters and surrounding whitespace; an empty
// result means "not set".
func Label(input string) string {
	s := strings.TrimSpace(stripControlChars(input))
	if len(s) > MaxNameLength {
		s = s[:MaxNameLength]
	}
	return s
}

// stripControlChars removes ASCII control characters (0x00-0x1F, 0x7F).
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
