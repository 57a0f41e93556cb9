// Package sanitize cleans text received from peers before it reaches the
// terminal or becomes an identifier.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// ansiRegex matches CSI and OSC escape sequences.
	ansiRegex = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)

	// handleRegex matches characters not allowed in a handle
	handleRegex = regexp.MustCompile(`[^a-z0-9_]+`)

	// multiUnderscoreRegex matches multiple consecutive underscores
	multiUnderscoreRegex = regexp.MustCompile(`_+`)

	// whitespaceRegex matches runs of whitespace
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// ForTerminal strips escape sequences and control characters so peer text
// cannot restyle or move the cursor. Newlines and tabs become spaces.
func ForTerminal(s string) string {
	if s == "" {
		return ""
	}
	s = ansiRegex.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// ForHandle derives a handle from a display name: lowercase letters, digits,
// and underscores, at most 30 characters.
func ForHandle(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(ForTerminal(s))
	s = strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(s)
	s = handleRegex.ReplaceAllString(s, "")
	s = multiUnderscoreRegex.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 30 {
		s = strings.TrimRight(s[:30], "_")
	}
	return s
}

// ForFilename sanitizes a string for use in a filename (kebab-case).
func ForFilename(s string) string {
	s = strings.ToLower(ForTerminal(s))
	s = strings.ReplaceAll(s, " ", "-")
	s = regexp.MustCompile(`[^a-z0-9.-]+`).ReplaceAllString(s, "")
	s = regexp.MustCompile(`-+`).ReplaceAllString(s, "-")
	s = strings.Trim(s, "-.")
	if len(s) > 50 {
		s = s[:50]
	}
	return s
}
