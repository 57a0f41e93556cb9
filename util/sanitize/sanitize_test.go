package sanitize

import "testing"

func TestForTerminal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"plain text", "hello world", "hello world"},
		{"color codes", "\x1b[31mred\x1b[0m text", "red text"},
		{"cursor movement", "a\x1b[2Jb\x1b[10;5Hc", "abc"},
		{"osc title", "\x1b]0;pwned\x07visible", "visible"},
		{"newlines and tabs", "line one\nline\ttwo", "line one line two"},
		{"control characters", "bell\x07 back\x08space", "bell backspace"},
		{"unicode kept", "café ♥ 日本", "café ♥ 日本"},
		{"surrounding space", "  padded  ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ForTerminal(tt.input)
			if result != tt.expected {
				t.Errorf("ForTerminal(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestForHandle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"simple name", "Ada", "ada"},
		{"full name", "Grace Hopper", "grace_hopper"},
		{"separators", "mary-jane.watson", "mary_jane_watson"},
		{"special characters", "Zoë @ home!", "zo_home"},
		{"multiple underscores", "a   b", "a_b"},
		{"long name", "abcdefghij abcdefghij abcdefghij", "abcdefghij_abcdefghij_abcdefgh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ForHandle(tt.input)
			if result != tt.expected {
				t.Errorf("ForHandle(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestForFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "Sunset", "sunset"},
		{"spaces", "My Holiday Clip.mp4", "my-holiday-clip.mp4"},
		{"special characters", "what?!.png", "what.png"},
		{"leading dashes", "--x--", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ForFilename(tt.input)
			if result != tt.expected {
				t.Errorf("ForFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
