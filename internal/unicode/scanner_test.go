package unicode

import (
	"errors"
	"testing"
)

func TestCheckCleanInput(t *testing.T) {
	inputs := []string{
		"",
		`{"action":"kill_process","name":"firefox"}`,
		"line one\nline two\ttabbed\r\n",
		"café naïve señor", // accented runes are fine
	}
	for _, in := range inputs {
		if err := Check(in); err != nil {
			t.Errorf("Check(%q) = %v, want nil", in, err)
		}
	}
}

func TestCheckSmuggling(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		category string
	}{
		{"zero width space", "kill\u200B firefox", "zero-width"},
		{"zero width joiner", "ps\u200Daux", "zero-width"},
		{"byte order mark", "\uFEFF{\"action\":\"list_processes\"}", "zero-width"},
		{"rtl override", "run \u202Etxt.sh", "bidi-override"},
		{"ltr isolate", "\u2066hidden\u2069", "bidi-override"},
		{"tag characters", "ps\U000E0041\U000E0042", "tag-char"},
		{"null byte", "kill\x00firefox", "control-char"},
		{"escape", "\x1b[31mred", "control-char"},
		{"bad utf8", "abc\xff", "invalid-utf8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.input)
			if err == nil {
				t.Fatalf("Check(%q) = nil, want %s error", tt.input, tt.category)
			}
			var se *SmuggleError
			if !errors.As(err, &se) {
				t.Fatalf("error type %T", err)
			}
			if se.Category != tt.category {
				t.Errorf("category = %s, want %s", se.Category, tt.category)
			}
		})
	}
}

func TestCheckReportsPosition(t *testing.T) {
	err := Check("ab\u200Bcd")
	var se *SmuggleError
	if !errors.As(err, &se) {
		t.Fatalf("got %v", err)
	}
	if se.Position != 2 {
		t.Errorf("position = %d, want 2", se.Position)
	}
	if se.Codepoint != "U+200B" {
		t.Errorf("codepoint = %s", se.Codepoint)
	}
}
