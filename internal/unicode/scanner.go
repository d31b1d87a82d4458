// Package unicode rejects character-smuggling tricks in model output.
// Zero-width and bidirectional characters let a payload display as one
// thing while carrying another, so they are refused outright before the
// text reaches the JSON decoder.
package unicode

import (
	"fmt"
	"unicode/utf8"
)

// SmuggleError reports the first disallowed codepoint in the input.
type SmuggleError struct {
	Category  string
	Codepoint string
	Position  int
}

func (e *SmuggleError) Error() string {
	return fmt.Sprintf("%s character %s at byte %d", e.Category, e.Codepoint, e.Position)
}

// Check scans s and returns a SmuggleError for the first invisible,
// directional, tag, or malformed character it finds. Tab, newline, and
// carriage return are ordinary whitespace and pass.
func Check(s string) error {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return &SmuggleError{
				Category:  "invalid-utf8",
				Codepoint: fmt.Sprintf("0x%02X", s[i]),
				Position:  i,
			}
		}
		if cat := classify(r); cat != "" {
			return &SmuggleError{
				Category:  cat,
				Codepoint: fmt.Sprintf("U+%04X", r),
				Position:  i,
			}
		}
		i += size
	}
	return nil
}

func classify(r rune) string {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\uFEFF', '\u2060', '\u180E', '\u200E', '\u200F':
		return "zero-width"
	case '\u202A', '\u202B', '\u202C', '\u202D', '\u202E', '\u2066', '\u2067', '\u2068', '\u2069':
		return "bidi-override"
	}
	// Unicode tag block, used to hide instructions after visible text.
	if r >= 0xE0001 && r <= 0xE007F {
		return "tag-char"
	}
	if r == '\t' || r == '\n' || r == '\r' {
		return ""
	}
	if r <= 0x1F || r == 0x7F || (r >= 0x80 && r <= 0x9F) {
		return "control-char"
	}
	return ""
}
