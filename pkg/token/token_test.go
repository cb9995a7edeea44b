package token

import (
	"strings"
	"testing"
)

func TestNew_LengthAndCharset(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := New(FileTokenLength)
		if len(tok) != FileTokenLength {
			t.Fatalf("expected length %d, got %d", FileTokenLength, len(tok))
		}
		if !Valid(tok) {
			t.Fatalf("generated token failed validation: %q", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token generated: %q", tok)
		}
		seen[tok] = true
	}
}

func TestValid_RejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"short",
		strings.Repeat("a", FileTokenLength+1),
		strings.Repeat("a", FileTokenLength-1) + "!",
		strings.Repeat(" ", FileTokenLength),
	}
	for _, c := range cases {
		if Valid(c) {
			t.Fatalf("expected %q to be invalid", c)
		}
	}
}

func TestNumericID(t *testing.T) {
	t.Parallel()

	for i := 0; i < 50; i++ {
		id := NumericID(8)
		if len(id) != 8 {
			t.Fatalf("expected 8 digits, got %q", id)
		}
		if id[0] == '0' {
			t.Fatalf("leading zero in %q", id)
		}
		for _, r := range id {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in %q", id)
			}
		}
	}
}
