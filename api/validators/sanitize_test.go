package validators

import "testing"

func TestSanitizeStringTrimsAndTruncates(t *testing.T) {
	if got := SanitizeString("  logo design  ", 0); got != "logo design" {
		t.Fatalf("expected trimmed string, got %q", got)
	}
	if got := SanitizeString("abcdef", 3); got != "abc" {
		t.Fatalf("expected truncation to 3 runes, got %q", got)
	}
}

func TestSanitizeStringTruncatesByRune(t *testing.T) {
	// Multibyte input must not be cut mid-character.
	if got := SanitizeString("héllo wörld", 5); got != "héllo" {
		t.Fatalf("expected rune-aware truncation, got %q", got)
	}
}
