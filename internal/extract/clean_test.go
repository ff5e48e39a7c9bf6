package extract

import (
	"strings"
	"testing"
)

func TestCleanTable(t *testing.T) {
	t.Parallel()

	c := DefaultCleaner()
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "whitespace collapse", raw: "  Diamond   Ring\n Aurora ", want: "Diamond Ring Aurora", ok: true},
		{name: "pipe suffix", raw: "Diamond Ring Aurora | Glamira Shop", want: "Diamond Ring Aurora", ok: true},
		{name: "hyphen suffix", raw: "Silver Pendant Luna - Glamira", want: "Silver Pendant Luna", ok: true},
		{name: "em dash suffix", raw: "Gold Band Velvet — Glamira.de", want: "Gold Band Velvet", ok: true},
		{name: "marketing prefix", raw: "Buy Silver Pendant Luna", want: "Silver Pendant Luna", ok: true},
		{name: "german prefix", raw: "Kaufen Sie Ring Splendore", want: "Ring Splendore", ok: true},
		{name: "stacked prefixes", raw: "Buy Buy Silver Pendant Luna", want: "Silver Pendant Luna", ok: true},
		{name: "trailing brand token", raw: "Splendore Ring Glamira", want: "Splendore Ring", ok: true},
		{name: "stacked brand tokens", raw: "Luna Pendant Glamira Store", want: "Luna Pendant", ok: true},
		{name: "too short", raw: "Abc", ok: false},
		{name: "too long", raw: strings.Repeat("a", 250), ok: false},
		{name: "denylist 404", raw: "404 Not Found", ok: false},
		{name: "denylist home", raw: "Home Page Something", ok: false},
		{name: "empty", raw: "", ok: false},
		{name: "cleans to nothing", raw: "Glamira Shop", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := c.Clean(tc.raw)
			if ok != tc.ok {
				t.Fatalf("Clean(%q) ok = %v, want %v (got %q)", tc.raw, ok, tc.ok, got)
			}
			if ok && got != tc.want {
				t.Fatalf("Clean(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

// Cleaning an accepted candidate again must return it unchanged, so a name
// that round-trips through the output files never mutates on reprocessing.
func TestCleanIdempotent(t *testing.T) {
	t.Parallel()

	c := DefaultCleaner()
	inputs := []string{
		"Diamond Ring Aurora | Glamira Shop",
		"Buy Silver Pendant Luna",
		"Kaufen Sie Splendore Ring Glamira",
		"Gold   Hoop  Earrings Sophia",
		"Rose Gold Band Velvet - Glamira Store",
	}
	for _, raw := range inputs {
		cleaned, ok := c.Clean(raw)
		if !ok {
			t.Fatalf("Clean(%q) unexpectedly rejected", raw)
		}
		again, ok := c.Clean(cleaned)
		if !ok {
			t.Fatalf("Clean(%q) rejected its own output %q", raw, cleaned)
		}
		if again != cleaned {
			t.Fatalf("Clean not idempotent: %q -> %q -> %q", raw, cleaned, again)
		}
	}
}

func TestCleanBoundaryLengths(t *testing.T) {
	t.Parallel()

	c := Cleaner{BrandTokens: []string{"x"}, Denylist: []string{"zzz"}}
	if _, ok := c.Clean("abcd"); !ok {
		t.Fatal("expected 4-rune candidate to pass")
	}
	if _, ok := c.Clean("abc"); ok {
		t.Fatal("expected 3-rune candidate to fail the strict lower bound")
	}
	if _, ok := c.Clean(strings.Repeat("a", 199)); !ok {
		t.Fatal("expected 199-rune candidate to pass")
	}
	if _, ok := c.Clean(strings.Repeat("a", 200)); ok {
		t.Fatal("expected 200-rune candidate to fail the strict upper bound")
	}
}
