package codec

import (
	"strings"
	"testing"
)

func TestEncodeEmptyInput(t *testing.T) {
	res := Encode("", nil)
	if res.Text != "" || res.IsEncrypted {
		t.Fatalf("empty input must stay empty and unencrypted, got %+v", res)
	}
}

func TestEncodeTableSubstitution(t *testing.T) {
	for _, p := range table {
		res := Encode("please "+p.plain+" soon", nil)
		if !res.IsEncrypted {
			t.Fatalf("%q: expected IsEncrypted", p.plain)
		}
		if !strings.Contains(strings.ToLower(res.Text), p.cover) {
			t.Fatalf("%q: expected cover %q in output %q", p.plain, p.cover, res.Text)
		}
		if strings.Contains(strings.ToLower(res.Text), p.plain) {
			t.Fatalf("%q: plain phrase leaked into output %q", p.plain, res.Text)
		}
	}
}

func TestRoundTripPerPair(t *testing.T) {
	for _, p := range table {
		in := "Please " + p.plain + " soon"
		got := Decode(Encode(in, nil).Text)
		// Encode lowercases and re-capitalizes the first rune; case is not
		// preserved, the words are.
		want := capitalize(strings.ToLower(in))
		if got != want {
			t.Fatalf("%q: round trip got %q, want %q", p.plain, got, want)
		}
	}
}

func TestEncodeFallbackPrependsOpener(t *testing.T) {
	for i := 0; i < 20; i++ {
		res := Encode("Nothing Matches Here", nil)
		lower := strings.ToLower(res.Text)
		found := false
		for _, op := range openers {
			if strings.HasPrefix(lower, op) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("fallback output %q does not start with a known opener", res.Text)
		}
		if got := Decode(res.Text); got != "nothing matches here" {
			t.Fatalf("fallback round trip got %q", got)
		}
	}
}

func TestEncodeCapitalizesFirstLetter(t *testing.T) {
	res := Encode("meet me at noon", nil)
	first := res.Text[:1]
	if first != strings.ToUpper(first) {
		t.Fatalf("output %q not capitalized", res.Text)
	}
}

func TestEncodeGranteesDoNotAffectText(t *testing.T) {
	a := Encode("meet me at noon", nil)
	b := Encode("meet me at noon", []string{"u1", "u2"})
	if a.Text != b.Text {
		t.Fatalf("grantees changed the text: %q vs %q", a.Text, b.Text)
	}
	if len(b.AllowedUsers) != 2 || b.AllowedUsers[0] != "u1" {
		t.Fatalf("grantees not carried through: %v", b.AllowedUsers)
	}
}

func TestDecodeFirstCoverWins(t *testing.T) {
	// Two covers present; only the first table entry is reversed.
	in := "The garden needs watering after the evening news"
	got := Decode(in)
	want := "meet me after the evening news"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDecodeStripsAnyKnownOpener(t *testing.T) {
	for _, op := range openers {
		in := capitalize(op + "hello")
		if got := Decode(in); got != "hello" {
			t.Fatalf("opener %q: got %q, want hello", op, got)
		}
	}
}

func TestDecodeNoOpOnPlainText(t *testing.T) {
	in := "just a regular sentence"
	if got := Decode(in); got != in {
		t.Fatalf("decode mutated plain text: %q", got)
	}
}

func TestDetect(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"", false},
		{"hi", false},
		{"just a regular sentence", false},
		{"The garden needs watering", true},
		{"by the way, hello", true},
		{"Anyway, whatever", true},
		{"the SOUP is too salty today", true},
	}
	for _, c := range cases {
		if got := Detect(c.text); got != c.want {
			t.Fatalf("Detect(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestDetectRecognizesAllEncodeOutput(t *testing.T) {
	inputs := []string{"meet me", "hello there", "x", "Tomorrow we ride"}
	for _, in := range inputs {
		res := Encode(in, nil)
		if !Detect(res.Text) {
			t.Fatalf("Detect missed encode output %q (from %q)", res.Text, in)
		}
	}
}
