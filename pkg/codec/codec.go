// Package codec implements the disguise transform: plaintext in, innocuous
// small talk out. It is obfuscation, not encryption; anyone who knows the
// phrase table can reverse it.
package codec

import (
	"math/rand"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Result is the outcome of Encode. AllowedUsers is carried through untouched;
// grantees never influence the text output.
type Result struct {
	Text         string
	IsEncrypted  bool
	AllowedUsers []string
}

type pair struct {
	plain   string
	cover   string
	plainRe *regexp.Regexp
	coverRe *regexp.Regexp
}

// The substitution table and opener list are fixed lookup data, built once at
// init and never mutated.
var table = buildTable([][2]string{
	{"meet me", "the garden needs watering"},
	{"tonight", "after the evening news"},
	{"tomorrow", "once the bread is done"},
	{"danger", "the soup is too salty"},
	{"help", "my bicycle has a flat tire"},
	{"money", "fresh vegetables"},
	{"police", "the neighbors upstairs"},
	{"leave now", "the kettle is boiling"},
	{"secret", "grandma's recipe"},
	{"call me", "the radio is playing"},
})

var openers = []string{
	"by the way, ",
	"anyway, ",
	"you know, ",
	"funny story, ",
	"honestly, ",
}

func buildTable(pairs [][2]string) []pair {
	out := make([]pair, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, pair{
			plain:   p[0],
			cover:   p[1],
			plainRe: wordRe(p[0]),
			coverRe: wordRe(p[1]),
		})
	}
	return out
}

func wordRe(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
}

// Encode disguises plaintext. The input is lowercased, every table phrase is
// substituted with its cover phrase, and if nothing matched a conversational
// opener is prepended instead. The first letter of the output is capitalized.
// Case is not preserved through a round trip.
func Encode(plaintext string, grantees []string) Result {
	if plaintext == "" {
		return Result{}
	}

	out := strings.ToLower(plaintext)
	matched := false
	for _, p := range table {
		if p.plainRe.MatchString(out) {
			out = p.plainRe.ReplaceAllString(out, p.cover)
			matched = true
		}
	}
	if !matched {
		out = openers[rand.Intn(len(openers))] + out
	}

	return Result{
		Text:         capitalize(out),
		IsEncrypted:  true,
		AllowedUsers: append([]string(nil), grantees...),
	}
}

// Decode is best effort. The first cover phrase found is substituted back and
// the result returned immediately; otherwise a known opener prefix is
// stripped; otherwise the input comes back unchanged. Because Encode picks
// the opener at random, Decode is not a bit-for-bit inverse on the fallback
// path, only an effective one: any opener in the list is stripped regardless
// of which one Encode chose.
func Decode(text string) string {
	for _, p := range table {
		if p.coverRe.MatchString(text) {
			return p.coverRe.ReplaceAllString(text, p.plain)
		}
	}

	lower := strings.ToLower(text)
	for _, op := range openers {
		if strings.HasPrefix(lower, op) {
			return text[len(op):]
		}
	}

	return text
}

// Detect reports whether text looks like Encode output: it contains a cover
// phrase or starts with an opener. Anything shorter than 3 characters is
// never considered disguised.
func Detect(text string) bool {
	if utf8.RuneCountInString(text) < 3 {
		return false
	}
	for _, p := range table {
		if p.coverRe.MatchString(text) {
			return true
		}
	}
	lower := strings.ToLower(text)
	for _, op := range openers {
		if strings.HasPrefix(lower, op) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
