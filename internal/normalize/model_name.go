// Package normalize holds the text cleanup used to match printer model names and
// vendor error codes. Nothing here touches stored data.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// extraPasses bounds the fixpoint loop when replacements are not deletions.
// Deletion-only rules shrink the string on every changing pass, so len(raw)
// passes always reach the fixpoint.
const extraPasses = 8

// Rule is one literal replacement of the model-name pipeline.
type Rule struct {
	Pattern     string
	Replacement string
}

// DefaultRules strip the Konica Minolta vendor prefix variants.
var DefaultRules = []Rule{
	{Pattern: "Konica Minolta "},
	{Pattern: "KonicaMinolta "},
	{Pattern: "Konica Minolta"},
	{Pattern: "KonicaMinolta"},
}

// ModelNamer turns display names such as "Konica Minolta C4080" into the
// canonical "C4080".
type ModelNamer struct {
	rules []Rule
}

// NewModelNamer returns a namer applying rules in order. Rules with an empty
// pattern are dropped.
func NewModelNamer(rules []Rule) *ModelNamer {
	kept := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Pattern != "" {
			kept = append(kept, r)
		}
	}
	return &ModelNamer{rules: kept}
}

// Default returns a namer with DefaultRules.
func Default() *ModelNamer { return NewModelNamer(DefaultRules) }

// Normalize applies every rule (replace-all, case-sensitive) and trims
// whitespace, repeating until the result is stable so that
// Normalize(Normalize(x)) == Normalize(x). A pattern ending in a letter or
// digit only matches when the next character is not a letter or digit, so
// "KonicaMinoltaC4080" is left alone.
func (n *ModelNamer) Normalize(raw string) string {
	s := raw
	for pass := 0; pass < len(raw)+extraPasses; pass++ {
		next := s
		for _, r := range n.rules {
			next = replaceToken(next, r.Pattern, r.Replacement)
		}
		next = strings.TrimSpace(next)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func replaceToken(s, pattern, repl string) string {
	if !strings.Contains(s, pattern) {
		return s
	}
	last, _ := utf8.DecodeLastRuneInString(pattern)
	guarded := isWordRune(last)

	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for {
		j := strings.Index(s[i:], pattern)
		if j < 0 {
			break
		}
		j += i
		end := j + len(pattern)
		if guarded && end < len(s) {
			if next, _ := utf8.DecodeRuneInString(s[end:]); isWordRune(next) {
				b.WriteString(s[i : j+1])
				i = j + 1
				continue
			}
		}
		b.WriteString(s[i:j])
		b.WriteString(repl)
		i = end
	}
	b.WriteString(s[i:])
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
