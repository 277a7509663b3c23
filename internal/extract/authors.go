package extract

import (
	"strings"
	"unicode/utf8"

	"searchlib/internal/marc"
)

// AuthorRule returns the author names one rule finds in a record, or nil
// when the rule does not apply.
type AuthorRule func(rec *marc.Record) []string

// FirstMatch evaluates rules in order and returns the result of the first
// one that finds any author. Later rules never add to it.
func FirstMatch(rules []AuthorRule, rec *marc.Record) []string {
	for _, rule := range rules {
		if names := rule(rec); len(names) > 0 {
			return names
		}
	}
	return nil
}

// rusmarcAuthors is the precedence chain for RUSMARC personal names:
// 700 (primary), then 701 (alternative), then 702 (secondary); within a tag
// a full form in $b beats initials built from $g.
var rusmarcAuthors = []AuthorRule{
	single("700", 'b', fullName),
	single("700", 'g', withInitials),
	each("701", 'b', fullName),
	each("701", 'g', withInitials),
	each("702", 'b', fullName),
	each("702", 'g', withInitials),
}

// single applies to the first occurrence of tag when it has $a and code.
func single(tag string, code byte, name func(a, v string) string) AuthorRule {
	return func(rec *marc.Record) []string {
		f := rec.Get(tag)
		if !f.Has('a', code) {
			return nil
		}
		a, _ := f.Subfield('a')
		v, _ := f.Subfield(code)
		return []string{name(a, v)}
	}
}

// each applies when the first occurrence of tag has $a and code, and then
// yields one name per occurrence carrying both.
func each(tag string, code byte, name func(a, v string) string) AuthorRule {
	return func(rec *marc.Record) []string {
		if !rec.Get(tag).Has('a', code) {
			return nil
		}
		var out []string
		for _, f := range rec.GetAll(tag) {
			if !f.Has('a', code) {
				continue
			}
			a, _ := f.Subfield('a')
			v, _ := f.Subfield(code)
			out = append(out, name(a, v))
		}
		return out
	}
}

func fullName(a, b string) string {
	return a + " " + b
}

func withInitials(a, g string) string {
	return strings.TrimSpace(a + " " + Initials(g))
}

// Initials reduces every space separated token to its first letter and a
// period: "Лев Николаевич" becomes "Л. Н.".
func Initials(g string) string {
	tokens := strings.Fields(g)
	for i, tok := range tokens {
		r, _ := utf8.DecodeRuneInString(tok)
		tokens[i] = string(r) + "."
	}
	return strings.Join(tokens, " ")
}
