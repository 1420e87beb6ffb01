// Package coursecode normalizes question text and recognizes course codes in it.
//
// All positions reported here are byte offsets into the output of Normalize, so
// code mentions and fuzzy title or alias matches can be ordered against each other.
package coursecode

import (
	"regexp"
	"strings"
	"unicode"
)

// codePattern matches 2-4 letters, an optional space or hyphen, then three digits.
var codePattern = regexp.MustCompile(`\b([a-z]{2,4})[ -]?(\d{3})\b`)

// Common words that collide with the subject pattern ("take 250", "what 200 level").
var falsePositiveSubjects = map[string]struct{}{
	"am": {}, "an": {}, "as": {}, "at": {}, "be": {}, "by": {}, "do": {}, "if": {}, "in": {},
	"is": {}, "it": {}, "me": {}, "my": {}, "no": {}, "of": {}, "on": {}, "or": {}, "so": {},
	"to": {}, "up": {}, "we": {},
	"all": {}, "and": {}, "any": {}, "are": {}, "but": {}, "can": {}, "did": {}, "few": {},
	"for": {}, "get": {}, "got": {}, "had": {}, "has": {}, "how": {}, "its": {}, "not": {},
	"one": {}, "our": {}, "six": {}, "ten": {}, "the": {}, "top": {}, "two": {}, "was": {},
	"who": {}, "why": {}, "you": {},
	"also": {}, "been": {}, "does": {}, "each": {}, "from": {}, "have": {}, "into": {},
	"just": {}, "last": {}, "like": {}, "many": {}, "more": {}, "most": {}, "much": {},
	"need": {}, "next": {}, "only": {}, "over": {}, "past": {}, "some": {}, "take": {},
	"than": {}, "that": {}, "them": {}, "then": {}, "they": {}, "this": {}, "took": {},
	"want": {}, "were": {}, "what": {}, "when": {}, "will": {}, "with": {}, "year": {},
	"your": {}, "term": {}, "unit": {},
}

// Mention is one course code found in normalized text.
type Mention struct {
	ID       string
	Span     string
	Position int
}

// Normalize lowercases s, maps every rune that is not a letter, digit or hyphen
// to a space, and collapses runs of whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Extract returns every course code in normalized text, in order of appearance.
// Duplicates are kept; callers decide how to fold them.
func Extract(normalized string) []Mention {
	locs := codePattern.FindAllStringSubmatchIndex(normalized, -1)
	out := make([]Mention, 0, len(locs))
	for _, loc := range locs {
		subject := normalized[loc[2]:loc[3]]
		if _, skip := falsePositiveSubjects[subject]; skip {
			continue
		}
		// "comp 300-level" is a level band, not a course
		if rest := normalized[loc[1]:]; strings.HasPrefix(rest, "-level") || strings.HasPrefix(rest, " level") {
			continue
		}
		out = append(out, Mention{
			ID:       format(subject, normalized[loc[4]:loc[5]]),
			Span:     normalized[loc[0]:loc[1]],
			Position: loc[0],
		})
	}
	return out
}

// Canonical turns loose input ("comp250", "Comp 250", "COMP-250") into "COMP-250".
func Canonical(s string) (string, bool) {
	n := Normalize(s)
	m := codePattern.FindStringSubmatch(n)
	if m == nil || len(m[0]) != len(n) {
		return "", false
	}
	return format(m[1], m[2]), true
}

// Split returns the subject and number of a canonical id.
func Split(id string) (subject, number string) {
	subject, number, _ = strings.Cut(id, "-")
	return subject, number
}

func format(subject, number string) string {
	return strings.ToUpper(subject) + "-" + number
}
