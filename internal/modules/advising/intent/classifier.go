// Package intent turns a raw question into retrieval signals with fixed phrase
// rules. Signals are not exclusive: one question may ask for eligibility and a
// comparison at once.
package intent

import (
	"strings"

	"github.com/yungbote/coursebridge-backend/internal/modules/advising/coursecode"
)

var eligibilityPhrases = []string{
	"can i take",
	"after taking",
	"before taking",
	"am i eligible",
	"eligible for",
	"allowed to take",
	"can i enroll",
	"can i register",
	"do i need",
	"prerequisites for",
	"prereqs for",
	"requirements for",
	"qualify for",
	"ready for",
}

var comparisonPhrases = []string{
	"difference between",
	"differences between",
	"vs",
	"versus",
	"compare",
	"compared to",
	"better than",
}

var dependentsPhrases = []string{
	"what can i take after",
	"which courses require",
	"what courses require",
	"courses that require",
	"what requires",
	"what comes after",
	"next after",
	"unlock",
	"unlocks",
	"lead to",
	"leads to",
}

// Phrases after which course codes describe courses the asker already has.
var completionPhrases = []string{
	"after taking",
	"after completing",
	"after finishing",
	"having taken",
	"having completed",
	"i have taken",
	"i ve taken",
	"i have completed",
	"i ve completed",
	"i have finished",
	"i took",
	"i completed",
	"i finished",
	"already took",
	"already taken",
	"already completed",
}

// Under dependents phrasing ("what can I take after X") the course after
// these words is one the asker has finished.
var dependentsAnchors = []string{"after"}

// Words that end a completion clause.
var clauseBreaks = map[string]struct{}{
	"can": {}, "could": {}, "should": {}, "would": {}, "will": {}, "but": {},
	"what": {}, "which": {}, "is": {}, "am": {}, "do": {}, "does": {}, "how": {},
}

// Words that join the items of a completion clause.
var clauseConnectors = map[string]struct{}{
	"and": {}, "or": {}, "plus": {},
}

// Words that may sit anywhere in a completion clause without ending it.
var clauseFillers = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "both": {}, "my": {}, "also": {}, "already": {},
	"course": {}, "courses": {}, "class": {}, "classes": {},
}

type Intent struct {
	MentionedCourses      []string `json:"mentioned_courses"`
	WantsEligibility      bool     `json:"wants_eligibility"`
	WantsComparison       bool     `json:"wants_comparison"`
	WantsDependents       bool     `json:"wants_dependents"`
	NeedsSemanticFallback bool     `json:"needs_semantic_fallback"`
	// AssumedCompleted lists mentioned courses the question itself claims are done.
	AssumedCompleted []string `json:"assumed_completed,omitempty"`

	// Normalized is the text every Position refers to.
	// Planning is set for open planning questions that name no target course.
	Planning *Planning `json:"planning,omitempty"`

	Normalized string               `json:"-"`
	Mentions   []coursecode.Mention `json:"-"`

	completionClauses []clause
}

type clause struct{ start, end int }

// InCompletionClause reports whether a position in Normalized falls inside a
// clause such as "after taking ...".
func (in Intent) InCompletionClause(position int) bool {
	for _, c := range in.completionClauses {
		if position >= c.start && position < c.end {
			return true
		}
	}
	return false
}

// Signals counts the deterministic signals found: one per distinct course plus
// one per phrase family.
func (in Intent) Signals() int {
	n := len(in.MentionedCourses)
	for _, b := range []bool{in.WantsEligibility, in.WantsComparison, in.WantsDependents} {
		if b {
			n++
		}
	}
	return n
}

func Classify(question string) Intent {
	norm := coursecode.Normalize(question)
	mentions := coursecode.Extract(norm)
	in := Intent{
		Normalized:       norm,
		MentionedCourses: []string{},
		WantsEligibility: containsAny(norm, eligibilityPhrases),
		WantsComparison:  containsAny(norm, comparisonPhrases),
		WantsDependents:  containsAny(norm, dependentsPhrases),
	}
	phrases := completionPhrases
	if in.WantsDependents {
		phrases = append(append([]string(nil), completionPhrases...), dependentsAnchors...)
	}
	in.completionClauses = completionClauses(norm, phrases, mentions)

	seen := map[string]struct{}{}
	assumed := map[string]struct{}{}
	for _, m := range mentions {
		in.Mentions = append(in.Mentions, m)
		if in.InCompletionClause(m.Position) {
			if _, ok := assumed[m.ID]; !ok {
				assumed[m.ID] = struct{}{}
				in.AssumedCompleted = append(in.AssumedCompleted, m.ID)
			}
		}
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		in.MentionedCourses = append(in.MentionedCourses, m.ID)
	}

	in.NeedsSemanticFallback = len(in.MentionedCourses) == 0 || in.Signals() < 2
	if !in.WantsDependents && len(in.AssumedCompleted) == len(in.MentionedCourses) {
		in.Planning = detectPlanning(norm, mentions)
	}
	return in
}

func containsAny(norm string, phrases []string) bool {
	padded := " " + norm + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func completionClauses(norm string, phrases []string, mentions []coursecode.Mention) []clause {
	padded := " " + norm + " "
	var out []clause
	for _, p := range phrases {
		needle := " " + p + " "
		for from := 0; ; {
			i := strings.Index(padded[from:], needle)
			if i < 0 {
				break
			}
			// offsets in norm are one less than in padded
			start := from + i + len(needle) - 1
			if start > len(norm) {
				start = len(norm)
			}
			out = append(out, clause{start: start, end: clauseEnd(norm, start, mentions)})
			from = from + i + 1
		}
	}
	return out
}

const (
	itemNone = iota
	itemCode
	itemWords
)

// clauseEnd walks the items of a completion clause: course codes, or word runs
// that may name a course by alias or title, joined by connectors. Anything
// after a code other than a connector or filler ends the clause, and so does a
// code that follows a word run without a connector.
func clauseEnd(norm string, start int, mentions []coursecode.Mention) int {
	state := itemNone
	for pos := start; pos < len(norm); {
		for pos < len(norm) && norm[pos] == ' ' {
			pos++
		}
		if pos >= len(norm) {
			break
		}
		end := strings.IndexByte(norm[pos:], ' ')
		if end < 0 {
			end = len(norm)
		} else {
			end += pos
		}
		word := norm[pos:end]

		switch codeToken(mentions, pos) {
		case codeStart:
			if state == itemWords {
				return pos
			}
			state = itemCode
			pos = end
			continue
		case codeRest:
			pos = end
			continue
		}

		_, connector := clauseConnectors[word]
		_, filler := clauseFillers[word]
		_, stop := clauseBreaks[word]
		switch {
		case connector:
			state = itemNone
		case filler:
		case stop, state == itemCode:
			return pos
		default:
			state = itemWords
		}
		pos = end
	}
	return len(norm)
}

const (
	notCode = iota
	codeStart
	codeRest
)

func codeToken(mentions []coursecode.Mention, pos int) int {
	for _, m := range mentions {
		switch {
		case pos == m.Position:
			return codeStart
		case pos > m.Position && pos < m.Position+len(m.Span):
			return codeRest
		}
	}
	return notCode
}
