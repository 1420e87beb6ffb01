package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/coursebridge-backend/internal/modules/advising/coursecode"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

type PlanningKind string

const (
	// PlanEntryLevel asks where to start: courses with no requirements.
	PlanEntryLevel PlanningKind = "entry_level"
	// PlanAvailable asks what the asker can take now.
	PlanAvailable      PlanningKind = "available"
	PlanByLevel        PlanningKind = "by_level"
	PlanRecommendation PlanningKind = "recommendation"
	// PlanBrowse names only a subject or term ("COMP courses in fall").
	PlanBrowse PlanningKind = "browse"
)

// Planning is a catalogue-wide question with optional subject, term and level
// filters. Level is the hundred band of course numbers (300 = 300-399).
type Planning struct {
	Kind    PlanningKind `json:"kind"`
	Subject string       `json:"subject,omitempty"`
	Term    types.Term   `json:"term,omitempty"`
	Level   int          `json:"level,omitempty"`
}

type subjectRule struct {
	re      *regexp.Regexp
	subject string
}

func subjects(rules ...string) []subjectRule {
	out := make([]subjectRule, 0, len(rules)/2)
	for i := 0; i+1 < len(rules); i += 2 {
		out = append(out, subjectRule{re: regexp.MustCompile(`\b(` + rules[i] + `)\b`), subject: rules[i+1]})
	}
	return out
}

// First match wins, so more specific phrases come before their prefixes.
var subjectRules = subjects(
	`software engineering|electrical engineering|ecse|ece|swe`, "ECSE",
	`computer science|computing|comp|cs`, "COMP",
	`mechanical engineering|mech`, "MECH",
	`civil engineering|cive`, "CIVE",
	`mathematics|maths|math`, "MATH",
	`physics|phys`, "PHYS",
	`biochemistry|biochem|bioc`, "BIOC",
	`chemistry|chem`, "CHEM",
	`biology|biol`, "BIOL",
	`neuroscience|nrsc`, "NRSC",
	`economics|econ`, "ECON",
	`psychology|psych|psyc`, "PSYC",
	`sociology|soci`, "SOCI",
	`anthropology|anth`, "ANTH",
	`political science|poli sci|poli`, "POLI",
	`geography|geog`, "GEOG",
	`linguistics|ling`, "LING",
	`art history|arth`, "ARTH",
	`history|hist`, "HIST",
	`english|engl`, "ENGL",
	`philosophy|phil`, "PHIL",
	`music|musc`, "MUSC",
	`management|mgmt`, "MGMT",
	`nursing|nurs`, "NURS",
)

var levelRules = []struct {
	re    *regexp.Regexp
	level int
}{
	{regexp.MustCompile(`\bu2\b|\b(second|2nd) year\b|\bsophomore\b`), 200},
	{regexp.MustCompile(`\bu3\b|\b(third|3rd) year\b|\bjunior\b`), 300},
	{regexp.MustCompile(`\bu4\b|\b(fourth|4th) year\b|\bsenior\b`), 400},
	{regexp.MustCompile(`\b(graduate|grad|masters?|phd)\b`), 500},
}

var levelBand = regexp.MustCompile(`\b([1-7])00[ -]?level\b`)

var entryLevelPattern = regexp.MustCompile(`\bu[01]\b|\bfoundation program\b|\bfirst (semester|year)\b|\bstart(ing)? (with|out)\b|\bbegin(ning|ner|ners)?\b|\bintro(ductory)?\b|\bentry[ -]?level\b|\bno prereq(uisite)?s?\b|\btake first\b`)

var availablePhrases = []string{
	"available to me",
	"available to take",
	"what can i take",
	"what courses can i take",
	"which courses can i take",
	"what am i eligible for",
	"eligible to take",
}

var recommendationPattern = regexp.MustCompile(`\bshould i take\b|\brecommend|\bsuggest|\b(best|good) (courses?|classes|electives?)\b|\bwhat (courses?|classes) (should|to)\b`)

// detectPlanning reads subject, term and level filters and picks one planning
// kind. Course code spans are blanked first so "I took MATH 140" does not read
// as a MATH question. It returns nil when the question carries no planning cue.
func detectPlanning(norm string, mentions []coursecode.Mention) *Planning {
	text := blankMentions(norm, mentions)
	p := Planning{
		Subject: detectSubject(text),
		Term:    detectTerm(text),
		Level:   detectLevel(text),
	}
	switch {
	case entryLevelPattern.MatchString(text):
		p.Kind = PlanEntryLevel
	case containsAny(text, availablePhrases):
		p.Kind = PlanAvailable
	case p.Level > 0:
		p.Kind = PlanByLevel
	case recommendationPattern.MatchString(text):
		p.Kind = PlanRecommendation
	case p.Subject != "":
		p.Kind = PlanBrowse
	default:
		return nil
	}
	return &p
}

func blankMentions(norm string, mentions []coursecode.Mention) string {
	if len(mentions) == 0 {
		return norm
	}
	b := []byte(norm)
	for _, m := range mentions {
		for i := m.Position; i < m.Position+len(m.Span) && i < len(b); i++ {
			b[i] = ' '
		}
	}
	return strings.Join(strings.Fields(string(b)), " ")
}

func detectSubject(text string) string {
	for _, r := range subjectRules {
		if r.re.MatchString(text) {
			return r.subject
		}
	}
	return ""
}

func detectTerm(text string) types.Term {
	switch {
	case containsAny(text, []string{"fall", "autumn", "first semester", "semester 1"}):
		return types.TermFall
	case containsAny(text, []string{"winter", "second semester", "semester 2"}):
		return types.TermWinter
	case containsAny(text, []string{"summer"}):
		return types.TermSummer
	}
	return ""
}

func detectLevel(text string) int {
	if m := levelBand.FindStringSubmatch(text); m != nil {
		d, _ := strconv.Atoi(m[1])
		return d * 100
	}
	for _, r := range levelRules {
		if r.re.MatchString(text) {
			return r.level
		}
	}
	return 0
}
