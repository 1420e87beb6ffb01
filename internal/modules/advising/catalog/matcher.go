package catalog

import (
	"sort"
	"strings"

	"github.com/yungbote/coursebridge-backend/internal/modules/advising/coursecode"
)

type MatchSource string

const (
	MatchAlias        MatchSource = "alias"
	MatchTitleExact   MatchSource = "title_exact"
	MatchTitleInQuery MatchSource = "title_in_query"
	MatchQueryInTitle MatchSource = "query_in_title"
)

const (
	scoreAlias        = 1.0
	scoreTitleExact   = 0.9
	scoreTitleInQuery = 0.8
	scoreQueryInTitle = 0.6

	minTitleMatchLen     = 5
	maxQueryInTitleCands = 5
)

// Candidate is one fuzzy resolution of a phrase in the question. Span and
// Position refer to the normalized question text.
type Candidate struct {
	CourseID string      `json:"course_id"`
	Span     string      `json:"span"`
	Position int         `json:"position"`
	Score    float64     `json:"score"`
	Source   MatchSource `json:"source"`
}

type TitleEntry struct {
	ID    string
	Title string
}

// TitleIndex is an immutable snapshot of normalized catalogue titles.
type TitleIndex struct {
	entries []titleEntry
}

type titleEntry struct {
	id   string
	norm string
}

func NewTitleIndex(rows []TitleEntry) *TitleIndex {
	idx := &TitleIndex{entries: make([]titleEntry, 0, len(rows))}
	for _, r := range rows {
		n := coursecode.Normalize(r.Title)
		if n == "" {
			continue
		}
		idx.entries = append(idx.entries, titleEntry{id: r.ID, norm: n})
	}
	// longest title first so containment prefers the most specific title
	sort.SliceStable(idx.entries, func(i, j int) bool {
		a, b := idx.entries[i], idx.entries[j]
		if len(a.norm) != len(b.norm) {
			return len(a.norm) > len(b.norm)
		}
		return a.id < b.id
	})
	return idx
}

func (t *TitleIndex) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

var queryPrefixes = []string{
	"what are the prerequisites for",
	"what are the prereqs for",
	"what are the requirements for",
	"information about",
	"prerequisites for",
	"tell me about",
	"should i take",
	"prereqs for",
	"can i take",
	"describe",
	"info on",
	"what is",
	"what s",
}

var querySuffixes = []string{"course", "class", "about"}

// Matcher resolves informal course references: curated aliases first, then
// catalogue titles. It holds no mutable state.
type Matcher struct {
	aliases *AliasTable
}

func NewMatcher(aliases *AliasTable) *Matcher {
	return &Matcher{aliases: aliases}
}

// Match returns candidates ordered by score desc, position asc, course id asc.
// An empty result is the explicit "no match".
func (m *Matcher) Match(text string, titles *TitleIndex) []Candidate {
	norm := coursecode.Normalize(text)
	if norm == "" {
		return nil
	}
	var claims []claim
	out := m.matchAliases(norm, &claims)
	out = append(out, matchTitles(norm, titles, &claims)...)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.CourseID < b.CourseID
	})
	return out
}

type claim struct {
	start, end int
	span       string
}

// overlaps reports whether [start,end) collides with a claim made by a different phrase.
func overlaps(claims []claim, start, end int, span string) bool {
	for _, c := range claims {
		if start < c.end && c.start < end && c.span != span {
			return true
		}
	}
	return false
}

func (m *Matcher) matchAliases(norm string, claims *[]claim) []Candidate {
	if m == nil || m.aliases == nil {
		return nil
	}
	var out []Candidate
	type hit struct {
		id  string
		pos int
	}
	seen := map[hit]struct{}{}
	for _, a := range m.aliases.entries {
		for _, pos := range findWord(norm, a.Phrase) {
			end := pos + len(a.Phrase)
			if overlaps(*claims, pos, end, a.Phrase) {
				continue
			}
			key := hit{id: a.CourseID, pos: pos}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			*claims = append(*claims, claim{start: pos, end: end, span: a.Phrase})
			out = append(out, Candidate{
				CourseID: a.CourseID,
				Span:     a.Phrase,
				Position: pos,
				Score:    scoreAlias,
				Source:   MatchAlias,
			})
		}
	}
	return out
}

func matchTitles(norm string, titles *TitleIndex, claims *[]claim) []Candidate {
	if titles.Len() == 0 {
		return nil
	}
	cleaned := cleanQuery(norm)

	if cleaned != "" {
		var exact []Candidate
		pos := strings.Index(norm, cleaned)
		for _, e := range titles.entries {
			if e.norm == cleaned && !overlaps(*claims, pos, pos+len(cleaned), cleaned) {
				exact = append(exact, Candidate{CourseID: e.id, Span: cleaned, Position: pos, Score: scoreTitleExact, Source: MatchTitleExact})
			}
		}
		if len(exact) > 0 {
			return exact
		}
	}

	var contained []Candidate
	for _, e := range titles.entries {
		if len(e.norm) < minTitleMatchLen {
			continue
		}
		for _, pos := range findWord(norm, e.norm) {
			end := pos + len(e.norm)
			if overlaps(*claims, pos, end, e.norm) {
				continue
			}
			*claims = append(*claims, claim{start: pos, end: end, span: e.norm})
			contained = append(contained, Candidate{CourseID: e.id, Span: e.norm, Position: pos, Score: scoreTitleInQuery, Source: MatchTitleInQuery})
			break
		}
	}
	if len(contained) > 0 {
		return contained
	}

	if len(cleaned) < minTitleMatchLen {
		return nil
	}
	pos := strings.Index(norm, cleaned)
	if overlaps(*claims, pos, pos+len(cleaned), cleaned) {
		return nil
	}
	var partial []titleEntry
	for _, e := range titles.entries {
		if len(findWord(e.norm, cleaned)) > 0 {
			partial = append(partial, e)
		}
	}
	// shortest titles are the closest fit for a fragment
	sort.SliceStable(partial, func(i, j int) bool {
		if len(partial[i].norm) != len(partial[j].norm) {
			return len(partial[i].norm) < len(partial[j].norm)
		}
		return partial[i].id < partial[j].id
	})
	if len(partial) > maxQueryInTitleCands {
		partial = partial[:maxQueryInTitleCands]
	}
	out := make([]Candidate, 0, len(partial))
	for _, e := range partial {
		out = append(out, Candidate{CourseID: e.id, Span: cleaned, Position: pos, Score: scoreQueryInTitle, Source: MatchQueryInTitle})
	}
	return out
}

func cleanQuery(norm string) string {
	q := norm
	for changed := true; changed; {
		changed = false
		for _, p := range queryPrefixes {
			if q == p {
				return ""
			}
			if strings.HasPrefix(q, p+" ") {
				q = strings.TrimSpace(q[len(p):])
				changed = true
			}
		}
		for _, s := range querySuffixes {
			if strings.HasSuffix(q, " "+s) {
				q = strings.TrimSpace(q[:len(q)-len(s)])
				changed = true
			}
		}
	}
	return strings.TrimPrefix(strings.TrimPrefix(q, "the "), "a ")
}

// findWord returns every offset where needle occurs in hay on word boundaries.
func findWord(hay, needle string) []int {
	if needle == "" || len(needle) > len(hay) {
		return nil
	}
	var out []int
	for from := 0; from <= len(hay)-len(needle); {
		i := strings.Index(hay[from:], needle)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(needle)
		if (start == 0 || hay[start-1] == ' ') && (end == len(hay) || hay[end] == ' ') {
			out = append(out, start)
		}
		from = start + 1
	}
	return out
}
