package advising

import (
	"sort"

	"github.com/yungbote/coursebridge-backend/internal/modules/advising/catalog"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/intent"
)

const (
	matchedByCode  = "code"
	matchedByAlias = "alias"
	matchedByTitle = "title"

	// courses the bundle adds on its own rather than the question naming them
	matchedByRequirementText = "requirement_text"
	matchedByPlanning        = "planning"
)

// reference is one course the question points at, in mention order.
type reference struct {
	courseID  string
	position  int
	score     float64
	matchedBy string
	assumed   bool
	ambiguity *Ambiguity
}

// collectReferences combines explicit codes with fuzzy candidates. Alias hits
// always count; title hits only when the question has no code or alias at all.
// Within one span the best-scored candidate wins, lowest id on a tie, and a tie
// is reported as an ambiguity.
func collectReferences(in intent.Intent, candidates []catalog.Candidate) []reference {
	var refs []reference
	for _, m := range in.Mentions {
		refs = append(refs, reference{
			courseID:  m.ID,
			position:  m.Position,
			score:     1,
			matchedBy: matchedByCode,
			assumed:   in.InCompletionClause(m.Position),
		})
	}

	var aliases, titles []catalog.Candidate
	for _, c := range candidates {
		if c.Source == catalog.MatchAlias {
			aliases = append(aliases, c)
		} else {
			titles = append(titles, c)
		}
	}
	refs = append(refs, pickBySpan(in, aliases, matchedByAlias)...)
	if len(refs) == 0 {
		refs = append(refs, pickBySpan(in, titles, matchedByTitle)...)
	}

	sort.SliceStable(refs, func(i, j int) bool { return refs[i].position < refs[j].position })

	out := refs[:0]
	seen := map[string]int{}
	for _, r := range refs {
		if i, dup := seen[r.courseID]; dup {
			// a later mention inside a completion clause still marks the course done
			out[i].assumed = out[i].assumed || r.assumed
			continue
		}
		seen[r.courseID] = len(out)
		out = append(out, r)
	}
	return out
}

type spanKey struct {
	span     string
	position int
}

func pickBySpan(in intent.Intent, cands []catalog.Candidate, matchedBy string) []reference {
	groups := map[spanKey][]catalog.Candidate{}
	var order []spanKey
	for _, c := range cands {
		k := spanKey{span: c.Span, position: c.Position}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], c)
	}

	out := make([]reference, 0, len(order))
	for _, k := range order {
		g := groups[k]
		sort.SliceStable(g, func(i, j int) bool {
			if g[i].Score != g[j].Score {
				return g[i].Score > g[j].Score
			}
			return g[i].CourseID < g[j].CourseID
		})
		top := g[0]
		ref := reference{
			courseID:  top.CourseID,
			position:  top.Position,
			score:     top.Score,
			matchedBy: matchedBy,
			assumed:   in.InCompletionClause(top.Position),
		}
		var alts []string
		for _, c := range g[1:] {
			if c.Score == top.Score && c.CourseID != top.CourseID {
				alts = append(alts, c.CourseID)
			}
		}
		if len(alts) > 0 {
			ref.ambiguity = &Ambiguity{
				Span:         top.Span,
				Position:     top.Position,
				Chosen:       top.CourseID,
				Alternatives: alts,
				Score:        top.Score,
			}
		}
		out = append(out, ref)
	}
	return out
}
