// Package hybrid merges the deterministic course tier with semantic hits into
// one ordered context list.
package hybrid

import (
	"sort"

	"github.com/yungbote/coursebridge-backend/internal/modules/advising/eligibility"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

const DefaultMaxEntries = 12

// Link is one PREREQ/COREQ relation seen from an entry's course.
type Link struct {
	CourseID string         `json:"course_id"`
	Kind     types.EdgeKind `json:"kind"`
}

type Entry struct {
	CourseID   string           `json:"course_id"`
	Provenance types.Provenance `json:"provenance"`
	// Score is 1 for code mentions, the fuzzy match score for title and alias
	// references, 0 for courses added from requirement text or a planning
	// listing, and the similarity score for semantic hits.
	Score float64 `json:"score"`
	// MatchedBy says how a deterministic entry was found: code, alias, title,
	// requirement_text or planning.
	MatchedBy string `json:"matched_by,omitempty"`
	Found     bool   `json:"found"`

	Course       *types.Course        `json:"course,omitempty"`
	Requirements []Link               `json:"requirements,omitempty"`
	Dependents   []Link               `json:"dependents,omitempty"`
	OfferedTerms []types.Term         `json:"offered_terms,omitempty"`
	Verdict      *eligibility.Verdict `json:"verdict,omitempty"`

	Ambiguous    bool     `json:"ambiguous,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

type Options struct {
	// MaxEntries caps the merged list. Deterministic entries are never cut, so
	// the result can exceed it when the question names many courses. Zero or
	// less means no cap.
	MaxEntries int
}

type Result struct {
	Entries         []Entry `json:"entries"`
	DroppedSemantic int     `json:"dropped_semantic"`
}

// Merge keeps deterministic entries in the order given, then appends semantic
// entries by score descending (ties by course id). A course present in both
// tiers stays deterministic. Inputs are not modified and the same inputs always
// give the same output.
func Merge(deterministic, semantic []Entry, opt Options) Result {
	out := make([]Entry, 0, len(deterministic)+len(semantic))
	seen := make(map[string]struct{}, len(deterministic)+len(semantic))

	for _, e := range deterministic {
		if e.CourseID == "" {
			continue
		}
		if _, dup := seen[e.CourseID]; dup {
			continue
		}
		seen[e.CourseID] = struct{}{}
		e.Provenance = types.ProvenanceDeterministic
		out = append(out, e)
	}

	best := make(map[string]Entry, len(semantic))
	for _, e := range semantic {
		if e.CourseID == "" {
			continue
		}
		if _, det := seen[e.CourseID]; det {
			continue
		}
		if cur, ok := best[e.CourseID]; !ok || e.Score > cur.Score {
			e.Provenance = types.ProvenanceSemantic
			best[e.CourseID] = e
		}
	}
	tail := make([]Entry, 0, len(best))
	for _, e := range best {
		tail = append(tail, e)
	}
	sort.Slice(tail, func(i, j int) bool {
		if tail[i].Score != tail[j].Score {
			return tail[i].Score > tail[j].Score
		}
		return tail[i].CourseID < tail[j].CourseID
	})

	dropped := 0
	if opt.MaxEntries > 0 {
		room := opt.MaxEntries - len(out)
		if room < 0 {
			room = 0
		}
		if len(tail) > room {
			dropped = len(tail) - room
			tail = tail[:room]
		}
	}

	out = append(out, tail...)
	return Result{Entries: out, DroppedSemantic: dropped}
}

// Split partitions entries by provenance, preserving order.
func Split(entries []Entry) (deterministic, semantic []Entry) {
	for _, e := range entries {
		if e.Provenance == types.ProvenanceSemantic {
			semantic = append(semantic, e)
			continue
		}
		deterministic = append(deterministic, e)
	}
	return deterministic, semantic
}

// FromHits wraps semantic hits as entries without course details.
func FromHits(hits []types.RetrievalHit) []Entry {
	out := make([]Entry, 0, len(hits))
	for _, h := range hits {
		out = append(out, Entry{CourseID: h.CourseID, Score: h.Score, Provenance: types.ProvenanceSemantic})
	}
	return out
}
