package advising

import (
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/eligibility"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/hybrid"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/intent"
)

// PartialSemanticUnavailable marks a bundle built without semantic hits because
// the index or embedder could not answer.
const PartialSemanticUnavailable = "semantic-unavailable"

// Ambiguity records a fuzzy reference that matched several courses equally
// well. Chosen is included in the bundle; the answer should hedge.
type Ambiguity struct {
	Span         string   `json:"span"`
	Position     int      `json:"position"`
	Chosen       string   `json:"chosen"`
	Alternatives []string `json:"alternatives"`
	Score        float64  `json:"score"`
}

// Bundle is the context handed to answer generation.
type Bundle struct {
	Question    string                `json:"question"`
	Intent      intent.Intent         `json:"intent"`
	Entries     []hybrid.Entry        `json:"entries"`
	Verdicts    []eligibility.Verdict `json:"verdicts,omitempty"`
	Ambiguities []Ambiguity           `json:"ambiguities,omitempty"`
	Partial     []string              `json:"partial,omitempty"`

	DroppedSemantic int `json:"dropped_semantic,omitempty"`
	// StaleSemantic counts semantic hits whose course was no longer in the store.
	StaleSemantic int `json:"stale_semantic,omitempty"`
}

func (b Bundle) IsPartial() bool { return len(b.Partial) > 0 }

// Verdict returns the verdict computed for a course, if any.
func (b Bundle) Verdict(courseID string) (eligibility.Verdict, bool) {
	for _, v := range b.Verdicts {
		if v.CourseID == courseID {
			return v, true
		}
	}
	return eligibility.Verdict{}, false
}

func (b Bundle) Entry(courseID string) (hybrid.Entry, bool) {
	for _, e := range b.Entries {
		if e.CourseID == courseID {
			return e, true
		}
	}
	return hybrid.Entry{}, false
}
