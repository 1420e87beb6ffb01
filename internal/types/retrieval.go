package types

type Provenance string

const (
	ProvenanceDeterministic Provenance = "deterministic"
	ProvenanceSemantic      Provenance = "semantic"
)

// RetrievalHit scores are only comparable within a single provenance.
type RetrievalHit struct {
	CourseID   string     `json:"course_id"`
	Score      float64    `json:"score"`
	Provenance Provenance `json:"provenance"`
}
