// Package eligibility decides whether an asker may enrol in a course given the
// courses they have completed, are taking, or plan to take.
//
// Only the immediate incoming edges of the target are checked and every edge is
// mandatory. Alternatives ("one of A or B") and transitive chains are not modelled.
package eligibility

import (
	"context"
	"fmt"
	"sort"

	"github.com/yungbote/coursebridge-backend/internal/modules/advising/catalog"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

type Status string

const (
	StatusEligible   Status = "eligible"
	StatusIneligible Status = "ineligible"
	StatusUnknown    Status = "unknown"
)

type UnmetReason string

const (
	ReasonNotCompleted  UnmetReason = "not_completed"
	ReasonNotEnrolled   UnmetReason = "not_enrolled"
	ReasonTermOrder     UnmetReason = "planned_after_target"
	ReasonUnknownCourse UnmetReason = "unknown_course"
)

type Requirement struct {
	CourseID string         `json:"course_id"`
	Kind     types.EdgeKind `json:"kind"`
}

type UnmetRequirement struct {
	Requirement
	Reason UnmetReason `json:"reason"`
	// Have is the asker's status for the course, empty when they have no record.
	Have types.CompletionStatus `json:"have,omitempty"`
}

type Verdict struct {
	CourseID  string             `json:"course_id"`
	Status    Status             `json:"status"`
	Unmet     []UnmetRequirement `json:"unmet,omitempty"`
	Satisfied []Requirement      `json:"satisfied,omitempty"`
	// Assumed lists courses treated as completed because the question said so.
	Assumed []string `json:"assumed,omitempty"`
}

func (v Verdict) Hypothetical() bool { return len(v.Assumed) > 0 }

type Resolver struct {
	store catalog.Store
	log   *logger.Logger
}

func NewResolver(store catalog.Store, baseLog *logger.Logger) *Resolver {
	return &Resolver{store: store, log: baseLog.With("service", "EligibilityResolver")}
}

// Resolve fetches the target and its incoming edges and evaluates them against
// completions. A missing target yields StatusUnknown, not an error; errors only
// come from the store.
func (r *Resolver) Resolve(ctx context.Context, targetID string, completions []types.CompletionRecord) (Verdict, error) {
	_, found, err := r.store.GetCourse(ctx, targetID)
	if err != nil {
		return Verdict{}, fmt.Errorf("eligibility target %s: %w", targetID, err)
	}
	if !found {
		return Verdict{CourseID: targetID, Status: StatusUnknown}, nil
	}

	edges, err := r.store.GetIncomingEdges(ctx, targetID)
	if err != nil {
		return Verdict{}, fmt.Errorf("eligibility edges %s: %w", targetID, err)
	}

	sourceIDs := make([]string, 0, len(edges))
	for _, e := range edges {
		sourceIDs = append(sourceIDs, e.SourceID)
	}
	known, err := r.store.GetCourses(ctx, sourceIDs)
	if err != nil {
		return Verdict{}, fmt.Errorf("eligibility sources %s: %w", targetID, err)
	}

	v := Evaluate(targetID, edges, known, completions)
	r.log.Debug("Eligibility resolved",
		"course_id", targetID,
		"status", v.Status,
		"edges", len(edges),
		"unmet", len(v.Unmet),
	)
	return v, nil
}

// Evaluate is the pure core of Resolve. known holds the source courses that
// exist in the store; an edge whose source is absent is reported unmet.
func Evaluate(targetID string, edges []types.PrereqEdge, known map[string]*types.Course, completions []types.CompletionRecord) Verdict {
	recs := indexCompletions(completions)
	target, hasTarget := recs[targetID]

	sorted := append([]types.PrereqEdge(nil), edges...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Kind != sorted[j].Kind {
			return sorted[i].Kind == types.EdgePrereq
		}
		return sorted[i].SourceID < sorted[j].SourceID
	})

	v := Verdict{CourseID: targetID, Status: StatusEligible}
	seen := make(map[Requirement]struct{}, len(sorted))
	for _, e := range sorted {
		req := Requirement{CourseID: e.SourceID, Kind: e.Kind}
		if _, dup := seen[req]; dup {
			continue
		}
		seen[req] = struct{}{}

		rec, has := recs[e.SourceID]
		if _, ok := known[e.SourceID]; !ok {
			v.Unmet = append(v.Unmet, UnmetRequirement{Requirement: req, Reason: ReasonUnknownCourse, Have: rec.Status})
			continue
		}

		switch e.Kind {
		case types.EdgeCoreq:
			switch {
			case !has || strength(rec.Status) == 0:
				v.Unmet = append(v.Unmet, UnmetRequirement{Requirement: req, Reason: ReasonNotEnrolled})
			case rec.Status == types.StatusPlanned && hasTarget && target.HasTerm() && rec.HasTerm() && !rec.TermNotAfter(target):
				v.Unmet = append(v.Unmet, UnmetRequirement{Requirement: req, Reason: ReasonTermOrder, Have: rec.Status})
			default:
				v.Satisfied = append(v.Satisfied, req)
			}
		default:
			if has && rec.Status == types.StatusCompleted {
				v.Satisfied = append(v.Satisfied, req)
				continue
			}
			v.Unmet = append(v.Unmet, UnmetRequirement{Requirement: req, Reason: ReasonNotCompleted, Have: rec.Status})
		}
	}

	if len(v.Unmet) > 0 {
		v.Status = StatusIneligible
	}
	return v
}

// indexCompletions keeps the strongest record per course: completed beats
// in_progress beats planned.
func indexCompletions(completions []types.CompletionRecord) map[string]types.CompletionRecord {
	out := make(map[string]types.CompletionRecord, len(completions))
	for _, c := range completions {
		prev, ok := out[c.CourseID]
		if !ok || strength(c.Status) > strength(prev.Status) {
			out[c.CourseID] = c
		}
	}
	return out
}

func strength(s types.CompletionStatus) int {
	switch s {
	case types.StatusCompleted:
		return 3
	case types.StatusInProgress:
		return 2
	case types.StatusPlanned:
		return 1
	}
	return 0
}
