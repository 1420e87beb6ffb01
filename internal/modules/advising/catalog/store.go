// Package catalog is the read side of the course graph: course records,
// PREREQ/COREQ edges and fuzzy course references.
package catalog

import (
	"context"
	"strconv"

	"github.com/yungbote/coursebridge-backend/internal/types"
)

// Store is read-only. A course that does not exist is reported through the
// found flag or an absent map key, never through an error. Every error wraps
// errors.ErrStoreUnavailable.
type Store interface {
	GetCourse(ctx context.Context, id string) (*types.Course, bool, error)
	// GetCourses returns the subset of ids that exist, keyed by id.
	GetCourses(ctx context.Context, ids []string) (map[string]*types.Course, error)
	// GetIncomingEdges lists what the course requires (edges whose destination is id).
	GetIncomingEdges(ctx context.Context, id string) ([]types.PrereqEdge, error)
	// GetOutgoingEdges lists what requires the course (edges whose source is id).
	GetOutgoingEdges(ctx context.Context, id string) ([]types.PrereqEdge, error)
	// GetRequirements batches GetIncomingEdges; ids without edges are absent.
	GetRequirements(ctx context.Context, ids []string) (map[string][]types.PrereqEdge, error)
	// ListCourses returns courses matching f in id order.
	ListCourses(ctx context.Context, f CourseFilter) ([]*types.Course, error)
	FindByText(ctx context.Context, text string) ([]Candidate, error)
}

// CourseFilter narrows a catalogue listing. Zero fields do not filter.
type CourseFilter struct {
	Subject string
	// Level is a hundred band of course numbers: 300 selects 300-399.
	Level int
	Term  types.Term
	Limit int
}

// NumberPrefix is the leading digit that selects the Level band.
func (f CourseFilter) NumberPrefix() string {
	if f.Level < 100 || f.Level > 999 {
		return ""
	}
	return strconv.Itoa(f.Level / 100)
}
