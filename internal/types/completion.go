package types

import "strings"

type CompletionStatus string

const (
	StatusCompleted  CompletionStatus = "completed"
	StatusInProgress CompletionStatus = "in_progress"
	StatusPlanned    CompletionStatus = "planned"
)

func (s CompletionStatus) Valid() bool {
	switch s {
	case StatusCompleted, StatusInProgress, StatusPlanned:
		return true
	}
	return false
}

type Term string

const (
	TermWinter Term = "winter"
	TermSummer Term = "summer"
	TermFall   Term = "fall"
)

// ParseTerm is lenient about case and whitespace; unknown input yields "".
func ParseTerm(s string) Term {
	switch Term(strings.ToLower(strings.TrimSpace(s))) {
	case TermWinter:
		return TermWinter
	case TermSummer:
		return TermSummer
	case TermFall:
		return TermFall
	}
	return ""
}

func (t Term) order() int {
	switch t {
	case TermWinter:
		return 1
	case TermSummer:
		return 2
	case TermFall:
		return 3
	}
	return 0
}

// CompletionRecord is the asker's own view of one course. It comes in with the
// request and is never persisted.
type CompletionRecord struct {
	CourseID string           `json:"course_id" validate:"required"`
	Status   CompletionStatus `json:"status" validate:"required,oneof=completed in_progress planned"`
	Term     Term             `json:"term,omitempty" validate:"omitempty,oneof=winter summer fall"`
	Year     int              `json:"year,omitempty" validate:"omitempty,min=1900,max=2200"`
}

// HasTerm reports whether the record pins a concrete academic term.
func (r CompletionRecord) HasTerm() bool { return r.Term.order() > 0 && r.Year > 0 }

// TermNotAfter reports whether r is scheduled in the same term as other or earlier.
// Both records must carry a term.
func (r CompletionRecord) TermNotAfter(other CompletionRecord) bool {
	if r.Year != other.Year {
		return r.Year < other.Year
	}
	return r.Term.order() <= other.Term.order()
}
