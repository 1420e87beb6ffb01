package types

import (
	"time"

	"gorm.io/datatypes"
)

// Course is one catalogue entry. ID is the canonical "SUBJ-###" code.
type Course struct {
	ID            string         `gorm:"column:id;primaryKey;size:16" json:"id"`
	Subject       string         `gorm:"column:subject;not null;index" json:"subject"`
	Number        string         `gorm:"column:number;not null" json:"number"`
	Title         string         `gorm:"column:title;not null;index" json:"title"`
	Description   string         `gorm:"column:description" json:"description"`
	Credits       float64        `gorm:"column:credits;not null;default:0" json:"credits"`
	OfferedBy     string         `gorm:"column:offered_by" json:"offered_by,omitempty"`
	OfferedFall   bool           `gorm:"column:offered_fall;not null;default:false" json:"offered_fall"`
	OfferedWinter bool           `gorm:"column:offered_winter;not null;default:false" json:"offered_winter"`
	OfferedSummer bool           `gorm:"column:offered_summer;not null;default:false" json:"offered_summer"`
	PrereqText    string         `gorm:"column:prereq_text" json:"prereq_text,omitempty"`
	CoreqText     string         `gorm:"column:coreq_text" json:"coreq_text,omitempty"`
	Metadata      datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

// OfferedTerms lists the terms the course runs in, in academic order.
func (c Course) OfferedTerms() []Term {
	out := make([]Term, 0, 3)
	if c.OfferedWinter {
		out = append(out, TermWinter)
	}
	if c.OfferedSummer {
		out = append(out, TermSummer)
	}
	if c.OfferedFall {
		out = append(out, TermFall)
	}
	return out
}
