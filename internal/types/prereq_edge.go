package types

import "time"

type EdgeKind string

const (
	EdgePrereq EdgeKind = "PREREQ"
	EdgeCoreq  EdgeKind = "COREQ"
)

func (k EdgeKind) Valid() bool { return k == EdgePrereq || k == EdgeCoreq }

// PrereqEdge says Source must be satisfied before (PREREQ) or alongside (COREQ)
// Destination. The triple is the identity; there is no surrogate key.
type PrereqEdge struct {
	SourceID      string   `gorm:"column:source_id;primaryKey;size:16" json:"source_id"`
	DestinationID string   `gorm:"column:destination_id;primaryKey;size:16;index" json:"destination_id"`
	Kind          EdgeKind `gorm:"column:kind;primaryKey;size:8" json:"kind"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (PrereqEdge) TableName() string { return "prereq_edge" }
