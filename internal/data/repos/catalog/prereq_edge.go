package catalog

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/coursebridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

type PrereqEdgeRepo interface {
	CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.PrereqEdge) (int, error)

	GetByDestinationIDs(dbc dbctx.Context, ids []string) ([]*types.PrereqEdge, error)
	GetBySourceIDs(dbc dbctx.Context, ids []string) ([]*types.PrereqEdge, error)
	ListPage(dbc dbctx.Context, offset, limit int) ([]*types.PrereqEdge, error)
}

type prereqEdgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPrereqEdgeRepo(db *gorm.DB, baseLog *logger.Logger) PrereqEdgeRepo {
	return &prereqEdgeRepo{db: db, log: baseLog.With("repo", "PrereqEdgeRepo")}
}

// CreateIgnoreDuplicates relies on the (source, destination, kind) primary key:
// re-inserting an edge is a no-op.
func (r *prereqEdgeRepo) CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.PrereqEdge) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	t := dbc.Pick(r.db)
	res := t.WithContext(dbc.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_id"}, {Name: "destination_id"}, {Name: "kind"}},
			DoNothing: true,
		}).
		Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

// GetByDestinationIDs answers "what does X require".
func (r *prereqEdgeRepo) GetByDestinationIDs(dbc dbctx.Context, ids []string) ([]*types.PrereqEdge, error) {
	t := dbc.Pick(r.db)
	var out []*types.PrereqEdge
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Context()).
		Where("destination_id IN ?", ids).
		Order("destination_id ASC, kind DESC, source_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetBySourceIDs answers "what requires X".
func (r *prereqEdgeRepo) GetBySourceIDs(dbc dbctx.Context, ids []string) ([]*types.PrereqEdge, error) {
	t := dbc.Pick(r.db)
	var out []*types.PrereqEdge
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Context()).
		Where("source_id IN ?", ids).
		Order("source_id ASC, kind DESC, destination_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *prereqEdgeRepo) ListPage(dbc dbctx.Context, offset, limit int) ([]*types.PrereqEdge, error) {
	t := dbc.Pick(r.db)
	if limit <= 0 {
		limit = 500
	}
	var out []*types.PrereqEdge
	if err := t.WithContext(dbc.Context()).
		Order("source_id ASC, destination_id ASC, kind ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
