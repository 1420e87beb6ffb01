package catalog

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/coursebridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

// CourseTitle is the projection used to build the fuzzy title index.
type CourseTitle struct {
	ID    string `gorm:"column:id"`
	Title string `gorm:"column:title"`
}

// CourseQuery filters a catalogue listing. Empty fields do not filter.
type CourseQuery struct {
	Subject string
	// NumberPrefix matches the leading digits of the course number ("3" for 300-399).
	NumberPrefix string
	Term         types.Term
	Limit        int
}

type CourseRepo interface {
	Upsert(dbc dbctx.Context, rows []*types.Course) error

	GetByID(dbc dbctx.Context, id string) (*types.Course, error)
	GetByIDs(dbc dbctx.Context, ids []string) ([]*types.Course, error)
	GetBySubject(dbc dbctx.Context, subject string) ([]*types.Course, error)
	Find(dbc dbctx.Context, q CourseQuery) ([]*types.Course, error)

	ListTitles(dbc dbctx.Context) ([]CourseTitle, error)
	ListPage(dbc dbctx.Context, afterID string, limit int) ([]*types.Course, error)
	Count(dbc dbctx.Context) (int64, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

// Upsert is used by the offline loader and fixtures. Conflicts on id update
// the descriptive columns in place.
func (r *courseRepo) Upsert(dbc dbctx.Context, rows []*types.Course) error {
	if len(rows) == 0 {
		return nil
	}
	t := dbc.Pick(r.db)
	return t.WithContext(dbc.Context()).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"subject", "number", "title", "description", "credits", "offered_by",
				"offered_fall", "offered_winter", "offered_summer",
				"prereq_text", "coreq_text", "metadata", "updated_at",
			}),
		}).
		Create(&rows).Error
}

// GetByID returns (nil, nil) when the course does not exist.
func (r *courseRepo) GetByID(dbc dbctx.Context, id string) (*types.Course, error) {
	t := dbc.Pick(r.db)
	var c types.Course
	err := t.WithContext(dbc.Context()).Where("id = ?", id).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *courseRepo) GetByIDs(dbc dbctx.Context, ids []string) ([]*types.Course, error) {
	t := dbc.Pick(r.db)
	var out []*types.Course
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Context()).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseRepo) GetBySubject(dbc dbctx.Context, subject string) ([]*types.Course, error) {
	t := dbc.Pick(r.db)
	var out []*types.Course
	subject = strings.ToUpper(strings.TrimSpace(subject))
	if subject == "" {
		return out, nil
	}
	if err := t.WithContext(dbc.Context()).
		Where("subject = ?", subject).
		Order("number ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Find lists courses in id order.
func (r *courseRepo) Find(dbc dbctx.Context, q CourseQuery) ([]*types.Course, error) {
	t := dbc.Pick(r.db)
	if q.Limit <= 0 {
		q.Limit = 200
	}
	tx := t.WithContext(dbc.Context()).Order("id ASC").Limit(q.Limit)
	if subject := strings.ToUpper(strings.TrimSpace(q.Subject)); subject != "" {
		tx = tx.Where("subject = ?", subject)
	}
	if q.NumberPrefix != "" {
		tx = tx.Where("number LIKE ?", q.NumberPrefix+"%")
	}
	switch q.Term {
	case types.TermFall:
		tx = tx.Where("offered_fall = ?", true)
	case types.TermWinter:
		tx = tx.Where("offered_winter = ?", true)
	case types.TermSummer:
		tx = tx.Where("offered_summer = ?", true)
	}
	var out []*types.Course
	if err := tx.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseRepo) ListTitles(dbc dbctx.Context) ([]CourseTitle, error) {
	t := dbc.Pick(r.db)
	var out []CourseTitle
	if err := t.WithContext(dbc.Context()).
		Model(&types.Course{}).
		Select("id", "title").
		Order("id ASC").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListPage walks the catalogue in id order using keyset pagination.
func (r *courseRepo) ListPage(dbc dbctx.Context, afterID string, limit int) ([]*types.Course, error) {
	t := dbc.Pick(r.db)
	if limit <= 0 {
		limit = 200
	}
	q := t.WithContext(dbc.Context()).Order("id ASC").Limit(limit)
	if afterID != "" {
		q = q.Where("id > ?", afterID)
	}
	var out []*types.Course
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseRepo) Count(dbc dbctx.Context) (int64, error) {
	t := dbc.Pick(r.db)
	var n int64
	if err := t.WithContext(dbc.Context()).Model(&types.Course{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
