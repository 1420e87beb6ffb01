package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursebridge-backend/internal/data/repos/catalog"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
)

type CourseRepo = catalog.CourseRepo
type PrereqEdgeRepo = catalog.PrereqEdgeRepo
type CourseTitle = catalog.CourseTitle

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return catalog.NewCourseRepo(db, baseLog)
}

func NewPrereqEdgeRepo(db *gorm.DB, baseLog *logger.Logger) PrereqEdgeRepo {
	return catalog.NewPrereqEdgeRepo(db, baseLog)
}
