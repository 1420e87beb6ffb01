package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursebridge-backend/internal/data/repos"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
)

type Repos struct {
	Course     repos.CourseRepo
	PrereqEdge repos.PrereqEdgeRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Course:     repos.NewCourseRepo(db, log),
		PrereqEdge: repos.NewPrereqEdgeRepo(db, log),
	}
}
