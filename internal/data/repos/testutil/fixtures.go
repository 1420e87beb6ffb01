package testutil

import (
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/coursebridge-backend/internal/types"
)

// Course builds a fixture row from a canonical id such as "COMP-250".
func Course(id, title string) *types.Course {
	subject, number, _ := strings.Cut(id, "-")
	return &types.Course{
		ID:          id,
		Subject:     subject,
		Number:      number,
		Title:       title,
		Description: title + " description.",
		Credits:     3,
		OfferedFall: true,
	}
}

func SeedCourses(tb testing.TB, db *gorm.DB, rows ...*types.Course) {
	tb.Helper()
	if len(rows) == 0 {
		return
	}
	if err := db.Create(&rows).Error; err != nil {
		tb.Fatalf("seed courses: %v", err)
	}
}

// SeedEdge inserts source -> destination of the given kind.
func SeedEdge(tb testing.TB, db *gorm.DB, source, destination string, kind types.EdgeKind) {
	tb.Helper()
	row := &types.PrereqEdge{SourceID: source, DestinationID: destination, Kind: kind}
	if err := db.Create(row).Error; err != nil {
		tb.Fatalf("seed edge %s->%s: %v", source, destination, err)
	}
}
