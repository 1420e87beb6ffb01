package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/yungbote/coursebridge-backend/internal/data/repos/testutil"
	"github.com/yungbote/coursebridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

func TestCourseRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewCourseRepo(db, testutil.Logger(t))

	rows := []*types.Course{
		testutil.Course("MATH-140", "Calculus 1"),
		testutil.Course("MATH-141", "Calculus 2"),
		testutil.Course("COMP-250", "Introduction to Computer Science"),
		testutil.Course("ECSE-250", "Introduction to Computer Science"),
	}
	if err := repo.Upsert(dbc, rows); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := repo.GetByID(dbc, "MATH-141")
	if err != nil || got == nil || got.Title != "Calculus 2" {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if missing, err := repo.GetByID(dbc, "MATH-999"); err != nil || missing != nil {
		t.Fatalf("GetByID(missing): got=%v err=%v", missing, err)
	}

	if list, err := repo.GetByIDs(dbc, []string{"MATH-141", "MATH-140", "NOPE-000"}); err != nil || len(list) != 2 || list[0].ID != "MATH-140" {
		t.Fatalf("GetByIDs: err=%v rows=%v", err, list)
	}
	if list, err := repo.GetBySubject(dbc, "math"); err != nil || len(list) != 2 {
		t.Fatalf("GetBySubject: err=%v len=%d", err, len(list))
	}

	updated := testutil.Course("MATH-140", "Calculus I")
	if err := repo.Upsert(dbc, []*types.Course{updated}); err != nil {
		t.Fatalf("Upsert(update): %v", err)
	}
	if got, _ := repo.GetByID(dbc, "MATH-140"); got == nil || got.Title != "Calculus I" {
		t.Fatalf("Upsert did not update title: %v", got)
	}

	titles, err := repo.ListTitles(dbc)
	if err != nil || len(titles) != 4 || titles[0].ID != "COMP-250" {
		t.Fatalf("ListTitles: err=%v titles=%v", err, titles)
	}

	page, err := repo.ListPage(dbc, "COMP-250", 2)
	if err != nil || len(page) != 2 || page[0].ID != "ECSE-250" {
		t.Fatalf("ListPage: err=%v page=%v", err, page)
	}
	if n, err := repo.Count(dbc); err != nil || n != 4 {
		t.Fatalf("Count: n=%d err=%v", n, err)
	}
}

func TestCourseRepoFind(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewCourseRepo(db, testutil.Logger(t))

	winterOnly := testutil.Course("COMP-302", "Programming Languages and Paradigms")
	winterOnly.OfferedFall = false
	winterOnly.OfferedWinter = true
	testutil.SeedCourses(t, db,
		testutil.Course("COMP-250", "Introduction to Computer Science"),
		testutil.Course("COMP-310", "Operating Systems"),
		winterOnly,
		testutil.Course("MATH-323", "Probability"),
	)

	ids := func(rows []*types.Course) []string {
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.ID)
		}
		return out
	}
	cases := []struct {
		name string
		q    CourseQuery
		want []string
	}{
		{"subject", CourseQuery{Subject: "comp"}, []string{"COMP-250", "COMP-302", "COMP-310"}},
		{"level band", CourseQuery{Subject: "COMP", NumberPrefix: "3"}, []string{"COMP-302", "COMP-310"}},
		{"term", CourseQuery{NumberPrefix: "3", Term: types.TermFall}, []string{"COMP-310", "MATH-323"}},
		{"winter", CourseQuery{Term: types.TermWinter}, []string{"COMP-302"}},
		{"limit", CourseQuery{Limit: 2}, []string{"COMP-250", "COMP-302"}},
	}
	for _, tc := range cases {
		got, err := repo.Find(dbc, tc.q)
		if err != nil {
			t.Fatalf("%s: Find: %v", tc.name, err)
		}
		if g := ids(got); strings.Join(g, ",") != strings.Join(tc.want, ",") {
			t.Fatalf("%s: got %v want %v", tc.name, g, tc.want)
		}
	}
}
