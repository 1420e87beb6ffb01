// Package catalogfile loads a catalogue snapshot (YAML or JSON) into the
// relational store. It is an offline tool; the query path never writes.
package catalogfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	repos "github.com/yungbote/coursebridge-backend/internal/data/repos/catalog"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/coursecode"
	"github.com/yungbote/coursebridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

type fileCourse struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Credits     float64  `yaml:"credits"`
	OfferedBy   string   `yaml:"offered_by"`
	Offered     []string `yaml:"offered"`
	PrereqText  string   `yaml:"prereq_text"`
	CoreqText   string   `yaml:"coreq_text"`
	Prereqs     []string `yaml:"prereqs"`
	Coreqs      []string `yaml:"coreqs"`
}

type file struct {
	Courses []fileCourse `yaml:"courses"`
}

type Snapshot struct {
	Courses []*types.Course
	Edges   []*types.PrereqEdge
}

type Stats struct {
	Courses      int `json:"courses"`
	Edges        int `json:"edges"`
	EdgesCreated int `json:"edges_created"`
}

// Parse validates every id up front so a bad file writes nothing. Edges may
// point at courses outside the file.
func Parse(r io.Reader) (Snapshot, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Snapshot{}, fmt.Errorf("parse catalogue: %w", err)
	}

	var snap Snapshot
	seen := map[string]struct{}{}
	edgeSeen := map[types.PrereqEdge]struct{}{}
	for i, fc := range f.Courses {
		id, ok := coursecode.Canonical(fc.ID)
		if !ok {
			return Snapshot{}, fmt.Errorf("courses[%d]: bad course id %q", i, fc.ID)
		}
		if _, dup := seen[id]; dup {
			return Snapshot{}, fmt.Errorf("courses[%d]: duplicate course %s", i, id)
		}
		seen[id] = struct{}{}
		if strings.TrimSpace(fc.Title) == "" {
			return Snapshot{}, fmt.Errorf("courses[%d]: %s has no title", i, id)
		}

		subject, number := coursecode.Split(id)
		c := &types.Course{
			ID:          id,
			Subject:     subject,
			Number:      number,
			Title:       strings.TrimSpace(fc.Title),
			Description: strings.TrimSpace(fc.Description),
			Credits:     fc.Credits,
			OfferedBy:   strings.TrimSpace(fc.OfferedBy),
			PrereqText:  strings.TrimSpace(fc.PrereqText),
			CoreqText:   strings.TrimSpace(fc.CoreqText),
		}
		for _, term := range fc.Offered {
			switch types.ParseTerm(term) {
			case types.TermFall:
				c.OfferedFall = true
			case types.TermWinter:
				c.OfferedWinter = true
			case types.TermSummer:
				c.OfferedSummer = true
			default:
				return Snapshot{}, fmt.Errorf("courses[%d]: %s has unknown term %q", i, id, term)
			}
		}
		snap.Courses = append(snap.Courses, c)

		for _, group := range []struct {
			kind types.EdgeKind
			ids  []string
		}{{types.EdgePrereq, fc.Prereqs}, {types.EdgeCoreq, fc.Coreqs}} {
			for _, raw := range group.ids {
				src, ok := coursecode.Canonical(raw)
				if !ok {
					return Snapshot{}, fmt.Errorf("courses[%d]: %s lists bad requirement %q", i, id, raw)
				}
				e := types.PrereqEdge{SourceID: src, DestinationID: id, Kind: group.kind}
				if _, dup := edgeSeen[e]; dup {
					continue
				}
				edgeSeen[e] = struct{}{}
				snap.Edges = append(snap.Edges, &e)
			}
		}
	}

	sort.Slice(snap.Courses, func(i, j int) bool { return snap.Courses[i].ID < snap.Courses[j].ID })
	sort.Slice(snap.Edges, func(i, j int) bool {
		a, b := snap.Edges[i], snap.Edges[j]
		if a.DestinationID != b.DestinationID {
			return a.DestinationID < b.DestinationID
		}
		if a.Kind != b.Kind {
			return a.Kind > b.Kind
		}
		return a.SourceID < b.SourceID
	})
	return snap, nil
}

// Load writes a snapshot in one transaction. Courses are upserted; edges
// already present are left alone.
func Load(ctx context.Context, db *gorm.DB, log *logger.Logger, snap Snapshot) (Stats, error) {
	st := Stats{Courses: len(snap.Courses), Edges: len(snap.Edges)}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := repos.NewCourseRepo(tx, log).Upsert(dbc, snap.Courses); err != nil {
			return fmt.Errorf("upsert courses: %w", err)
		}
		n, err := repos.NewPrereqEdgeRepo(tx, log).CreateIgnoreDuplicates(dbc, snap.Edges)
		if err != nil {
			return fmt.Errorf("insert edges: %w", err)
		}
		st.EdgesCreated = n
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	log.Info("Catalogue loaded", "courses", st.Courses, "edges", st.Edges, "edges_created", st.EdgesCreated)
	return st, nil
}
