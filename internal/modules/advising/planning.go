package advising

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/coursebridge-backend/internal/modules/advising/catalog"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/coursecode"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/eligibility"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/hybrid"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/intent"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

// requirementTextEntries adds the courses named in the raw requirement text of
// the targets, in text order, skipping ids already held. Codes the store does
// not know are dropped; the text itself stays on the target's course record.
func (e *Engine) requirementTextEntries(ctx context.Context, targets []hybrid.Entry, held map[string]struct{}) ([]hybrid.Entry, error) {
	var ids []string
	seen := map[string]struct{}{}
	for _, t := range targets {
		if t.Course == nil {
			continue
		}
		for _, text := range []string{t.Course.PrereqText, t.Course.CoreqText} {
			for _, m := range coursecode.Extract(coursecode.Normalize(text)) {
				if _, ok := held[m.ID]; ok {
					continue
				}
				if _, ok := seen[m.ID]; ok {
					continue
				}
				seen[m.ID] = struct{}{}
				ids = append(ids, m.ID)
			}
		}
	}
	if len(ids) > e.cfg.RelatedLimit {
		ids = ids[:e.cfg.RelatedLimit]
	}
	if len(ids) == 0 {
		return nil, nil
	}

	found, err := e.store.GetCourses(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("requirement text courses: %w", err)
	}
	courses := make([]*types.Course, 0, len(found))
	for _, id := range ids {
		if c, ok := found[id]; ok {
			courses = append(courses, c)
			held[id] = struct{}{}
		}
	}
	return e.catalogEntries(ctx, courses, matchedByRequirementText, nil)
}

// planning answers catalogue-wide questions from the store: entry-level
// courses, a level band, or what the asker can take now. Recommendation
// questions become a level listing when they name a level of 200 or more and
// an entry-level listing otherwise. Listings other than entry-level and
// available need a subject.
func (e *Engine) planning(ctx context.Context, p intent.Planning, completions []types.CompletionRecord, assumed []string) ([]hybrid.Entry, error) {
	kind := p.Kind
	if kind == intent.PlanRecommendation {
		if p.Subject == "" {
			return nil, nil
		}
		kind = intent.PlanEntryLevel
		if p.Level >= 200 {
			kind = intent.PlanByLevel
		}
	}
	if (kind == intent.PlanByLevel || kind == intent.PlanBrowse) && p.Subject == "" {
		return nil, nil
	}

	ctx, span := e.tracer.Start(ctx, "advising.planning")
	defer span.End()

	f := catalog.CourseFilter{Subject: p.Subject, Term: p.Term, Limit: e.cfg.PlanningScan}
	if kind == intent.PlanByLevel {
		f.Level = p.Level
	}
	courses, err := e.store.ListCourses(ctx, f)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("planning listing: %w", err)
	}
	if len(courses) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	reqs, err := e.store.GetRequirements(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("planning requirements: %w", err)
	}

	picked := courses
	var verdicts map[string]eligibility.Verdict
	switch kind {
	case intent.PlanEntryLevel:
		picked = entryLevel(courses, reqs)
	case intent.PlanAvailable:
		picked, verdicts, err = e.available(ctx, courses, reqs, completions)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	}
	if len(picked) > e.cfg.PlanningLimit {
		picked = picked[:e.cfg.PlanningLimit]
	}

	entries, err := e.catalogEntries(ctx, picked, matchedByPlanning, reqs)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if v, ok := verdicts[entries[i].CourseID]; ok {
			v.Assumed = assumed
			entries[i].Verdict = &v
		}
	}
	e.log.Debug("Planning listing built", "kind", string(kind), "subject", p.Subject, "scanned", len(courses), "picked", len(entries))
	return entries, nil
}

// entryLevel keeps courses with no PREREQ edge and no prerequisite text, lowest
// course number first.
func entryLevel(courses []*types.Course, reqs map[string][]types.PrereqEdge) []*types.Course {
	var out []*types.Course
	for _, c := range courses {
		if hasPrereqEdge(reqs[c.ID]) || hasRequirementText(c) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// available keeps courses the asker has not taken or started whose verdict is
// eligible. A course with requirement text but no edges cannot be checked and
// is left out. Courses that had requirements come before those with none.
func (e *Engine) available(ctx context.Context, courses []*types.Course, reqs map[string][]types.PrereqEdge, completions []types.CompletionRecord) ([]*types.Course, map[string]eligibility.Verdict, error) {
	taken := make(map[string]struct{}, len(completions))
	for _, c := range completions {
		if c.Status == types.StatusCompleted || c.Status == types.StatusInProgress {
			taken[c.CourseID] = struct{}{}
		}
	}

	var sources []string
	seen := map[string]struct{}{}
	for _, c := range courses {
		for _, edge := range reqs[c.ID] {
			if _, ok := seen[edge.SourceID]; !ok {
				seen[edge.SourceID] = struct{}{}
				sources = append(sources, edge.SourceID)
			}
		}
	}
	known, err := e.store.GetCourses(ctx, sources)
	if err != nil {
		return nil, nil, fmt.Errorf("planning requirement courses: %w", err)
	}

	var unlocked, open []*types.Course
	verdicts := map[string]eligibility.Verdict{}
	for _, c := range courses {
		if _, ok := taken[c.ID]; ok {
			continue
		}
		edges := reqs[c.ID]
		if len(edges) == 0 && hasRequirementText(c) {
			continue
		}
		v := eligibility.Evaluate(c.ID, edges, known, completions)
		if v.Status != eligibility.StatusEligible {
			continue
		}
		verdicts[c.ID] = v
		if len(edges) > 0 {
			unlocked = append(unlocked, c)
		} else {
			open = append(open, c)
		}
	}
	return append(unlocked, open...), verdicts, nil
}

// catalogEntries turns store rows into deterministic entries. reqs may be nil,
// in which case requirements are fetched in one batch.
func (e *Engine) catalogEntries(ctx context.Context, courses []*types.Course, matchedBy string, reqs map[string][]types.PrereqEdge) ([]hybrid.Entry, error) {
	if len(courses) == 0 {
		return nil, nil
	}
	if reqs == nil {
		ids := make([]string, 0, len(courses))
		for _, c := range courses {
			ids = append(ids, c.ID)
		}
		var err error
		if reqs, err = e.store.GetRequirements(ctx, ids); err != nil {
			return nil, fmt.Errorf("requirements: %w", err)
		}
	}
	out := make([]hybrid.Entry, 0, len(courses))
	for _, c := range courses {
		entry := hybrid.Entry{
			CourseID:     c.ID,
			Provenance:   types.ProvenanceDeterministic,
			MatchedBy:    matchedBy,
			Found:        true,
			Course:       c,
			OfferedTerms: c.OfferedTerms(),
		}
		for _, edge := range reqs[c.ID] {
			entry.Requirements = append(entry.Requirements, hybrid.Link{CourseID: edge.SourceID, Kind: edge.Kind})
		}
		out = append(out, entry)
	}
	return out, nil
}

func hasPrereqEdge(edges []types.PrereqEdge) bool {
	for _, e := range edges {
		if e.Kind == types.EdgePrereq {
			return true
		}
	}
	return false
}

func hasRequirementText(c *types.Course) bool {
	t := strings.ToLower(strings.TrimSpace(c.PrereqText))
	return t != "" && t != "none"
}
