// Package advising answers "what context does this course question need":
// it classifies the question, resolves course references against the course
// graph, computes eligibility verdicts, gathers semantic neighbours and merges
// everything into one Bundle.
package advising

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/coursebridge-backend/internal/modules/advising/catalog"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/coursecode"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/eligibility"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/hybrid"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/intent"
	"github.com/yungbote/coursebridge-backend/internal/observability"
	apperr "github.com/yungbote/coursebridge-backend/internal/pkg/errors"
	"github.com/yungbote/coursebridge-backend/internal/platform/envutil"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

// Retriever is the semantic side of the engine.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]types.RetrievalHit, error)
}

type Config struct {
	MaxEntries int
	SemanticK  int
	// LookupConcurrency bounds parallel per-course store lookups.
	LookupConcurrency    int
	DeterministicTimeout time.Duration
	SemanticTimeout      time.Duration
	// PlanningLimit caps the courses a planning question adds; PlanningScan
	// caps the catalogue rows read to find them.
	PlanningLimit int
	PlanningScan  int
	// RelatedLimit caps courses pulled in from requirement text.
	RelatedLimit int
}

func DefaultConfig() Config {
	return Config{
		MaxEntries:           hybrid.DefaultMaxEntries,
		SemanticK:            8,
		LookupConcurrency:    4,
		DeterministicTimeout: 3 * time.Second,
		SemanticTimeout:      2500 * time.Millisecond,
		PlanningLimit:        12,
		PlanningScan:         400,
		RelatedLimit:         6,
	}
}

func ConfigFromEnv() Config {
	def := DefaultConfig()
	return Config{
		MaxEntries:           envutil.Int("BUNDLE_MAX_ENTRIES", def.MaxEntries),
		SemanticK:            envutil.Int("SEMANTIC_TOP_K", def.SemanticK),
		LookupConcurrency:    envutil.Int("LOOKUP_CONCURRENCY", def.LookupConcurrency),
		DeterministicTimeout: envutil.Duration("DETERMINISTIC_TIMEOUT", def.DeterministicTimeout),
		SemanticTimeout:      envutil.Duration("SEMANTIC_PATH_TIMEOUT", def.SemanticTimeout),
		PlanningLimit:        envutil.Int("PLANNING_LIMIT", def.PlanningLimit),
		PlanningScan:         envutil.Int("PLANNING_SCAN_LIMIT", def.PlanningScan),
		RelatedLimit:         envutil.Int("RELATED_COURSE_LIMIT", def.RelatedLimit),
	}
}

type Engine struct {
	store     catalog.Store
	retriever Retriever
	cfg       Config
	metrics   *observability.Metrics
	tracer    trace.Tracer
	log       *logger.Logger
}

// NewEngine wires the engine. retriever may be nil, in which case every
// question that needs semantic context gets a partial bundle.
func NewEngine(store catalog.Store, retriever Retriever, cfg Config, metrics *observability.Metrics, baseLog *logger.Logger) *Engine {
	def := DefaultConfig()
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.SemanticK <= 0 {
		cfg.SemanticK = def.SemanticK
	}
	if cfg.LookupConcurrency <= 0 {
		cfg.LookupConcurrency = def.LookupConcurrency
	}
	if cfg.DeterministicTimeout <= 0 {
		cfg.DeterministicTimeout = def.DeterministicTimeout
	}
	if cfg.SemanticTimeout <= 0 {
		cfg.SemanticTimeout = def.SemanticTimeout
	}
	if cfg.PlanningLimit <= 0 {
		cfg.PlanningLimit = def.PlanningLimit
	}
	if cfg.PlanningScan <= 0 {
		cfg.PlanningScan = def.PlanningScan
	}
	if cfg.RelatedLimit <= 0 {
		cfg.RelatedLimit = def.RelatedLimit
	}
	return &Engine{
		store:     store,
		retriever: retriever,
		cfg:       cfg,
		metrics:   metrics,
		tracer:    otel.Tracer("coursebridge/advising"),
		log:       baseLog.With("service", "AdvisingEngine"),
	}
}

// ResolveContext builds the context bundle for one question. Store failures
// are returned as errors matching ErrStoreUnavailable; semantic failures only
// mark the bundle partial.
func (e *Engine) ResolveContext(ctx context.Context, question string, completions []types.CompletionRecord) (Bundle, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "advising.ResolveContext")
	defer span.End()

	bundle, err := e.resolve(ctx, question, completions)
	outcome := "ok"
	switch {
	case errors.Is(err, apperr.ErrInvalidArgument):
		outcome = "invalid"
	case err != nil:
		outcome = "store_unavailable"
	case bundle.IsPartial():
		outcome = "partial"
	}
	e.metrics.ObserveResolve(outcome, time.Since(start))
	span.SetAttributes(attribute.String("advising.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		e.log.Warn("Resolve context failed", "outcome", outcome, "error", err)
		return Bundle{}, err
	}
	return bundle, nil
}

func (e *Engine) resolve(ctx context.Context, question string, completions []types.CompletionRecord) (Bundle, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Bundle{}, fmt.Errorf("%w: question is empty", apperr.ErrInvalidArgument)
	}
	completions, err := normalizeCompletions(completions)
	if err != nil {
		return Bundle{}, err
	}

	in := intent.Classify(question)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("advising.mentioned", len(in.MentionedCourses)),
		attribute.Bool("advising.wants_eligibility", in.WantsEligibility),
		attribute.Bool("advising.wants_comparison", in.WantsComparison),
		attribute.Bool("advising.semantic_fallback", in.NeedsSemanticFallback),
	)

	var (
		det     deterministicResult
		sem     semanticResult
		wantSem = in.NeedsSemanticFallback || in.WantsComparison
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dctx, cancel := context.WithTimeout(gctx, e.cfg.DeterministicTimeout)
		defer cancel()
		var err error
		det, err = e.deterministic(dctx, question, in, completions)
		return err
	})
	if wantSem {
		g.Go(func() error {
			var err error
			sem, err = e.semantic(gctx, question, in)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Bundle{}, err
	}

	merged := hybrid.Merge(det.entries, sem.entries, hybrid.Options{MaxEntries: e.cfg.MaxEntries})
	b := Bundle{
		Question:        question,
		Intent:          in,
		Entries:         merged.Entries,
		Verdicts:        det.verdicts,
		Ambiguities:     det.ambiguities,
		DroppedSemantic: merged.DroppedSemantic,
		StaleSemantic:   sem.stale,
	}
	if wantSem && sem.unavailable {
		b.Partial = append(b.Partial, PartialSemanticUnavailable)
	}

	detTier, semTier := hybrid.Split(merged.Entries)
	e.metrics.ObserveBundle(len(detTier), len(semTier))
	e.metrics.IncAmbiguous(len(det.ambiguities))
	e.log.Debug("Context resolved",
		"mentioned", len(in.MentionedCourses),
		"entries", len(b.Entries),
		"verdicts", len(b.Verdicts),
		"partial", b.IsPartial(),
	)
	return b, nil
}

type deterministicResult struct {
	entries     []hybrid.Entry
	verdicts    []eligibility.Verdict
	ambiguities []Ambiguity
}

func (e *Engine) deterministic(ctx context.Context, question string, in intent.Intent, completions []types.CompletionRecord) (deterministicResult, error) {
	ctx, span := e.tracer.Start(ctx, "advising.deterministic")
	defer span.End()

	cands, err := e.store.FindByText(ctx, question)
	if err != nil {
		span.RecordError(err)
		return deterministicResult{}, fmt.Errorf("find references: %w", err)
	}
	refs := collectReferences(in, cands)

	assumed, effective := overlayAssumed(refs, completions)

	res := deterministicResult{entries: make([]hybrid.Entry, len(refs))}
	verdicts := make([]*eligibility.Verdict, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.LookupConcurrency)
	for i := range refs {
		ref := refs[i]
		g.Go(func() error {
			entry, v, err := e.lookup(gctx, ref, in, effective, assumed)
			if err != nil {
				return err
			}
			res.entries[i] = entry
			verdicts[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return deterministicResult{}, err
	}

	held := make(map[string]struct{}, len(refs))
	var targets []hybrid.Entry
	for i, ref := range refs {
		held[ref.courseID] = struct{}{}
		if !ref.assumed {
			targets = append(targets, res.entries[i])
		}
		if verdicts[i] != nil {
			res.verdicts = append(res.verdicts, *verdicts[i])
		}
		if ref.ambiguity != nil {
			res.ambiguities = append(res.ambiguities, *ref.ambiguity)
		}
	}

	related, err := e.requirementTextEntries(ctx, targets, held)
	if err != nil {
		span.RecordError(err)
		return deterministicResult{}, err
	}
	res.entries = append(res.entries, related...)

	if in.Planning != nil && len(targets) == 0 {
		planned, err := e.planning(ctx, *in.Planning, effective, assumed)
		if err != nil {
			span.RecordError(err)
			return deterministicResult{}, err
		}
		for _, entry := range planned {
			if _, dup := held[entry.CourseID]; !dup {
				held[entry.CourseID] = struct{}{}
				res.entries = append(res.entries, entry)
			}
		}
	}
	span.SetAttributes(
		attribute.Int("advising.references", len(refs)),
		attribute.Int("advising.related", len(related)),
	)
	return res, nil
}

// lookup fills one deterministic entry. A course missing from the store is a
// normal outcome, reported with Found=false and an unknown verdict.
func (e *Engine) lookup(ctx context.Context, ref reference, in intent.Intent, completions []types.CompletionRecord, assumed []string) (hybrid.Entry, *eligibility.Verdict, error) {
	entry := hybrid.Entry{
		CourseID:   ref.courseID,
		Provenance: types.ProvenanceDeterministic,
		Score:      ref.score,
		MatchedBy:  ref.matchedBy,
	}
	if ref.ambiguity != nil {
		entry.Ambiguous = true
		entry.Alternatives = ref.ambiguity.Alternatives
	}
	wantVerdict := in.WantsEligibility && !ref.assumed

	course, found, err := e.store.GetCourse(ctx, ref.courseID)
	if err != nil {
		return entry, nil, fmt.Errorf("lookup %s: %w", ref.courseID, err)
	}
	if !found {
		if wantVerdict {
			return entry, &eligibility.Verdict{CourseID: ref.courseID, Status: eligibility.StatusUnknown}, nil
		}
		return entry, nil, nil
	}
	entry.Found = true
	entry.Course = course
	entry.OfferedTerms = course.OfferedTerms()

	incoming, err := e.store.GetIncomingEdges(ctx, ref.courseID)
	if err != nil {
		return entry, nil, fmt.Errorf("requirements of %s: %w", ref.courseID, err)
	}
	for _, edge := range incoming {
		entry.Requirements = append(entry.Requirements, hybrid.Link{CourseID: edge.SourceID, Kind: edge.Kind})
	}

	if in.WantsDependents {
		outgoing, err := e.store.GetOutgoingEdges(ctx, ref.courseID)
		if err != nil {
			return entry, nil, fmt.Errorf("dependents of %s: %w", ref.courseID, err)
		}
		for _, edge := range outgoing {
			entry.Dependents = append(entry.Dependents, hybrid.Link{CourseID: edge.DestinationID, Kind: edge.Kind})
		}
	}

	if !wantVerdict {
		return entry, nil, nil
	}
	sources := make([]string, 0, len(incoming))
	for _, edge := range incoming {
		sources = append(sources, edge.SourceID)
	}
	known, err := e.store.GetCourses(ctx, sources)
	if err != nil {
		return entry, nil, fmt.Errorf("requirement courses of %s: %w", ref.courseID, err)
	}
	v := eligibility.Evaluate(ref.courseID, incoming, known, completions)
	v.Assumed = assumed
	entry.Verdict = &v
	return entry, &v, nil
}

type semanticResult struct {
	entries     []hybrid.Entry
	stale       int
	unavailable bool
}

// semantic runs the question query plus one query per mentioned course when a
// comparison was asked for. Only the retrieval calls are bounded by
// SemanticTimeout. Retrieval errors degrade; store errors while enriching hits
// are fatal like anywhere else.
func (e *Engine) semantic(ctx context.Context, question string, in intent.Intent) (semanticResult, error) {
	ctx, span := e.tracer.Start(ctx, "advising.semantic")
	defer span.End()

	if e.retriever == nil {
		span.SetAttributes(attribute.Bool("advising.semantic_unavailable", true))
		return semanticResult{unavailable: true}, nil
	}

	queries := []string{question}
	if in.WantsComparison {
		queries = append(queries, e.comparisonQueries(ctx, in.MentionedCourses)...)
	}

	var (
		mu          sync.Mutex
		hits        []types.RetrievalHit
		unavailable bool
	)
	rctx, cancel := context.WithTimeout(ctx, e.cfg.SemanticTimeout)
	defer cancel()
	var wg sync.WaitGroup
	for _, q := range queries {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			got, err := e.retriever.Retrieve(rctx, q, e.cfg.SemanticK)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				unavailable = true
				return
			}
			hits = append(hits, got...)
		}(q)
	}
	wg.Wait()

	res := semanticResult{unavailable: unavailable}
	if unavailable {
		span.SetAttributes(attribute.Bool("advising.semantic_unavailable", true))
	}
	if len(hits) == 0 {
		return res, nil
	}

	hits = bestPerCourse(hits)
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.CourseID)
	}
	courses, err := e.store.GetCourses(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return semanticResult{}, fmt.Errorf("semantic enrich: %w", err)
	}
	for _, entry := range hybrid.FromHits(hits) {
		c, ok := courses[entry.CourseID]
		if !ok {
			res.stale++
			continue
		}
		entry.Found = true
		entry.Course = c
		entry.OfferedTerms = c.OfferedTerms()
		res.entries = append(res.entries, entry)
	}
	if res.stale > 0 {
		e.log.Debug("Dropped semantic hits missing from store", "count", res.stale)
	}
	span.SetAttributes(attribute.Int("advising.semantic_hits", len(res.entries)))
	return res, nil
}

// bestPerCourse keeps the highest score for each course, first-seen order.
func bestPerCourse(hits []types.RetrievalHit) []types.RetrievalHit {
	idx := make(map[string]int, len(hits))
	out := make([]types.RetrievalHit, 0, len(hits))
	for _, h := range hits {
		if i, ok := idx[h.CourseID]; ok {
			if h.Score > out[i].Score {
				out[i] = h
			}
			continue
		}
		idx[h.CourseID] = len(out)
		out = append(out, h)
	}
	return out
}

// comparisonQueries describes each mentioned course by title and description
// when the store knows it, and by its code otherwise.
func (e *Engine) comparisonQueries(ctx context.Context, ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	courses, err := e.store.GetCourses(ctx, ids)
	if err != nil {
		e.log.Warn("Comparison query lookup failed; using course codes", "error", err)
		courses = nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		c, ok := courses[id]
		if !ok {
			out = append(out, id)
			continue
		}
		out = append(out, strings.TrimSpace(c.Title+". "+c.Description))
	}
	return out
}

// overlayAssumed treats courses the question claims are done as completed.
// It returns the ids that changed the asker's record and the effective list.
func overlayAssumed(refs []reference, completions []types.CompletionRecord) ([]string, []types.CompletionRecord) {
	have := make(map[string]types.CompletionStatus, len(completions))
	for _, c := range completions {
		if c.Status == types.StatusCompleted || have[c.CourseID] == "" {
			have[c.CourseID] = c.Status
		}
	}
	var assumed []string
	out := completions
	for _, r := range refs {
		if !r.assumed || have[r.courseID] == types.StatusCompleted {
			continue
		}
		if len(assumed) == 0 {
			out = append([]types.CompletionRecord(nil), completions...)
		}
		assumed = append(assumed, r.courseID)
		out = append(out, types.CompletionRecord{CourseID: r.courseID, Status: types.StatusCompleted})
	}
	return assumed, out
}

// normalizeCompletions canonicalises course ids and rejects unknown statuses.
func normalizeCompletions(in []types.CompletionRecord) ([]types.CompletionRecord, error) {
	out := make([]types.CompletionRecord, 0, len(in))
	for i, rec := range in {
		id, ok := coursecode.Canonical(rec.CourseID)
		if !ok {
			return nil, fmt.Errorf("%w: completions[%d]: bad course id %q", apperr.ErrInvalidArgument, i, rec.CourseID)
		}
		if !rec.Status.Valid() {
			return nil, fmt.Errorf("%w: completions[%d]: bad status %q", apperr.ErrInvalidArgument, i, rec.Status)
		}
		rec.CourseID = id
		out = append(out, rec)
	}
	return out, nil
}
