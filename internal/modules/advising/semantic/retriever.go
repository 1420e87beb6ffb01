// Package semantic ranks catalogue courses by embedding similarity to free text.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yungbote/coursebridge-backend/internal/observability"
	apperr "github.com/yungbote/coursebridge-backend/internal/pkg/errors"
	"github.com/yungbote/coursebridge-backend/internal/platform/envutil"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/platform/vectorstore"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type Config struct {
	Namespace string
	TopK      int
	MinScore  float64
	Timeout   time.Duration

	BreakerName        string
	BreakerMinRequests uint32
	BreakerFailRatio   float64
	BreakerOpenFor     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Namespace:          "courses",
		TopK:               8,
		MinScore:           0.2,
		Timeout:            2 * time.Second,
		BreakerName:        "semantic",
		BreakerMinRequests: 5,
		BreakerFailRatio:   0.6,
		BreakerOpenFor:     30 * time.Second,
	}
}

func ConfigFromEnv() Config {
	def := DefaultConfig()
	return Config{
		Namespace:          envutil.String("SEMANTIC_NAMESPACE", def.Namespace),
		TopK:               envutil.Int("SEMANTIC_TOP_K", def.TopK),
		MinScore:           envutil.Float("SEMANTIC_MIN_SCORE", def.MinScore),
		Timeout:            envutil.Duration("SEMANTIC_TIMEOUT", def.Timeout),
		BreakerName:        def.BreakerName,
		BreakerMinRequests: uint32(envutil.Int("SEMANTIC_BREAKER_MIN_REQUESTS", int(def.BreakerMinRequests))),
		BreakerFailRatio:   envutil.Float("SEMANTIC_BREAKER_FAIL_RATIO", def.BreakerFailRatio),
		BreakerOpenFor:     envutil.Duration("SEMANTIC_BREAKER_OPEN_FOR", def.BreakerOpenFor),
	}
}

type RetrievalReason string

const (
	ReasonEmbed   RetrievalReason = "embed"
	ReasonIndex   RetrievalReason = "index"
	ReasonTimeout RetrievalReason = "timeout"
	ReasonOpen    RetrievalReason = "breaker_open"
)

// RetrievalError always matches errors.ErrRetrievalUnavailable.
type RetrievalError struct {
	Reason RetrievalReason
	Err    error
}

func (e *RetrievalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("semantic retrieval unavailable (%s)", e.Reason)
	}
	return fmt.Sprintf("semantic retrieval unavailable (%s): %v", e.Reason, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

func (e *RetrievalError) Is(target error) bool { return target == apperr.ErrRetrievalUnavailable }

type Retriever struct {
	embedder Embedder
	index    vectorstore.VectorStore
	cfg      Config
	breaker  *gobreaker.CircuitBreaker
	metrics  *observability.Metrics
	log      *logger.Logger
}

func NewRetriever(embedder Embedder, index vectorstore.VectorStore, cfg Config, metrics *observability.Metrics, baseLog *logger.Logger) *Retriever {
	def := DefaultConfig()
	if strings.TrimSpace(cfg.Namespace) == "" {
		cfg.Namespace = def.Namespace
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BreakerName == "" {
		cfg.BreakerName = def.BreakerName
	}
	if cfg.BreakerMinRequests == 0 {
		cfg.BreakerMinRequests = def.BreakerMinRequests
	}
	if cfg.BreakerFailRatio <= 0 {
		cfg.BreakerFailRatio = def.BreakerFailRatio
	}
	if cfg.BreakerOpenFor <= 0 {
		cfg.BreakerOpenFor = def.BreakerOpenFor
	}

	log := baseLog.With("service", "SemanticRetriever")
	r := &Retriever{embedder: embedder, index: index, cfg: cfg, metrics: metrics, log: log}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.BreakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.BreakerFailRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Semantic breaker state changed", "name", name, "from", from.String(), "to", to.String())
			metrics.SetBreakerState(name, int(to))
		},
	})
	return r
}

func (r *Retriever) Namespace() string { return r.cfg.Namespace }

// Retrieve returns up to k hits ordered by score descending, ties by course id.
// An empty slice is a valid answer. Any failure to reach the embedder or the
// index is a *RetrievalError.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]types.RetrievalHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []types.RetrievalHit{}, nil
	}
	if k <= 0 {
		k = r.cfg.TopK
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	out, err := r.breaker.Execute(func() (any, error) {
		return r.retrieve(ctx, query, k)
	})
	if err != nil {
		rerr := r.classify(ctx, err)
		r.metrics.ObserveRetrieval("unavailable", time.Since(start))
		r.log.Warn("Semantic retrieval failed", "reason", rerr.Reason, "error", err)
		return nil, rerr
	}

	hits := out.([]types.RetrievalHit)
	status := "ok"
	if len(hits) == 0 {
		status = "empty"
	}
	r.metrics.ObserveRetrieval(status, time.Since(start))
	return hits, nil
}

func (r *Retriever) retrieve(ctx context.Context, query string, k int) ([]types.RetrievalHit, error) {
	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, &RetrievalError{Reason: ReasonEmbed, Err: err}
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, &RetrievalError{Reason: ReasonEmbed, Err: errors.New("embedder returned no vector")}
	}

	matches, err := r.index.QueryMatches(ctx, r.cfg.Namespace, vecs[0], k, nil)
	if err != nil {
		return nil, &RetrievalError{Reason: ReasonIndex, Err: err}
	}
	return rankMatches(matches, r.cfg.MinScore, k), nil
}

func (r *Retriever) classify(ctx context.Context, err error) *RetrievalError {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &RetrievalError{Reason: ReasonOpen, Err: err}
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &RetrievalError{Reason: ReasonTimeout, Err: err}
	}
	var rerr *RetrievalError
	if errors.As(err, &rerr) {
		return rerr
	}
	return &RetrievalError{Reason: ReasonIndex, Err: err}
}

// rankMatches drops low scores, keeps the best score per id and orders the rest.
func rankMatches(matches []vectorstore.VectorMatch, minScore float64, k int) []types.RetrievalHit {
	best := make(map[string]float64, len(matches))
	for _, m := range matches {
		id := strings.TrimSpace(m.ID)
		if id == "" || m.Score < minScore {
			continue
		}
		if cur, ok := best[id]; !ok || m.Score > cur {
			best[id] = m.Score
		}
	}
	hits := make([]types.RetrievalHit, 0, len(best))
	for id, score := range best {
		hits = append(hits, types.RetrievalHit{CourseID: id, Score: score, Provenance: types.ProvenanceSemantic})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].CourseID < hits[j].CourseID
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
