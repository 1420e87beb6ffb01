package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/coursebridge-backend/internal/platform/envutil"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
)

const defaultBatchSize = 128

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	BatchSize  int
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:     envutil.String("OPENAI_API_KEY", ""),
		BaseURL:    envutil.String("OPENAI_BASE_URL", ""),
		Model:      envutil.String("OPENAI_EMBED_MODEL", string(goopenai.SmallEmbedding3)),
		Dimensions: envutil.Int("OPENAI_EMBED_DIMENSIONS", 0),
		BatchSize:  envutil.Int("OPENAI_EMBED_BATCH", defaultBatchSize),
	}
}

// Embedder turns course text and questions into vectors through the OpenAI
// embeddings endpoint.
type Embedder struct {
	client *goopenai.Client
	cfg    Config
	log    *logger.Logger
}

func NewEmbedder(cfg Config, baseLog *logger.Logger) (*Embedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for embeddings")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = string(goopenai.SmallEmbedding3)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &Embedder{
		client: goopenai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		log:    baseLog.With("service", "OpenAIEmbedder", "model", cfg.Model),
	}, nil
}

// Model identifies the embedding space; vectors from different models are not comparable.
func (e *Embedder) Model() string { return e.cfg.Model }

// Embed returns one vector per input, in input order.
func (e *Embedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		vecs, err := e.embedBatch(ctx, inputs[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	clean := make([]string, len(inputs))
	for i := range inputs {
		s := strings.TrimSpace(inputs[i])
		if s == "" {
			s = " "
		}
		clean[i] = s
	}

	req := goopenai.EmbeddingRequest{
		Input:      clean,
		Model:      goopenai.EmbeddingModel(e.cfg.Model),
		Dimensions: e.cfg.Dimensions,
	}
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, classifyError(err)
	}

	// the API reports an index per item; rely on it rather than response order
	out := make([][]float32, len(clean))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	for i, v := range out {
		if v == nil {
			e.log.Warn("Embeddings response missing index", "index", i, "requested", len(clean), "returned", len(resp.Data))
			return nil, &EmbedError{Reason: "incomplete_response", Err: fmt.Errorf("missing embedding for input %d", i)}
		}
	}
	return out, nil
}

// EmbedError classifies embedding failures so callers can tell an outage
// (Transient) from a request we should not retry.
type EmbedError struct {
	Reason     string
	StatusCode int
	Err        error
}

func (e *EmbedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("openai embeddings failed (%s, status=%d): %v", e.Reason, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("openai embeddings failed (%s): %v", e.Reason, e.Err)
}

func (e *EmbedError) Unwrap() error { return e.Err }

func (e *EmbedError) Transient() bool {
	switch e.Reason {
	case "timeout", "transport", "rate_limited", "server":
		return true
	}
	return false
}

func classifyError(err error) error {
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &EmbedError{Reason: "timeout", Err: err}
	case errors.As(err, &apiErr):
		return &EmbedError{Reason: reasonForStatus(apiErr.HTTPStatusCode), StatusCode: apiErr.HTTPStatusCode, Err: err}
	case errors.As(err, &reqErr):
		return &EmbedError{Reason: reasonForStatus(reqErr.HTTPStatusCode), StatusCode: reqErr.HTTPStatusCode, Err: err}
	default:
		return &EmbedError{Reason: "transport", Err: err}
	}
}

func reasonForStatus(code int) string {
	switch {
	case code == 429:
		return "rate_limited"
	case code >= 500:
		return "server"
	case code == 401 || code == 403:
		return "auth"
	default:
		return "bad_request"
	}
}
