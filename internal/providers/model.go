package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ncecere/open_embedding_server/internal/config"
	"github.com/ncecere/open_embedding_server/internal/models"
)

var (
	// ErrModelLoad marks failures while building or warming up the model.
	// The process must not serve requests after one.
	ErrModelLoad = errors.New("model load failed")
	// ErrInference marks a failed or inconsistent inference call.
	ErrInference = errors.New("inference failed")
)

const warmupProbe = "embedding warm-up probe"

// LoadOptions controls how a backend is turned into a served Model.
type LoadOptions struct {
	Name             string
	Dimensions       int
	LoadTimeout      time.Duration
	InferenceTimeout time.Duration
}

// Model is the single embedding model served by the process. It is
// immutable once loaded and safe for concurrent use.
type Model struct {
	name             string
	backend          Backend
	dimensions       int
	inferenceTimeout time.Duration
	loadedAt         time.Time
}

// LoadFromConfig builds the configured backend and loads the model on it.
func LoadFromConfig(ctx context.Context, cfg *config.Config) (*Model, error) {
	cfg = EnsureConfig(cfg)
	backend, err := NewFactory(cfg).Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	return Load(ctx, backend, LoadOptions{
		Name:             backend.Model,
		Dimensions:       cfg.Model.Dimensions,
		LoadTimeout:      cfg.Model.LoadTimeout,
		InferenceTimeout: cfg.Model.InferenceTimeout,
	})
}

// Load warms the backend up with a probe inference, which also fixes the
// model dimensionality.
func Load(ctx context.Context, backend Backend, opts LoadOptions) (*Model, error) {
	if backend.Embedding == nil {
		return nil, fmt.Errorf("%w: backend has no embeddings capability", ErrModelLoad)
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = backend.Model
	}
	if name == "" {
		return nil, fmt.Errorf("%w: model name required", ErrModelLoad)
	}

	if opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.LoadTimeout)
		defer cancel()
	}

	resp, err := backend.Embedding.Embed(ctx, models.EmbeddingsRequest{
		Model: backend.ResolveDeployment(),
		Input: []string{warmupProbe},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: warm-up %s/%s: %w", ErrModelLoad, backend.Provider, name, err)
	}
	if len(resp.Embeddings) != 1 {
		return nil, fmt.Errorf("%w: warm-up returned %d vectors, want 1", ErrModelLoad, len(resp.Embeddings))
	}
	dims := len(resp.Embeddings[0].Vector)
	if dims == 0 {
		return nil, fmt.Errorf("%w: warm-up returned an empty vector", ErrModelLoad)
	}
	if opts.Dimensions > 0 && opts.Dimensions != dims {
		return nil, fmt.Errorf("%w: model produces %d dimensions, configured %d", ErrModelLoad, dims, opts.Dimensions)
	}

	return &Model{
		name:             name,
		backend:          backend,
		dimensions:       dims,
		inferenceTimeout: opts.InferenceTimeout,
		loadedAt:         time.Now().UTC(),
	}, nil
}

func (m *Model) Name() string { return m.name }

func (m *Model) Dimensions() int { return m.dimensions }

func (m *Model) Backend() string { return m.backend.Provider }

func (m *Model) Info() models.ModelInfo {
	return models.ModelInfo{
		Name:       m.name,
		Backend:    m.backend.Provider,
		Dimensions: m.dimensions,
		LoadedAt:   m.loadedAt.Unix(),
	}
}

// Health runs the backend health probe. Backends without one are always healthy.
func (m *Model) Health(ctx context.Context) error {
	if m.backend.Health == nil {
		return nil
	}
	return m.backend.Health(ctx)
}

// Embed runs one inference call for the whole batch and returns the vectors
// in input order. Every failure wraps ErrInference.
func (m *Model) Embed(ctx context.Context, inputs []string) (models.EmbeddingsResponse, error) {
	ctx, span := otel.Tracer("open-embedding-server/providers").Start(ctx, "model.embed")
	defer span.End()
	span.SetAttributes(
		attribute.String("embedding.model", m.name),
		attribute.String("embedding.backend", m.backend.Provider),
		attribute.Int("embedding.inputs", len(inputs)),
	)

	resp, err := m.embed(ctx, inputs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.EmbeddingsResponse{}, err
	}
	span.SetAttributes(attribute.Int("embedding.prompt_tokens", int(resp.Usage.PromptTokens)))
	return resp, nil
}

func (m *Model) embed(ctx context.Context, inputs []string) (models.EmbeddingsResponse, error) {
	if len(inputs) == 0 {
		return models.EmbeddingsResponse{}, fmt.Errorf("%w: empty batch", ErrInference)
	}
	if m.inferenceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.inferenceTimeout)
		defer cancel()
	}

	resp, err := m.backend.Embedding.Embed(ctx, models.EmbeddingsRequest{
		Model: m.backend.ResolveDeployment(),
		Input: inputs,
	})
	if err != nil {
		return models.EmbeddingsResponse{}, fmt.Errorf("%w: %w", ErrInference, err)
	}
	if len(resp.Embeddings) != len(inputs) {
		return models.EmbeddingsResponse{}, fmt.Errorf("%w: backend returned %d vectors for %d inputs", ErrInference, len(resp.Embeddings), len(inputs))
	}

	ordered := make([]models.Embedding, len(inputs))
	seen := make([]bool, len(inputs))
	for _, emb := range resp.Embeddings {
		if emb.Index < 0 || emb.Index >= len(inputs) || seen[emb.Index] {
			return models.EmbeddingsResponse{}, fmt.Errorf("%w: backend returned invalid index %d", ErrInference, emb.Index)
		}
		if len(emb.Vector) != m.dimensions {
			return models.EmbeddingsResponse{}, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrInference, emb.Index, len(emb.Vector), m.dimensions)
		}
		seen[emb.Index] = true
		ordered[emb.Index] = emb
	}

	return models.EmbeddingsResponse{
		Model:      m.name,
		Embeddings: ordered,
		Usage:      resp.Usage,
	}, nil
}
