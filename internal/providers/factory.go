package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ncecere/open_embedding_server/internal/config"
)

// Builder constructs the Backend selected by model.backend.
type Builder func(ctx context.Context, cfg *config.Config) (Backend, error)

// Factory builds the configured backend using a registry of builders.
type Factory struct {
	cfg      *config.Config
	builders map[string]Builder
}

// NewFactory creates a factory with the default backend registry.
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{cfg: cfg, builders: cloneDefaultBuilders()}
}

// Register allows tests or callers to override backend builders.
func (f *Factory) Register(name string, builder Builder) {
	if f.builders == nil {
		f.builders = make(map[string]Builder)
	}
	f.builders[name] = builder
}

// Build instantiates the adapter named by model.backend.
func (f *Factory) Build(ctx context.Context) (Backend, error) {
	cfg := EnsureConfig(f.cfg)
	name := strings.ToLower(strings.TrimSpace(cfg.Model.Backend))
	builder, ok := f.builders[name]
	if !ok {
		return Backend{}, fmt.Errorf("backend %q unsupported (available: %s)", name, strings.Join(definitionNames(), ", "))
	}
	backend, err := builder(ctx, cfg)
	if err != nil {
		return Backend{}, fmt.Errorf("backend %q: %w", name, err)
	}
	if backend.Embedding == nil {
		return Backend{}, fmt.Errorf("backend %q: no embeddings capability", name)
	}
	if backend.Provider == "" {
		backend.Provider = name
	}
	if backend.Model == "" {
		backend.Model = cfg.Model.Name
	}
	return backend, nil
}
