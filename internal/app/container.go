package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ncecere/open_embedding_server/internal/auth"
	"github.com/ncecere/open_embedding_server/internal/config"
	"github.com/ncecere/open_embedding_server/internal/health"
	"github.com/ncecere/open_embedding_server/internal/observability"
	"github.com/ncecere/open_embedding_server/internal/providers"
)

// Container aggregates runtime dependencies for handlers. Everything in it is
// built once at startup and never replaced.
type Container struct {
	Config        *config.Config
	Model         *providers.Model
	Credential    *auth.Credential
	HealthMon     *health.Monitor
	Observability *observability.Provider
	Logger        *slog.Logger
}

// NewContainer builds the credential, observability stack and model. A model
// load failure is returned wrapped in providers.ErrModelLoad.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	credential, err := auth.NewCredential(cfg.Auth.APIKey, cfg.Auth.APIKeyHash)
	if err != nil {
		return nil, err
	}

	obsProvider, err := observability.Setup(ctx, cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("setup observability: %w", err)
	}

	logger.Info("loading model", "model", cfg.Model.Name, "backend", cfg.Model.Backend, "timeout", cfg.Model.LoadTimeout.String())
	model, err := providers.LoadFromConfig(ctx, cfg)
	if err != nil {
		_ = obsProvider.Shutdown(context.Background())
		return nil, err
	}
	logger.Info("model loaded", "model", model.Name(), "backend", model.Backend(), "dimensions", model.Dimensions())

	monitor := health.NewMonitor(model.Health, cfg.Health, logger)
	monitor.Start(ctx)

	return &Container{
		Config:        cfg,
		Model:         model,
		Credential:    credential,
		HealthMon:     monitor,
		Observability: obsProvider,
		Logger:        logger,
	}, nil
}

// Close flushes telemetry exporters.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.Observability.Shutdown(ctx)
}
