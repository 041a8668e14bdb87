package providers

import (
	"context"
	"fmt"
	"strings"

	native "github.com/ncecere/open_embedding_server/internal/adapters/openai"
	"github.com/ncecere/open_embedding_server/internal/config"
)

func init() {
	RegisterDefinition(Definition{
		Name:         "openai",
		Description:  "OpenAI-compatible embeddings API (OpenAI, TEI, Infinity, vLLM, Ollama)",
		Capabilities: []string{"embeddings", "models"},
		Builder:      buildOpenAIBackend,
	})
}

func buildOpenAIBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	cfg = EnsureConfig(cfg)
	pc := cfg.Providers.OpenAI

	baseURL := strings.TrimSpace(pc.BaseURL)
	apiKey := strings.TrimSpace(pc.APIKey)
	if baseURL == "" && apiKey == "" {
		return Backend{}, fmt.Errorf("openai backend requires providers.openai.base_url or providers.openai.api_key")
	}

	adapter, err := native.New(native.Options{
		APIKey:       apiKey,
		BaseURL:      baseURL,
		Organization: strings.TrimSpace(pc.Organization),
	})
	if err != nil {
		return Backend{}, err
	}

	md := cloneMetadata(nil)
	if baseURL != "" {
		md["base_url"] = baseURL
	}
	if deployment := strings.TrimSpace(pc.Deployment); deployment != "" {
		md["deployment"] = deployment
	}
	if org := strings.TrimSpace(pc.Organization); org != "" {
		md["openai_organization"] = org
	}

	return Backend{
		Provider:  "openai",
		Model:     cfg.Model.Name,
		Metadata:  md,
		Embedding: adapter,
		Health:    adapter.HealthCheck,
	}, nil
}
