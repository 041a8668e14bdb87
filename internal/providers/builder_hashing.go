package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ncecere/open_embedding_server/internal/adapters/hashing"
	"github.com/ncecere/open_embedding_server/internal/config"
)

func init() {
	RegisterDefinition(Definition{
		Name:         "hashing",
		Description:  "In-process feature hashing embedder (no external runtime)",
		Capabilities: []string{"embeddings"},
		Builder:      buildHashingBackend,
	})
}

func buildHashingBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	cfg = EnsureConfig(cfg)
	pc := cfg.Providers.Hashing

	dims := pc.Dimensions
	if cfg.Model.Dimensions > 0 {
		dims = cfg.Model.Dimensions
	}
	adapter, err := hashing.New(hashing.Options{
		Dimensions: dims,
		NGramMin:   pc.NGramMin,
		NGramMax:   pc.NGramMax,
		Lowercase:  pc.Lowercase,
	})
	if err != nil {
		return Backend{}, err
	}

	return Backend{
		Provider: "hashing",
		Model:    hashingModelName(cfg.Model.Name, dims),
		Metadata: map[string]string{
			"dimensions": strconv.Itoa(dims),
			"ngram_min":  strconv.Itoa(pc.NGramMin),
			"ngram_max":  strconv.Itoa(pc.NGramMax),
		},
		Embedding: adapter,
		Health:    adapter.HealthCheck,
	}, nil
}

// hashingModelName keeps an explicitly configured name; the default
// sentence-transformer name is replaced with hashing-<dims>.
func hashingModelName(configured string, dims int) string {
	name := strings.TrimSpace(configured)
	if name == "" || name == config.DefaultModelName {
		return fmt.Sprintf("hashing-%d", dims)
	}
	return name
}
