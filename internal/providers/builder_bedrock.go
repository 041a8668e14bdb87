package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ncecere/open_embedding_server/internal/adapters/bedrock"
	"github.com/ncecere/open_embedding_server/internal/config"
)

func init() {
	RegisterDefinition(Definition{
		Name:         "bedrock",
		Description:  "AWS Bedrock (Amazon Titan text embeddings)",
		Capabilities: []string{"embeddings"},
		Builder:      buildBedrockBackend,
	})
}

func buildBedrockBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	cfg = EnsureConfig(cfg)
	pc := cfg.Providers.Bedrock

	region := strings.TrimSpace(pc.Region)
	if region == "" {
		return Backend{}, fmt.Errorf("aws region required for bedrock backend")
	}

	modelID := pickFirst(pc.ModelID, cfg.Model.Name)
	if !strings.Contains(modelID, "titan-embed") {
		return Backend{}, fmt.Errorf("bedrock model %q is not a supported titan embedding model", modelID)
	}

	metadata := map[string]string{
		"region":                   region,
		"model_id":                 modelID,
		"deployment":               modelID,
		"bedrock_embedding_format": bedrock.EmbeddingFormatTitanText,
	}
	if pc.EmbedDims > 0 {
		metadata["bedrock_embed_dims"] = strconv.Itoa(int(pc.EmbedDims))
	}
	if pc.EmbedNormalize {
		metadata["bedrock_embed_normalize"] = "true"
	}

	adapter, err := bedrock.New(ctx, bedrock.Options{
		Region:          region,
		Profile:         strings.TrimSpace(pc.Profile),
		AccessKeyID:     strings.TrimSpace(pc.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(pc.SecretAccessKey),
		SessionToken:    strings.TrimSpace(pc.SessionToken),
		ModelID:         modelID,
		EmbeddingFormat: bedrock.EmbeddingFormatTitanText,
		EmbedDimensions: pc.EmbedDims,
		EmbedNormalize:  pc.EmbedNormalize,
	})
	if err != nil {
		return Backend{}, err
	}

	return Backend{
		Provider:  "bedrock",
		Model:     cfg.Model.Name,
		Metadata:  metadata,
		Embedding: adapter,
		Health:    adapter.HealthCheck,
	}, nil
}
