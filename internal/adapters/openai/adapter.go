package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/ncecere/open_embedding_server/internal/models"
)

// Options configure the OpenAI-compatible adapter.
type Options struct {
	APIKey       string
	BaseURL      string
	Organization string
	Extra        []option.RequestOption
}

// Adapter wraps the official OpenAI SDK for OpenAI and compatible inference
// servers (TEI, Infinity, vLLM, Ollama).
type Adapter struct {
	client *openai.Client
}

// New creates an adapter. Self-hosted servers usually need no API key, so
// only one of APIKey or BaseURL is required.
func New(opts Options) (*Adapter, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	baseURL := strings.TrimSpace(opts.BaseURL)
	if apiKey == "" && baseURL == "" {
		return nil, errors.New("openai: api key or base url required")
	}

	// Inference failures surface to the caller; the SDK must not retry them.
	requestOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		requestOpts = append(requestOpts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(strings.TrimRight(baseURL, "/")))
	}
	if strings.TrimSpace(opts.Organization) != "" {
		requestOpts = append(requestOpts, option.WithOrganization(strings.TrimSpace(opts.Organization)))
	}
	requestOpts = append(requestOpts, opts.Extra...)

	client := openai.NewClient(requestOpts...)
	return &Adapter{client: &client}, nil
}

// Embed creates embeddings for the whole batch in a single upstream call.
func (a *Adapter) Embed(ctx context.Context, req models.EmbeddingsRequest) (models.EmbeddingsResponse, error) {
	if len(req.Input) == 0 {
		return models.EmbeddingsResponse{}, errors.New("openai: embeddings input required")
	}
	params := openai.EmbeddingNewParams{
		Model:          openai.EmbeddingModel(req.Model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if len(req.Input) == 1 {
		params.Input.OfString = param.NewOpt(req.Input[0])
	} else {
		params.Input.OfArrayOfStrings = append(params.Input.OfArrayOfStrings, req.Input...)
	}
	resp, err := a.client.Embeddings.New(ctx, params)
	if err != nil {
		return models.EmbeddingsResponse{}, err
	}
	return convertEmbeddingsResponse(*resp), nil
}

// HealthCheck uses the Models API as a lightweight readiness probe. Servers
// that do not implement it answer 404, which still proves reachability.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	_, err := a.client.Models.List(ctx)
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

func convertEmbeddingsResponse(resp openai.CreateEmbeddingResponse) models.EmbeddingsResponse {
	embeddings := make([]models.Embedding, 0, len(resp.Data))
	for _, item := range resp.Data {
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		embeddings = append(embeddings, models.Embedding{Index: int(item.Index), Vector: vec})
	}
	usage := models.Usage{
		PromptTokens: int32(resp.Usage.PromptTokens),
		TotalTokens:  int32(resp.Usage.TotalTokens),
	}
	return models.EmbeddingsResponse{Model: resp.Model, Embeddings: embeddings, Usage: usage}
}
