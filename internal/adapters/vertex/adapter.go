package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ncecere/open_embedding_server/internal/models"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Options configure the Vertex adapter.
type Options struct {
	ProjectID       string
	Location        string
	Publisher       string
	Model           string
	Endpoint        string
	TaskType        string
	CredentialsJSON []byte
	HTTPClient      *http.Client
}

// Adapter implements embeddings via the Vertex AI predict endpoint.
type Adapter struct {
	client   *http.Client
	model    string
	taskType string
	embedURL string
	baseURL  string
}

// New creates a Vertex adapter using service-account credentials. When
// HTTPClient is set it is used as is and no credentials are loaded.
func New(ctx context.Context, opts Options) (*Adapter, error) {
	if opts.Model == "" {
		return nil, errors.New("vertex: model id required")
	}

	baseURL, embedURL, err := resolveModelURLs(opts)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		if len(opts.CredentialsJSON) == 0 {
			return nil, errors.New("vertex: credentials json required")
		}
		creds, err := google.CredentialsFromJSON(ctx, opts.CredentialsJSON, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("vertex: load credentials: %w", err)
		}
		httpClient = oauth2.NewClient(ctx, creds.TokenSource)
	}

	return &Adapter{
		client:   httpClient,
		model:    opts.Model,
		taskType: strings.ToUpper(strings.TrimSpace(opts.TaskType)),
		baseURL:  baseURL,
		embedURL: embedURL,
	}, nil
}

// resolveModelURLs returns the model resource URL and its :predict URL. An
// endpoint without a path gets the publisher model path appended.
func resolveModelURLs(opts Options) (string, string, error) {
	resource, resourceErr := modelResource(opts)

	raw := strings.TrimSpace(opts.Endpoint)
	if raw == "" {
		if resourceErr != nil {
			return "", "", resourceErr
		}
		raw = fmt.Sprintf("https://%s-aiplatform.googleapis.com", opts.Location)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("vertex: endpoint %q must be an absolute url", raw)
	}

	path := strings.TrimSuffix(strings.TrimSuffix(u.Path, ":predict"), "/")
	if path == "" {
		if resourceErr != nil {
			return "", "", fmt.Errorf("vertex: endpoint %q has no model path: %w", raw, resourceErr)
		}
		path = "/v1/" + resource
	}

	base := *u
	base.Path, base.RawPath = path, ""
	predict := base
	predict.Path = path + ":predict"
	return base.String(), predict.String(), nil
}

func modelResource(opts Options) (string, error) {
	if opts.ProjectID == "" {
		return "", errors.New("vertex: project id required")
	}
	if opts.Location == "" {
		return "", errors.New("vertex: location required")
	}
	publisher := strings.TrimSpace(opts.Publisher)
	if publisher == "" {
		publisher = "google"
	}
	return fmt.Sprintf("projects/%s/locations/%s/publishers/%s/models/%s",
		opts.ProjectID, opts.Location, publisher, opts.Model), nil
}

// Embed sends the whole batch as predict instances in one call.
func (a *Adapter) Embed(ctx context.Context, req models.EmbeddingsRequest) (models.EmbeddingsResponse, error) {
	if len(req.Input) == 0 {
		return models.EmbeddingsResponse{}, errors.New("vertex embeddings input required")
	}

	payload := vertexPredictRequest{Instances: make([]vertexPredictInstance, 0, len(req.Input))}
	for _, text := range req.Input {
		payload.Instances = append(payload.Instances, vertexPredictInstance{Content: text, TaskType: a.taskType})
	}

	var vertexResp vertexPredictResponse
	if err := a.postJSON(ctx, a.embedURL, payload, &vertexResp); err != nil {
		return models.EmbeddingsResponse{}, err
	}
	return convertEmbeddingsResponse(vertexResp, a.model)
}

// HealthCheck fetches the model resource. Only server-side failures count as
// unhealthy.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("vertex health check status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (a *Adapter) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("vertex encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("vertex decode response: %w", err)
	}
	return nil
}

func convertEmbeddingsResponse(v vertexPredictResponse, model string) (models.EmbeddingsResponse, error) {
	if len(v.Predictions) == 0 {
		return models.EmbeddingsResponse{}, errors.New("vertex embeddings response empty")
	}
	data := make([]models.Embedding, 0, len(v.Predictions))
	var tokens int32
	for idx, pred := range v.Predictions {
		values := pred.vector()
		vector := make([]float32, len(values))
		for i, val := range values {
			vector[i] = float32(val)
		}
		data = append(data, models.Embedding{Index: idx, Vector: vector})
		tokens += pred.tokens()
	}
	return models.EmbeddingsResponse{
		Model:      model,
		Embeddings: data,
		Usage:      models.Usage{PromptTokens: tokens, TotalTokens: tokens},
	}, nil
}
