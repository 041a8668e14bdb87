package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/open_embedding_server/internal/models"
	"github.com/ncecere/open_embedding_server/internal/providers/fixtures"
)

type capturedRequest struct {
	Model          string          `json:"model"`
	Input          json.RawMessage `json:"input"`
	EncodingFormat string          `json:"encoding_format"`
}

func newEmbeddingServer(t *testing.T, captured *capturedRequest, auth *string) *httptest.Server {
	t.Helper()
	body := fixtures.Bytes(t, "openai_embed_response.json")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if auth != nil {
			*auth = r.Header.Get("Authorization")
		}
		if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedSendsBatchAndConvertsResponse(t *testing.T) {
	var captured capturedRequest
	var auth string
	srv := newEmbeddingServer(t, &captured, &auth)

	adapter, err := New(Options{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)

	resp, err := adapter.Embed(context.Background(), models.EmbeddingsRequest{
		Model: "all-MiniLM-L6-v2",
		Input: []string{"first", "second"},
	})
	require.NoError(t, err)

	require.Equal(t, "all-MiniLM-L6-v2", captured.Model)
	require.Equal(t, "float", captured.EncodingFormat)
	require.JSONEq(t, `["first","second"]`, string(captured.Input))
	require.Equal(t, "Bearer sk-test", auth)

	require.Len(t, resp.Embeddings, 2)
	require.Equal(t, 1, resp.Embeddings[0].Index)
	require.Equal(t, []float32{0.4, 0.5, 0.6}, resp.Embeddings[0].Vector)
	require.Equal(t, 0, resp.Embeddings[1].Index)
	require.Equal(t, int32(7), resp.Usage.PromptTokens)
	require.Equal(t, int32(7), resp.Usage.TotalTokens)
}

func TestEmbedSingleInputUsesString(t *testing.T) {
	var captured capturedRequest
	srv := newEmbeddingServer(t, &captured, nil)

	adapter, err := New(Options{BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = adapter.Embed(context.Background(), models.EmbeddingsRequest{Model: "m", Input: []string{"only"}})
	require.NoError(t, err)
	require.JSONEq(t, `"only"`, string(captured.Input))
}

func TestEmbedDoesNotRetryServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"model crashed","type":"server_error"}}`))
	}))
	defer srv.Close()

	adapter, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = adapter.Embed(context.Background(), models.EmbeddingsRequest{Model: "m", Input: []string{"x"}})
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestEmbedRequiresInput(t *testing.T) {
	adapter, err := New(Options{BaseURL: "http://localhost:1/v1"})
	require.NoError(t, err)
	_, err = adapter.Embed(context.Background(), models.EmbeddingsRequest{Model: "m"})
	require.Error(t, err)
}

func TestHealthCheckAcceptsMissingModelsEndpoint(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNotFound)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
	}))
	defer srv.Close()

	adapter, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, adapter.HealthCheck(context.Background()))

	status.Store(http.StatusUnauthorized)
	require.Error(t, adapter.HealthCheck(context.Background()))
}

func TestNewRequiresKeyOrBaseURL(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}
