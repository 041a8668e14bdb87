package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/open_embedding_server/internal/app"
	"github.com/ncecere/open_embedding_server/internal/config"
)

func newTestServer(t *testing.T, metrics bool) *Server {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{ListenAddr: "127.0.0.1:0", BodyLimitMB: 1},
		Model: config.ModelConfig{
			Name:             "all-MiniLM-L6-v2",
			Backend:          "hashing",
			MaxInputs:        8,
			LoadTimeout:      5 * time.Second,
			InferenceTimeout: time.Second,
		},
		Providers: config.ProviderConfig{
			Hashing: config.HashingProviderConfig{Dimensions: 16, NGramMin: 3, NGramMax: 3, Lowercase: true},
		},
		Auth:          config.AuthConfig{APIKey: "secret"},
		Observability: config.ObservabilityConfig{EnableMetrics: metrics, ServiceName: "test"},
		Health:        config.HealthConfig{CheckInterval: time.Hour, Timeout: time.Second},
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	container, err := app.NewContainer(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	srv, err := New(container)
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, srv *Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestNewRequiresContainer(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	_, err = New(&app.Container{})
	require.Error(t, err)
}

func TestHealthReportsModel(t *testing.T) {
	srv := newTestServer(t, false)

	for _, path := range []string{"/", "/healthz"} {
		resp, body := get(t, srv, path)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

		var payload struct {
			Status string `json:"status"`
			Model  struct {
				Name       string `json:"name"`
				Backend    string `json:"backend"`
				Dimensions int    `json:"dimensions"`
			} `json:"model"`
			Checks map[string]map[string]any `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, "ok", payload.Status)
		require.Equal(t, "hashing-16", payload.Model.Name)
		require.Equal(t, "hashing", payload.Model.Backend)
		require.Equal(t, 16, payload.Model.Dimensions)
		require.Contains(t, payload.Checks, "backend")
	}
}

func TestDocsAreServed(t *testing.T) {
	srv := newTestServer(t, false)

	resp, body := get(t, srv, "/openapi.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(body, &doc))
	require.Contains(t, doc["paths"], "/v1/embeddings")

	resp, body = get(t, srv, "/docs")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	require.Contains(t, string(body), "swagger-ui")
	require.Contains(t, string(body), "/docs/swagger-init.js")

	resp, body = get(t, srv, "/docs/swagger-init.js")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "SwaggerUIBundle")
	require.Contains(t, string(body), "/openapi.json")

	resp, _ = get(t, srv, "/docs/docs.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEmbeddingsEndToEnd(t *testing.T) {
	srv := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodPost, "/v1/embeddings", strings.NewReader(`{"input":["hello world","goodbye"]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Model string `json:"model"`
		Data  []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "hashing-16", out.Model)
	require.Len(t, out.Data, 2)
	require.Len(t, out.Data[1].Embedding, 16)

	_, metrics := get(t, srv, "/metrics")
	require.Contains(t, string(metrics), "embedding_server_inference_inputs_total")
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	srv := newTestServer(t, false)

	resp, body := get(t, srv, "/nope")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var envelope struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	require.Equal(t, "invalid_request_error", envelope.Error.Type)
}

func TestUnmatchedRoutesShareOneMetricLabel(t *testing.T) {
	srv := newTestServer(t, true)

	for _, path := range []string{"/wp-login.php", "/.env", "/admin/config.bak"} {
		resp, _ := get(t, srv, path)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	}

	_, metrics := get(t, srv, "/metrics")
	out := string(metrics)
	require.Contains(t, out, `embedding_server_http_requests_total{method="GET",route="unmatched",status="404"} 3`)
	require.NotContains(t, out, "wp-login")
	require.NotContains(t, out, "config.bak")
}
