package observability

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/open_embedding_server/internal/config"
)

func TestSetupDisabledReturnsNil(t *testing.T) {
	provider, err := Setup(context.Background(), config.ObservabilityConfig{})
	require.NoError(t, err)
	require.Nil(t, provider)

	// nil provider is inert
	provider.RecordHTTPRequest(context.Background(), "GET", "/", 200, time.Millisecond)
	provider.RecordInference("m", "b", "ok", 1, time.Millisecond)
	provider.RecordTokens("m", "b", 3)
	require.Nil(t, provider.PrometheusHandler())
	require.Nil(t, provider.TracerProvider())
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestMetricsExposition(t *testing.T) {
	provider, err := Setup(context.Background(), config.ObservabilityConfig{EnableMetrics: true, ServiceName: "test"})
	require.NoError(t, err)
	require.NotNil(t, provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	provider.RecordHTTPRequest(context.Background(), "POST", "/v1/embeddings", 200, 20*time.Millisecond)
	provider.RecordInference("all-MiniLM-L6-v2", "hashing", "ok", 3, 5*time.Millisecond)
	provider.RecordInference("all-MiniLM-L6-v2", "hashing", "error", 2, time.Millisecond)
	provider.RecordTokens("all-MiniLM-L6-v2", "hashing", 9)

	handler := provider.PrometheusHandler()
	require.NotNil(t, handler)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	require.Contains(t, out, `embedding_server_http_requests_total{method="POST",route="/v1/embeddings",status="200"} 1`)
	require.Contains(t, out, `embedding_server_inference_inputs_total{backend="hashing",model="all-MiniLM-L6-v2"} 3`)
	require.Contains(t, out, `embedding_server_tokens_total{backend="hashing",model="all-MiniLM-L6-v2"} 9`)
	require.Contains(t, out, `embedding_server_inference_duration_seconds_count{backend="hashing",model="all-MiniLM-L6-v2",status="error"} 1`)
}
