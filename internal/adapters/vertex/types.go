package vertex

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type vertexPredictInstance struct {
	Content  string `json:"content"`
	TaskType string `json:"task_type,omitempty"`
}

type vertexPredictParameters struct {
	AutoTruncate bool `json:"autoTruncate"`
}

type vertexPredictRequest struct {
	Instances  []vertexPredictInstance  `json:"instances"`
	Parameters *vertexPredictParameters `json:"parameters,omitempty"`
}

type vertexEmbeddingStatistics struct {
	TokenCount float64 `json:"token_count"`
	Truncated  bool    `json:"truncated"`
}

type vertexEmbeddingValues struct {
	Values     []float64                  `json:"values"`
	Statistics *vertexEmbeddingStatistics `json:"statistics,omitempty"`
}

// vertexPrediction covers both the text-embedding shape
// ({"embeddings": {"values": [...]}}) and the flat {"values": [...]} shape
// used by some tuned endpoints.
type vertexPrediction struct {
	Embeddings *vertexEmbeddingValues `json:"embeddings,omitempty"`
	Values     []float64              `json:"values,omitempty"`
}

func (p vertexPrediction) vector() []float64 {
	if p.Embeddings != nil && len(p.Embeddings.Values) > 0 {
		return p.Embeddings.Values
	}
	return p.Values
}

func (p vertexPrediction) tokens() int32 {
	if p.Embeddings == nil || p.Embeddings.Statistics == nil {
		return 0
	}
	return int32(p.Embeddings.Statistics.TokenCount)
}

type vertexPredictMetadata struct {
	BillableCharacterCount int64 `json:"billableCharacterCount,omitempty"`
}

type vertexPredictResponse struct {
	Predictions []vertexPrediction     `json:"predictions"`
	Metadata    *vertexPredictMetadata `json:"metadata,omitempty"`
}

type vertexAPIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr vertexAPIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("vertex api error %d (%s): %s", apiErr.Error.Code, apiErr.Error.Status, apiErr.Error.Message)
	}
	return fmt.Errorf("vertex api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
