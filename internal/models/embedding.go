package models

// EmbeddingsRequest is the backend-facing request: an ordered, already
// validated batch of inputs.
type EmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type Embedding struct {
	Index  int       `json:"index"`
	Vector []float32 `json:"vector"`
}

type EmbeddingsResponse struct {
	Model      string      `json:"model"`
	Embeddings []Embedding `json:"data"`
	Usage      Usage       `json:"usage"`
}

type Usage struct {
	PromptTokens int32 `json:"prompt_tokens"`
	TotalTokens  int32 `json:"total_tokens"`
}

// ModelInfo describes the model loaded by the process.
type ModelInfo struct {
	Name       string `json:"name"`
	Backend    string `json:"backend"`
	Dimensions int    `json:"dimensions"`
	LoadedAt   int64  `json:"loaded_at"`
}
