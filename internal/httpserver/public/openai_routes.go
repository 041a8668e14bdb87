package public

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/open_embedding_server/internal/app"
	"github.com/ncecere/open_embedding_server/internal/httpserver/httputil"
	"github.com/ncecere/open_embedding_server/internal/models"
	"github.com/ncecere/open_embedding_server/internal/providers"
	"github.com/ncecere/open_embedding_server/internal/usage"
)

const (
	encodingFloat  = "float"
	encodingBase64 = "base64"
)

type openAIHandler struct {
	container *app.Container
}

type openAIModel struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type openAIModelList struct {
	Object string        `json:"object"`
	Data   []openAIModel `json:"data"`
}

// openAIEmbeddingRequest accepts the full OpenAI request body. Model,
// dimensions and user are read for compatibility and otherwise ignored.
type openAIEmbeddingRequest struct {
	Model          string          `json:"model"`
	Input          json.RawMessage `json:"input"`
	EncodingFormat string          `json:"encoding_format"`
	Dimensions     *int            `json:"dimensions,omitempty"`
	User           string          `json:"user,omitempty"`
}

type openAIEmbedding struct {
	Index int `json:"index"`
	// Embedding is []float32, or a base64 string when requested.
	Embedding any    `json:"embedding"`
	Object    string `json:"object"`
}

type openAIUsage struct {
	PromptTokens int32 `json:"prompt_tokens"`
	TotalTokens  int32 `json:"total_tokens"`
}

type openAIEmbeddingResponse struct {
	Object string            `json:"object"`
	Model  string            `json:"model"`
	Data   []openAIEmbedding `json:"data"`
	Usage  openAIUsage       `json:"usage"`
}

// inputError is a validation failure tied to a request field.
type inputError struct {
	param string
	msg   string
}

func (e *inputError) Error() string { return e.msg }

func (h *openAIHandler) servedModel() openAIModel {
	info := h.container.Model.Info()
	return openAIModel{
		ID:      info.Name,
		Object:  "model",
		Created: info.LoadedAt,
		OwnedBy: info.Backend,
	}
}

func (h *openAIHandler) listModels(c *fiber.Ctx) error {
	return c.JSON(openAIModelList{
		Object: "list",
		Data:   []openAIModel{h.servedModel()},
	})
}

// getModel matches ids containing slashes, raw or percent-encoded, since
// Hugging Face style ids like BAAI/bge-small-en-v1.5 are common.
func (h *openAIHandler) getModel(c *fiber.Ctx) error {
	model := h.servedModel()
	requested := c.Params("+")
	if unescaped, err := url.PathUnescape(requested); err == nil {
		requested = unescaped
	}
	if requested != model.ID {
		return httputil.WriteErrorCode(c, fiber.StatusNotFound, "model_not_found",
			fmt.Sprintf("model %q does not exist; this server serves %q", requested, model.ID))
	}
	return c.JSON(model)
}

func (h *openAIHandler) embeddings(c *fiber.Ctx) error {
	var req openAIEmbeddingRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteErrorCode(c, fiber.StatusUnprocessableEntity, "invalid_json", "request body must be a JSON object")
	}

	maxInputs := 0
	if h.container.Config != nil {
		maxInputs = h.container.Config.Model.MaxInputs
	}
	inputs, err := parseEmbeddingInput(req.Input, maxInputs)
	if err != nil {
		var ie *inputError
		if errors.As(err, &ie) {
			return httputil.WriteParamError(c, ie.param, ie.msg)
		}
		return httputil.WriteParamError(c, "input", err.Error())
	}

	format := strings.ToLower(strings.TrimSpace(req.EncodingFormat))
	switch format {
	case "":
		format = encodingFloat
	case encodingFloat, encodingBase64:
	default:
		return httputil.WriteParamError(c, "encoding_format", fmt.Sprintf("encoding_format must be %q or %q", encodingFloat, encodingBase64))
	}

	model := h.container.Model
	start := time.Now()
	resp, err := model.Embed(c.UserContext(), inputs)
	elapsed := time.Since(start)
	if err != nil {
		h.container.Observability.RecordInference(model.Name(), model.Backend(), "error", len(inputs), elapsed)
		h.logger().Error("embedding inference failed",
			"request_id", requestIDFromContext(c),
			"model", model.Name(),
			"inputs", len(inputs),
			"error", err,
		)
		if errors.Is(err, providers.ErrInference) {
			return httputil.WriteErrorCode(c, fiber.StatusInternalServerError, "inference_failed", "embedding inference failed")
		}
		return httputil.WriteError(c, fiber.StatusInternalServerError, "internal server error")
	}
	h.container.Observability.RecordInference(model.Name(), model.Backend(), "ok", len(inputs), elapsed)

	if resp.Usage.PromptTokens <= 0 {
		resp.Usage.PromptTokens = usage.Estimate(inputs)
	}
	resp.Usage.TotalTokens = resp.Usage.PromptTokens
	h.container.Observability.RecordTokens(model.Name(), model.Backend(), int64(resp.Usage.PromptTokens))

	return c.JSON(convertEmbeddingResponse(resp, model.Name(), format))
}

func (h *openAIHandler) logger() *slog.Logger {
	if h.container.Logger != nil {
		return h.container.Logger
	}
	return slog.Default()
}

// parseEmbeddingInput normalizes input to an ordered batch. A string is a
// one-element batch; an array must hold only non-blank strings.
func parseEmbeddingInput(raw json.RawMessage, maxInputs int) ([]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, &inputError{param: "input", msg: "input is required"}
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if strings.TrimSpace(str) == "" {
			return nil, &inputError{param: "input", msg: "input must not be empty"}
		}
		return []string{str}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &inputError{param: "input", msg: "input must be a string or an array of strings"}
	}
	if len(items) == 0 {
		return nil, &inputError{param: "input", msg: "input must not be empty"}
	}
	if maxInputs > 0 && len(items) > maxInputs {
		return nil, &inputError{param: "input", msg: fmt.Sprintf("input must contain at most %d items, got %d", maxInputs, len(items))}
	}

	inputs := make([]string, len(items))
	for i, item := range items {
		if err := json.Unmarshal(item, &inputs[i]); err != nil || strings.TrimSpace(string(item)) == "null" {
			return nil, &inputError{param: fmt.Sprintf("input[%d]", i), msg: fmt.Sprintf("input[%d] must be a string; token arrays are not supported", i)}
		}
		if strings.TrimSpace(inputs[i]) == "" {
			return nil, &inputError{param: fmt.Sprintf("input[%d]", i), msg: fmt.Sprintf("input[%d] must not be empty", i)}
		}
	}
	return inputs, nil
}

func requestIDFromContext(c *fiber.Ctx) string {
	if v := c.Locals("requestid"); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func convertEmbeddingResponse(resp models.EmbeddingsResponse, modelName, format string) openAIEmbeddingResponse {
	data := make([]openAIEmbedding, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		var value any = emb.Vector
		if format == encodingBase64 {
			value = encodeVectorBase64(emb.Vector)
		}
		data = append(data, openAIEmbedding{
			Index:     emb.Index,
			Embedding: value,
			Object:    "embedding",
		})
	}

	return openAIEmbeddingResponse{
		Object: "list",
		Model:  modelName,
		Data:   data,
		Usage: openAIUsage{
			PromptTokens: resp.Usage.PromptTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}
}

// encodeVectorBase64 packs the vector as little-endian float32, the layout
// OpenAI clients decode with numpy.frombuffer(dtype="float32").
func encodeVectorBase64(vec []float32) string {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(buf)
}
