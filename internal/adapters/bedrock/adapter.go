package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/ncecere/open_embedding_server/internal/models"
)

const EmbeddingFormatTitanText = "titan_text"

// Options controls how the Bedrock adapter is initialised.
type Options struct {
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	ModelID         string
	EmbeddingFormat string
	EmbedDimensions int32
	EmbedNormalize  bool
}

type modelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type identityChecker interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Adapter implements embeddings backed by Amazon Bedrock.
type Adapter struct {
	client    modelInvoker
	stsClient identityChecker
	opts      Options
}

// New creates a Bedrock adapter using the provided credentials/region.
func New(ctx context.Context, opts Options) (*Adapter, error) {
	if opts.Region == "" {
		return nil, errors.New("bedrock region required")
	}
	if opts.ModelID == "" {
		return nil, errors.New("bedrock model id required")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		staticProvider := credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)
		loadOpts = append(loadOpts, config.WithCredentialsProvider(staticProvider))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = opts.Region
	}
	// Inference errors are reported to the caller, not retried.
	awsCfg.RetryMaxAttempts = 1

	return newWithClients(bedrockruntime.NewFromConfig(awsCfg), sts.NewFromConfig(awsCfg), opts), nil
}

func newWithClients(client modelInvoker, stsClient identityChecker, opts Options) *Adapter {
	if opts.EmbeddingFormat == "" {
		opts.EmbeddingFormat = EmbeddingFormatTitanText
	}
	return &Adapter{client: client, stsClient: stsClient, opts: opts}
}

// Embed generates embeddings using the configured embedding format.
func (a *Adapter) Embed(ctx context.Context, req models.EmbeddingsRequest) (models.EmbeddingsResponse, error) {
	switch a.opts.EmbeddingFormat {
	case EmbeddingFormatTitanText:
		return a.embedTitan(ctx, req)
	default:
		return models.EmbeddingsResponse{}, fmt.Errorf("embedding format %q unsupported", a.opts.EmbeddingFormat)
	}
}

// HealthCheck verifies the AWS credentials without paying for an inference.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	if a.stsClient == nil {
		return errors.New("bedrock sts client not initialised")
	}
	_, err := a.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	return err
}

// embedTitan invokes the model once per input; Titan text models accept a
// single inputText per call.
func (a *Adapter) embedTitan(ctx context.Context, req models.EmbeddingsRequest) (models.EmbeddingsResponse, error) {
	if len(req.Input) == 0 {
		return models.EmbeddingsResponse{}, errors.New("embedding input required")
	}

	embeddings := make([]models.Embedding, 0, len(req.Input))
	var totalTokens int32

	for idx, text := range req.Input {
		body := titanEmbedRequest{
			InputText: strings.TrimSpace(text),
		}
		if body.InputText == "" {
			return models.EmbeddingsResponse{}, fmt.Errorf("input %d is empty", idx)
		}
		if a.opts.EmbedDimensions > 0 {
			body.Dimensions = a.opts.EmbedDimensions
		}
		if a.opts.EmbedNormalize {
			body.Normalize = aws.Bool(true)
		}

		raw, err := json.Marshal(body)
		if err != nil {
			return models.EmbeddingsResponse{}, fmt.Errorf("encode titan request: %w", err)
		}

		out, err := a.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(a.opts.ModelID),
			Body:        raw,
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
		})
		if err != nil {
			return models.EmbeddingsResponse{}, err
		}

		vector, tokens, err := parseTitanEmbedding(out.Body)
		if err != nil {
			return models.EmbeddingsResponse{}, err
		}

		embeddings = append(embeddings, models.Embedding{
			Index:  idx,
			Vector: vector,
		})
		totalTokens += tokens
	}

	return models.EmbeddingsResponse{
		Model:      req.Model,
		Embeddings: embeddings,
		Usage: models.Usage{
			PromptTokens: totalTokens,
			TotalTokens:  totalTokens,
		},
	}, nil
}

type titanEmbedRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int32  `json:"dimensions,omitempty"`
	Normalize  *bool  `json:"normalize,omitempty"`
}

type titanEmbedResponse struct {
	Embedding           []float64 `json:"embedding"`
	InputTextTokenCount int32     `json:"inputTextTokenCount"`
}

// titanEmbedResponseAlt is returned when embeddingTypes is requested.
type titanEmbedResponseAlt struct {
	EmbeddingsByType struct {
		Float []float64 `json:"float"`
	} `json:"embeddingsByType"`
	InputTextTokenCount int32 `json:"inputTextTokenCount"`
}

func parseTitanEmbedding(payload []byte) ([]float32, int32, error) {
	var primary titanEmbedResponse
	if err := json.Unmarshal(payload, &primary); err == nil && len(primary.Embedding) > 0 {
		return float64To32(primary.Embedding), primary.InputTextTokenCount, nil
	}

	var alt titanEmbedResponseAlt
	if err := json.Unmarshal(payload, &alt); err == nil && len(alt.EmbeddingsByType.Float) > 0 {
		return float64To32(alt.EmbeddingsByType.Float), alt.InputTextTokenCount, nil
	}

	return nil, 0, errors.New("unexpected titan embedding response")
}

func float64To32(values []float64) []float32 {
	result := make([]float32, len(values))
	for i, v := range values {
		result[i] = float32(v)
	}
	return result
}
