// Package hashing implements an in-process embedder based on the hashing
// trick: words and character n-grams are hashed into a fixed number of
// signed buckets and the result is L2 normalized. It needs no model files or
// external runtime and is deterministic across processes.
package hashing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/ncecere/open_embedding_server/internal/models"
	"github.com/ncecere/open_embedding_server/internal/usage"
)

// Options configure the hashing embedder.
type Options struct {
	Dimensions int
	NGramMin   int
	NGramMax   int
	Lowercase  bool
}

// Adapter is safe for concurrent use; it holds no mutable state.
type Adapter struct {
	opts Options
}

func New(opts Options) (*Adapter, error) {
	if opts.Dimensions <= 0 {
		return nil, errors.New("hashing: dimensions must be > 0")
	}
	if opts.NGramMin < 0 || opts.NGramMax < 0 {
		return nil, errors.New("hashing: ngram bounds must be >= 0")
	}
	if opts.NGramMin > 0 && opts.NGramMax == 0 {
		opts.NGramMax = opts.NGramMin
	}
	if opts.NGramMin > opts.NGramMax {
		return nil, fmt.Errorf("hashing: ngram_min %d exceeds ngram_max %d", opts.NGramMin, opts.NGramMax)
	}
	return &Adapter{opts: opts}, nil
}

func (a *Adapter) Embed(ctx context.Context, req models.EmbeddingsRequest) (models.EmbeddingsResponse, error) {
	if len(req.Input) == 0 {
		return models.EmbeddingsResponse{}, errors.New("hashing: embeddings input required")
	}
	embeddings := make([]models.Embedding, 0, len(req.Input))
	for idx, text := range req.Input {
		if err := ctx.Err(); err != nil {
			return models.EmbeddingsResponse{}, err
		}
		embeddings = append(embeddings, models.Embedding{Index: idx, Vector: a.vectorize(text)})
	}
	tokens := usage.Estimate(req.Input)
	return models.EmbeddingsResponse{
		Model:      req.Model,
		Embeddings: embeddings,
		Usage:      models.Usage{PromptTokens: tokens, TotalTokens: tokens},
	}, nil
}

func (a *Adapter) HealthCheck(context.Context) error { return nil }

func (a *Adapter) vectorize(text string) []float32 {
	if a.opts.Lowercase {
		text = strings.ToLower(text)
	}
	acc := make([]float64, a.opts.Dimensions)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		a.add(acc, "w:"+word)
		if a.opts.NGramMin == 0 {
			continue
		}
		padded := []rune("<" + word + ">")
		for n := a.opts.NGramMin; n <= a.opts.NGramMax; n++ {
			if n > len(padded) {
				break
			}
			for i := 0; i+n <= len(padded); i++ {
				a.add(acc, "c:"+string(padded[i:i+n]))
			}
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	out := make([]float32, len(acc))
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out
}

// add hashes a feature into a bucket; the top bit picks the sign so
// collisions tend to cancel out.
func (a *Adapter) add(acc []float64, feature string) {
	h := xxhash.Sum64String(feature)
	bucket := int(h % uint64(len(acc)))
	if h>>63 == 1 {
		acc[bucket]--
		return
	}
	acc[bucket]++
}
