package bedrock

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/open_embedding_server/internal/providers/fixtures"
)

func TestParseTitanEmbeddingRecordedShapes(t *testing.T) {
	cases := []struct {
		fixture    string
		wantVector []float32
		wantTokens int32
	}{
		{fixture: "titan_embed_primary.json", wantVector: []float32{0.12, -0.34, 0.56}, wantTokens: 27},
		{fixture: "titan_embed_alt.json", wantVector: []float32{0.9, 0.1}, wantTokens: 14},
	}
	for _, tc := range cases {
		t.Run(tc.fixture, func(t *testing.T) {
			vec, tokens, err := parseTitanEmbedding(fixtures.Bytes(t, tc.fixture))
			require.NoError(t, err)
			require.Equal(t, tc.wantVector, vec)
			require.Equal(t, tc.wantTokens, tokens)
		})
	}
}

func TestParseTitanEmbeddingRejectsEmptyOrForeignPayloads(t *testing.T) {
	for _, payload := range []string{
		`{"outputs":[]}`,
		`{"embedding":[],"inputTextTokenCount":3}`,
		`{"embeddingsByType":{"binary":[1,0]}}`,
		`not json`,
	} {
		_, _, err := parseTitanEmbedding([]byte(payload))
		require.Error(t, err, payload)
	}
}
