package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ncecere/open_embedding_server/internal/adapters/vertex"
	"github.com/ncecere/open_embedding_server/internal/config"
)

func init() {
	RegisterDefinition(Definition{
		Name:         "vertex",
		Description:  "Google Vertex AI text embedding models",
		Capabilities: []string{"embeddings"},
		Builder:      buildVertexBackend,
	})
}

func buildVertexBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	cfg = EnsureConfig(cfg)
	pc := cfg.Providers.Vertex

	projectID := pickFirst(pc.ProjectID)
	if projectID == "" {
		return Backend{}, fmt.Errorf("vertex backend requires providers.vertex.gcp_project_id")
	}
	location := pickFirst(pc.Location, "us-central1")

	credBytes, err := decodeVertexCredentials(pc.CredentialsJSON, pc.CredentialsFormat)
	if err != nil {
		return Backend{}, err
	}

	adapter, err := vertex.New(ctx, vertex.Options{
		ProjectID:       projectID,
		Location:        location,
		Publisher:       pc.Publisher,
		Model:           cfg.Model.Name,
		Endpoint:        strings.TrimSpace(pc.Endpoint),
		TaskType:        pc.TaskType,
		CredentialsJSON: credBytes,
	})
	if err != nil {
		return Backend{}, err
	}

	return Backend{
		Provider: "vertex",
		Model:    cfg.Model.Name,
		Metadata: map[string]string{
			"gcp_project_id":   projectID,
			"vertex_location":  location,
			"vertex_publisher": pickFirst(pc.Publisher, "google"),
		},
		Embedding: adapter,
		Health:    adapter.HealthCheck,
	}, nil
}

// decodeVertexCredentials accepts raw JSON or base64-encoded JSON. An empty
// format sniffs which one was supplied.
func decodeVertexCredentials(source, format string) ([]byte, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("vertex backend requires gcp credentials json")
	}
	credBytes := []byte(source)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "base64":
		decoded, err := base64.StdEncoding.DecodeString(source)
		if err != nil {
			return nil, fmt.Errorf("vertex credentials base64 decode: %w", err)
		}
		if !json.Valid(decoded) {
			return nil, fmt.Errorf("vertex credentials base64 decode produced invalid JSON")
		}
		return decoded, nil
	case "json", "":
		if json.Valid(credBytes) {
			return credBytes, nil
		}
		if decoded, err := base64.StdEncoding.DecodeString(source); err == nil && json.Valid(decoded) {
			return decoded, nil
		}
		return nil, fmt.Errorf("vertex credentials json invalid or truncated")
	default:
		return nil, fmt.Errorf("vertex credentials format %q not supported", format)
	}
}
