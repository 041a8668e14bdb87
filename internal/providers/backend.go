package providers

import "strings"

// Backend bundles the adapter serving the loaded model with its metadata.
type Backend struct {
	Provider  string
	Model     string
	Metadata  map[string]string
	Embedding EmbeddingsProvider
	Health    HealthFunc
}

// ResolveDeployment returns the upstream model identifier, honoring a
// deployment override when one is configured.
func (b Backend) ResolveDeployment() string {
	if b.Metadata != nil {
		if deployment := strings.TrimSpace(b.Metadata["deployment"]); deployment != "" {
			return deployment
		}
	}
	return b.Model
}
