package providers

import (
	"sort"

	"github.com/ncecere/open_embedding_server/internal/config"
)

// Definition captures the metadata required to register a backend builder.
type Definition struct {
	Name         string
	Description  string
	Capabilities []string
	Builder      Builder
}

var defaultDefinitions = map[string]Definition{}

// RegisterDefinition stores a backend definition so factories can resolve builders by name.
func RegisterDefinition(def Definition) {
	if def.Builder == nil {
		panic("providers: definition builder required")
	}
	if def.Name == "" {
		panic("providers: definition name required")
	}
	if def.Description == "" {
		def.Description = def.Name
	}
	if len(def.Capabilities) > 0 {
		caps := make([]string, len(def.Capabilities))
		copy(caps, def.Capabilities)
		sort.Strings(caps)
		def.Capabilities = caps
	}
	if defaultDefinitions == nil {
		defaultDefinitions = make(map[string]Definition)
	}
	defaultDefinitions[def.Name] = def
}

// DefaultDefinitions returns the registered backend definitions sorted by name.
func DefaultDefinitions() []Definition {
	defs := make([]Definition, 0, len(defaultDefinitions))
	for _, def := range defaultDefinitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs
}

func cloneDefaultBuilders() map[string]Builder {
	builders := make(map[string]Builder, len(defaultDefinitions))
	for name, def := range defaultDefinitions {
		builders[name] = def.Builder
	}
	return builders
}

func definitionNames() []string {
	names := make([]string, 0, len(defaultDefinitions))
	for name := range defaultDefinitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnsureConfig ensures the config pointer is not nil when builders run.
func EnsureConfig(cfg *config.Config) *config.Config {
	if cfg == nil {
		panic("providers: config is required")
	}
	return cfg
}
