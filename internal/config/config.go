package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// DefaultModelName is served when no model identifier is configured.
const DefaultModelName = "all-MiniLM-L6-v2"

// Config captures the runtime configuration for the embedding server.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Model         ModelConfig         `mapstructure:"model"`
	Providers     ProviderConfig      `mapstructure:"providers"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Health        HealthConfig        `mapstructure:"health"`
	Log           LogConfig           `mapstructure:"log"`
}

type ServerConfig struct {
	ListenAddr            string        `mapstructure:"listen_addr"`
	BodyLimitMB           int           `mapstructure:"body_limit_mb"`
	ReadTimeout           time.Duration `mapstructure:"read_timeout"`
	WriteTimeout          time.Duration `mapstructure:"write_timeout"`
	IdleTimeout           time.Duration `mapstructure:"idle_timeout"`
	GracefulShutdownDelay time.Duration `mapstructure:"graceful_shutdown_delay"`
}

type ModelConfig struct {
	Name             string        `mapstructure:"name"`
	Backend          string        `mapstructure:"backend"`
	Dimensions       int           `mapstructure:"dimensions"`
	MaxInputs        int           `mapstructure:"max_inputs"`
	LoadTimeout      time.Duration `mapstructure:"load_timeout"`
	InferenceTimeout time.Duration `mapstructure:"inference_timeout"`
}

type AuthConfig struct {
	APIKey     string `mapstructure:"api_key"`
	APIKeyHash string `mapstructure:"api_key_hash"`
}

type ObservabilityConfig struct {
	ServiceName   string `mapstructure:"service_name"`
	OTLPEndpoint  string `mapstructure:"otlp_endpoint"`
	EnableOTLP    bool   `mapstructure:"enable_otlp"`
	EnableMetrics bool   `mapstructure:"enable_metrics"`
}

type HealthConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Options controls the config loader behavior.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load returns the merged configuration sourced from YAML and environment variables.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else if cfg := os.Getenv("EMBED_CONFIG_FILE"); cfg != "" {
		v.SetConfigFile(cfg)
		explicitFile = true
	}

	if !explicitFile {
		v.SetConfigName("embedd")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("EMBED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindStructEnv(v, reflect.TypeOf(Config{}), ""); err != nil {
		return nil, err
	}
	if err := bindCompatEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(timeStringToDurationHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindStructEnv registers an EMBED_ variable for every leaf key of t.
// AutomaticEnv alone only covers keys viper already knows from a default or
// the config file.
func bindStructEnv(v *viper.Viper, t reflect.Type, prefix string) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := strings.Split(field.Tag.Get("mapstructure"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if field.Type.Kind() == reflect.Struct {
			if err := bindStructEnv(v, field.Type, key); err != nil {
				return err
			}
			continue
		}
		env := "EMBED_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// bindCompatEnv keeps the bare MODEL and API_KEY variables working alongside
// the prefixed names. The prefixed name wins when both are set.
func bindCompatEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"model.name":         {"EMBED_MODEL_NAME", "MODEL"},
		"auth.api_key":       {"EMBED_AUTH_API_KEY", "API_KEY"},
		"server.listen_addr": {"EMBED_SERVER_LISTEN_ADDR", "LISTEN_ADDR"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// Validate ensures required values are set and fills derived defaults.
func (c *Config) Validate() error {
	var missing []string

	c.Model.Name = strings.TrimSpace(c.Model.Name)
	if c.Model.Name == "" {
		c.Model.Name = DefaultModelName
	}
	c.Auth.APIKey = strings.TrimSpace(c.Auth.APIKey)
	c.Auth.APIKeyHash = strings.TrimSpace(c.Auth.APIKeyHash)
	if c.Auth.APIKey == "" && c.Auth.APIKeyHash == "" {
		missing = append(missing, "API_KEY (or EMBED_AUTH_API_KEY / EMBED_AUTH_API_KEY_HASH)")
	}
	if strings.TrimSpace(c.Server.ListenAddr) == "" {
		missing = append(missing, "EMBED_SERVER_LISTEN_ADDR")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	c.Model.Backend = strings.ToLower(strings.TrimSpace(c.Model.Backend))
	if c.Model.Backend == "" {
		return fmt.Errorf("model.backend must be provided")
	}
	if c.Model.Dimensions < 0 {
		return fmt.Errorf("model.dimensions must be >= 0")
	}
	if c.Model.MaxInputs <= 0 {
		return fmt.Errorf("model.max_inputs must be > 0")
	}
	if c.Model.LoadTimeout <= 0 {
		c.Model.LoadTimeout = 2 * time.Minute
	}
	if c.Model.InferenceTimeout <= 0 {
		c.Model.InferenceTimeout = 60 * time.Second
	}

	if c.Server.BodyLimitMB <= 0 {
		return fmt.Errorf("server.body_limit_mb must be > 0")
	}
	if c.Server.GracefulShutdownDelay <= 0 {
		c.Server.GracefulShutdownDelay = 5 * time.Second
	}

	if c.Health.CheckInterval <= 0 {
		c.Health.CheckInterval = time.Minute
	}
	if c.Health.Timeout <= 0 || c.Health.Timeout > c.Health.CheckInterval {
		c.Health.Timeout = 5 * time.Second
	}

	if strings.TrimSpace(c.Observability.ServiceName) == "" {
		c.Observability.ServiceName = "open-embedding-server"
	}

	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", "json":
		c.Log.Format = "json"
	case "text":
		c.Log.Format = "text"
	default:
		return fmt.Errorf("log.format must be json or text")
	}

	return c.Providers.Hashing.validate()
}

func (h *HashingProviderConfig) validate() error {
	if h.Dimensions < 0 {
		return fmt.Errorf("providers.hashing.dimensions must be >= 0")
	}
	if h.NGramMin < 0 || h.NGramMax < 0 {
		return fmt.Errorf("providers.hashing ngram bounds must be >= 0")
	}
	if h.NGramMin > 0 && h.NGramMax > 0 && h.NGramMin > h.NGramMax {
		return fmt.Errorf("providers.hashing.ngram_min cannot exceed ngram_max")
	}
	return nil
}

// Masked returns a copy with secrets replaced, suitable for printing.
func (c Config) Masked() Config {
	c.Auth.APIKey = mask(c.Auth.APIKey)
	c.Auth.APIKeyHash = mask(c.Auth.APIKeyHash)
	c.Providers.OpenAI.APIKey = mask(c.Providers.OpenAI.APIKey)
	c.Providers.Bedrock.SecretAccessKey = mask(c.Providers.Bedrock.SecretAccessKey)
	c.Providers.Bedrock.SessionToken = mask(c.Providers.Bedrock.SessionToken)
	c.Providers.Vertex.CredentialsJSON = mask(c.Providers.Vertex.CredentialsJSON)
	return c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.body_limit_mb", 20)
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.graceful_shutdown_delay", "5s")

	v.SetDefault("model.name", DefaultModelName)
	v.SetDefault("model.backend", "openai")
	v.SetDefault("model.dimensions", 0)
	v.SetDefault("model.max_inputs", 2048)
	v.SetDefault("model.load_timeout", "2m")
	v.SetDefault("model.inference_timeout", "60s")

	v.SetDefault("providers.openai.base_url", "http://localhost:8081/v1")
	v.SetDefault("providers.bedrock.region", "us-east-1")
	v.SetDefault("providers.vertex.location", "us-central1")
	v.SetDefault("providers.vertex.publisher", "google")
	v.SetDefault("providers.hashing.dimensions", 384)
	v.SetDefault("providers.hashing.ngram_min", 3)
	v.SetDefault("providers.hashing.ngram_max", 5)
	v.SetDefault("providers.hashing.lowercase", true)

	v.SetDefault("observability.service_name", "open-embedding-server")
	v.SetDefault("observability.enable_otlp", false)
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.otlp_endpoint", "http://localhost:4317")

	v.SetDefault("health.check_interval", "60s")
	v.SetDefault("health.timeout", "5s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func timeStringToDurationHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			return d, nil
		case int:
			return time.Duration(v) * time.Second, nil
		default:
			return nil, fmt.Errorf("cannot decode %T into time.Duration", data)
		}
	}
}
