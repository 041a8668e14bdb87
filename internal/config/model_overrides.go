package config

// ProviderConfig captures backend specific settings. Only the block matching
// model.backend is read.
type ProviderConfig struct {
	OpenAI  OpenAIProviderConfig  `mapstructure:"openai" json:"openai"`
	Bedrock BedrockProviderConfig `mapstructure:"bedrock" json:"bedrock"`
	Vertex  VertexProviderConfig  `mapstructure:"vertex" json:"vertex"`
	Hashing HashingProviderConfig `mapstructure:"hashing" json:"hashing"`
}

type OpenAIProviderConfig struct {
	BaseURL      string `mapstructure:"base_url" json:"base_url"`
	APIKey       string `mapstructure:"api_key" json:"api_key"`
	Organization string `mapstructure:"organization" json:"organization"`
	// Deployment overrides the model name sent upstream when the inference
	// server registers the model under a different id.
	Deployment string `mapstructure:"deployment" json:"deployment"`
}

type BedrockProviderConfig struct {
	Region          string `mapstructure:"region" json:"region"`
	ModelID         string `mapstructure:"model_id" json:"model_id"`
	EmbedDims       int32  `mapstructure:"embed_dims" json:"embed_dims"`
	EmbedNormalize  bool   `mapstructure:"embed_normalize" json:"embed_normalize"`
	AccessKeyID     string `mapstructure:"aws_access_key_id" json:"aws_access_key_id"`
	SecretAccessKey string `mapstructure:"aws_secret_access_key" json:"aws_secret_access_key"`
	SessionToken    string `mapstructure:"aws_session_token" json:"aws_session_token"`
	Profile         string `mapstructure:"aws_profile" json:"aws_profile"`
}

type VertexProviderConfig struct {
	ProjectID         string `mapstructure:"gcp_project_id" json:"gcp_project_id"`
	Location          string `mapstructure:"location" json:"location"`
	Publisher         string `mapstructure:"publisher" json:"publisher"`
	Endpoint          string `mapstructure:"endpoint" json:"endpoint"`
	TaskType          string `mapstructure:"task_type" json:"task_type"`
	CredentialsJSON   string `mapstructure:"gcp_credentials_json" json:"gcp_credentials_json"`
	CredentialsFormat string `mapstructure:"gcp_credentials_format" json:"gcp_credentials_format"`
}

type HashingProviderConfig struct {
	Dimensions int  `mapstructure:"dimensions" json:"dimensions"`
	NGramMin   int  `mapstructure:"ngram_min" json:"ngram_min"`
	NGramMax   int  `mapstructure:"ngram_max" json:"ngram_max"`
	Lowercase  bool `mapstructure:"lowercase" json:"lowercase"`
}
