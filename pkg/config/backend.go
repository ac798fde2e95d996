package config

// BackendConfig configures the in-memory mock backend.
type BackendConfig struct {
	Port         string
	ChunkSize    int
	ChunkOverlap int
	// APIBase and OpenAIConfigured are reported by /health.
	APIBase          string
	OpenAIConfigured bool

	// LLMProvider selects the model behind /chat: "openai", "google", or
	// empty to answer without a model.
	LLMProvider string
	LLMAPIKey   string
	Model       string
}

func LoadBackendConfig() *BackendConfig {
	cfg := &BackendConfig{
		Port:         getEnv("PORT", "8000"),
		ChunkSize:    getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", 200),
		APIBase:      getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
		Model:        getEnv("MODEL", ""),
	}

	if key := getEnv("OPENAI_API_KEY", ""); key != "" {
		cfg.OpenAIConfigured = true
		cfg.LLMProvider = "openai"
		cfg.LLMAPIKey = key
	} else if key := getEnv("GOOGLE_API_KEY", ""); key != "" {
		cfg.LLMProvider = "google"
		cfg.LLMAPIKey = key
	}
	cfg.LLMProvider = getEnv("LLM_PROVIDER", cfg.LLMProvider)
	return cfg
}
