package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port     int
	APIToken string
	LogLevel string

	OllamaURL       string
	OllamaModel     string
	LLMProvider     string
	AnthropicAPIKey string
	AnthropicModel  string
	LLMTimeoutSecs  int
	LLMMaxTokens    int
	LLMTemperature  float64

	Workers   int
	SkillsDir string
	DataDir   string

	DatabaseURL string
	NatsURL     string
}

func Load() Config {
	return Config{
		Port:     envInt("TRIAGENT_PORT", 8420),
		APIToken: envStr("TRIAGENT_API_TOKEN", ""),
		LogLevel: envStr("LOG_LEVEL", "info"),

		OllamaURL:       envStr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:     envStr("OLLAMA_MODEL", "llama3.1:8b"),
		LLMProvider:     envStr("LLM_PROVIDER", "ollama"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		LLMTimeoutSecs:  envInt("LLM_TIMEOUT_SECONDS", 120),
		LLMMaxTokens:    envInt("LLM_MAX_TOKENS", 1024),
		LLMTemperature:  envFloat("LLM_TEMPERATURE", 0.1),

		Workers:   envInt("TRIAGENT_WORKERS", 4),
		SkillsDir: envStr("SKILLS_DIR", "skills"),
		DataDir:   envStr("DATA_DIR", "data"),

		DatabaseURL: envStr("DATABASE_URL", ""),
		NatsURL:     envStr("NATS_URL", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
