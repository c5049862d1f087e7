package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"taalcoach/internal/models"
)

// Config holds all application configuration
type Config struct {
	Port     string
	MongoURI string
	RedisURL string // optional; empty disables the usage limiter

	// JWT verification for tokens issued by the identity provider
	JWTSecret string

	// Language model service (OpenAI-compatible chat completions)
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	// Client-side pacing of language model requests (requests per second)
	LLMRequestsPerSecond float64

	// Per-learner daily cap on language model invocations (0 = unlimited)
	DailyLLMLimit int

	// Optional YAML file overriding the built-in prompt templates
	PromptsFile string

	AllowedOrigins string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "3001"),
		MongoURI: getEnv("MONGODB_URI", "mongodb://localhost:27017/taalcoach"),
		RedisURL: getEnv("REDIS_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		LLMBaseURL: strings.TrimSuffix(getEnv("LLM_BASE_URL", "https://api.openai.com/v1"), "/"),
		LLMAPIKey:  getEnv("LLM_API_KEY", ""),
		LLMModel:   getEnv("LLM_MODEL", "gpt-4o-mini"),

		LLMRequestsPerSecond: getFloatEnv("LLM_REQUESTS_PER_SECOND", 2.0),
		DailyLLMLimit:        getIntEnv("DAILY_LLM_LIMIT", 100),

		PromptsFile: getEnv("PROMPTS_FILE", ""),

		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:5173"),
	}
}

// LoadPrompts loads prompt templates from a YAML file, layered over the
// built-in defaults. An empty path returns the defaults unchanged.
func LoadPrompts(filePath string) (*models.PromptSet, error) {
	prompts := models.DefaultPrompts()
	if filePath == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	if err := yaml.Unmarshal(data, prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompts YAML: %w", err)
	}

	return prompts, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
