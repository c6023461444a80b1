// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Settings holds all application configuration.
type Settings struct {
	// StoreRoot is the directory holding the local vector stores, one
	// subdirectory per store.
	StoreRoot string
	// FSRoot confines the glob, grep, and read tools.
	FSRoot string
	// HistoryPath is the SQLite file for completed-session history.
	HistoryPath string
	// HTTPAddr is the listen address for the HTTP server.
	HTTPAddr string

	AnthropicAPIKey string
	OpenAIAPIKey    string
	TavilyAPIKey    string
	EmbeddingModel  string

	// KnowledgeBaseID and AWSRegion configure cloud retrieval; both may be
	// empty, which leaves the aws tool unavailable at invocation time.
	KnowledgeBaseID string
	AWSRegion       string

	Agent AgentConfig
}

// AgentConfig holds session execution configuration.
type AgentConfig struct {
	MaxIterations       int
	ToolTimeout         time.Duration
	SessionTimeout      time.Duration
	MaxObservationBytes int
}

// New loads settings from environment variables.
// Returns an error if a variable contains an invalid value.
func New() (Settings, error) {
	maxIterations, err := getEnvInt("AGENT_MAX_ITERATIONS", 8)
	if err != nil {
		return Settings{}, err
	}

	toolTimeout, err := getEnvDuration("AGENT_TOOL_TIMEOUT", 30*time.Second)
	if err != nil {
		return Settings{}, err
	}

	sessionTimeout, err := getEnvDuration("AGENT_SESSION_TIMEOUT", 5*time.Minute)
	if err != nil {
		return Settings{}, err
	}

	maxObservation, err := getEnvInt("AGENT_MAX_OBSERVATION_BYTES", 64*1024)
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		StoreRoot:   getEnv("SCRIBA_STORE_ROOT", "./stores"),
		FSRoot:      getEnv("SCRIBA_FS_ROOT", "."),
		HistoryPath: getEnv("SCRIBA_HISTORY_PATH", "./scriba_history.db"),
		HTTPAddr:    getEnv("SCRIBA_HTTP_ADDR", ":8080"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		TavilyAPIKey:    os.Getenv("TAVILY_API_KEY"),
		EmbeddingModel:  os.Getenv("SCRIBA_EMBEDDING_MODEL"),

		KnowledgeBaseID: os.Getenv("SCRIBA_KNOWLEDGE_BASE_ID"),
		AWSRegion:       os.Getenv("AWS_REGION"),

		Agent: AgentConfig{
			MaxIterations:       maxIterations,
			ToolTimeout:         toolTimeout,
			SessionTimeout:      sessionTimeout,
			MaxObservationBytes: maxObservation,
		},
	}, nil
}

// Environment variable helpers with proper error handling

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return d, nil
}
