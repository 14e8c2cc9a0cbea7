// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.kindred/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: OpenAI model selection, temperature, max tokens, embedder
//   - Storage: PostgreSQL connection (see storage.go)
//   - RAG: retrieval defaults and the knowledge-match admission threshold
//   - Server: listen address, CORS, proxy trust, rate limiting
//
// Security: secrets are never logged; the config directory uses 0750
// permissions and sensitive fields are masked in MarshalJSON.
//
// Error Handling: sentinel errors for errors.Is() checks, wrapped with
// context via fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the OpenAI API key is missing.
	ErrMissingAPIKey = errors.New("missing OpenAI API key")

	// ErrInvalidModelName indicates the chat model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbedderDimension indicates the embedder dimension is invalid.
	ErrInvalidEmbedderDimension = errors.New("invalid embedder dimension")

	// ErrInvalidThreshold indicates the knowledge threshold is out of range.
	ErrInvalidThreshold = errors.New("invalid knowledge threshold")

	// ErrInvalidTopK indicates the retrieval top-K default is out of range.
	ErrInvalidTopK = errors.New("invalid default top K")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultChatModel is the default OpenAI chat completion model.
	DefaultChatModel = "gpt-4o-mini"

	// DefaultEmbedderModel is the default OpenAI embedding model.
	// text-embedding-3-small outputs 1536 dimensions; the documents table
	// vector column must match (see db/migrations).
	DefaultEmbedderModel = "text-embedding-3-small"

	// DefaultEmbedderDimension is the vector dimensionality the index is
	// provisioned for. Must agree with the embedder model output.
	DefaultEmbedderDimension = 1536

	// DefaultKnowledgeThreshold is the cosine-similarity score a per-user
	// knowledge item must strictly exceed to be admitted as a retrieval
	// match. Historical default; configurable because the value has no
	// documented derivation.
	DefaultKnowledgeThreshold = 0.7

	// DefaultTopK is the number of matches returned when the caller does
	// not supply a positive top-K.
	DefaultTopK = 5

	// DefaultTranscribeModel is the default audio transcription model.
	DefaultTranscribeModel = "whisper-1"

	// DefaultSpeechModel is the default text-to-speech model.
	DefaultSpeechModel = "tts-1"

	// DefaultSpeechVoice is the default text-to-speech voice.
	DefaultSpeechVoice = "nova"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys), update MarshalJSON.
type Config struct {
	// OpenAI configuration
	OpenAIAPIKey  string `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE: masked in MarshalJSON
	OpenAIBaseURL string `mapstructure:"openai_base_url" json:"openai_base_url"`

	ChatModel       string  `mapstructure:"chat_model" json:"chat_model"`
	Temperature     float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens" json:"max_tokens"`
	TranscribeModel string  `mapstructure:"transcribe_model" json:"transcribe_model"`
	SpeechModel     string  `mapstructure:"speech_model" json:"speech_model"`
	SpeechVoice     string  `mapstructure:"speech_voice" json:"speech_voice"`

	// RAG configuration
	EmbedderModel      string  `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedderDimension  int     `mapstructure:"embedder_dimension" json:"embedder_dimension"`
	KnowledgeThreshold float64 `mapstructure:"knowledge_threshold" json:"knowledge_threshold"`
	DefaultTopK        int     `mapstructure:"default_top_k" json:"default_top_k"`
	EmbedConcurrency   int     `mapstructure:"embed_concurrency" json:"embed_concurrency"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Server configuration
	ListenAddr  string   `mapstructure:"listen_addr" json:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (set true behind reverse proxy)
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".kindred")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Also support current directory

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when present.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// AI defaults
	v.SetDefault("chat_model", DefaultChatModel)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("transcribe_model", DefaultTranscribeModel)
	v.SetDefault("speech_model", DefaultSpeechModel)
	v.SetDefault("speech_voice", DefaultSpeechVoice)

	// RAG defaults
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("embedder_dimension", DefaultEmbedderDimension)
	v.SetDefault("knowledge_threshold", DefaultKnowledgeThreshold)
	v.SetDefault("default_top_k", DefaultTopK)
	v.SetDefault("embed_concurrency", 4)

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "kindred")
	v.SetDefault("postgres_password", "kindred_dev_password")
	v.SetDefault("postgres_db_name", "kindred")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_burst", 60)
}

// bindEnvVariables binds environment variables explicitly.
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("openai_api_key", "OPENAI_API_KEY")
	mustBind("openai_base_url", "OPENAI_BASE_URL")
	mustBind("chat_model", "KINDRED_CHAT_MODEL")
	mustBind("embedder_model", "KINDRED_EMBEDDER_MODEL")
	mustBind("knowledge_threshold", "KINDRED_KNOWLEDGE_THRESHOLD")
	mustBind("listen_addr", "KINDRED_LISTEN_ADDR")
	mustBind("cors_origins", "KINDRED_CORS_ORIGINS")
	mustBind("trust_proxy", "KINDRED_TRUST_PROXY")
	mustBind("rate_burst", "KINDRED_RATE_BURST")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 chars or fewer are fully masked to prevent substring matching;
// longer secrets keep the first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config // Avoid infinite recursion
	masked := *c
	masked.OpenAIAPIKey = maskSecret(c.OpenAIAPIKey)
	masked.PostgresPassword = maskSecret(c.PostgresPassword)
	return json.Marshal((*alias)(&masked))
}
