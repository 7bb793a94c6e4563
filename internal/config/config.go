// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.aira/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider, model, embedder
//   - Storage: PostgreSQL connection (see storage.go)
//   - Orchestration: history bound, agent loop cap, context payload bound
//   - Tool source: MCP server the agent discovers its toolset from (see tools.go)
//   - Serve: HTTP address, CORS, rate limiting, tracing
//
// Sensitive values (passwords) are masked in MarshalJSON and String.
// Validation is fail-fast: Load returns an error before any component
// sees an invalid Config.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation, checked with errors.Is().
var (
	ErrConfigNil            = errors.New("configuration is nil")
	ErrMissingAPIKey        = errors.New("missing API key")
	ErrInvalidModelName     = errors.New("invalid model name")
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")
	ErrInvalidMaxHistory    = errors.New("invalid max history")
	ErrInvalidMaxTurns      = errors.New("invalid max turns")
	ErrInvalidContextBytes  = errors.New("invalid context byte bound")
	ErrInvalidPostgresHost  = errors.New("invalid PostgreSQL host")
	ErrInvalidPostgresPort  = errors.New("invalid PostgreSQL port")
	ErrInvalidPostgresDB    = errors.New("invalid PostgreSQL database name")
	ErrInvalidToolSource    = errors.New("invalid tool source")
)

const (
	// DefaultMaxHistory is the retained turn bound per user. Older turns are
	// evicted after every append.
	DefaultMaxHistory = 50

	// DefaultMaxTurns caps the reasoning/tool-execution cycles per request.
	DefaultMaxTurns = 5

	// DefaultContextMaxBytes bounds the serialized retrieval payload folded
	// into the agent's input view.
	DefaultContextMaxBytes = 4096

	// DefaultToolset is the MCP server name the tool registry connects to.
	DefaultToolset = "bytecraft"
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderGoogleAI = "googleai"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// AI provider and model configuration
	Provider      string `mapstructure:"provider" json:"provider"`
	ModelName     string `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Orchestration configuration
	MaxHistory      int `mapstructure:"max_history" json:"max_history"`
	MaxTurns        int `mapstructure:"max_turns" json:"max_turns"`
	ContextMaxBytes int `mapstructure:"context_max_bytes" json:"context_max_bytes"`
	RetrievalTopK   int `mapstructure:"retrieval_top_k" json:"retrieval_top_k"`

	// Tool source configuration (see tools.go)
	Toolset           string   `mapstructure:"toolset" json:"toolset"`
	ToolSourceCommand string   `mapstructure:"tool_source_command" json:"tool_source_command"`
	ToolSourceArgs    []string `mapstructure:"tool_source_args" json:"tool_source_args"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Serve configuration
	ListenAddr  string   `mapstructure:"listen_addr" json:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`

	// Observability configuration
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// TracingConfig configures OTLP trace export. Disabled when Endpoint is empty.
type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".aira")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, when set, overrides individual postgres_* settings
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("embedder_model", "gemini-embedding-001")

	// Orchestration defaults
	viper.SetDefault("max_history", DefaultMaxHistory)
	viper.SetDefault("max_turns", DefaultMaxTurns)
	viper.SetDefault("context_max_bytes", DefaultContextMaxBytes)
	viper.SetDefault("retrieval_top_k", 3)

	// Tool source defaults: the aira binary serves its own storefront toolset
	viper.SetDefault("toolset", DefaultToolset)
	viper.SetDefault("tool_source_command", "aira")
	viper.SetDefault("tool_source_args", []string{"mcp"})

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "aira")
	viper.SetDefault("postgres_password", "aira_dev_password")
	viper.SetDefault("postgres_db_name", "aira")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Serve defaults
	viper.SetDefault("listen_addr", ":5500")
	viper.SetDefault("cors_origins", []string{"http://localhost:4200"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 60)

	// Tracing defaults (disabled unless endpoint is set)
	viper.SetDefault("tracing.service_name", "aira")
	viper.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY is read directly by the Genkit plugin, not via Viper;
// Validate() only checks its presence.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "AIRA_PROVIDER")
	mustBind("model_name", "AIRA_MODEL_NAME")
	mustBind("listen_addr", "AIRA_LISTEN_ADDR")
	mustBind("cors_origins", "AIRA_CORS_ORIGINS")
	mustBind("trust_proxy", "AIRA_TRUST_PROXY")
	mustBind("rate_burst", "AIRA_RATE_BURST")
	mustBind("toolset", "AIRA_TOOLSET")
	mustBind("tool_source_command", "AIRA_TOOL_SOURCE_COMMAND")
	mustBind("tracing.endpoint", "AIRA_TRACING_ENDPOINT")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Short secrets are fully masked; longer ones keep two characters at each
// end for debug utility.
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
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Example: "googleai/gemini-2.5-flash". A name already containing "/" is
// returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return ProviderGoogleAI + "/" + c.ModelName
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
