package config

import (
	"fmt"
	"os"
)

// Validate checks the configuration for invalid values.
// Called by Load after unmarshalling so no component ever sees a bad Config.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable not set", ErrMissingAPIKey)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder model is empty", ErrInvalidEmbedderModel)
	}

	if c.MaxHistory < 1 {
		return fmt.Errorf("%w: %d (must be >= 1)", ErrInvalidMaxHistory, c.MaxHistory)
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("%w: %d (must be >= 1)", ErrInvalidMaxTurns, c.MaxTurns)
	}
	if c.ContextMaxBytes < 1 {
		return fmt.Errorf("%w: %d (must be >= 1)", ErrInvalidContextBytes, c.ContextMaxBytes)
	}
	if c.RetrievalTopK < 1 || c.RetrievalTopK > 10 {
		return fmt.Errorf("invalid retrieval_top_k: %d (must be between 1 and 10)", c.RetrievalTopK)
	}

	if c.Toolset == "" {
		return fmt.Errorf("%w: toolset name is empty", ErrInvalidToolSource)
	}
	if c.ToolSourceCommand == "" {
		return fmt.Errorf("%w: tool source command is empty", ErrInvalidToolSource)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (must be between 1 and 65535)", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPostgresDB)
	}

	return nil
}
