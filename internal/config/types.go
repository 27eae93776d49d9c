// Package config provides configuration types for hybridcall.
package config

import "time"

// Config represents the main hybridcall configuration.
type Config struct {
	Resolver ResolverConfig `toml:"resolver"`
	Local    LocalConfig    `toml:"local"`
	Cloud    CloudConfig    `toml:"cloud"`
	Log      LogConfig      `toml:"log"`
	Audit    AuditConfig    `toml:"audit"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Paths    PathsConfig    `toml:"paths"`
}

// ResolverConfig tunes the on-device resolution strategy.
type ResolverConfig struct {
	ConfidenceThreshold   float64  `toml:"confidence_threshold"`    // fast-path acceptance bar
	SampleBudget          int      `toml:"sample_budget"`           // local attempts per resolution
	MaxDecompositionDepth int      `toml:"max_decomposition_depth"` // nested decomposition bound
	Verbs                 []string `toml:"verbs,omitempty"`         // overrides the default action verbs
}

// LocalConfig configures the on-device runtime.
type LocalConfig struct {
	Endpoint      string   `toml:"endpoint"`
	Model         string   `toml:"model"`
	SystemPrompt  string   `toml:"system_prompt"`
	PromptMode    string   `toml:"prompt_mode"` // minimal, full
	MaxTokens     int      `toml:"max_tokens"`
	ForceTools    bool     `toml:"force_tools"`
	StopSequences []string `toml:"stop_sequences"`
	Slots         int      `toml:"slots"` // concurrent calls the runtime accepts
	Timeout       Duration `toml:"timeout"`
}

// CloudConfig configures the remote fallback.
type CloudConfig struct {
	Enabled          bool     `toml:"enabled"`
	Provider         string   `toml:"provider"` // gemini, openai, anthropic
	Model            string   `toml:"model"`
	APIKey           string   `toml:"api_key"`
	APIKeyEnv        string   `toml:"api_key_env"` // consulted when api_key is empty
	BaseURL          string   `toml:"base_url"`
	MaxTokens        int      `toml:"max_tokens"`
	MaxRetries       int      `toml:"max_retries"`
	Timeout          Duration `toml:"timeout"`
	ValidateOutput   bool     `toml:"validate_output"`
	UserMessagesOnly bool     `toml:"user_messages_only"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // console, json
	File   string `toml:"file"`
}

// AuditConfig configures the resolution audit store.
type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

// PathsConfig contains file system paths.
type PathsConfig struct {
	DataDir string `toml:"data_dir"`
}

// Duration is a time.Duration written as a string such as "60s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
