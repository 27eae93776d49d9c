// Package config handles hybridcall configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/flynn-ai/hybridcall/internal/errors"
)

// DefaultPath returns the config file location: $HYBRIDCALL_CONFIG, or
// ~/.hybridcall/config.toml.
func DefaultPath() string {
	if p := os.Getenv("HYBRIDCALL_CONFIG"); p != "" {
		return expandHome(p)
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".hybridcall", "config.toml")
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".hybridcall")

	return &Config{
		Resolver: ResolverConfig{
			ConfidenceThreshold:   0.99,
			SampleBudget:          3,
			MaxDecompositionDepth: 2,
		},
		Local: LocalConfig{
			Endpoint:      "http://127.0.0.1:8080",
			Model:         "functiongemma-270m-it",
			SystemPrompt:  "You are a helpful assistant that can use tools.",
			PromptMode:    "minimal",
			MaxTokens:     256,
			ForceTools:    true,
			StopSequences: []string{"<|im_end|>", "<end_of_turn>"},
			Slots:         1,
			Timeout:       Duration{60 * time.Second},
		},
		Cloud: CloudConfig{
			Enabled:          true,
			Provider:         "gemini",
			Model:            "gemini-2.5-flash",
			APIKeyEnv:        "GEMINI_API_KEY",
			MaxTokens:        1024,
			MaxRetries:       0,
			Timeout:          Duration{60 * time.Second},
			ValidateOutput:   true,
			UserMessagesOnly: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Audit: AuditConfig{
			Enabled: false,
			Path:    filepath.Join(dataDir, "audit.db"),
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: "127.0.0.1:9464",
		},
		Paths: PathsConfig{
			DataDir: dataDir,
		},
	}
}

// Load loads the configuration from the given path.
// If the file doesn't exist, returns defaults. ${VAR} references in the
// file are expanded from the environment before decoding.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg.finish(), nil
		}
		return nil, errors.Wrap(err, errors.CodeConfigNotFound, "failed to read config", errors.CategoryUser)
	}

	if err := toml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, errors.NewBuilder(errors.CodeConfigInvalid, "failed to parse config").
			User().
			Wrap(err).
			WithContext("path", configPath).
			Build()
	}

	cfg = cfg.finish()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finish resolves the API key from the environment and expands ~ in paths.
func (c *Config) finish() *Config {
	if c.Cloud.APIKey == "" && c.Cloud.APIKeyEnv != "" {
		c.Cloud.APIKey = os.Getenv(c.Cloud.APIKeyEnv)
	}
	c.Paths.DataDir = expandHome(c.Paths.DataDir)
	c.Audit.Path = expandHome(c.Audit.Path)
	c.Log.File = expandHome(c.Log.File)
	return c
}

// Save saves the configuration to the given path.
func (c *Config) Save(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	return encoder.Encode(c)
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var problems []string

	if t := c.Resolver.ConfidenceThreshold; t < 0 || t > 1 {
		problems = append(problems, fmt.Sprintf("resolver.confidence_threshold must be in [0,1], got %v", t))
	}
	if c.Resolver.SampleBudget < 1 {
		problems = append(problems, "resolver.sample_budget must be at least 1")
	}
	if c.Resolver.MaxDecompositionDepth < 0 {
		problems = append(problems, "resolver.max_decomposition_depth must not be negative")
	}
	if c.Local.Slots < 1 {
		problems = append(problems, "local.slots must be at least 1")
	}
	switch c.Local.PromptMode {
	case "", "minimal", "full":
	default:
		problems = append(problems, "local.prompt_mode must be minimal or full")
	}
	switch strings.ToLower(c.Cloud.Provider) {
	case "gemini", "openai", "anthropic":
	default:
		problems = append(problems, "cloud.provider must be gemini, openai or anthropic")
	}
	if c.Cloud.MaxRetries < 0 {
		problems = append(problems, "cloud.max_retries must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error", "disabled", "off":
	default:
		problems = append(problems, "log.level must be debug, info, warn or error")
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		problems = append(problems, "log.format must be console or json")
	}

	if len(problems) == 0 {
		return nil
	}
	b := errors.NewBuilder(errors.CodeConfigInvalid, strings.Join(problems, "; ")).User()
	for _, p := range problems {
		b.WithSuggestion("Fix " + strings.SplitN(p, " ", 2)[0])
	}
	return b.Build()
}

// IsCloudEnabled returns true if the cloud fallback may be used.
func (c *Config) IsCloudEnabled() bool {
	return c.Cloud.Enabled
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, path[1:])
}
