// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/wiki-generator/internal/llm"
)

// Defaults applied by MergeWithDefaults when neither the file nor a flag set a value.
const (
	DefaultProjectsDir = "projects"
	DefaultUploadDelay = 2 * time.Second
	DefaultMaxRetries  = 3
	DefaultPort        = 8080
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults, environment variables or CLI flags.
type Config struct {
	ProjectsDir string `json:"projects_dir,omitempty"` // Root directory of project folders
	Provider    string `json:"provider,omitempty"`     // gemini or openai
	Model       string `json:"model,omitempty"`        // Pins every tier to one model
	APIKey      string `json:"api_key,omitempty"`      // Provider API key
	DatabaseURL string `json:"database_url,omitempty"` // postgres:// URL or SQLite path for run history

	UploadDelay Duration `json:"upload_delay,omitempty"` // Delay between uploads, e.g. "2s"
	MaxRetries  int      `json:"max_retries,omitempty"`  // Wiki edit and transport retries
	Port        int      `json:"port,omitempty"`         // HTTP API port

	Verbose bool `json:"verbose,omitempty"`  // Debug logging
	LogJSON bool `json:"log_json,omitempty"` // JSON log lines
}

// Duration is a time.Duration that reads "2s" style strings or integer seconds from JSON.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds")
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// It does not require an API key; commands that call the model check that themselves.
func (c *Config) Validate() error {
	if c.Provider != "" {
		if _, err := llm.ParseProvider(c.Provider); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}
	if c.UploadDelay < 0 {
		return fmt.Errorf("config error: 'upload_delay' must be non-negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config error: 'max_retries' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.ProjectsDir == "" {
		result.ProjectsDir = defaults.ProjectsDir
	}
	if result.Provider == "" {
		result.Provider = defaults.Provider
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.UploadDelay == 0 {
		result.UploadDelay = defaults.UploadDelay
	}
	if result.MaxRetries == 0 {
		result.MaxRetries = defaults.MaxRetries
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Defaults returns the built-in defaults overlaid with environment variables.
func Defaults() Config {
	d := Config{
		ProjectsDir: DefaultProjectsDir,
		Provider:    string(llm.ProviderGemini),
		UploadDelay: Duration(DefaultUploadDelay),
		MaxRetries:  DefaultMaxRetries,
		Port:        DefaultPort,
	}
	if v := os.Getenv("WIKIGEN_PROJECTS_DIR"); v != "" {
		d.ProjectsDir = v
	}
	if v := os.Getenv("WIKIGEN_PROVIDER"); v != "" {
		d.Provider = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		d.DatabaseURL = v
	}
	d.APIKey = APIKeyFromEnv(d.Provider)
	return d
}

// APIKeyFromEnv returns the API key variable for provider.
func APIKeyFromEnv(provider string) string {
	if p, _ := llm.ParseProvider(provider); p == llm.ProviderOpenAI {
		return os.Getenv("OPENAI_API_KEY")
	}
	return os.Getenv("GEMINI_API_KEY")
}

// LLMConfig returns the model configuration selected by Provider and Model.
func (c *Config) LLMConfig() (*llm.Config, error) {
	provider := llm.ProviderGemini
	if c.Provider != "" {
		p, err := llm.ParseProvider(c.Provider)
		if err != nil {
			return nil, err
		}
		provider = p
	}
	cfg := llm.ConfigFor(provider)
	if c.Model != "" {
		cfg = cfg.WithAllModels(c.Model)
	}
	return cfg, nil
}
