package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/wiki-generator/internal/llm"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"projects_dir": "/srv/wiki/projects",
		"provider": "openai",
		"model": "gpt-4o-mini",
		"upload_delay": "500ms",
		"max_retries": 5,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "/srv/wiki/projects", cfg.ProjectsDir)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, Duration(500*time.Millisecond), cfg.UploadDelay)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.True(t, cfg.Verbose)
	assert.False(t, cfg.LogJSON)
}

func TestLoadConfig_DelayInSeconds(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"upload_delay": 3}`), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, Duration(3*time.Second), cfg.UploadDelay)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"upload_delay": "soon"}`), 0644))

	_, err := LoadConfig(tmpFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty", cfg: Config{}},
		{name: "valid", cfg: Config{Provider: "gemini", MaxRetries: 3, Port: 8080}},
		{name: "unknown provider", cfg: Config{Provider: "claude"}, wantErr: "unknown LLM provider"},
		{name: "negative delay", cfg: Config{UploadDelay: Duration(-time.Second)}, wantErr: "upload_delay"},
		{name: "negative retries", cfg: Config{MaxRetries: -1}, wantErr: "max_retries"},
		{name: "bad port", cfg: Config{Port: 70000}, wantErr: "port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{ProjectsDir: "mine", MaxRetries: 1}
	merged := cfg.MergeWithDefaults(Config{
		ProjectsDir: "projects",
		Provider:    "gemini",
		APIKey:      "key",
		UploadDelay: Duration(2 * time.Second),
		MaxRetries:  3,
		Port:        8080,
		Verbose:     true,
	})

	assert.Equal(t, "mine", merged.ProjectsDir)
	assert.Equal(t, "gemini", merged.Provider)
	assert.Equal(t, "key", merged.APIKey)
	assert.Equal(t, Duration(2*time.Second), merged.UploadDelay)
	assert.Equal(t, 1, merged.MaxRetries)
	assert.Equal(t, 8080, merged.Port)
	assert.False(t, merged.Verbose, "bools are not merged")
	assert.Empty(t, cfg.Provider, "receiver is unchanged")
}

func TestDefaults_Environment(t *testing.T) {
	t.Setenv("WIKIGEN_PROJECTS_DIR", "/data/projects")
	t.Setenv("WIKIGEN_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GEMINI_API_KEY", "gm-test")
	t.Setenv("DATABASE_URL", "wikigen.db")

	d := Defaults()
	assert.Equal(t, "/data/projects", d.ProjectsDir)
	assert.Equal(t, "openai", d.Provider)
	assert.Equal(t, "sk-test", d.APIKey)
	assert.Equal(t, "wikigen.db", d.DatabaseURL)
	assert.Equal(t, Duration(DefaultUploadDelay), d.UploadDelay)

	assert.Equal(t, "gm-test", APIKeyFromEnv("gemini"))
}

func TestLLMConfig(t *testing.T) {
	cfg := Config{Provider: "openai", Model: "gpt-4.1"}
	llmCfg, err := cfg.LLMConfig()
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderOpenAI, llmCfg.Provider)
	assert.Equal(t, "gpt-4.1", llmCfg.GetModel(llm.TierLite))
	assert.Equal(t, "gpt-4.1", llmCfg.GetModel(llm.TierAdvanced))

	llmCfg, err = (&Config{}).LLMConfig()
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderGemini, llmCfg.Provider)

	_, err = (&Config{Provider: "nope"}).LLMConfig()
	assert.Error(t, err)
}
