package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every lookup location at empty temp dirs.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, 10, cfg.MaxSteps)
	assert.Equal(t, 4000, cfg.MaxTokens)
	assert.Equal(t, 3, cfg.MaxHandoffDepth)
	assert.Equal(t, "general", cfg.System)
	assert.Equal(t, filepath.Join(dir, "data", "taskmesh", "messages.db"), cfg.SessionDB)
	assert.Equal(t, 10, cfg.RSS.MaxFeeds)
	assert.Equal(t, 20, cfg.RSS.MaxItems)
}

func TestLoad_Layering(t *testing.T) {
	dir := isolate(t)

	userDir := filepath.Join(dir, "config", "taskmesh")
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte(
		"provider: anthropic\nmax_steps: 7\nrss:\n  max_feeds: 3\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigFile), []byte(
		"max_steps: 8\nsystem: news\n"), 0o644))

	t.Setenv("TASKMESH_MAX_TOKENS", "1234")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("max-steps", 10, "")
	flags.String("model", "", "")
	require.NoError(t, flags.Parse([]string{"--max-steps", "9"}))

	cfg, err := Load(func(o *Options) { o.Flags = flags })
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.Model)
	assert.Equal(t, 9, cfg.MaxSteps)
	assert.Equal(t, "news", cfg.System)
	assert.Equal(t, 1234, cfg.MaxTokens)
	assert.Equal(t, 3, cfg.RSS.MaxFeeds)
	assert.Equal(t, "sk-ant", cfg.APIKey())
}

func TestLoad_UnchangedFlagsDoNotOverride(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigFile), []byte("max_steps: 4\n"), 0o644))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("max-steps", 10, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(func(o *Options) { o.Flags = flags })
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxSteps)
}

func TestLoad_ExplicitPath(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: gemini\nmodel: gemini-x\n"), 0o644))

	cfg, err := Load(func(o *Options) { o.Path = path })
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "gemini-x", cfg.Model)

	_, err = Load(func(o *Options) { o.Path = filepath.Join(dir, "missing.yaml") })
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigFile), []byte(
		"provider: mystery\nmax_steps: 0\n"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider must be one of")
	assert.Contains(t, err.Error(), "max_steps must be at least 1")
}

func TestConfig_APIKey(t *testing.T) {
	cfg := &Config{Keys: KeysConfig{OpenAI: "o", Anthropic: "a", Gemini: "g"}}
	for provider, want := range map[string]string{"openai": "o", "anthropic": "a", "gemini": "g"} {
		cfg.Provider = provider
		assert.Equal(t, want, cfg.APIKey())
	}
}
