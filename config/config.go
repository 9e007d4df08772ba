// Package config loads taskmesh settings with viper.
//
// Values are layered, later sources winning: built-in defaults, the user
// file ($XDG_CONFIG_HOME/taskmesh/config.yaml or ~/.config/taskmesh/config.yaml),
// ./taskmesh.yaml in the working directory, TASKMESH_* environment variables
// (plus the providers' usual API key variables) and finally command line
// flags bound by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Supported values.
var (
	Providers = []string{"openai", "anthropic", "gemini"}
	Systems   = []string{"general", "news"}
	Embedders = []string{"openai", "hash"}
)

// Config is the resolved configuration.
type Config struct {
	Provider        string  `mapstructure:"provider"`
	Model           string  `mapstructure:"model"`
	BaseURL         string  `mapstructure:"base_url"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxSteps        int     `mapstructure:"max_steps"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	MaxHandoffDepth int     `mapstructure:"max_handoff_depth"`
	System          string  `mapstructure:"system"`
	SystemPrompt    string  `mapstructure:"system_prompt"`

	SessionDB string `mapstructure:"session_db"`
	QueueFile string `mapstructure:"queue_file"`

	LogDir    string `mapstructure:"log_dir"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Keys KeysConfig `mapstructure:"keys"`
	RSS  RSSConfig  `mapstructure:"rss"`
	RAG  RAGConfig  `mapstructure:"rag"`
}

// KeysConfig holds provider credentials.
type KeysConfig struct {
	OpenAI    string `mapstructure:"openai"`
	Anthropic string `mapstructure:"anthropic"`
	Gemini    string `mapstructure:"gemini"`
}

// RSSConfig configures the news pipeline tools.
type RSSConfig struct {
	OPML     string `mapstructure:"opml"`
	MaxFeeds int    `mapstructure:"max_feeds"`
	MaxItems int    `mapstructure:"max_items"`
	Workers  int    `mapstructure:"workers"`
}

// RAGConfig configures the retrieval tool.
type RAGConfig struct {
	IndexPath string `mapstructure:"index_path"`
	Embedder  string `mapstructure:"embedder"`
}

// APIKey returns the credential of the configured provider.
func (c *Config) APIKey() string {
	switch c.Provider {
	case "anthropic":
		return c.Keys.Anthropic
	case "gemini":
		return c.Keys.Gemini
	default:
		return c.Keys.OpenAI
	}
}

// Validate checks enumerations and bounds.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(Providers, c.Provider) {
		errs = append(errs, fmt.Errorf("provider must be one of %s, got %q", strings.Join(Providers, ", "), c.Provider))
	}
	if !slices.Contains(Systems, c.System) {
		errs = append(errs, fmt.Errorf("system must be one of %s, got %q", strings.Join(Systems, ", "), c.System))
	}
	if !slices.Contains(Embedders, c.RAG.Embedder) {
		errs = append(errs, fmt.Errorf("rag.embedder must be one of %s, got %q", strings.Join(Embedders, ", "), c.RAG.Embedder))
	}
	if c.MaxSteps < 1 {
		errs = append(errs, fmt.Errorf("max_steps must be at least 1, got %d", c.MaxSteps))
	}
	if c.MaxHandoffDepth < 0 {
		errs = append(errs, fmt.Errorf("max_handoff_depth must not be negative, got %d", c.MaxHandoffDepth))
	}
	return errors.Join(errs...)
}

// FlagKeys maps command line flag names to configuration keys.
var FlagKeys = map[string]string{
	"provider":   "provider",
	"model":      "model",
	"max-steps":  "max_steps",
	"max-tokens": "max_tokens",
	"log-dir":    "log_dir",
	"log-level":  "log_level",
	"system":     "system",
}

// Options tune Load.
type Options struct {
	// Path is an explicit config file. When set it must exist and replaces
	// the user and project file lookup.
	Path string
	// Flags, when set, override file and environment values for every flag
	// listed in FlagKeys that the user changed.
	Flags *pflag.FlagSet
}

// Load resolves the configuration.
func Load(optFns ...func(o *Options)) (*Config, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	v := viper.New()
	setDefaults(v)

	if opts.Path != "" {
		v.SetConfigFile(opts.Path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", opts.Path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(UserConfigDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading user config: %w", err)
			}
		}

		if _, err := os.Stat(ProjectConfigFile); err == nil {
			project := viper.New()
			project.SetConfigFile(ProjectConfigFile)
			if err := project.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading project config: %w", err)
			}
			if err := v.MergeConfigMap(project.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("TASKMESH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("keys.openai", "TASKMESH_KEYS_OPENAI", "OPENAI_API_KEY")
	_ = v.BindEnv("keys.anthropic", "TASKMESH_KEYS_ANTHROPIC", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("keys.gemini", "TASKMESH_KEYS_GEMINI", "GEMINI_API_KEY", "GOOGLE_API_KEY")

	if opts.Flags != nil {
		for flag, key := range FlagKeys {
			if f := opts.Flags.Lookup(flag); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", flag, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProjectConfigFile is looked up in the working directory.
const ProjectConfigFile = "taskmesh.yaml"

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-3-5-haiku-latest"
	case "gemini":
		return "gemini-2.0-flash"
	default:
		return "gpt-4o-mini"
	}
}

// UserConfigDir returns the per-user configuration directory.
func UserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "taskmesh")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "taskmesh")
	}
	return filepath.Join(home, ".config", "taskmesh")
}

// DataDir returns the default directory for databases and queue files.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "taskmesh")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".taskmesh")
	}
	return filepath.Join(home, ".local", "share", "taskmesh")
}

func setDefaults(v *viper.Viper) {
	data := DataDir()

	v.SetDefault("provider", "openai")
	v.SetDefault("model", "")
	v.SetDefault("base_url", "")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_steps", 10)
	v.SetDefault("max_tokens", 4000)
	v.SetDefault("max_handoff_depth", 3)
	v.SetDefault("system", "general")
	v.SetDefault("system_prompt", "")

	v.SetDefault("session_db", filepath.Join(data, "messages.db"))
	v.SetDefault("queue_file", filepath.Join(data, "queue.json"))

	v.SetDefault("log_dir", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	v.SetDefault("keys.openai", "")
	v.SetDefault("keys.anthropic", "")
	v.SetDefault("keys.gemini", "")

	v.SetDefault("rss.opml", "feeds.opml")
	v.SetDefault("rss.max_feeds", 10)
	v.SetDefault("rss.max_items", 20)
	v.SetDefault("rss.workers", 5)

	v.SetDefault("rag.index_path", filepath.Join(data, "rag_index.json"))
	v.SetDefault("rag.embedder", "openai")
}
