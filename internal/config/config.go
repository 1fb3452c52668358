// Package config builds the immutable run configuration. Compiled-in defaults
// are overridden by an optional ocrclean.yaml and OCRCLEAN_* environment
// variables; the resulting Config value is passed down explicitly and nothing
// reads viper after Load returns.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultModel       = "openai:gpt-4o"
	DefaultTemperature = 0.75
	DefaultOutputDir   = "cleaned"
	DefaultPattern     = "*.md"
	DefaultDBPath      = "./data/ocrclean.db"
	DefaultTimeout     = 120 * time.Second

	DefaultSystemPrompt = "You are a deliberate and careful editor of old French"
	DefaultUserPrompt   = "I created the following French 1500s text with OCR, and it might have missed " +
		"some characters or made minor mistakes. Correct anything you see wrong, and " +
		"respond with only the corrected information. Maintain the markdown formatting " +
		"of the original."
)

type Config struct {
	Model        string        `mapstructure:"model"`
	SystemPrompt string        `mapstructure:"system_prompt"`
	UserPrompt   string        `mapstructure:"user_prompt"`
	Temperature  float64       `mapstructure:"temperature"`
	OutputDir    string        `mapstructure:"output_dir"`
	Pattern      string        `mapstructure:"pattern"`
	DBPath       string        `mapstructure:"db_path"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	Concurrency  int           `mapstructure:"concurrency"`
	MaxChunk     int           `mapstructure:"max_chunk"`

	OpenAIBaseURL     string `mapstructure:"openai_base_url"`
	AnthropicBaseURL  string `mapstructure:"anthropic_base_url"`
	OllamaBaseURL     string `mapstructure:"ollama_base_url"`
	OpenRouterBaseURL string `mapstructure:"openrouter_base_url"`
}

// Load reads ./ocrclean.yaml or $HOME/ocrclean.yaml when present; a missing
// config file is not an error.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("model", DefaultModel)
	v.SetDefault("system_prompt", DefaultSystemPrompt)
	v.SetDefault("user_prompt", DefaultUserPrompt)
	v.SetDefault("temperature", DefaultTemperature)
	v.SetDefault("output_dir", DefaultOutputDir)
	v.SetDefault("pattern", DefaultPattern)
	v.SetDefault("db_path", DefaultDBPath)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("max_retries", 1)
	v.SetDefault("concurrency", 1)
	v.SetDefault("max_chunk", 0)
	v.SetDefault("openai_base_url", "")
	v.SetDefault("anthropic_base_url", "")
	v.SetDefault("ollama_base_url", "http://localhost:11434")
	v.SetDefault("openrouter_base_url", "")

	v.SetConfigName("ocrclean")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("OCRCLEAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return cfg, nil
}
