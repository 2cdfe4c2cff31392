package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	// Auth. Empty disables it.
	APIKey string `mapstructure:"docsight_api_key"`

	// Language model
	LLMProvider       string        `mapstructure:"llm_provider"`
	OllamaURL         string        `mapstructure:"ollama_url"`
	LLMModel          string        `mapstructure:"llm_model"`
	OpenAIBaseURL     string        `mapstructure:"openai_base_url"`
	OpenAIAPIKey      string        `mapstructure:"openai_api_key"`
	AnthropicBaseURL  string        `mapstructure:"anthropic_base_url"`
	AnthropicAPIKey   string        `mapstructure:"anthropic_api_key"`
	LLMTimeout        time.Duration `mapstructure:"llm_timeout"`
	RequestsPerMinute int           `mapstructure:"llm_requests_per_minute"`
	MaxPromptTokens   int           `mapstructure:"llm_max_prompt_tokens"`
	MaxConcurrent     int           `mapstructure:"llm_max_concurrent"`

	// Upload limits
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`

	// Document state
	DocumentTTL time.Duration `mapstructure:"document_ttl"`

	// Export
	FlattenSeparator string `mapstructure:"flatten_separator"`

	// PDF
	PDFFallbackPdftotext bool `mapstructure:"pdf_fallback_pdftotext"`
}

const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var defaults = map[string]any{
	"port":                    "8090",
	"log_level":               "info",
	"docsight_api_key":        "",
	"llm_provider":            ProviderOllama,
	"ollama_url":              "http://localhost:11434",
	"llm_model":               "llama3.2",
	"openai_base_url":         "",
	"openai_api_key":          "",
	"anthropic_base_url":      "",
	"anthropic_api_key":       "",
	"llm_timeout":             "120s",
	"llm_requests_per_minute": 60,
	"llm_max_prompt_tokens":   3000,
	"llm_max_concurrent":      2,
	"max_upload_bytes":        52428800, // 50MB
	"document_ttl":            "1h",
	"flatten_separator":       "_",
	"pdf_fallback_pdftotext":  true,
}

// Load reads configuration from defaults, then the YAML file at path when
// path is non-empty, then environment variables named after the upper-cased
// keys.
func Load(path string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.DocumentTTL <= 0 {
		cfg.DocumentTTL = time.Hour
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 120 * time.Second
	}
	if cfg.MaxPromptTokens <= 0 {
		cfg.MaxPromptTokens = 3000
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	switch c.LLMProvider {
	case ProviderOllama:
		if c.OllamaURL == "" {
			return errors.New("OLLAMA_URL is required for the ollama provider")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			return errors.New("OPENAI_API_KEY or OPENAI_BASE_URL is required for the openai provider")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.LLMModel == "" {
		return errors.New("LLM_MODEL is required")
	}
	if c.RequestsPerMinute < 0 {
		return errors.New("LLM_REQUESTS_PER_MINUTE must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps LOG_LEVEL to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return l, nil
}
