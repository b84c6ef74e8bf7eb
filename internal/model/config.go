package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the complete legalyze configuration.
// Field tags serve viper (mapstructure), `config show` (yaml) and validation.
type Config struct {
	PDF         PDFConfig         `yaml:"pdf" mapstructure:"pdf"`
	Export      ExportConfig      `yaml:"export" mapstructure:"export"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Neo4j       Neo4jConfig       `yaml:"neo4j" mapstructure:"neo4j"`
	History     HistoryConfig     `yaml:"history" mapstructure:"history"`
	Risk        RiskConfig        `yaml:"risk" mapstructure:"risk"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Metrics     MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
}

// PDFConfig controls text extraction
type PDFConfig struct {
	ExtractionEngine string   `yaml:"extraction_engine" mapstructure:"extraction_engine" validate:"oneof=pdftotext native"`
	ExportFormats    []string `yaml:"export_formats" mapstructure:"export_formats" validate:"dive,oneof=pdf txt json md"`
}

// ExportConfig controls where reports are written
type ExportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir" validate:"required"`
}

// ProviderConfig configures one language-model endpoint
type ProviderConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=mistral deepseek openai anthropic claude ollama"`
	Model    string `yaml:"model" mapstructure:"model"`
	BaseURL  string `yaml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	APIKey   string `yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// LLMConfig configures summarization and insight extraction
type LLMConfig struct {
	Enabled           bool           `yaml:"enabled" mapstructure:"enabled"`
	Summary           ProviderConfig `yaml:"summary" mapstructure:"summary"`
	Insights          ProviderConfig `yaml:"insights" mapstructure:"insights"`
	ClauseReview      bool           `yaml:"clause_review" mapstructure:"clause_review"`
	MaxTokens         int            `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gt=0"`
	Temperature       float32        `yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout           time.Duration  `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	MaxRetries        int            `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=1,lte=10"`
	RetryDelay        time.Duration  `yaml:"retry_delay" mapstructure:"retry_delay" validate:"gte=0"`
	MaxInputChars     int            `yaml:"max_input_chars" mapstructure:"max_input_chars" validate:"gt=0"`
	RequestsPerSecond float64        `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int            `yaml:"burst" mapstructure:"burst" validate:"gte=1"`
}

// CacheConfig controls LLM response caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir" validate:"required_if=Enabled true"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl" validate:"gte=0"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl" validate:"gte=0"`
}

// Neo4jConfig configures graph persistence
type Neo4jConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	URI      string `yaml:"uri" mapstructure:"uri" validate:"required_if=Enabled true"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`
	Database string `yaml:"database,omitempty" mapstructure:"database"`
}

// HistoryConfig configures the local analysis history database
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
}

// RiskConfig configures the risk engine
type RiskConfig struct {
	LexiconFile string `yaml:"lexicon_file,omitempty" mapstructure:"lexicon_file"`
}

// ConcurrencyConfig controls batch parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
}

// HTTPConfig controls document downloads
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gt=0"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=text json"`
	File   string `yaml:"file,omitempty" mapstructure:"file"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		PDF: PDFConfig{
			ExtractionEngine: "pdftotext",
			ExportFormats:    []string{"pdf", "txt"},
		},
		Export: ExportConfig{
			OutputDir: "export",
		},
		LLM: LLMConfig{
			Enabled: true,
			Summary: ProviderConfig{
				Provider: "mistral",
				Model:    "mistral-large-latest",
			},
			Insights: ProviderConfig{
				Provider: "deepseek",
				Model:    "deepseek-chat",
			},
			MaxTokens:         4096,
			Temperature:       0.3,
			Timeout:           60 * time.Second,
			MaxRetries:        3,
			RetryDelay:        2 * time.Second,
			MaxInputChars:     24000,
			RequestsPerSecond: 1,
			Burst:             2,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "cache/llm",
			MemoryTTL: time.Hour,
			DiskTTL:   30 * 24 * time.Hour,
		},
		Neo4j: Neo4jConfig{
			Enabled: false,
			URI:     "bolt://localhost:7687",
			User:    "neo4j",
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		HTTP: HTTPConfig{
			Timeout:      60 * time.Second,
			UserAgent:    "legalyze/0.3 (+https://github.com/ppiankov/legalyze)",
			MaxBodyBytes: 50_000_000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   "logs/app.log",
		},
	}
}

var configValidate = validator.New()

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", configPath(fe.Namespace()), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// configPath turns "Config.LLM.MaxTokens" into "llm.maxtokens"
func configPath(namespace string) string {
	namespace = strings.TrimPrefix(namespace, "Config.")
	return strings.ToLower(namespace)
}

// Redacted returns a copy with secrets masked for display
func (c *Config) Redacted() *Config {
	out := *c
	out.PDF.ExportFormats = append([]string(nil), c.PDF.ExportFormats...)
	out.LLM.Summary.APIKey = mask(c.LLM.Summary.APIKey)
	out.LLM.Insights.APIKey = mask(c.LLM.Insights.APIKey)
	out.Neo4j.Password = mask(c.Neo4j.Password)
	return &out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}
