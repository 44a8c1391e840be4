package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/fjglira/srd-testgen/internal/domain"
)

// Config is the top-level configuration struct.
type Config struct {
	Input       InputConfig       `yaml:"input"`
	LLM         LLMConfig         `yaml:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
	DryRun      bool              `yaml:"dry_run"`
}

type InputConfig struct {
	Directory string   `yaml:"directory"`
	Include   []string `yaml:"include"`
	Exclude   []string `yaml:"exclude"`
	Recursive *bool    `yaml:"recursive"` // pointer to distinguish unset from false
}

type LLMConfig struct {
	Provider         string            `yaml:"provider"` // groq, openai, gemini
	Model            string            `yaml:"model"`
	BaseURL          string            `yaml:"base_url"`
	APIKey           string            `yaml:"api_key"`
	Temperature      float64           `yaml:"temperature"`
	MaxTokens        int               `yaml:"max_tokens"`
	Timeout          string            `yaml:"timeout"`
	MaxRetries       int               `yaml:"max_retries"`
	RetryBackoff     string            `yaml:"retry_backoff"`
	StructuredOutput bool              `yaml:"structured_output"`
	ReasoningEffort  map[string]string `yaml:"reasoning_effort"` // keyed by section kind
}

type EmbeddingConfig struct {
	Model string `yaml:"model"`
}

type VectorStoreConfig struct {
	Driver     string  `yaml:"driver"` // chroma, pgvector, none
	URL        string  `yaml:"url"`
	Collection string  `yaml:"collection"`
	APIKey     string  `yaml:"api_key"`
	DSN        string  `yaml:"dsn"`
	TopK       int     `yaml:"top_k"`
	Threshold  float64 `yaml:"threshold"`
	MinScore   float64 `yaml:"min_score"`
}

type PipelineConfig struct {
	Query           string `yaml:"query"`
	Concurrency     int    `yaml:"concurrency"`
	ContextExamples int    `yaml:"context_examples"`
	ContextChars    int    `yaml:"context_chars"`
	TemplateDir     string `yaml:"template_dir"`
	HistoryLimit    int    `yaml:"history_limit"`
}

type OutputConfig struct {
	Directory string `yaml:"directory"`
	Format    string `yaml:"format"` // xlsx or csv
	Preview   bool   `yaml:"preview"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Format string `yaml:"format"` // text or json
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewError("config", "", "", "failed to read config file "+path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, domain.NewError("config", "", "", "failed to parse config file "+path, err)
	}

	return cfg, nil
}

// LoadEnv reads the given .env files, ignoring missing ones, then applies
// secrets from the environment. Values already present in cfg win.
func LoadEnv(cfg *Config, files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return domain.NewError("config", "", "", "failed to load "+f, err)
		}
	}
	applyEnv(cfg)
	return nil
}

var providerKeys = map[string]string{
	"groq":   "GROQ_API_KEY",
	"openai": "OPENAI_API_KEY",
	"gemini": "GEMINI_API_KEY",
}

// APIKeyEnv names the environment variable holding the provider's API key.
func APIKeyEnv(provider string) string {
	return providerKeys[provider]
}

func applyEnv(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv(providerKeys[cfg.LLM.Provider])
	}
	if cfg.VectorStore.APIKey == "" {
		cfg.VectorStore.APIKey = os.Getenv("CHROMA_API_KEY")
	}
	if cfg.VectorStore.DSN == "" {
		cfg.VectorStore.DSN = os.Getenv("DATABASE_URL")
	}
}

// IsRecursive reports whether input discovery descends into directories.
func (c *Config) IsRecursive() bool {
	return c.Input.Recursive == nil || *c.Input.Recursive
}

// TimeoutDuration returns llm.timeout, or zero when unset.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.LLM.Timeout)
	return d
}

// RetryBackoffDuration returns llm.retry_backoff, or zero when unset.
func (c *Config) RetryBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.LLM.RetryBackoff)
	return d
}
