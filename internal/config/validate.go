package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fjglira/srd-testgen/internal/domain"
)

var validEfforts = map[string]bool{"low": true, "medium": true, "high": true}

// Validate checks the Config for required fields and valid values.
func Validate(cfg *Config) error {
	var errs []string

	// Input validation
	if len(cfg.Input.Include) == 0 {
		errs = append(errs, "input.include must not be empty")
	}

	// LLM validation
	switch cfg.LLM.Provider {
	case "groq", "openai", "gemini":
	default:
		errs = append(errs, fmt.Sprintf("llm.provider must be one of: groq, openai, gemini (got %q)", cfg.LLM.Provider))
	}
	if cfg.LLM.Model == "" {
		errs = append(errs, "llm.model must not be empty")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("llm.temperature must be between 0 and 2 (got %v)", cfg.LLM.Temperature))
	}
	if cfg.LLM.MaxTokens <= 0 {
		errs = append(errs, "llm.max_tokens must be positive")
	}
	if cfg.LLM.MaxRetries < 0 {
		errs = append(errs, "llm.max_retries must not be negative")
	}
	for _, field := range []struct{ name, value string }{
		{"llm.timeout", cfg.LLM.Timeout},
		{"llm.retry_backoff", cfg.LLM.RetryBackoff},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			errs = append(errs, fmt.Sprintf("%s is not a valid duration: %v", field.name, err))
		}
	}
	for kind, effort := range cfg.LLM.ReasoningEffort {
		if !isReportKind(kind) {
			errs = append(errs, fmt.Sprintf("llm.reasoning_effort has unknown section %q", kind))
		}
		if !validEfforts[effort] {
			errs = append(errs, fmt.Sprintf("llm.reasoning_effort.%s must be one of: low, medium, high (got %q)", kind, effort))
		}
	}

	// Vector store validation
	switch cfg.VectorStore.Driver {
	case "none", "":
	case "chroma":
		if cfg.VectorStore.URL == "" {
			errs = append(errs, "vector_store.url must not be empty for chroma")
		}
		if cfg.VectorStore.Collection == "" {
			errs = append(errs, "vector_store.collection must not be empty for chroma")
		}
	case "pgvector":
		if cfg.VectorStore.DSN == "" {
			errs = append(errs, "vector_store.dsn (or DATABASE_URL) must not be empty for pgvector")
		}
	default:
		errs = append(errs, fmt.Sprintf("vector_store.driver must be one of: chroma, pgvector, none (got %q)", cfg.VectorStore.Driver))
	}
	if cfg.VectorStore.TopK <= 0 {
		errs = append(errs, "vector_store.top_k must be positive")
	}

	// Pipeline validation
	if cfg.Pipeline.Concurrency <= 0 {
		errs = append(errs, "pipeline.concurrency must be positive")
	}
	if cfg.Pipeline.ContextExamples < 0 {
		errs = append(errs, "pipeline.context_examples must not be negative")
	}

	// Output validation
	if cfg.Output.Directory == "" {
		errs = append(errs, "output.directory must not be empty")
	}
	switch cfg.Output.Format {
	case "xlsx", "csv":
	default:
		errs = append(errs, fmt.Sprintf("output.format must be one of: xlsx, csv (got %q)", cfg.Output.Format))
	}

	// Validate logging
	if cfg.Logging.Level != "" {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[cfg.Logging.Level] {
			errs = append(errs, fmt.Sprintf("logging.level must be one of: debug, info, warn, error (got %q)", cfg.Logging.Level))
		}
	}
	if cfg.Logging.Format != "" && cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		errs = append(errs, fmt.Sprintf("logging.format must be text or json (got %q)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return domain.NewError("config", "", "", fmt.Sprintf("validation failed: %s", strings.Join(errs, "; ")), nil)
	}

	return nil
}

// ReasoningEfforts converts the configured overrides to section kinds.
func (c *Config) ReasoningEfforts() map[domain.SectionKind]string {
	out := make(map[domain.SectionKind]string, len(c.LLM.ReasoningEffort))
	for k, v := range c.LLM.ReasoningEffort {
		out[domain.SectionKind(k)] = v
	}
	return out
}

func isReportKind(kind string) bool {
	for _, k := range domain.ReportOrder {
		if string(k) == kind {
			return true
		}
	}
	return false
}
