// Package llm holds the language model and embedding collaborators.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fjglira/srd-testgen/internal/domain"
)

// Options tune a single generation request.
type Options struct {
	Temperature     float64
	MaxTokens       int
	ReasoningEffort string
	// Schema is an optional structured-output hint; nil leaves the
	// response format to the prompt.
	Schema map[string]any
}

// Generator submits a prompt and returns the raw model text.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// GeneratorFunc adapts a function into a Generator.
type GeneratorFunc func(ctx context.Context, prompt string, opts Options) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EmbedderFunc adapts a function into an Embedder.
type EmbedderFunc func(ctx context.Context, text string) ([]float64, error)

func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float64, error) {
	return f(ctx, text)
}

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	Provider       string // "groq", "openai" or "gemini"
	Model          string
	EmbeddingModel string
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
}

// GroqBaseURL is the OpenAI-compatible Groq endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1/"

// New builds the generator and embedder for cfg.Provider. Both values are
// backed by the same client.
func New(ctx context.Context, cfg ProviderConfig, logger *logrus.Logger) (Generator, Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "groq":
		if cfg.BaseURL == "" {
			cfg.BaseURL = GroqBaseURL
		}
		p := NewOpenAIProvider(cfg, logger)
		return p, p, nil
	case "openai":
		p := NewOpenAIProvider(cfg, logger)
		return p, p, nil
	case "gemini":
		p, err := NewGeminiProvider(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	default:
		return nil, nil, domain.NewErrorWithSuggestion("generate", "", domain.KindModelUnavailable,
			fmt.Sprintf("unknown provider %q", cfg.Provider),
			"set llm.provider to groq, openai or gemini", nil)
	}
}

// rateLimited wraps cause so that errors.Is(err, domain.ErrRateLimited) holds.
func rateLimited(provider string, cause error) error {
	return domain.NewErrorWithSuggestion("generate", "", domain.KindModelUnavailable,
		provider+" rejected the request",
		"lower pipeline.concurrency or raise llm.max_retries",
		fmt.Errorf("%w: %v", domain.ErrRateLimited, cause))
}

func unavailable(provider, message string, cause error) error {
	return domain.NewError("generate", "", domain.KindModelUnavailable, provider+": "+message, cause)
}

// rejected carries no kind, so the pipeline does not retry it.
func rejected(provider string, status int, cause error) error {
	return domain.NewErrorWithSuggestion("generate", "", "",
		fmt.Sprintf("%s rejected the request (HTTP %d)", provider, status),
		"check llm.model, the API key and the prompt size",
		cause)
}

// classifyStatus maps a provider API status. Rate limits, request timeouts
// and server errors are retryable; other client errors are not.
func classifyStatus(provider string, status int, cause error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return rateLimited(provider, cause)
	case status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		return unavailable(provider, "request failed", cause)
	case status >= http.StatusBadRequest:
		return rejected(provider, status, cause)
	}
	return unavailable(provider, "request failed", cause)
}
