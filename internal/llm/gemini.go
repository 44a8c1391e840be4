package llm

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

type geminiGenerateFunc func(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

type geminiEmbedFunc func(ctx context.Context, model, text string) (*genai.EmbedContentResponse, error)

// GeminiProvider uses the Gemini API through google.golang.org/genai.
type GeminiProvider struct {
	model          string
	embeddingModel string
	generate       geminiGenerateFunc
	embed          geminiEmbedFunc
	logger         *logrus.Logger
}

// testCaseSchema mirrors the structured output schema in genai form.
var testCaseSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"Use Case":         {Type: genai.TypeString},
			"Test Scenario":    {Type: genai.TypeString},
			"Preconditions":    {Type: genai.TypeString},
			"Input":            {Type: genai.TypeString},
			"Expected Results": {Type: genai.TypeString, Description: "numbered list of every expected result"},
		},
		Required: []string{"Use Case", "Test Scenario", "Expected Results"},
	},
}

// NewGeminiProvider creates a Gemini client.
func NewGeminiProvider(ctx context.Context, cfg ProviderConfig, logger *logrus.Logger) (*GeminiProvider, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, unavailable("gemini", "failed to create client", err)
	}

	gen := func(ctx context.Context, model, prompt string, c *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return client.Models.GenerateContent(ctx, model, genai.Text(prompt), c)
	}
	emb := func(ctx context.Context, model, text string) (*genai.EmbedContentResponse, error) {
		return client.Models.EmbedContent(ctx, model, genai.Text(text), nil)
	}
	return newGeminiProvider(cfg, gen, emb, logger), nil
}

func newGeminiProvider(cfg ProviderConfig, gen geminiGenerateFunc, emb geminiEmbedFunc, logger *logrus.Logger) *GeminiProvider {
	return &GeminiProvider{
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		generate:       gen,
		embed:          emb,
		logger:         logger,
	}
}

// Generate submits prompt. A non-nil Options.Schema switches the response
// to JSON constrained by the test case schema.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	temp := float32(opts.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = testCaseSchema
	}

	p.logger.WithFields(logrus.Fields{
		"model": p.model,
		"chars": len(prompt),
	}).Debug("Submitting Gemini request")

	result, err := p.generate(ctx, p.model, prompt, cfg)
	if err != nil {
		return "", classifyGemini(err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return "", unavailable("gemini", "empty response", nil)
	}
	if result.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		p.logger.WithField("model", p.model).Warn("Gemini response truncated at max tokens")
	}
	text := result.Text()
	if text == "" {
		return "", unavailable("gemini", "empty response", nil)
	}
	return text, nil
}

// Embed returns the embedding of text.
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := p.embed(ctx, p.embeddingModel, text)
	if err != nil {
		return nil, classifyGemini(err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, unavailable("gemini", "embedding response carried no values", nil)
	}
	values := resp.Embeddings[0].Values
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out, nil
}

func classifyGemini(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus("gemini", apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return classifyStatus("gemini", apiErrPtr.Code, err)
	}
	return unavailable("gemini", "request failed", err)
}
