package cli

import (
	"context"
	"fmt"

	"github.com/fjglira/srd-testgen/internal/config"
	"github.com/fjglira/srd-testgen/internal/generator"
	"github.com/fjglira/srd-testgen/internal/llm"
	"github.com/fjglira/srd-testgen/internal/parser"
	"github.com/fjglira/srd-testgen/internal/prompt"
	"github.com/fjglira/srd-testgen/internal/retrieval"
	"github.com/fjglira/srd-testgen/internal/source"
	"github.com/fjglira/srd-testgen/internal/vectorstore"
)

// newModel builds the configured generator and embedder. In dry-run mode
// nothing is contacted, so no client is created.
func newModel(ctx context.Context, cfg *config.Config) (llm.Generator, llm.Embedder, error) {
	if cfg.DryRun {
		return nil, nil, nil
	}
	return llm.New(ctx, llm.ProviderConfig{
		Provider:       cfg.LLM.Provider,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.Embedding.Model,
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Timeout:        cfg.TimeoutDuration(),
	}, log)
}

// newStore opens the configured vector store; the "none" driver yields nil.
func newStore(cfg *config.Config) (vectorstore.Store, error) {
	vs := cfg.VectorStore
	switch vs.Driver {
	case "chroma":
		return vectorstore.NewChromaStore(vectorstore.ChromaConfig{
			URL:        vs.URL,
			Collection: vs.Collection,
			APIKey:     vs.APIKey,
		}, log), nil
	case "pgvector":
		return vectorstore.OpenPGVector(vs.DSN, vs.Threshold, log)
	default:
		return nil, nil
	}
}

func newRetriever(cfg *config.Config, embedder llm.Embedder) (*retrieval.Retriever, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	if store == nil || embedder == nil {
		return nil, nil
	}
	return retrieval.NewRetriever(embedder, store, cfg.VectorStore.MinScore, log), nil
}

// newPipeline wires every component of a generation run.
func newPipeline(ctx context.Context, cfg *config.Config, root string) (*generator.Pipeline, error) {
	model, embedder, err := newModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	retriever, err := newRetriever(cfg, embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	engine, err := prompt.NewEngine(cfg.Pipeline.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create template engine: %w", err)
	}
	builder := prompt.NewBuilder(engine, cfg.ReasoningEfforts())

	opts := generator.DefaultOptions()
	opts.Query = cfg.Pipeline.Query
	opts.TopK = cfg.VectorStore.TopK
	opts.ContextExamples = cfg.Pipeline.ContextExamples
	opts.ContextChars = cfg.Pipeline.ContextChars
	opts.Concurrency = cfg.Pipeline.Concurrency
	opts.MaxRetries = cfg.LLM.MaxRetries
	if d := cfg.RetryBackoffDuration(); d > 0 {
		opts.RetryBackoff = d
	}
	opts.Temperature = cfg.LLM.Temperature
	opts.MaxTokens = cfg.LLM.MaxTokens
	opts.StructuredOutput = cfg.LLM.StructuredOutput
	opts.DryRun = cfg.DryRun

	return generator.NewPipeline(source.NewFileSource(root), parser.NewExtractor(nil),
		retriever, builder, model, opts, log), nil
}
