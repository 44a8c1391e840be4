package config

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	recursive := true
	return &Config{
		Input: InputConfig{
			Directory: "srds",
			Include:   []string{"*.md"},
			Exclude:   []string{"archive/**"},
			Recursive: &recursive,
		},
		LLM: LLMConfig{
			Provider:     "groq",
			Model:        "openai/gpt-oss-120b",
			Temperature:  0.1,
			MaxTokens:    8192,
			Timeout:      "120s",
			MaxRetries:   2,
			RetryBackoff: "5s",
		},
		Embedding: EmbeddingConfig{
			Model: "text-embedding-3-small",
		},
		VectorStore: VectorStoreConfig{
			Driver:     "none",
			URL:        "http://localhost:8000",
			Collection: "test_cases",
			TopK:       5,
			Threshold:  0.3,
		},
		Pipeline: PipelineConfig{
			Query:           "Generate test cases for this service",
			Concurrency:     3,
			ContextExamples: 3,
			ContextChars:    500,
			HistoryLimit:    10,
		},
		Output: OutputConfig{
			Directory: "reports",
			Format:    "xlsx",
			Preview:   true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		DryRun: false,
	}
}
