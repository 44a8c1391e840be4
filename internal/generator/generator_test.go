package generator_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/fjglira/srd-testgen/internal/domain"
	"github.com/fjglira/srd-testgen/internal/generator"
	"github.com/fjglira/srd-testgen/internal/llm"
	"github.com/fjglira/srd-testgen/internal/parser"
	"github.com/fjglira/srd-testgen/internal/prompt"
	"github.com/fjglira/srd-testgen/internal/retrieval"
	"github.com/fjglira/srd-testgen/internal/source"
)

// sectionMarkers identify the section a prompt was built for.
var sectionMarkers = map[string]domain.SectionKind{
	"UI acceptance tests":   domain.SectionServiceDetails,
	"form validation tests": domain.SectionFormFields,
	"workflow tests":        domain.SectionWorkflow,
	"payment tests":         domain.SectionPricing,
	"post-submission tests": domain.SectionNextSteps,
	"notification tests":    domain.SectionNotifications,
}

func kindOf(text string) domain.SectionKind {
	for marker, kind := range sectionMarkers {
		if strings.Contains(text, marker) {
			return kind
		}
	}
	return ""
}

func response(kind domain.SectionKind, n int) string {
	var objs []string
	for i := 1; i <= n; i++ {
		objs = append(objs, fmt.Sprintf(`{"Use Case":"%s %d","Test Scenario":"scenario","Expected Results":"ok"}`, kind, i))
	}
	return "```json\n[" + strings.Join(objs, ",") + "]\n```"
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var _ = Describe("Pipeline", func() {
	var (
		src     *source.FileSource
		builder *prompt.Builder
		opts    generator.Options
		logger  *logrus.Logger
	)

	BeforeEach(func() {
		src = source.NewFileSource(filepath.Join("..", "..", "testdata", "srd"))
		engine, err := prompt.NewEngine("")
		Expect(err).ToNot(HaveOccurred())
		builder = prompt.NewBuilder(engine, nil)
		opts = generator.DefaultOptions()
		opts.RetryBackoff = time.Millisecond
		logger = quietLogger()
	})

	newPipeline := func(model llm.Generator, retriever *retrieval.Retriever) *generator.Pipeline {
		return generator.NewPipeline(src, parser.NewExtractor(nil), retriever, builder, model, opts, logger)
	}

	It("should assemble records from every section in report order", func() {
		model := llm.GeneratorFunc(func(_ context.Context, text string, _ llm.Options) (string, error) {
			return response(kindOf(text), 1), nil
		})

		result, err := newPipeline(model, nil).Run(context.Background(), "full.md")
		Expect(err).ToNot(HaveOccurred())
		Expect(result.Title).To(Equal("Issue Trade License"))
		Expect(result.RunID).ToNot(BeEmpty())
		Expect(result.Collection).To(HaveLen(len(domain.ReportOrder)))
		for i, kind := range domain.ReportOrder {
			Expect(result.Collection[i].UseCase).To(Equal(string(kind) + " 1"))
		}
	})

	It("should record a retrieval diagnostic and continue without a store", func() {
		model := llm.GeneratorFunc(func(_ context.Context, text string, _ llm.Options) (string, error) {
			return response(kindOf(text), 1), nil
		})
		result, err := newPipeline(model, nil).Run(context.Background(), "full.md")
		Expect(err).ToNot(HaveOccurred())
		Expect(result.Diagnostics).To(ContainElement(HaveField("Kind", domain.KindRetrievalUnavailable)))
	})

	It("should keep sibling sections when one section fails", func() {
		model := llm.GeneratorFunc(func(_ context.Context, text string, _ llm.Options) (string, error) {
			switch kindOf(text) {
			case domain.SectionPricing:
				return "", errors.New("connection reset")
			case domain.SectionFormFields:
				return "I cannot help with that.", nil
			}
			return response(kindOf(text), 2), nil
		})

		result, err := newPipeline(model, nil).Run(context.Background(), "full.md")
		Expect(err).ToNot(HaveOccurred())
		Expect(result.Collection).To(HaveLen(8))
		Expect(result.PerSection).ToNot(HaveKey(domain.SectionPricing))
		Expect(result.Diagnostics).To(ContainElement(domain.Diagnostic{
			Section: domain.SectionFormFields,
			Kind:    domain.KindParseFailure,
			Message: "no JSON array found in response",
		}))
		Expect(result.Diagnostics).To(ContainElement(SatisfyAll(
			HaveField("Section", domain.SectionPricing),
			HaveField("Kind", domain.KindModelUnavailable),
		)))
	})

	It("should keep short sections and flag the coverage shortfall", func() {
		model := llm.GeneratorFunc(func(_ context.Context, text string, _ llm.Options) (string, error) {
			return response(kindOf(text), 1), nil
		})

		result, err := newPipeline(model, nil).Run(context.Background(), "full.md")
		Expect(err).ToNot(HaveOccurred())
		Expect(result.PerSection[domain.SectionNotifications]).To(HaveLen(1))
		Expect(result.Diagnostics).To(ContainElement(SatisfyAll(
			HaveField("Section", domain.SectionNotifications),
			HaveField("Kind", domain.KindCoverageShortfall),
			HaveField("Message", ContainSubstring("model returned 1")),
		)))
		Expect(result.Diagnostics).ToNot(ContainElement(HaveField("Section", domain.SectionServiceDetails)))
	})

	It("should not retry a request the provider rejected", func() {
		var attempts int32
		model := llm.GeneratorFunc(func(context.Context, string, llm.Options) (string, error) {
			atomic.AddInt32(&attempts, 1)
			return "", domain.NewError("generate", "", "", "openai rejected the request (HTTP 400)", errors.New("bad request"))
		})

		result, err := newPipeline(model, nil).Run(context.Background(), "minimal.md")
		Expect(err).To(MatchError(domain.ErrNoUsableSections))
		Expect(atomic.LoadInt32(&attempts)).To(Equal(int32(1)))
		Expect(result.Diagnostics).To(ContainElement(HaveField("Message", ContainSubstring("HTTP 400"))))
	})

	It("should retry rate limited sections", func() {
		var calls sync.Map
		model := llm.GeneratorFunc(func(_ context.Context, text string, _ llm.Options) (string, error) {
			kind := kindOf(text)
			n, _ := calls.LoadOrStore(kind, new(int32))
			if kind == domain.SectionWorkflow && atomic.AddInt32(n.(*int32), 1) < 3 {
				return "", domain.NewError("generate", "", domain.KindModelUnavailable, "groq rejected the request",
					fmt.Errorf("%w: 429", domain.ErrRateLimited))
			}
			return response(kind, 1), nil
		})

		result, err := newPipeline(model, nil).Run(context.Background(), "full.md")
		Expect(err).ToNot(HaveOccurred())
		Expect(result.PerSection).To(HaveKey(domain.SectionWorkflow))
		n, _ := calls.Load(domain.SectionWorkflow)
		Expect(atomic.LoadInt32(n.(*int32))).To(Equal(int32(3)))
	})

	It("should give up after the configured retries", func() {
		opts.MaxRetries = 1
		var attempts int32
		model := llm.GeneratorFunc(func(context.Context, string, llm.Options) (string, error) {
			atomic.AddInt32(&attempts, 1)
			return "", domain.NewError("generate", "", domain.KindModelUnavailable, "timeout", nil)
		})

		result, err := newPipeline(model, nil).Run(context.Background(), "minimal.md")
		Expect(err).To(MatchError(domain.ErrNoUsableSections))
		Expect(atomic.LoadInt32(&attempts)).To(Equal(int32(2)))
		Expect(result.Diagnostics).To(ContainElement(HaveField("Section", domain.SectionWorkflow)))
	})

	It("should never exceed the concurrency limit", func() {
		var inFlight, peak int32
		model := llm.GeneratorFunc(func(_ context.Context, text string, _ llm.Options) (string, error) {
			cur := atomic.AddInt32(&inFlight, 1)
			defer atomic.AddInt32(&inFlight, -1)
			for {
				old := atomic.LoadInt32(&peak)
				if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			return response(kindOf(text), 1), nil
		})

		_, err := newPipeline(model, nil).Run(context.Background(), "full.md")
		Expect(err).ToNot(HaveOccurred())
		Expect(atomic.LoadInt32(&peak)).To(BeNumerically("<=", 3))
	})

	It("should fail with no usable sections for an empty document", func() {
		model := llm.GeneratorFunc(func(context.Context, string, llm.Options) (string, error) {
			Fail("model must not be called")
			return "", nil
		})
		_, err := newPipeline(model, nil).Run(context.Background(), "empty.md")
		Expect(errors.Is(err, domain.ErrNoUsableSections)).To(BeTrue())
	})

	It("should render prompts without calling the model in dry-run mode", func() {
		opts.DryRun = true
		model := llm.GeneratorFunc(func(context.Context, string, llm.Options) (string, error) {
			Fail("model must not be called")
			return "", nil
		})
		result, err := newPipeline(model, nil).Run(context.Background(), "full.md")
		Expect(err).ToNot(HaveOccurred())
		Expect(result.Prompts).To(HaveLen(len(domain.ReportOrder)))
		Expect(result.Collection).To(BeEmpty())
	})

	It("should embed retrieved examples into every prompt", func() {
		embedder := llm.EmbedderFunc(func(context.Context, string) ([]float64, error) {
			return []float64{0.1, 0.2}, nil
		})
		store := &stubStore{results: []domain.SimilarContent{{Content: "Use Case: Submit renewal", Score: 0.9}}}
		var seen []string
		var mu sync.Mutex
		model := llm.GeneratorFunc(func(_ context.Context, text string, _ llm.Options) (string, error) {
			mu.Lock()
			seen = append(seen, text)
			mu.Unlock()
			return response(kindOf(text), 1), nil
		})

		_, err := newPipeline(model, retrieval.NewRetriever(embedder, store, 0, logger)).Run(context.Background(), "minimal.md")
		Expect(err).ToNot(HaveOccurred())
		Expect(seen).To(HaveLen(1))
		Expect(seen[0]).To(ContainSubstring("Example 1:\nContent: Use Case: Submit renewal..."))
	})

	It("should pass the response schema when structured output is enabled", func() {
		opts.StructuredOutput = true
		var got llm.Options
		model := llm.GeneratorFunc(func(_ context.Context, text string, o llm.Options) (string, error) {
			got = o
			return response(kindOf(text), 1), nil
		})
		_, err := newPipeline(model, nil).Run(context.Background(), "minimal.md")
		Expect(err).ToNot(HaveOccurred())
		Expect(got.Schema).To(HaveKeyWithValue("type", "array"))
		Expect(got.ReasoningEffort).To(Equal("medium"))
	})

	It("should return the read error for a missing document", func() {
		_, err := newPipeline(llm.GeneratorFunc(nil), nil).Run(context.Background(), "missing.md")
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, domain.ErrNoUsableSections)).To(BeFalse())
	})

	Describe("Improve", func() {
		It("should embed the last response and record the new turn", func() {
			history := domain.NewHistory(0)
			history.Add("first prompt", `[{"Use Case":"Old","Test Scenario":"s"}]`)

			var prompted string
			model := llm.GeneratorFunc(func(_ context.Context, text string, _ llm.Options) (string, error) {
				prompted = text
				return `[{"Use Case":"New","Test Scenario":"s","Priority":"P1"}]`, nil
			})

			collection, diag, err := newPipeline(model, nil).Improve(context.Background(), history, "Add priorities.")
			Expect(err).ToNot(HaveOccurred())
			Expect(diag).To(BeNil())
			Expect(collection).To(HaveLen(1))
			Expect(*collection[0].Priority).To(Equal("P1"))
			Expect(prompted).To(HavePrefix("Add priorities. Update the test cases below"))
			Expect(prompted).To(ContainSubstring(`[{"Use Case":"Old","Test Scenario":"s"}]`))
			Expect(history.Turns).To(HaveLen(2))
		})

		It("should surface parse failures as a diagnostic", func() {
			history := domain.NewHistory(0)
			history.Add("p", "[]")
			model := llm.GeneratorFunc(func(context.Context, string, llm.Options) (string, error) {
				return "sorry", nil
			})
			collection, diag, err := newPipeline(model, nil).Improve(context.Background(), history, "more")
			Expect(err).ToNot(HaveOccurred())
			Expect(collection).To(BeEmpty())
			Expect(diag.Kind).To(Equal(domain.KindParseFailure))
		})

		It("should refuse an empty history", func() {
			_, _, err := newPipeline(llm.GeneratorFunc(nil), nil).Improve(context.Background(), domain.NewHistory(0), "more")
			Expect(err).To(MatchError(domain.ErrNoPreviousResponse))
		})
	})
})

type stubStore struct {
	results []domain.SimilarContent
}

func (s *stubStore) Search(context.Context, []float64, int) ([]domain.SimilarContent, error) {
	return s.results, nil
}

func (s *stubStore) Store(context.Context, string, []float64, map[string]any) (string, error) {
	return "", nil
}
