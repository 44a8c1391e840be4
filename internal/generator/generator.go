package generator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/fjglira/srd-testgen/internal/assembler"
	"github.com/fjglira/srd-testgen/internal/domain"
	"github.com/fjglira/srd-testgen/internal/llm"
	"github.com/fjglira/srd-testgen/internal/normalizer"
	"github.com/fjglira/srd-testgen/internal/parser"
	"github.com/fjglira/srd-testgen/internal/prompt"
	"github.com/fjglira/srd-testgen/internal/retrieval"
)

// Source fetches the flattened text of an SRD.
type Source interface {
	FetchFlattenedText(ctx context.Context, documentID string) (string, error)
}

// Options tune a pipeline run.
type Options struct {
	Query            string
	TopK             int
	ContextExamples  int
	ContextChars     int
	Concurrency      int
	MaxRetries       int
	RetryBackoff     time.Duration
	Temperature      float64
	MaxTokens        int
	StructuredOutput bool
	DryRun           bool
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Query:           "Generate test cases for this service",
		TopK:            5,
		ContextExamples: prompt.DefaultMaxExamples,
		ContextChars:    prompt.DefaultExampleChars,
		Concurrency:     3,
		MaxRetries:      2,
		RetryBackoff:    2 * time.Second,
		Temperature:     0.1,
		MaxTokens:       8192,
	}
}

// Result is the outcome of one document run. Diagnostics lists every
// section that produced no records, was recovered locally or returned fewer
// records than its prompt asked for.
type Result struct {
	DocumentID  string
	RunID       string
	Title       string
	SRD         domain.ExtractedSRD
	Prompts     []domain.PromptUnit
	PerSection  map[domain.SectionKind][]domain.TestCaseRecord
	Collection  domain.TestCaseCollection
	Diagnostics []domain.Diagnostic
}

// Pipeline is the top-level orchestrator:
// fetch → extract → retrieve → prompt → generate → normalize → assemble.
type Pipeline struct {
	source    Source
	extractor *parser.Extractor
	retriever *retrieval.Retriever
	builder   *prompt.Builder
	model     llm.Generator
	opts      Options
	log       *logrus.Logger
}

// NewPipeline wires the pipeline components. retriever may be nil, in which
// case prompts carry no context examples.
func NewPipeline(
	source Source,
	extractor *parser.Extractor,
	retriever *retrieval.Retriever,
	builder *prompt.Builder,
	model llm.Generator,
	opts Options,
	log *logrus.Logger,
) *Pipeline {
	if extractor == nil {
		extractor = parser.NewExtractor(nil)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		source:    source,
		extractor: extractor,
		retriever: retriever,
		builder:   builder,
		model:     model,
		opts:      opts,
		log:       log,
	}
}

// Run processes one document. Partial success is normal: the error is
// non-nil only when the document could not be read or no section produced
// any record, and the Result is still returned for its diagnostics.
func (p *Pipeline) Run(ctx context.Context, documentID string) (*Result, error) {
	result := &Result{
		DocumentID: documentID,
		RunID:      uuid.NewString(),
		PerSection: make(map[domain.SectionKind][]domain.TestCaseRecord),
	}
	log := p.log.WithFields(logrus.Fields{"document": documentID, "run": result.RunID})

	// Step 1: Fetch the flattened document
	text, err := p.source.FetchFlattenedText(ctx, documentID)
	if err != nil {
		return result, err
	}

	// Step 2: Extract typed sections
	if outline, err := parser.Outline([]byte(text)); err == nil {
		result.Title = outline.Title()
	}
	srd, diagnostics := p.extractor.ExtractWithDiagnostics(text)
	result.SRD = srd
	for _, d := range diagnostics {
		if d.Kind == domain.KindSectionNotFound {
			log.WithField("section", d.Section).Debug("Section not present")
			continue
		}
		log.WithFields(logrus.Fields{"section": d.Section, "kind": d.Kind}).Warn(d.Message)
		result.Diagnostics = append(result.Diagnostics, d)
	}
	log.Infof("Extracted %d section(s): %v", srd.Len(), srd.Kinds())
	if srd.Len() == 0 {
		return result, noUsableSections("no SRD sections found in document",
			"check that the document uses the expected section headings")
	}

	// Step 3: Retrieve similar historical test cases
	similar, diag := p.retriever.RetrieveWithDiagnostic(ctx, p.opts.Query, srd, p.opts.TopK)
	if diag != nil {
		log.WithField("kind", diag.Kind).Info("Continuing without context examples: " + diag.Message)
		result.Diagnostics = append(result.Diagnostics, *diag)
	}
	snippet := prompt.ContextSnippet(similar, p.opts.ContextExamples, p.opts.ContextChars)

	// Step 4: Build one prompt per present section
	units, err := p.builder.BuildAll(srd, snippet)
	if err != nil {
		return result, domain.NewError("prompt", "", "", "failed to build prompts", err)
	}
	result.Prompts = units
	if len(units) == 0 {
		return result, noUsableSections("no section produces test cases",
			"the document only carries status labels or SLA text")
	}

	if p.opts.DryRun {
		for _, u := range units {
			log.WithField("section", u.Kind).Infof("[DRY-RUN] Would submit prompt (%d chars)", len(u.Instruction))
			log.Debugf("[DRY-RUN] Prompt:\n%s", u.Instruction)
		}
		return result, nil
	}

	// Step 5: Generate and normalize per section, then assemble
	perSection, sectionDiags := p.generateSections(ctx, units)
	result.PerSection = perSection
	result.Diagnostics = append(result.Diagnostics, sectionDiags...)
	result.Collection = assembler.Assemble(perSection)

	if len(result.Collection) == 0 {
		return result, noUsableSections(fmt.Sprintf("all %d section(s) failed", len(units)),
			"inspect the diagnostics; rate limits can be eased with pipeline.concurrency or llm.max_retries")
	}
	log.Infof("Generated %d test case(s) from %d section(s)", len(result.Collection), len(perSection))
	return result, nil
}

// generateSections runs the units on a bounded worker group. Workers never
// return an error so that one failing section does not cancel its siblings.
func (p *Pipeline) generateSections(ctx context.Context, units []domain.PromptUnit) (map[domain.SectionKind][]domain.TestCaseRecord, []domain.Diagnostic) {
	var (
		mu          sync.Mutex
		perSection  = make(map[domain.SectionKind][]domain.TestCaseRecord, len(units))
		diagnostics = make(map[domain.SectionKind]domain.Diagnostic)
	)

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for _, unit := range units {
		g.Go(func() error {
			records, diag := p.generateSection(ctx, unit)
			mu.Lock()
			defer mu.Unlock()
			if diag != nil {
				diagnostics[unit.Kind] = *diag
			}
			if diag == nil || diag.Kind == domain.KindCoverageShortfall {
				perSection[unit.Kind] = records
			}
			return nil
		})
	}
	_ = g.Wait()

	var ordered []domain.Diagnostic
	for _, u := range units {
		if d, ok := diagnostics[u.Kind]; ok {
			ordered = append(ordered, d)
		}
	}
	return perSection, ordered
}

// generateSection returns the section's records, or a diagnostic explaining
// why there are none. A CoverageShortfall diagnostic comes with the records.
func (p *Pipeline) generateSection(ctx context.Context, unit domain.PromptUnit) ([]domain.TestCaseRecord, *domain.Diagnostic) {
	log := p.log.WithField("section", unit.Kind)

	raw, err := p.generate(ctx, unit.Kind, unit.Instruction, unit.ReasoningEffort)
	if err != nil {
		d := domain.DiagnosticFromError(unit.Kind, err)
		log.WithField("kind", d.Kind).Warn("Section generation failed")
		return nil, &d
	}

	records, diag := normalizer.Parse(raw)
	if diag != nil {
		diag.Section = unit.Kind
		log.WithField("kind", diag.Kind).Warn(diag.Message)
		return nil, diag
	}
	log.Debugf("Parsed %d test case(s)", len(records))
	if unit.MinRecords > 0 && len(records) < unit.MinRecords {
		d := domain.Diagnostic{
			Section: unit.Kind,
			Kind:    domain.KindCoverageShortfall,
			Message: fmt.Sprintf("expected at least %d test case(s), model returned %d", unit.MinRecords, len(records)),
		}
		log.WithField("kind", d.Kind).Warn(d.Message)
		return records, &d
	}
	return records, nil
}

// generate calls the model, retrying model-unavailable failures with a
// linear backoff.
func (p *Pipeline) generate(ctx context.Context, section domain.SectionKind, text, effort string) (string, error) {
	opts := llm.Options{
		Temperature:     p.opts.Temperature,
		MaxTokens:       p.opts.MaxTokens,
		ReasoningEffort: effort,
	}
	if p.opts.StructuredOutput {
		opts.Schema = normalizer.ResponseSchema()
	}

	var lastErr error
	for attempt := 0; attempt <= p.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := p.opts.RetryBackoff * time.Duration(attempt)
			p.log.WithFields(logrus.Fields{"section": section, "attempt": attempt}).
				Infof("Retrying in %s: %v", wait, lastErr)
			select {
			case <-ctx.Done():
				return "", domain.NewError("generate", section, domain.KindModelUnavailable, "cancelled", ctx.Err())
			case <-time.After(wait):
			}
		}

		raw, err := p.model.Generate(ctx, text, opts)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	if domain.KindOf(lastErr) == "" {
		lastErr = domain.NewError("generate", section, domain.KindModelUnavailable, "model call failed", lastErr)
	}
	return "", lastErr
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, domain.ErrRateLimited) || domain.KindOf(err) == domain.KindModelUnavailable
}

// Improve re-prompts the model with the last response in history plus a
// follow-up instruction, records the new turn and normalizes the result.
// A ParseFailure is returned as a diagnostic; the turn is still recorded.
func (p *Pipeline) Improve(ctx context.Context, history *domain.History, instruction string) (domain.TestCaseCollection, *domain.Diagnostic, error) {
	text, err := p.builder.BuildImprove(history, instruction)
	if err != nil {
		return nil, nil, err
	}
	raw, err := p.generate(ctx, "", text, "")
	if err != nil {
		return nil, nil, err
	}
	history.Add(text, raw)

	records, diag := normalizer.Parse(raw)
	return domain.TestCaseCollection(records), diag, nil
}

func noUsableSections(msg, suggestion string) error {
	return domain.NewErrorWithSuggestion("generate", "", "", msg, suggestion, domain.ErrNoUsableSections)
}
