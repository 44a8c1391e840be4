package parser

import (
	"fmt"

	"github.com/fjglira/srd-testgen/internal/domain"
)

// Extractor turns a flattened SRD into typed sections. It holds no mutable
// state and may be shared between goroutines.
type Extractor struct {
	registry RuleRegistry
}

// NewExtractor creates an Extractor over registry. A nil registry uses the
// built-in rules.
func NewExtractor(registry RuleRegistry) *Extractor {
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	return &Extractor{registry: registry}
}

var defaultExtractor = NewExtractor(nil)

// Extract parses document with the built-in rules.
func Extract(document string) domain.ExtractedSRD {
	srd, _ := defaultExtractor.ExtractWithDiagnostics(document)
	return srd
}

// ExtractWithDiagnostics parses document with the built-in rules and also
// returns what was recovered locally.
func ExtractWithDiagnostics(document string) (domain.ExtractedSRD, []domain.Diagnostic) {
	return defaultExtractor.ExtractWithDiagnostics(document)
}

// Extract parses document, discarding diagnostics.
func (e *Extractor) Extract(document string) domain.ExtractedSRD {
	srd, _ := e.ExtractWithDiagnostics(document)
	return srd
}

// ExtractWithDiagnostics runs every rule independently. A rule that fails,
// or panics, affects only its own section.
func (e *Extractor) ExtractWithDiagnostics(document string) (domain.ExtractedSRD, []domain.Diagnostic) {
	var (
		sections    []domain.Section
		diagnostics []domain.Diagnostic
	)
	for _, rule := range e.registry.Rules() {
		s, err := runRule(rule, document)
		if err != nil {
			if domain.KindOf(err) == "" {
				err = domain.NewError("extract", rule.Kind(), domain.KindMalformedTable, "rule failed", err)
			}
			diagnostics = append(diagnostics, domain.DiagnosticFromError(rule.Kind(), err))
		}
		if s != nil {
			sections = append(sections, s)
		}
	}
	return domain.NewExtractedSRD(sections...), diagnostics
}

func runRule(rule Rule, document string) (s domain.Section, err error) {
	defer func() {
		if r := recover(); r != nil {
			s = nil
			err = domain.NewError("extract", rule.Kind(), domain.KindMalformedTable,
				fmt.Sprintf("rule panicked: %v", r), nil)
		}
	}()
	return rule.Extract(document)
}
