package parser

import (
	"fmt"
	"sync"

	"github.com/fjglira/srd-testgen/internal/domain"
)

// Rule extracts one section kind from a flattened SRD.
type Rule interface {
	Kind() domain.SectionKind
	Extract(document string) (domain.Section, error)
}

// RuleFunc adapts a plain function into a Rule.
type RuleFunc struct {
	kind domain.SectionKind
	fn   func(document string) (domain.Section, error)
}

// NewRuleFunc returns a Rule for kind backed by fn.
func NewRuleFunc(kind domain.SectionKind, fn func(document string) (domain.Section, error)) RuleFunc {
	return RuleFunc{kind: kind, fn: fn}
}

func (r RuleFunc) Kind() domain.SectionKind { return r.kind }

func (r RuleFunc) Extract(document string) (domain.Section, error) { return r.fn(document) }

// RuleRegistry maps section kinds to extraction rules.
type RuleRegistry interface {
	Register(rule Rule)
	RuleFor(kind domain.SectionKind) (Rule, error)
	Rules() []Rule
}

// DefaultRegistry is a thread-safe rule registry.
type DefaultRegistry struct {
	mu    sync.RWMutex
	rules map[domain.SectionKind]Rule
}

// NewRegistry creates an empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		rules: make(map[domain.SectionKind]Rule),
	}
}

// NewDefaultRegistry returns a registry holding the built-in rule for every
// section kind.
func NewDefaultRegistry() *DefaultRegistry {
	r := NewRegistry()
	r.Register(NewRuleFunc(domain.SectionServiceDetails, wrap(ExtractServiceDetails)))
	r.Register(NewRuleFunc(domain.SectionFormFields, wrap(ExtractFormFields)))
	r.Register(NewRuleFunc(domain.SectionWorkflow, wrap(ExtractWorkflowSteps)))
	r.Register(NewRuleFunc(domain.SectionStatusLabels, wrap(ExtractStatusLabels)))
	r.Register(NewRuleFunc(domain.SectionPricing, wrap(ExtractPricing)))
	r.Register(NewRuleFunc(domain.SectionNextSteps, wrap(ExtractNextSteps)))
	r.Register(NewRuleFunc(domain.SectionNotifications, wrap(ExtractNotifications)))
	r.Register(NewRuleFunc(domain.SectionSLA, wrap(ExtractSLA)))
	return r
}

// wrap lifts a typed extractor into the Section interface without leaking
// typed nil pointers.
func wrap[T domain.Section](fn func(string) (T, error)) func(string) (domain.Section, error) {
	return func(document string) (domain.Section, error) {
		s, err := fn(document)
		if s.Empty() {
			return nil, err
		}
		return s, err
	}
}

// Register adds or replaces the rule for its kind.
func (r *DefaultRegistry) Register(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.Kind()] = rule
}

// RuleFor returns the rule registered for kind.
func (r *DefaultRegistry) RuleFor(kind domain.SectionKind) (Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rule, ok := r.rules[kind]; ok {
		return rule, nil
	}
	return nil, fmt.Errorf("no rule registered for section %q", kind)
}

// Rules returns the registered rules in extraction order. Kinds outside the
// known order are not returned.
func (r *DefaultRegistry) Rules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rule, 0, len(r.rules))
	for _, kind := range domain.ExtractionOrder {
		if rule, ok := r.rules[kind]; ok {
			out = append(out, rule)
		}
	}
	return out
}
