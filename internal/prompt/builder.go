package prompt

import (
	"fmt"
	"strings"

	"github.com/fjglira/srd-testgen/internal/domain"
)

// DefaultReasoningEffort is the per-kind scrutiny hint passed to the model.
// Form fields and pricing carry the most validation surface.
var DefaultReasoningEffort = map[domain.SectionKind]string{
	domain.SectionFormFields:     "high",
	domain.SectionPricing:        "high",
	domain.SectionWorkflow:       "medium",
	domain.SectionNotifications:  "medium",
	domain.SectionServiceDetails: "low",
	domain.SectionNextSteps:      "low",
}

// Default bounds for embedded context examples.
const (
	DefaultMaxExamples  = 3
	DefaultExampleChars = 500
)

// Pair is one (channel, status) notification combination.
type Pair struct {
	Channel domain.Channel
	Status  string
}

// templateData is the struct passed to section templates.
type templateData struct {
	Kind      domain.SectionKind
	Section   domain.Section
	SLA       string
	Labels    *domain.StatusLabels
	Pairs     []Pair
	Context   string
	InputHint string
}

type improveData struct {
	Instruction string
	Previous    string
	InputHint   string
}

var inputHints = map[domain.SectionKind]string{
	domain.SectionFormFields: "numbered list of the inputs for the scenario",
	domain.SectionWorkflow:   "actions or data required",
	domain.SectionPricing:    "numbered list of inputs or representative price values",
	domain.SectionNextSteps:  "if applicable, numbered list of inputs that trigger the scenario",
}

// Builder turns extracted sections into prompt units. It is stateless after
// construction and safe for concurrent use.
type Builder struct {
	engine  TemplateEngine
	efforts map[domain.SectionKind]string
}

// NewBuilder creates a Builder. efforts overrides DefaultReasoningEffort per
// kind; nil keeps the defaults.
func NewBuilder(engine TemplateEngine, efforts map[domain.SectionKind]string) *Builder {
	merged := make(map[domain.SectionKind]string, len(DefaultReasoningEffort))
	for k, v := range DefaultReasoningEffort {
		merged[k] = v
	}
	for k, v := range efforts {
		if v != "" {
			merged[k] = v
		}
	}
	return &Builder{engine: engine, efforts: merged}
}

// Build renders the prompt for kind. It returns nil when the section is
// absent from srd or kind does not produce test cases on its own.
func (b *Builder) Build(kind domain.SectionKind, srd domain.ExtractedSRD, contextSnippet string) (*domain.PromptUnit, error) {
	section, ok := srd.Get(kind)
	if !ok || !producesTests(kind) {
		return nil, nil
	}

	data := templateData{
		Kind:      kind,
		Section:   section,
		Context:   contextSnippet,
		InputHint: inputHints[kind],
	}
	minRecords := 0

	switch kind {
	case domain.SectionServiceDetails:
		if sla := srd.SLA(); sla != nil {
			data.SLA = sla.Text
		}
	case domain.SectionWorkflow:
		data.Labels = srd.StatusLabels()
		if data.Labels != nil {
			minRecords = len(data.Labels.Entries)
		}
	case domain.SectionNotifications:
		data.Pairs = NotificationPairs(srd.Notifications())
		minRecords = len(data.Pairs)
	}

	text, err := b.engine.Render(templateName(kind), data)
	if err != nil {
		return nil, err
	}

	return &domain.PromptUnit{
		Kind:            kind,
		Instruction:     text,
		Context:         contextSnippet,
		ReasoningEffort: b.efforts[kind],
		MinRecords:      minRecords,
	}, nil
}

// BuildAll renders one unit per present kind in report order.
func (b *Builder) BuildAll(srd domain.ExtractedSRD, contextSnippet string) ([]domain.PromptUnit, error) {
	var units []domain.PromptUnit
	for _, kind := range domain.ReportOrder {
		unit, err := b.Build(kind, srd, contextSnippet)
		if err != nil {
			return nil, err
		}
		if unit != nil {
			units = append(units, *unit)
		}
	}
	return units, nil
}

// BuildImprove embeds the last response of history verbatim together with
// the follow-up instruction.
func (b *Builder) BuildImprove(history *domain.History, instruction string) (string, error) {
	previous, ok := history.LastResponse()
	if !ok {
		return "", domain.ErrNoPreviousResponse
	}
	return b.engine.Render("improve.tmpl", improveData{
		Instruction: strings.TrimRight(strings.TrimSpace(instruction), "."),
		Previous:    previous,
	})
}

// producesTests reports whether kind gets its own prompt. Status labels and
// SLA are embedded into the workflow and service details prompts.
func producesTests(kind domain.SectionKind) bool {
	for _, k := range domain.ReportOrder {
		if k == kind {
			return true
		}
	}
	return false
}

// NotificationPairs lists every distinct (channel, status) pair, emails first.
func NotificationPairs(n *domain.Notifications) []Pair {
	if n == nil {
		return nil
	}
	seen := make(map[Pair]bool)
	var pairs []Pair
	for _, e := range n.All() {
		p := Pair{Channel: e.Channel, Status: e.Status}
		if seen[p] {
			continue
		}
		seen[p] = true
		pairs = append(pairs, p)
	}
	return pairs
}

// ContextSnippet formats up to maxExamples retrieved records, each cut to
// maxChars characters. No records yields an empty snippet.
func ContextSnippet(similar []domain.SimilarContent, maxExamples, maxChars int) string {
	if len(similar) == 0 || maxExamples <= 0 {
		return ""
	}
	if maxChars <= 0 {
		maxChars = DefaultExampleChars
	}

	var sb strings.Builder
	sb.WriteString("Here are some examples of test cases from similar services:\n\n")
	for i, s := range similar {
		if i >= maxExamples {
			break
		}
		fmt.Fprintf(&sb, "Example %d:\nContent: %s...\n\n", i+1, truncate(maxChars, s.Content))
	}
	return sb.String()
}
