package domain

import (
	"bytes"
	"encoding/json"
)

// EncodeJSON marshals v like json.Marshal but leaves <, > and & unescaped,
// so section text round-trips into prompts and queries as written.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// SectionKind identifies one typed part of an SRD.
type SectionKind string

const (
	SectionServiceDetails SectionKind = "service details"
	SectionFormFields     SectionKind = "form fields"
	SectionWorkflow       SectionKind = "workflow"
	SectionStatusLabels   SectionKind = "workflow statuses"
	SectionPricing        SectionKind = "pricing"
	SectionNextSteps      SectionKind = "next steps"
	SectionNotifications  SectionKind = "notifications"
	SectionSLA            SectionKind = "sla"
)

// ExtractionOrder lists every section kind in the order the extractor runs.
var ExtractionOrder = []SectionKind{
	SectionServiceDetails,
	SectionFormFields,
	SectionWorkflow,
	SectionStatusLabels,
	SectionPricing,
	SectionNextSteps,
	SectionNotifications,
	SectionSLA,
}

// ReportOrder lists the kinds that produce test cases, in report layout order.
// Status labels and SLA are folded into the workflow and service details prompts.
var ReportOrder = []SectionKind{
	SectionServiceDetails,
	SectionFormFields,
	SectionWorkflow,
	SectionPricing,
	SectionNextSteps,
	SectionNotifications,
}

// Section is the closed set of typed SRD sections.
type Section interface {
	Kind() SectionKind
	Empty() bool
	section()
}

// ServiceDetails holds the rows of the service details table keyed by header.
type ServiceDetails struct {
	Headers []string            `json:"-"`
	Rows    []map[string]string `json:"rows"`
}

func (s *ServiceDetails) Kind() SectionKind { return SectionServiceDetails }
func (s *ServiceDetails) Empty() bool       { return s == nil || len(s.Rows) == 0 }
func (*ServiceDetails) section()            {}

// MarshalJSON emits the rows only, matching the flattened table shape.
func (s *ServiceDetails) MarshalJSON() ([]byte, error) {
	return EncodeJSON(s.Rows)
}

// FormField is one row of the "Form Elements" table. Missing trailing
// columns stay empty.
type FormField struct {
	Section           string `json:"section"`
	Block             string `json:"block"`
	FieldName         string `json:"field_name"`
	Type              string `json:"type"`
	Hint              string `json:"hint"`
	Tooltip           string `json:"tooltip"`
	Placeholder       string `json:"Placeholder (for inputs only)/List of values (for drop downs)"`
	WidgetRequirement string `json:"Widget requirements"`
	ValidationRule    string `json:"Validation Rule"`
	DisplayRule       string `json:"Display Rule"`
	ErrorMessage      string `json:"Error Message"`
}

// FormFieldColumns is the number of positional attributes in a form field row.
const FormFieldColumns = 11

// FormFields is the form field section.
type FormFields struct {
	Fields []FormField
}

func (f *FormFields) Kind() SectionKind { return SectionFormFields }
func (f *FormFields) Empty() bool       { return f == nil || len(f.Fields) == 0 }
func (*FormFields) section()            {}

func (f *FormFields) MarshalJSON() ([]byte, error) {
	return EncodeJSON(f.Fields)
}

// WorkflowStep is a numbered workflow line kept verbatim.
type WorkflowStep struct {
	Ordinal int
	Text    string
}

// WorkflowSteps is the workflow section.
type WorkflowSteps struct {
	Steps []WorkflowStep
}

func (w *WorkflowSteps) Kind() SectionKind { return SectionWorkflow }
func (w *WorkflowSteps) Empty() bool       { return w == nil || len(w.Steps) == 0 }
func (*WorkflowSteps) section()            {}

// MarshalJSON emits the verbatim lines, which double as the machine record.
func (w *WorkflowSteps) MarshalJSON() ([]byte, error) {
	lines := make([]string, 0, len(w.Steps))
	for _, s := range w.Steps {
		lines = append(lines, s.Text)
	}
	return EncodeJSON(lines)
}

// StatusLabel maps a workflow status key to its end-user label.
type StatusLabel struct {
	Status string
	Label  string
}

// StatusLabels is the "Labels of status" section. Entries are unique by
// Status and keep first-seen order.
type StatusLabels struct {
	Entries []StatusLabel
}

func (s *StatusLabels) Kind() SectionKind { return SectionStatusLabels }
func (s *StatusLabels) Empty() bool       { return s == nil || len(s.Entries) == 0 }
func (*StatusLabels) section()            {}

// Set inserts or replaces the label for status.
func (s *StatusLabels) Set(status, label string) {
	for i := range s.Entries {
		if s.Entries[i].Status == status {
			s.Entries[i].Label = label
			return
		}
	}
	s.Entries = append(s.Entries, StatusLabel{Status: status, Label: label})
}

// Map returns the labels keyed by literal status text.
func (s *StatusLabels) Map() map[string]string {
	m := make(map[string]string, len(s.Entries))
	for _, e := range s.Entries {
		m[e.Status] = e.Label
	}
	return m
}

func (s *StatusLabels) MarshalJSON() ([]byte, error) {
	return EncodeJSON(s.Map())
}

// Pricing gathers the independently located payment facts. Empty strings
// mean the fact was not found.
type Pricing struct {
	Currency          string `json:"Currency,omitempty"`
	PaymentExpiration string `json:"Payment Expiration Time,omitempty"`
	PaymentCode       string `json:"Service Payment Code,omitempty"`
	Merchant          string `json:"Payment merchant,omitempty"`
	AccountID         string `json:"Payment account identifier,omitempty"`
	ServicePricing    string `json:"service_pricing,omitempty"`
}

func (p *Pricing) Kind() SectionKind { return SectionPricing }
func (p *Pricing) Empty() bool {
	return p == nil || (p.Currency == "" && p.PaymentExpiration == "" && p.PaymentCode == "" &&
		p.Merchant == "" && p.AccountID == "" && p.ServicePricing == "")
}
func (*Pricing) section() {}

// NextStep is one row of the "Next steps" table.
type NextStep struct {
	Step        string `json:"step"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// NextSteps is the next steps section.
type NextSteps struct {
	Steps []NextStep
}

func (n *NextSteps) Kind() SectionKind { return SectionNextSteps }
func (n *NextSteps) Empty() bool       { return n == nil || len(n.Steps) == 0 }
func (*NextSteps) section()            {}

func (n *NextSteps) MarshalJSON() ([]byte, error) {
	return EncodeJSON(n.Steps)
}

// Channel is a notification delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// NotificationEntry is one notification template. Subject is set for email only.
type NotificationEntry struct {
	Channel Channel `json:"channel"`
	Status  string  `json:"status"`
	Subject string  `json:"subject,omitempty"`
	Body    string  `json:"message"`
}

// Notifications holds the SMS and Email notification tables.
type Notifications struct {
	SMS    []NotificationEntry `json:"sms"`
	Emails []NotificationEntry `json:"emails"`
}

func (n *Notifications) Kind() SectionKind { return SectionNotifications }
func (n *Notifications) Empty() bool       { return n == nil || (len(n.SMS) == 0 && len(n.Emails) == 0) }
func (*Notifications) section()            {}

// All returns every notification, emails first.
func (n *Notifications) All() []NotificationEntry {
	all := make([]NotificationEntry, 0, len(n.SMS)+len(n.Emails))
	all = append(all, n.Emails...)
	return append(all, n.SMS...)
}

// SLA is the raw text under the "SLAs" heading.
type SLA struct {
	Text string
}

func (s *SLA) Kind() SectionKind { return SectionSLA }
func (s *SLA) Empty() bool       { return s == nil || s.Text == "" }
func (*SLA) section()            {}

func (s *SLA) MarshalJSON() ([]byte, error) {
	return EncodeJSON(s.Text)
}

// ExtractedSRD maps section kinds to their extracted content. Absent kinds
// are omitted. It is read-only once built.
type ExtractedSRD struct {
	sections map[SectionKind]Section
}

// NewExtractedSRD builds an ExtractedSRD, dropping nil or empty sections.
func NewExtractedSRD(sections ...Section) ExtractedSRD {
	m := make(map[SectionKind]Section, len(sections))
	for _, s := range sections {
		if s == nil || s.Empty() {
			continue
		}
		m[s.Kind()] = s
	}
	return ExtractedSRD{sections: m}
}

// Get returns the section for kind.
func (e ExtractedSRD) Get(kind SectionKind) (Section, bool) {
	s, ok := e.sections[kind]
	return s, ok
}

// Has reports whether kind was extracted.
func (e ExtractedSRD) Has(kind SectionKind) bool {
	_, ok := e.sections[kind]
	return ok
}

// Len returns the number of present sections.
func (e ExtractedSRD) Len() int {
	return len(e.sections)
}

// Kinds returns the present kinds in extraction order.
func (e ExtractedSRD) Kinds() []SectionKind {
	var kinds []SectionKind
	for _, k := range ExtractionOrder {
		if e.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func (e ExtractedSRD) ServiceDetails() *ServiceDetails {
	s, _ := e.sections[SectionServiceDetails].(*ServiceDetails)
	return s
}

func (e ExtractedSRD) FormFields() *FormFields {
	s, _ := e.sections[SectionFormFields].(*FormFields)
	return s
}

func (e ExtractedSRD) Workflow() *WorkflowSteps {
	s, _ := e.sections[SectionWorkflow].(*WorkflowSteps)
	return s
}

func (e ExtractedSRD) StatusLabels() *StatusLabels {
	s, _ := e.sections[SectionStatusLabels].(*StatusLabels)
	return s
}

func (e ExtractedSRD) Pricing() *Pricing {
	s, _ := e.sections[SectionPricing].(*Pricing)
	return s
}

func (e ExtractedSRD) NextSteps() *NextSteps {
	s, _ := e.sections[SectionNextSteps].(*NextSteps)
	return s
}

func (e ExtractedSRD) Notifications() *Notifications {
	s, _ := e.sections[SectionNotifications].(*Notifications)
	return s
}

func (e ExtractedSRD) SLA() *SLA {
	s, _ := e.sections[SectionSLA].(*SLA)
	return s
}

// MarshalJSON serializes present sections keyed by kind name.
func (e ExtractedSRD) MarshalJSON() ([]byte, error) {
	out := make(map[string]Section, len(e.sections))
	for k, v := range e.sections {
		out[string(k)] = v
	}
	return EncodeJSON(out)
}

// Outline is the heading and image index of a flattened document.
type Outline struct {
	Headings []Heading
	Images   []ImageRef
}

// Heading represents a document heading.
type Heading struct {
	Level int
	Text  string
	Line  int
}

// ImageRef is an embedded ![alt](url) reference.
type ImageRef struct {
	Alt string
	URL string
}

// Title returns the first level-1 heading, falling back to the first heading.
func (o *Outline) Title() string {
	if o == nil {
		return ""
	}
	for _, h := range o.Headings {
		if h.Level == 1 {
			return h.Text
		}
	}
	if len(o.Headings) > 0 {
		return o.Headings[0].Text
	}
	return ""
}

// PromptUnit is one instruction payload for a present section kind.
// MinRecords is the coverage floor the instruction demands, zero if none.
type PromptUnit struct {
	Kind            SectionKind
	Instruction     string
	Context         string
	ReasoningEffort string
	MinRecords      int
}

// SimilarContent is one retrieved historical record.
type SimilarContent struct {
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
