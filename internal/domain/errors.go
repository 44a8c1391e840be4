package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a per-section failure.
type ErrorKind string

const (
	KindSectionNotFound      ErrorKind = "SectionNotFound"
	KindMalformedTable       ErrorKind = "MalformedTable"
	KindRetrievalUnavailable ErrorKind = "RetrievalUnavailable"
	KindParseFailure         ErrorKind = "ParseFailure"
	KindModelUnavailable     ErrorKind = "ModelUnavailable"
	KindCoverageShortfall    ErrorKind = "CoverageShortfall"
)

var (
	// ErrNoUsableSections is returned when every section of a document failed.
	ErrNoUsableSections = errors.New("no usable sections")

	// ErrNoPreviousResponse is returned by the improve flow on an empty history.
	ErrNoPreviousResponse = errors.New("no previous response found to improve")

	// ErrRateLimited marks a model rejection caused by provider rate limits.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// SRDError is the base error type with context.
type SRDError struct {
	Phase      string // "config", "source", "extract", "retrieve", "prompt", "generate", "parse", "report"
	Section    SectionKind
	Kind       ErrorKind
	Message    string
	Suggestion string
	Cause      error
}

func (e *SRDError) Error() string {
	s := fmt.Sprintf("[%s]", e.Phase)
	if e.Section != "" {
		s += fmt.Sprintf(" %s", e.Section)
	}
	if e.Kind != "" {
		s += fmt.Sprintf(" (%s)", e.Kind)
	}
	s += fmt.Sprintf(": %s", e.Message)
	if e.Cause != nil {
		s += fmt.Sprintf(": %v", e.Cause)
	}
	if e.Suggestion != "" {
		s += fmt.Sprintf(" (hint: %s)", e.Suggestion)
	}
	return s
}

func (e *SRDError) Unwrap() error {
	return e.Cause
}

// NewError creates a new SRDError.
func NewError(phase string, section SectionKind, kind ErrorKind, message string, cause error) *SRDError {
	return &SRDError{
		Phase:   phase,
		Section: section,
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// NewErrorWithSuggestion creates a new SRDError carrying a remediation hint.
func NewErrorWithSuggestion(phase string, section SectionKind, kind ErrorKind, message, suggestion string, cause error) *SRDError {
	err := NewError(phase, section, kind, message, cause)
	err.Suggestion = suggestion
	return err
}

// KindOf returns the ErrorKind carried by err, or "" when err has none.
func KindOf(err error) ErrorKind {
	var srdErr *SRDError
	if errors.As(err, &srdErr) {
		return srdErr.Kind
	}
	return ""
}

// Diagnostic is the structured outcome recorded for a section that produced
// no records or was recovered locally.
type Diagnostic struct {
	Section SectionKind `json:"section" yaml:"section"`
	Kind    ErrorKind   `json:"kind" yaml:"kind"`
	Message string      `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	if d.Section == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", d.Kind, d.Section, d.Message)
}

// DiagnosticFromError converts a section error into a Diagnostic.
func DiagnosticFromError(section SectionKind, err error) Diagnostic {
	kind := KindOf(err)
	if kind == "" {
		kind = KindModelUnavailable
	}
	return Diagnostic{Section: section, Kind: kind, Message: err.Error()}
}
