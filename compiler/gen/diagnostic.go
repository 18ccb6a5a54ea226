package gen

import (
	"fmt"

	fhir "github.com/sutanuchaudhuri/fhir-server"
)

// Severity of a diagnostic.
type Severity uint8

const (
	// SeverityInfo is informational.
	SeverityInfo Severity = iota
	// SeverityWarning marks a recoverable inconsistency in the input.
	SeverityWarning
)

// String returns the severity name.
func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "info"
}

// Diagnostic codes.
const (
	CodeUnresolvedParent = "unresolved-parent"
	CodeDuplicatePath    = "duplicate-path"
	CodeMalformedRecord  = "malformed-record"
	CodeContentReference = "content-reference"
	CodeEmptyDefinition  = "empty-definition"
	CodeUntypedElement   = "untyped-element"
)

// Diagnostic is a non-fatal condition met while building a graph.
type Diagnostic struct {
	Severity   Severity `json:"severity" yaml:"severity" msgpack:"severity"`
	Code       string   `json:"code" yaml:"code" msgpack:"code"`
	Definition string   `json:"definition,omitempty" yaml:"definition,omitempty" msgpack:"definition,omitempty"`
	Path       string   `json:"path,omitempty" yaml:"path,omitempty" msgpack:"path,omitempty"`
	Parent     string   `json:"parent,omitempty" yaml:"parent,omitempty" msgpack:"parent,omitempty"`
	Message    string   `json:"message" yaml:"message" msgpack:"message"`
}

// String formats the diagnostic for display.
func (d *Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s [%s] %s: %s", d.Severity, d.Code, d.Path, d.Message)
}

// Err returns the diagnostic as an error matching the fhir sentinels.
func (d *Diagnostic) Err() error {
	switch d.Code {
	case CodeUnresolvedParent:
		return &fhir.PathError{Path: d.Path, Parent: d.Parent, Err: fhir.ErrUnresolvedParent}
	case CodeDuplicatePath:
		return &fhir.PathError{Path: d.Path, Err: fhir.ErrDuplicatePath}
	case CodeMalformedRecord:
		return fmt.Errorf("%w: %s", fhir.ErrMalformedRecord, d.Message)
	default:
		return fmt.Errorf("%s: %s", d.Code, d.Message)
	}
}
