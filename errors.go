package fhir

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for record and hierarchy processing.
var (
	// ErrMalformedRecord is returned when a raw element record cannot be
	// normalized. A missing path is the only unrecoverable case.
	ErrMalformedRecord = errors.New("fhir: malformed element record")

	// ErrUnresolvedParent marks an element whose parent path was not
	// registered when the element was processed.
	ErrUnresolvedParent = errors.New("fhir: unresolved parent")

	// ErrDuplicatePath marks an entity registration that collided with an
	// entity already registered under the same structural path.
	ErrDuplicatePath = errors.New("fhir: duplicate structural path")
)

// MalformedRecordError describes a raw record that could not be normalized.
type MalformedRecordError struct {
	// ID of the element, when the record carries one.
	ID string
	// Index of the record in its definition, or -1 if unknown.
	Index int
	// Reason is a short description of what is missing.
	Reason string
}

// Error returns the error string.
func (e *MalformedRecordError) Error() string {
	var b strings.Builder
	b.WriteString("fhir: malformed element record")
	if e.ID != "" {
		fmt.Fprintf(&b, " %q", e.ID)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&b, " (index %d)", e.Index)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// Is reports whether the target error matches MalformedRecordError.
// This allows errors.Is(err, ErrMalformedRecord) to return true.
func (e *MalformedRecordError) Is(err error) bool {
	return err == ErrMalformedRecord
}

// NewMalformedRecordError returns a new MalformedRecordError.
func NewMalformedRecordError(id string, index int, reason string) *MalformedRecordError {
	return &MalformedRecordError{ID: id, Index: index, Reason: reason}
}

// IsMalformedRecord returns true if the error is a MalformedRecordError.
func IsMalformedRecord(err error) bool {
	if err == nil {
		return false
	}
	var e *MalformedRecordError
	return errors.As(err, &e) || errors.Is(err, ErrMalformedRecord)
}

// PathError reports a structural problem found while resolving an element
// path: an unresolved parent or a duplicate registration. The hierarchy
// builder records these as warnings, it never returns them.
type PathError struct {
	Path   string
	Parent string
	Err    error
}

// Error returns the error string.
func (e *PathError) Error() string {
	if e.Parent != "" {
		return fmt.Sprintf("%v: %s (parent %s)", e.Err, e.Path, e.Parent)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Path)
}

// Unwrap returns the underlying sentinel.
func (e *PathError) Unwrap() error {
	return e.Err
}

// IsUnresolvedParent returns true if the error reports an unresolved parent.
func IsUnresolvedParent(err error) bool {
	return errors.Is(err, ErrUnresolvedParent)
}

// IsDuplicatePath returns true if the error reports a duplicate registration.
func IsDuplicatePath(err error) bool {
	return errors.Is(err, ErrDuplicatePath)
}
