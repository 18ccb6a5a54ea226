// Package element normalizes raw ElementDefinition records into the
// canonical shape consumed by the hierarchy builder.
//
// Normalization is pure and stateless: each record is handled on its own,
// without looking at the records that precede it.
package element

import (
	"strconv"
	"strings"

	fhir "github.com/sutanuchaudhuri/fhir-server"
	"github.com/sutanuchaudhuri/fhir-server/compiler/load"
)

// Unbounded is the maximum cardinality of a repeating element ("*").
const Unbounded = -1

// Variant tags the role an element plays in the hierarchy.
type Variant uint8

const (
	// Leaf is an ordinary property of its parent entity.
	Leaf Variant = iota
	// RootMarker has no declared type and opens a definition.
	RootMarker
	// Backbone declares an inline composite that becomes its own entity.
	Backbone
	// ContentReference has no declared type and re-uses the structure of a
	// back-bone element declared elsewhere in the definition.
	ContentReference
)

var variantNames = [...]string{
	Leaf:             "leaf",
	RootMarker:       "root",
	Backbone:         "backbone",
	ContentReference: "content-reference",
}

// String returns the variant name.
func (v Variant) String() string {
	if int(v) < len(variantNames) {
		return variantNames[v]
	}
	return "variant(" + strconv.Itoa(int(v)) + ")"
}

// Cardinality holds the minimum and maximum occurrences of an element.
// A nil bound means the source record omitted it.
type Cardinality struct {
	Min *int
	Max *int
}

// Optional reports whether the minimum is explicitly zero. An absent
// minimum is not optional.
func (c Cardinality) Optional() bool {
	return c.Min != nil && *c.Min == 0
}

// IsList reports whether the maximum is unbounded.
func (c Cardinality) IsList() bool {
	return c.Max != nil && *c.Max == Unbounded
}

// String formats the cardinality as "min..max", or the empty string when
// the minimum is absent.
func (c Cardinality) String() string {
	if c.Min == nil {
		return ""
	}
	return strconv.Itoa(*c.Min) + ".." + c.MaxString()
}

// MaxString formats the maximum: "*" when unbounded, empty when absent.
func (c Cardinality) MaxString() string {
	switch {
	case c.Max == nil:
		return ""
	case *c.Max == Unbounded:
		return "*"
	default:
		return strconv.Itoa(*c.Max)
	}
}

// Element is one schema element after extraction.
type Element struct {
	// ID is the element id as found in the record (diagnostics only).
	ID string
	// Path holds the dot-separated segments. The last one is the element
	// name; the prefix identifies the declaring entity.
	Path []string
	// Cardinality of the element.
	Cardinality Cardinality
	// DeclaredType is the code of the first type-list entry. Empty means
	// absent.
	DeclaredType string
	// TypeCodes holds every code of the type list, in order.
	TypeCodes []string
	// ReferenceTargets holds the last segment of every target profile of
	// every type-list entry, in encounter order, duplicates included.
	ReferenceTargets []string
	// EnumerationRef is the value-set reference: the element's own valueSet
	// (STU3 and earlier), else binding.valueSet (R4 and later). Empty means
	// absent.
	EnumerationRef string
	// BindingLabel is the human-readable binding name. Empty means absent.
	BindingLabel string
	// Documentation is free text, never absent.
	Documentation string
	// ContentRef is the structural path referenced by a
	// ContentReference element.
	ContentRef string
	// Variant tags the role of the element.
	Variant Variant
}

// Name returns the element's own name (the last path segment).
func (e *Element) Name() string {
	return e.Path[len(e.Path)-1]
}

// PathString returns the dotted path.
func (e *Element) PathString() string {
	return strings.Join(e.Path, ".")
}

// ParentPath returns the dotted path of the declaring entity, or the empty
// string for a definition root.
func (e *Element) ParentPath() string {
	return strings.Join(e.Path[:len(e.Path)-1], ".")
}

// HasType reports whether the element declares a type.
func (e *Element) HasType() bool {
	return e.DeclaredType != ""
}

// Normalizer extracts Elements from raw records.
type Normalizer struct {
	backbone map[string]struct{}
}

// NewNormalizer returns a Normalizer that treats the given type codes as
// back-bone composites. With no codes, fhir.BackboneElement is used.
func NewNormalizer(backboneCodes ...string) *Normalizer {
	if len(backboneCodes) == 0 {
		backboneCodes = []string{fhir.BackboneElement}
	}
	n := &Normalizer{backbone: make(map[string]struct{}, len(backboneCodes))}
	for _, c := range backboneCodes {
		n.backbone[c] = struct{}{}
	}
	return n
}

// IsBackbone reports whether code denotes an inline nested composite.
func (n *Normalizer) IsBackbone(code string) bool {
	_, ok := n.backbone[code]
	return ok
}

var defaultNormalizer = NewNormalizer()

// Normalize normalizes a record with the default back-bone codes.
func Normalize(raw *load.Element) (*Element, error) {
	return defaultNormalizer.Normalize(raw)
}

// Normalize returns the Element extracted from raw, or a
// *fhir.MalformedRecordError if raw has no usable path.
func (n *Normalizer) Normalize(raw *load.Element) (*Element, error) {
	if raw == nil {
		return nil, fhir.NewMalformedRecordError("", -1, "nil record")
	}
	path, reason := splitPath(raw.Path)
	if reason != "" {
		return nil, fhir.NewMalformedRecordError(raw.ID, -1, reason)
	}
	e := &Element{
		ID:   raw.ID,
		Path: path,
		Cardinality: Cardinality{
			Min: parseMin(raw.Min),
			Max: parseMax(raw.Max),
		},
		EnumerationRef: enumerationRef(raw),
		BindingLabel:   bindingLabel(raw.Binding),
		Documentation:  documentation(raw),
	}
	for _, t := range raw.Type {
		if t == nil {
			continue
		}
		e.TypeCodes = append(e.TypeCodes, t.Code)
		for _, p := range t.TargetProfile {
			e.ReferenceTargets = append(e.ReferenceTargets, lastSegment(p))
		}
	}
	if len(e.TypeCodes) > 0 {
		e.DeclaredType = e.TypeCodes[0]
	}
	switch {
	case e.HasType() && n.IsBackbone(e.DeclaredType):
		e.Variant = Backbone
	case e.HasType():
		e.Variant = Leaf
	case raw.ContentReference != "":
		e.Variant = ContentReference
		e.ContentRef = contentRef(raw.ContentReference)
	default:
		e.Variant = RootMarker
	}
	return e, nil
}

func splitPath(p *string) ([]string, string) {
	if p == nil {
		return nil, "missing path"
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil, "empty path"
	}
	parts := strings.Split(s, ".")
	for _, part := range parts {
		if part == "" {
			return nil, "empty segment in path " + strconv.Quote(s)
		}
	}
	return parts, ""
}

func parseMin(min *int) *int {
	if min == nil || *min < 0 {
		return nil
	}
	v := *min
	return &v
}

// parseMax returns nil for absent or unparsable values.
func parseMax(max *string) *int {
	if max == nil {
		return nil
	}
	s := strings.TrimSpace(*max)
	if s == "*" {
		v := Unbounded
		return &v
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// enumerationRef prefers the element-level reference. Reading
// binding.valueSet as a fallback goes beyond the raw element field, so R4
// definitions, which only carry the binding, still report a value set.
func enumerationRef(raw *load.Element) string {
	if raw.ValueSet != "" {
		return raw.ValueSet
	}
	if raw.Binding != nil {
		return raw.Binding.ValueSet
	}
	return ""
}

// bindingLabel returns the value of the last binding-name extension.
func bindingLabel(b *load.Binding) string {
	if b == nil {
		return ""
	}
	var label string
	for _, ext := range b.Extension {
		if ext != nil && ext.URL == fhir.BindingNameExtension {
			label = ext.ValueString
		}
	}
	return label
}

func documentation(raw *load.Element) string {
	if raw.Definition != "" {
		return raw.Definition
	}
	return raw.Short
}

func lastSegment(uri string) string {
	if i := strings.LastIndexByte(uri, '/'); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// contentRef strips everything up to and including '#'.
func contentRef(ref string) string {
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
