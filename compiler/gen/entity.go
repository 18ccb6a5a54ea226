package gen

import (
	"strings"
	"unicode"

	fhir "github.com/sutanuchaudhuri/fhir-server"
	"github.com/sutanuchaudhuri/fhir-server/compiler/element"
)

// EntityKind classifies an Entity.
type EntityKind uint8

const (
	// KindOther is a root declared by a definition that is neither a
	// resource nor a complex type (primitive types, logical models).
	KindOther EntityKind = iota
	// KindResource is a top-level resource.
	KindResource
	// KindComplexType is a top-level complex data type.
	KindComplexType
	// KindNested is a back-bone composite declared inside another entity.
	KindNested
)

var entityKindNames = [...]string{
	KindOther:       "other",
	KindResource:    "resource",
	KindComplexType: "complex-type",
	KindNested:      "nested",
}

// String returns the kind name.
func (k EntityKind) String() string {
	if int(k) < len(entityKindNames) {
		return entityKindNames[k]
	}
	return "unknown"
}

// entityKind maps a StructureDefinition kind to an EntityKind.
func entityKind(defKind string) EntityKind {
	switch defKind {
	case fhir.KindResource:
		return KindResource
	case fhir.KindComplexType:
		return KindComplexType
	default:
		return KindOther
	}
}

// Entity is a named composite type.
type Entity struct {
	// Name is the definition name for roots and the element name for
	// nested entities.
	Name string
	// Kind of the entity.
	Kind EntityKind
	// Path is the structural path the entity was declared at. It is the
	// lookup key of the entity.
	Path string
	// Doc is the documentation of the declaring element.
	Doc string
	// Definition names the definition that declared the entity.
	Definition string
	// Parent is the declaring entity, nil for roots and for nested
	// entities whose parent was never registered.
	Parent *Entity
	// Properties in declaration order.
	Properties []*Property

	children []*Entity
}

// IsRoot reports whether the entity is a top-level definition.
func (e *Entity) IsRoot() bool {
	return e.Kind != KindNested
}

// Segments returns the structural path split on dots.
func (e *Entity) Segments() []string {
	return strings.Split(e.Path, ".")
}

// Children returns the nested entities declared directly under e, in
// creation order.
func (e *Entity) Children() []*Entity {
	return e.children
}

// Property returns the first property with the given name.
func (e *Entity) Property(name string) (*Property, bool) {
	for _, p := range e.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Walk calls fn for e and every entity nested under it, depth first in
// creation order. Walking stops at the first error.
func (e *Entity) Walk(fn func(*Entity) error) error {
	if err := fn(e); err != nil {
		return err
	}
	for _, c := range e.children {
		if err := c.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

func (e *Entity) adopt(child *Entity) {
	child.Parent = e
	e.children = append(e.children, child)
}

// PropertyKind classifies the type of a Property.
type PropertyKind uint8

const (
	// PropertyPrimitive is a FHIR primitive or FHIRPath system type.
	PropertyPrimitive PropertyKind = iota
	// PropertyComplex is a named complex data type or resource.
	PropertyComplex
	// PropertyReference is a reference to other resources.
	PropertyReference
	// PropertyNested points to a nested entity.
	PropertyNested
	// PropertyUnresolved is a content reference to an unknown path.
	PropertyUnresolved
)

var propertyKindNames = [...]string{
	PropertyPrimitive:  "primitive",
	PropertyComplex:    "complex",
	PropertyReference:  "reference",
	PropertyNested:     "nested",
	PropertyUnresolved: "unresolved",
}

// String returns the kind name.
func (k PropertyKind) String() string {
	if int(k) < len(propertyKindNames) {
		return propertyKindNames[k]
	}
	return "unknown"
}

// Property is one field of an entity.
type Property struct {
	// Name is the element name.
	Name string
	// Path is the structural path of the element.
	Path string
	// Type is the declared type code. For content references it is the
	// referenced path.
	Type string
	// Kind classifies Type.
	Kind PropertyKind
	// Nested is the entity a back-bone or content-reference property
	// points to.
	Nested *Entity
	// ContentReference is set when the property re-uses a structure
	// declared elsewhere.
	ContentReference bool
	// Optional is true iff the minimum cardinality is explicitly zero.
	Optional bool
	// IsList is true iff the maximum cardinality is unbounded.
	IsList bool
	// Cardinality as found in the element.
	Cardinality element.Cardinality
	// ReferenceTargets names the entities a reference may point to.
	ReferenceTargets []string
	// EnumerationRef is the value-set reference.
	EnumerationRef string
	// BindingLabel is the human-readable name of the binding.
	BindingLabel string
	// Doc is the documentation of the element.
	Doc string
	// Choices lists the distinct type codes of a choice element (value[x]).
	Choices []string
}

// IsChoice reports whether the property admits several types.
func (p *Property) IsChoice() bool {
	return len(p.Choices) > 1
}

func newProperty(el *element.Element) *Property {
	p := &Property{
		Name:             el.Name(),
		Path:             el.PathString(),
		Type:             el.DeclaredType,
		Kind:             propertyKind(el.DeclaredType),
		Optional:         el.Cardinality.Optional(),
		IsList:           el.Cardinality.IsList(),
		Cardinality:      el.Cardinality,
		ReferenceTargets: el.ReferenceTargets,
		EnumerationRef:   el.EnumerationRef,
		BindingLabel:     el.BindingLabel,
		Doc:              el.Documentation,
	}
	if codes := distinct(el.TypeCodes); len(codes) > 1 {
		p.Choices = codes
	}
	return p
}

func distinct(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	var out []string
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// propertyKind classifies a type code: FHIR primitives start with a lower
// case letter.
func propertyKind(code string) PropertyKind {
	switch {
	case code == fhir.ReferenceCode:
		return PropertyReference
	case strings.HasPrefix(code, fhir.SystemTypePrefix):
		return PropertyPrimitive
	case code != "" && unicode.IsLower([]rune(code)[0]):
		return PropertyPrimitive
	default:
		return PropertyComplex
	}
}
