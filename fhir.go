// Package fhir holds the identifiers shared by the loader, the record
// normalizer and the hierarchy builder: well-known FHIR codes and URLs,
// definition kinds, and the record-level error taxonomy.
//
// The pipeline built on top of it is:
//
//	FHIR JSON (Bundle / StructureDefinition)
//	        ↓ compiler/load
//	raw element records, grouped by definition
//	        ↓ compiler/element
//	normalized elements (path, cardinality, type, targets, binding)
//	        ↓ compiler/gen
//	entity forest (roots, nested back-bone entities, typed properties)
//	        ↓ compiler/gen.Generator
//	Go source files
package fhir

// BackboneElement is the type code FHIR uses for inline, anonymous
// nested structures declared inside a resource.
const BackboneElement = "BackboneElement"

// ElementCode is the type code used for inline structures inside
// complex data types (e.g. Timing.repeat).
const ElementCode = "Element"

// ReferenceCode is the type code of a reference to another resource.
const ReferenceCode = "Reference"

// BindingNameExtension is the extension URL that carries the human-readable
// name of a value-set binding.
const BindingNameExtension = "http://hl7.org/fhir/StructureDefinition/elementdefinition-bindingName"

// SystemTypePrefix prefixes the FHIRPath system types used for primitive
// values (e.g. the type of Resource.id).
const SystemTypePrefix = "http://hl7.org/fhirpath/System."

// Definition kinds as declared by StructureDefinition.kind.
const (
	KindResource      = "resource"
	KindComplexType   = "complex-type"
	KindPrimitiveType = "primitive-type"
	KindLogical       = "logical"
)

// Resource types recognized in input documents.
const (
	ResourceTypeBundle              = "Bundle"
	ResourceTypeStructureDefinition = "StructureDefinition"
)
