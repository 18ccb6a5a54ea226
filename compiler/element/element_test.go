package element

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fhir "github.com/sutanuchaudhuri/fhir-server"
	"github.com/sutanuchaudhuri/fhir-server/compiler/load"
)

func str(s string) *string { return &s }
func num(n int) *int       { return &n }

func TestNormalize(t *testing.T) {
	require := require.New(t)
	el, err := Normalize(&load.Element{
		ID:         "Patient.name",
		Path:       str("Patient.name"),
		Short:      "A name",
		Definition: "A name associated with the patient.",
		Min:        num(0),
		Max:        str("*"),
		Type:       []*load.TypeRef{{Code: "HumanName"}},
	})
	require.NoError(err)
	require.Equal([]string{"Patient", "name"}, el.Path)
	require.Equal("name", el.Name())
	require.Equal("Patient", el.ParentPath())
	require.Equal("Patient.name", el.PathString())
	require.Equal("HumanName", el.DeclaredType)
	require.Equal(Leaf, el.Variant)
	require.True(el.Cardinality.Optional())
	require.True(el.Cardinality.IsList())
	require.Equal("0..*", el.Cardinality.String())
	require.Equal("A name associated with the patient.", el.Documentation)
	require.Empty(el.ReferenceTargets)
	require.Empty(el.EnumerationRef)
	require.Empty(el.BindingLabel)
}

func TestNormalizeMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  *load.Element
	}{
		{name: "nil record", raw: nil},
		{name: "missing path", raw: &load.Element{ID: "x"}},
		{name: "empty path", raw: &load.Element{ID: "x", Path: str("  ")}},
		{name: "empty segment", raw: &load.Element{ID: "x", Path: str("Patient..name")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el, err := Normalize(tt.raw)
			require.Nil(t, el)
			require.Error(t, err)
			require.True(t, errors.Is(err, fhir.ErrMalformedRecord))
			require.True(t, fhir.IsMalformedRecord(err))
		})
	}
}

func TestNormalizeCardinality(t *testing.T) {
	t.Run("absent minimum is distinguished from zero", func(t *testing.T) {
		absent, err := Normalize(&load.Element{Path: str("A.b"), Max: str("1"), Type: []*load.TypeRef{{Code: "string"}}})
		require.NoError(t, err)
		require.Nil(t, absent.Cardinality.Min)
		require.False(t, absent.Cardinality.Optional())
		require.Equal(t, "", absent.Cardinality.String())

		zero, err := Normalize(&load.Element{Path: str("A.b"), Min: num(0), Max: str("1"), Type: []*load.TypeRef{{Code: "string"}}})
		require.NoError(t, err)
		require.NotNil(t, zero.Cardinality.Min)
		require.Equal(t, 0, *zero.Cardinality.Min)
		require.True(t, zero.Cardinality.Optional())
		require.Equal(t, "0..1", zero.Cardinality.String())
	})

	t.Run("maximum", func(t *testing.T) {
		for _, tt := range []struct {
			max  *string
			want *int
			list bool
		}{
			{max: nil, want: nil},
			{max: str("*"), want: num(Unbounded), list: true},
			{max: str("1"), want: num(1)},
			{max: str("0"), want: num(0)},
			{max: str("3"), want: num(3)},
			{max: str("many"), want: nil},
			{max: str("-2"), want: nil},
		} {
			el, err := Normalize(&load.Element{Path: str("A"), Max: tt.max})
			require.NoError(t, err)
			require.Equal(t, tt.want, el.Cardinality.Max)
			require.Equal(t, tt.list, el.Cardinality.IsList())
		}
	})

	t.Run("negative minimum is absent", func(t *testing.T) {
		el, err := Normalize(&load.Element{Path: str("A"), Min: num(-1)})
		require.NoError(t, err)
		require.Nil(t, el.Cardinality.Min)
	})
}

func TestNormalizeVariants(t *testing.T) {
	root, err := Normalize(&load.Element{Path: str("Patient"), Definition: "Demographics."})
	require.NoError(t, err)
	assert.Equal(t, RootMarker, root.Variant)
	assert.False(t, root.HasType())
	assert.Equal(t, "", root.ParentPath())
	assert.Equal(t, "Demographics.", root.Documentation)

	bb, err := Normalize(&load.Element{Path: str("Patient.contact"), Type: []*load.TypeRef{{Code: fhir.BackboneElement}}})
	require.NoError(t, err)
	assert.Equal(t, Backbone, bb.Variant)

	// Element is only a back-bone code when configured.
	inline, err := Normalize(&load.Element{Path: str("Timing.repeat"), Type: []*load.TypeRef{{Code: fhir.ElementCode}}})
	require.NoError(t, err)
	assert.Equal(t, Leaf, inline.Variant)
	inline, err = NewNormalizer(fhir.BackboneElement, fhir.ElementCode).Normalize(&load.Element{Path: str("Timing.repeat"), Type: []*load.TypeRef{{Code: fhir.ElementCode}}})
	require.NoError(t, err)
	assert.Equal(t, Backbone, inline.Variant)

	ref, err := Normalize(&load.Element{Path: str("Questionnaire.item.item"), ContentReference: "#Questionnaire.item"})
	require.NoError(t, err)
	assert.Equal(t, ContentReference, ref.Variant)
	assert.Equal(t, "Questionnaire.item", ref.ContentRef)

	ref, err = Normalize(&load.Element{Path: str("X.y"), ContentReference: "http://hl7.org/fhir/StructureDefinition/X#X.z"})
	require.NoError(t, err)
	assert.Equal(t, "X.z", ref.ContentRef)

	assert.Equal(t, "leaf", Leaf.String())
	assert.Equal(t, "content-reference", ContentReference.String())
	assert.Equal(t, "variant(9)", Variant(9).String())
}

func TestNormalizeReferenceTargets(t *testing.T) {
	el, err := Normalize(&load.Element{
		Path: str("Observation.subject"),
		Type: []*load.TypeRef{
			{Code: "Reference", TargetProfile: load.Canonicals{
				"http://hl7.org/fhir/StructureDefinition/Patient",
				"http://hl7.org/fhir/StructureDefinition/Group",
			}},
			{Code: "Reference", TargetProfile: load.Canonicals{
				"http://hl7.org/fhir/StructureDefinition/Patient",
			}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Reference", el.DeclaredType)
	require.Equal(t, []string{"Patient", "Group", "Patient"}, el.ReferenceTargets)
	require.Equal(t, []string{"Reference", "Reference"}, el.TypeCodes)
}

func TestNormalizeChoiceType(t *testing.T) {
	el, err := Normalize(&load.Element{
		Path: str("Observation.value[x]"),
		Type: []*load.TypeRef{{Code: "Quantity"}, {Code: "string"}, {Code: "boolean"}},
	})
	require.NoError(t, err)
	require.Equal(t, "Quantity", el.DeclaredType)
	require.Equal(t, []string{"Quantity", "string", "boolean"}, el.TypeCodes)
}

func TestNormalizeBinding(t *testing.T) {
	t.Run("last matching extension wins", func(t *testing.T) {
		el, err := Normalize(&load.Element{
			Path: str("Patient.gender"),
			Type: []*load.TypeRef{{Code: "code"}},
			Binding: &load.Binding{
				ValueSet: "http://hl7.org/fhir/ValueSet/administrative-gender",
				Extension: []*load.Extension{
					{URL: fhir.BindingNameExtension, ValueString: "First"},
					{URL: "http://example.org/other", ValueString: "Ignored"},
					{URL: fhir.BindingNameExtension, ValueString: "Second"},
				},
			},
		})
		require.NoError(t, err)
		require.Equal(t, "Second", el.BindingLabel)
		require.Equal(t, "http://hl7.org/fhir/ValueSet/administrative-gender", el.EnumerationRef)
	})

	t.Run("element level value set wins over binding", func(t *testing.T) {
		el, err := Normalize(&load.Element{
			Path:     str("A.b"),
			ValueSet: "http://example.org/vs/element",
			Binding:  &load.Binding{ValueSet: "http://example.org/vs/binding"},
		})
		require.NoError(t, err)
		require.Equal(t, "http://example.org/vs/element", el.EnumerationRef)
		require.Empty(t, el.BindingLabel)
	})
}

func TestNormalizeDocumentation(t *testing.T) {
	el, err := Normalize(&load.Element{Path: str("A.b"), Short: "short text"})
	require.NoError(t, err)
	require.Equal(t, "short text", el.Documentation)

	el, err = Normalize(&load.Element{Path: str("A.b")})
	require.NoError(t, err)
	require.Equal(t, "", el.Documentation)
}
