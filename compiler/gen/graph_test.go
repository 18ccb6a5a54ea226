package gen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fhir "github.com/sutanuchaudhuri/fhir-server"
	"github.com/sutanuchaudhuri/fhir-server/compiler/load"
)

func TestMerge(t *testing.T) {
	resources := build(t, nil, resource("Patient",
		rec("Patient", "", -1, ""),
		rec("Patient.contact", fhir.BackboneElement, 0, "*"),
		rec("Patient.link.other", "Reference", 1, "1"),
	))
	types := build(t, nil,
		&load.Definition{Name: "HumanName", Kind: fhir.KindComplexType, Elements: []*load.Element{
			rec("HumanName", "", -1, ""),
			rec("HumanName.family", "string", 0, "1"),
		}},
		resource("Patient", rec("Patient", "", -1, "")),
	)

	m := Merge(resources, nil, types)
	assert.Empty(t, m.Source)
	require.Len(t, m.Roots, 3)
	assert.Equal(t, []string{"Patient", "HumanName", "Patient"}, []string{m.Roots[0].Path, m.Roots[1].Path, m.Roots[2].Path})
	assert.Len(t, m.Nodes, 4)
	assert.Len(t, m.Diagnostics, 1)

	patient, ok := m.Lookup("Patient")
	require.True(t, ok)
	assert.Same(t, resources.Roots[0], patient)

	_, ok = m.Lookup("HumanName")
	assert.True(t, ok)
	_, ok = m.Lookup("Patient.contact")
	assert.True(t, ok)
}

func TestGraphWalk(t *testing.T) {
	g := build(t, nil,
		resource("Patient",
			rec("Patient", "", -1, ""),
			rec("Patient.contact", fhir.BackboneElement, 0, "*"),
			rec("Patient.contact.detail", fhir.BackboneElement, 0, "1"),
			rec("Patient.link", fhir.BackboneElement, 0, "*"),
		),
		resource("Orphan",
			rec("Orphan.part", fhir.BackboneElement, 0, "1"),
		),
	)

	var paths []string
	require.NoError(t, g.Walk(func(e *Entity) error {
		paths = append(paths, e.Path)
		return nil
	}))
	assert.Equal(t, []string{"Patient", "Patient.contact", "Patient.contact.detail", "Patient.link", "Orphan.part"}, paths)

	orphan, ok := g.Lookup("Orphan.part")
	require.True(t, ok)
	assert.Nil(t, orphan.Parent)
	assert.Len(t, g.Warnings(), 1)

	stop := errors.New("stop")
	var visited int
	err := g.Walk(func(e *Entity) error {
		visited++
		if e.Path == "Patient.contact" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, visited)
}

func TestKindStrings(t *testing.T) {
	assert.Equal(t, "resource", KindResource.String())
	assert.Equal(t, "nested", KindNested.String())
	assert.Equal(t, "unknown", EntityKind(9).String())
	assert.Equal(t, "reference", PropertyReference.String())
	assert.Equal(t, "unknown", PropertyKind(9).String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "info", SeverityInfo.String())
}

func TestPropertyKind(t *testing.T) {
	tests := []struct {
		code     string
		expected PropertyKind
	}{
		{"boolean", PropertyPrimitive},
		{"dateTime", PropertyPrimitive},
		{fhir.SystemTypePrefix + "String", PropertyPrimitive},
		{"HumanName", PropertyComplex},
		{"Reference", PropertyReference},
		{"", PropertyComplex},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, propertyKind(tt.code))
		})
	}
}

func TestDiagnosticString(t *testing.T) {
	d := &Diagnostic{Severity: SeverityWarning, Code: CodeUnresolvedParent, Path: "A.b.c", Message: "parent A.b is not registered"}
	assert.Equal(t, "warning [unresolved-parent] A.b.c: parent A.b is not registered", d.String())
	d = &Diagnostic{Severity: SeverityInfo, Code: CodeEmptyDefinition, Message: "definition has no elements"}
	assert.Equal(t, "info [empty-definition] definition has no elements", d.String())
	assert.EqualError(t, d.Err(), "empty-definition: definition has no elements")
}
