package gen

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sutanuchaudhuri/fhir-server/compiler/load"
)

func questionnaireGraph(t *testing.T) *Graph {
	t.Helper()
	b, err := load.LoadFile("../load/testdata/fhir/profiles-resources.json")
	require.NoError(t, err)
	g, err := Build(nil, b)
	require.NoError(t, err)
	return g
}

func TestNewSnapshot(t *testing.T) {
	s := NewSnapshot(questionnaireGraph(t))
	assert.Equal(t, "../load/testdata/fhir/profiles-resources.json", s.Source)
	require.Len(t, s.Entities, 4)

	patient := s.Entities[0]
	assert.True(t, patient.Root)
	assert.Equal(t, "resource", patient.Kind)
	assert.Equal(t, "Patient", patient.Definition)

	contact := s.Entities[1]
	assert.False(t, contact.Root)
	assert.Equal(t, "nested", contact.Kind)
	assert.Equal(t, "Patient", contact.Parent)

	gp := patient.Properties[4]
	assert.Equal(t, "generalPractitioner", gp.Name)
	assert.Equal(t, "reference", gp.Kind)
	assert.Equal(t, "*", gp.Max)
	require.NotNil(t, gp.Min)
	assert.Equal(t, 0, *gp.Min)

	item := s.Entities[3]
	assert.Equal(t, "Questionnaire.item", item.Path)
	assert.Equal(t, "Questionnaire.item", item.Properties[1].Nested)
	assert.True(t, item.Properties[1].ContentReference)
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := questionnaireGraph(t)
	want := NewSnapshot(g)
	for _, format := range Formats {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, want.Encode(&buf, format))
			got, err := DecodeSnapshot(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			rebuilt := got.Graph()
			assert.Equal(t, want, NewSnapshot(rebuilt))
			item, ok := rebuilt.Lookup("Questionnaire.item")
			require.True(t, ok)
			assert.Same(t, item, item.Properties[1].Nested)
			contact, ok := rebuilt.Lookup("Patient.contact")
			require.True(t, ok)
			assert.Equal(t, "Patient", contact.Parent.Path)
		})
	}
}

func TestSnapshotUnknownFormat(t *testing.T) {
	s := &Snapshot{}
	err := s.Encode(&bytes.Buffer{}, "xml")
	assert.True(t, errors.Is(err, ErrSnapshotFormat))
	_, err = DecodeSnapshot(&bytes.Buffer{}, "toml")
	assert.True(t, errors.Is(err, ErrSnapshotFormat))
	_, err = DecodeSnapshot(bytes.NewBufferString("{"), FormatJSON)
	assert.Error(t, err)
}
