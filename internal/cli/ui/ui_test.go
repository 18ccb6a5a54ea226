package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"path", "type"}, &TableOptions{NoColor: true})
	table.AddRow("Patient.active", "boolean")
	table.AddRow("Patient.name", "HumanName")
	assert.Equal(t, 2, table.Len())
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "path            type", lines[0])
	assert.Equal(t, strings.Repeat("─", 14)+"  "+strings.Repeat("─", 9), lines[1])
	assert.Equal(t, "Patient.active  boolean", lines[2])
	assert.Equal(t, "Patient.name    HumanName", lines[3])
}

func TestTableRenderPlain(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"id", "path", "cardinality"}, &TableOptions{Plain: true})
	table.AddRow("Patient.active", "Patient.active", "0..1")
	table.AddRow("Patient", "Patient", "")
	table.RenderPlain()
	assert.Equal(t, "id | path | cardinality\nPatient.active | Patient.active | 0..1\nPatient | Patient | \n", buf.String())
}

func TestTableNoHeaders(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, nil, nil).Render()
	assert.Empty(t, buf.String())
}

func TestRenderTree(t *testing.T) {
	patient := &TreeNode{Label: "Patient", Detail: "(resource)"}
	contact := patient.Add("contact", "PatientContact 0..*")
	contact.Add("name", "HumanName 0..1")
	patient.Add("active", "boolean 0..1")
	other := &TreeNode{Label: "HumanName"}

	var buf bytes.Buffer
	RenderTree(&buf, []*TreeNode{patient, other}, true)
	want := strings.Join([]string{
		"Patient (resource)",
		"├── contact PatientContact 0..*",
		"│   └── name HumanName 0..1",
		"└── active boolean 0..1",
		"HumanName",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage(MessageOptions{
		Context:      "generation failed",
		Problem:      "render patient.go",
		Details:      []string{"unknown type"},
		HelpCommands: []string{"Get help: fhirgen generate --help"},
		NoColor:      true,
	})
	assert.Equal(t, "✗ GENERATION FAILED: render patient.go\n   unknown type\n\n   → Get help: fhirgen generate --help\n", msg)

	msg = FormatMessage(MessageOptions{Level: LevelInfo, Problem: "watching", NoColor: true})
	assert.Equal(t, "i watching\n", msg)

	assert.Equal(t, "✓ done", FormatSuccess("done", true))
}
