package compiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fhir "github.com/sutanuchaudhuri/fhir-server"
	"github.com/sutanuchaudhuri/fhir-server/compiler/gen"
)

const (
	resources = "load/testdata/fhir/profiles-resources.json"
	types     = "load/testdata/fhir/profiles-types.json"
)

func TestLoadGraph(t *testing.T) {
	g, err := LoadGraph(context.Background(), nil, resources, types)
	require.NoError(t, err)

	var roots []string
	for _, r := range g.Roots {
		roots = append(roots, r.Path)
	}
	assert.Equal(t, []string{"Patient", "Questionnaire", "HumanName", "Timing"}, roots)
	assert.Len(t, g.Nodes, 6)

	// Timing.repeat.count has no parent unless Element is a back-bone code.
	require.Len(t, g.Warnings(), 1)
	assert.Equal(t, gen.CodeUnresolvedParent, g.Warnings()[0].Code)

	cfg := gen.MustNewConfig(gen.WithBackboneCodes(fhir.BackboneElement, fhir.ElementCode))
	g, err = LoadGraph(context.Background(), cfg, resources, types)
	require.NoError(t, err)
	assert.Empty(t, g.Warnings())
	assert.Len(t, g.Nodes, 7)
}

func TestLoadGraphErrors(t *testing.T) {
	_, err := LoadGraph(context.Background(), nil, "load/testdata/fhir/missing.json")
	require.Error(t, err)

	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"resourceType":"StructureDefinition","name":"B","snapshot":{"element":[{"id":"B.x"}]}}`), 0o644))
	_, err = LoadGraph(context.Background(), nil, broken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fhir.ErrMalformedRecord))
	assert.Contains(t, err.Error(), "build "+broken)

	g, err := LoadGraph(context.Background(), gen.MustNewConfig(gen.WithSkipMalformed(true)), broken)
	require.NoError(t, err)
	assert.Len(t, g.Warnings(), 1)
}

func TestGenerate(t *testing.T) {
	target := t.TempDir()
	cfg := gen.MustNewConfig(gen.WithTarget(target), gen.WithPackage("model"))
	files, err := Generate(context.Background(), cfg, resources, types)
	require.NoError(t, err)
	assert.Equal(t, []string{"patient.go", "questionnaire.go", "human_name.go", "timing.go", gen.RegistryFile}, files)
	for _, f := range files {
		_, err := os.Stat(filepath.Join(target, f))
		assert.NoError(t, err, f)
	}

	_, err = Generate(context.Background(), gen.MustNewConfig(), resources)
	assert.True(t, gen.IsConfigError(err))
}

func TestBuildGraphsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadGraph(ctx, nil, resources)
	assert.ErrorIs(t, err, context.Canceled)
}
