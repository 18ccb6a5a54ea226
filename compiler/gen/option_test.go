package gen

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	fhir "github.com/sutanuchaudhuri/fhir-server"
)

func TestNewConfigDefaults(t *testing.T) {
	c, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultHeader, c.Header)
	assert.Equal(t, runtime.GOMAXPROCS(0), c.Workers)
	assert.NotNil(t, c.Logger)
	assert.Equal(t, []string{fhir.BackboneElement}, c.BackboneCodes)
	assert.Equal(t, Overwrite, c.Duplicates)
	assert.False(t, c.SkipMalformed)
	assert.Equal(t, "fhirmodel", c.PackageName())
}

func TestWithHeader(t *testing.T) {
	t.Run("sets header", func(t *testing.T) {
		c := &Config{}
		err := WithHeader("Custom header")(c)

		require.NoError(t, err)
		assert.Equal(t, "Custom header", c.Header)
	})

	t.Run("empty header is allowed", func(t *testing.T) {
		c := &Config{Header: "existing"}
		err := WithHeader("")(c)

		require.NoError(t, err)
		assert.Equal(t, "", c.Header)
	})
}

func TestWithTargetAndPackage(t *testing.T) {
	c := &Config{}
	require.NoError(t, WithTarget("./out/fhir-model")(c))
	assert.Equal(t, "fhir_model", c.PackageName())

	require.NoError(t, WithPackage("model")(c))
	assert.Equal(t, "model", c.PackageName())

	assert.True(t, IsConfigError(WithTarget("")(c)))
	assert.True(t, IsConfigError(WithPackage("")(c)))
	assert.True(t, IsConfigError(WithPackage("github.com/x/model")(c)))
	assert.True(t, IsConfigError(WithPackage("001")(c)))
	assert.True(t, IsConfigError(WithPackage("type")(c)))
}

func TestPackageNameFromTarget(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"out/model", "model"},
		{"out/FHIR-Model", "fhir_model"},
		{"out/v1.2", "v1_2"},
		{"out/001", DefaultPackage},
		{".", DefaultPackage},
		{"/", DefaultPackage},
		{"out/type", DefaultPackage},
		{"out/__", DefaultPackage},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			c := &Config{Target: tt.target}
			assert.Equal(t, tt.want, c.PackageName())
		})
	}
}

func TestWithWorkers(t *testing.T) {
	c := &Config{}
	require.NoError(t, WithWorkers(4)(c))
	assert.Equal(t, 4, c.Workers)
	assert.True(t, IsConfigError(WithWorkers(0)(c)))
}

func TestWithLogger(t *testing.T) {
	c := &Config{}
	l := zap.NewExample()
	require.NoError(t, WithLogger(l)(c))
	assert.Same(t, l, c.Logger)
	assert.True(t, IsConfigError(WithLogger(nil)(c)))
}

func TestWithBackboneCodes(t *testing.T) {
	c := &Config{}
	codes := []string{fhir.BackboneElement, fhir.ElementCode}
	require.NoError(t, WithBackboneCodes(codes...)(c))
	assert.Equal(t, codes, c.BackboneCodes)

	codes[0] = "changed"
	assert.Equal(t, fhir.BackboneElement, c.BackboneCodes[0])

	assert.True(t, IsConfigError(WithBackboneCodes()(c)))
	assert.True(t, IsConfigError(WithBackboneCodes("")(c)))
}

func TestDuplicatePolicy(t *testing.T) {
	tests := []struct {
		input    string
		expected DuplicatePolicy
		wantErr  bool
	}{
		{"overwrite", Overwrite, false},
		{"keep-first", KeepFirst, false},
		{"REJECT", Reject, false},
		{"merge", Overwrite, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParseDuplicatePolicy(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
		})
	}

	assert.Equal(t, "keep-first", KeepFirst.String())
	assert.Equal(t, "unknown", DuplicatePolicy(7).String())

	c := &Config{}
	require.NoError(t, WithDuplicatePolicy(Reject)(c))
	assert.Equal(t, Reject, c.Duplicates)
	assert.True(t, IsConfigError(WithDuplicatePolicy(DuplicatePolicy(7))(c)))
}

func TestApply(t *testing.T) {
	t.Run("stops at first error", func(t *testing.T) {
		c := &Config{}
		err := c.Apply(WithWorkers(0), WithTarget("out"))
		require.Error(t, err)
		assert.Empty(t, c.Target)
	})

	t.Run("ApplyAll collects every error", func(t *testing.T) {
		c := &Config{}
		err := c.ApplyAll(WithWorkers(0), WithTarget("out"), WithPackage(""))
		require.Error(t, err)
		assert.Equal(t, "out", c.Target)
		assert.Contains(t, err.Error(), "Workers")
		assert.Contains(t, err.Error(), "Package")
	})

	t.Run("NewConfig returns the option error", func(t *testing.T) {
		c, err := NewConfig(WithSkipMalformed(true), WithWorkers(-1))
		require.Error(t, err)
		assert.Nil(t, c)
		assert.Panics(t, func() { MustNewConfig(WithWorkers(-1)) })
	})
}
