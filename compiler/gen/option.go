package gen

import (
	"errors"
	"go/token"
	"path/filepath"
	"runtime"
	"strings"
	"unicode"

	"go.uber.org/zap"

	fhir "github.com/sutanuchaudhuri/fhir-server"
)

// DuplicatePolicy decides what happens when an entity is registered at a
// path that is already taken.
type DuplicatePolicy uint8

const (
	// Overwrite replaces the indexed entity with the new one.
	Overwrite DuplicatePolicy = iota
	// KeepFirst keeps the first entity indexed; the later element re-uses it.
	KeepFirst
	// Reject drops the later element.
	Reject
)

var policyNames = [...]string{
	Overwrite: "overwrite",
	KeepFirst: "keep-first",
	Reject:    "reject",
}

// String returns the policy name.
func (p DuplicatePolicy) String() string {
	if int(p) < len(policyNames) {
		return policyNames[p]
	}
	return "unknown"
}

// ParseDuplicatePolicy returns the policy with the given name.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	for i, name := range policyNames {
		if strings.EqualFold(s, name) {
			return DuplicatePolicy(i), nil
		}
	}
	return Overwrite, NewConfigError("Duplicates", s, "unknown policy; use overwrite, keep-first, or reject")
}

// Config holds the builder and generator settings.
type Config struct {
	// Target is the output directory of the generated code.
	Target string
	// Package is the Go package name of the generated code. Defaults to
	// the base name of Target.
	Package string
	// Header is written at the top of every generated file.
	Header string
	// Workers bounds the number of files rendered in parallel.
	Workers int
	// Logger receives element events and warnings.
	Logger *zap.Logger
	// BackboneCodes are the type codes promoted to nested entities.
	BackboneCodes []string
	// Duplicates is the duplicate registration policy.
	Duplicates DuplicatePolicy
	// SkipMalformed skips records without a path instead of failing.
	SkipMalformed bool
}

// DefaultHeader is the header of generated files.
const DefaultHeader = "Code generated by fhirgen. DO NOT EDIT."

// Option configures code generation.
type Option func(*Config) error

// WithTarget sets the output directory.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithPackage sets the output package name.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if pkg == "" {
			return NewConfigError("Package", nil, "package cannot be empty")
		}
		if !isPackageName(pkg) {
			return NewConfigError("Package", pkg, "package must be a plain Go identifier")
		}
		c.Package = pkg
		return nil
	}
}

// WithHeader sets the file header comment.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithWorkers sets the number of parallel workers.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// WithBackboneCodes replaces the set of type codes promoted to nested
// entities.
func WithBackboneCodes(codes ...string) Option {
	return func(c *Config) error {
		if len(codes) == 0 {
			return NewConfigError("BackboneCodes", nil, "at least one code is required")
		}
		for _, code := range codes {
			if code == "" {
				return NewConfigError("BackboneCodes", codes, "codes cannot be empty")
			}
		}
		c.BackboneCodes = append([]string(nil), codes...)
		return nil
	}
}

// WithDuplicatePolicy sets the duplicate registration policy.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(c *Config) error {
		if int(p) >= len(policyNames) {
			return NewConfigError("Duplicates", p, "unknown policy")
		}
		c.Duplicates = p
		return nil
	}
}

// WithSkipMalformed makes the builder skip records without a path and
// report them as diagnostics.
func WithSkipMalformed(skip bool) Option {
	return func(c *Config) error {
		c.SkipMalformed = skip
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PackageName returns Package, or the base name of Target made into a Go
// identifier. It falls back to DefaultPackage when the base name cannot be
// used, as for "." or "001".
func (c *Config) PackageName() string {
	if c.Package != "" {
		return c.Package
	}
	if c.Target == "" {
		return DefaultPackage
	}
	name := strings.Map(func(r rune) rune {
		switch {
		case r == '_', unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case r == '-', r == '.', r == ' ':
			return '_'
		}
		return -1
	}, filepath.Base(c.Target))
	name = strings.Trim(name, "_")
	if !isPackageName(name) {
		return DefaultPackage
	}
	return name
}

// DefaultPackage is the package name used when none can be derived.
const DefaultPackage = "fhirmodel"

func isPackageName(name string) bool {
	return token.IsIdentifier(name) && name != "_"
}

// NewConfig creates a new Config with the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Header:        DefaultHeader,
		Workers:       runtime.GOMAXPROCS(0),
		Logger:        zap.NewNop(),
		BackboneCodes: []string{fhir.BackboneElement},
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}
