// Package config loads fhirgen settings from fhirgen.yaml, FHIRGEN_*
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	fhir "github.com/sutanuchaudhuri/fhir-server"
	"github.com/sutanuchaudhuri/fhir-server/compiler/gen"
)

// EnvPrefix is the prefix of the environment variables read by Load.
const EnvPrefix = "FHIRGEN"

// Config represents the fhirgen configuration.
type Config struct {
	Target        string   `mapstructure:"target"`
	Package       string   `mapstructure:"package"`
	Header        string   `mapstructure:"header"`
	Workers       int      `mapstructure:"workers"`
	BackboneCodes []string `mapstructure:"backbone_codes"`
	Duplicates    string   `mapstructure:"duplicates"`
	SkipMalformed bool     `mapstructure:"skip_malformed"`
	LogLevel      string   `mapstructure:"log_level"`
}

// flagKeys maps configuration keys to the flag names that override them.
var flagKeys = map[string]string{
	"target":         "target",
	"package":        "package",
	"header":         "header",
	"workers":        "workers",
	"backbone_codes": "backbone",
	"duplicates":     "duplicates",
	"skip_malformed": "skip-malformed",
	"log_level":      "log-level",
}

// Load reads the configuration. When file is empty, fhirgen.yaml (or .yml)
// is looked up in the working directory and its absence is not an error.
// Flags that were set on the command line override the file and the
// environment.
func Load(file string, flags ...*pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("target", "./fhirmodel")
	v.SetDefault("package", gen.DefaultPackage)
	v.SetDefault("header", gen.DefaultHeader)
	v.SetDefault("workers", runtime.GOMAXPROCS(0))
	v.SetDefault("backbone_codes", []string{fhir.BackboneElement})
	v.SetDefault("duplicates", gen.Overwrite.String())
	v.SetDefault("skip_malformed", false)
	v.SetDefault("log_level", "info")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("fhirgen")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("log_level", EnvPrefix+"_LOG_LEVEL", "LOG_LEVEL"); err != nil {
		return nil, err
	}

	for _, fs := range flags {
		if fs == nil {
			continue
		}
		for key, name := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that have a closed set of choices.
func (c *Config) Validate() error {
	if _, err := gen.ParseDuplicatePolicy(c.Duplicates); err != nil {
		return err
	}
	if _, ok := ParseLevel(c.LogLevel); !ok {
		return gen.NewConfigError("LogLevel", c.LogLevel, "must be one of debug, info, warn, error")
	}
	return nil
}

// Options translates the configuration into generator options.
func (c *Config) Options(logger *zap.Logger) ([]gen.Option, error) {
	policy, err := gen.ParseDuplicatePolicy(c.Duplicates)
	if err != nil {
		return nil, err
	}
	opts := []gen.Option{
		gen.WithHeader(c.Header),
		gen.WithDuplicatePolicy(policy),
		gen.WithSkipMalformed(c.SkipMalformed),
	}
	if c.Target != "" {
		opts = append(opts, gen.WithTarget(c.Target))
	}
	if c.Package != "" {
		opts = append(opts, gen.WithPackage(c.Package))
	}
	if c.Workers > 0 {
		opts = append(opts, gen.WithWorkers(c.Workers))
	}
	if codes := c.backboneCodes(); len(codes) > 0 {
		opts = append(opts, gen.WithBackboneCodes(codes...))
	}
	if logger != nil {
		opts = append(opts, gen.WithLogger(logger))
	}
	return opts, nil
}

// GenConfig builds the generator configuration.
func (c *Config) GenConfig(logger *zap.Logger) (*gen.Config, error) {
	opts, err := c.Options(logger)
	if err != nil {
		return nil, err
	}
	return gen.NewConfig(opts...)
}

// backboneCodes flattens comma-separated entries coming from the
// environment.
func (c *Config) backboneCodes() []string {
	var codes []string
	for _, entry := range c.BackboneCodes {
		for _, code := range strings.Split(entry, ",") {
			if code = strings.TrimSpace(code); code != "" {
				codes = append(codes, code)
			}
		}
	}
	return codes
}
