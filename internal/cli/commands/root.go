// Package commands implements the fhirgen command line.
package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	fhir "github.com/sutanuchaudhuri/fhir-server"
	"github.com/sutanuchaudhuri/fhir-server/compiler/gen"
	"github.com/sutanuchaudhuri/fhir-server/internal/cli/config"
	"github.com/sutanuchaudhuri/fhir-server/internal/cli/ui"
)

var (
	// Version information, set at build time.
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fhirgen",
		Short: "Build entity hierarchies from FHIR StructureDefinitions",
		Long: color.CyanString(`fhirgen - FHIR StructureDefinition hierarchy builder

fhirgen reads FHIR StructureDefinition bundles (profiles-resources.json,
profiles-types.json or single definitions), reconstructs the nested entity
hierarchy of every definition and generates Go types from it.`) + `

Examples:
  fhirgen inspect --plain profiles-resources.json
  fhirgen tree profiles-resources.json
  fhirgen graph --format yaml profiles-types.json
  fhirgen generate --target ./fhirmodel profiles-resources.json profiles-types.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default ./fhirgen.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	flags.Bool("no-color", false, "disable colored output")
	flags.StringSlice("backbone", nil, "type codes promoted to nested entities")
	flags.String("duplicates", "", "duplicate path policy: overwrite, keep-first, reject")
	flags.Bool("skip-malformed", false, "skip records without a path instead of failing")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewInspectCommand())
	rootCmd.AddCommand(NewTreeCommand())
	rootCmd.AddCommand(NewGraphCommand())
	rootCmd.AddCommand(NewGenerateCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		noColor, _ := rootCmd.PersistentFlags().GetBool("no-color")
		ui.WriteMessage(rootCmd.ErrOrStderr(), errorMessage(err, noColor))
		return err
	}
	return nil
}

// errorMessage classifies err for display.
func errorMessage(err error, noColor bool) ui.MessageOptions {
	opts := ui.MessageOptions{Problem: err.Error(), NoColor: noColor}
	switch {
	case gen.IsConfigError(err):
		opts.Context = "configuration error"
		opts.HelpCommands = []string{"Get help: fhirgen --help"}
	case fhir.IsMalformedRecord(err):
		opts.Context = "malformed record"
		opts.HelpCommands = []string{"Skip malformed records: --skip-malformed"}
	case gen.IsGenerationError(err):
		opts.Context = "generation failed"
		opts.HelpCommands = []string{"Inspect the entity graph: fhirgen tree <files...>"}
	}
	return opts
}

// session carries what every command needs once flags are parsed.
type session struct {
	cfg     *config.Config
	log     *zap.Logger
	noColor bool
}

// newSession loads the configuration for cmd and builds its logger.
func newSession(cmd *cobra.Command) (*session, error) {
	file, _ := cmd.Flags().GetString("config")
	noColor, _ := cmd.Flags().GetBool("no-color")
	cfg, err := config.Load(file, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if noColor {
		color.NoColor = true
	}
	return &session{
		cfg:     cfg,
		log:     config.NewLogger(cfg.LogLevel, cmd.ErrOrStderr()),
		noColor: noColor,
	}, nil
}

// genConfig returns the generator configuration of the session.
func (s *session) genConfig() (*gen.Config, error) {
	return s.cfg.GenConfig(s.log)
}
