package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sutanuchaudhuri/fhir-server/compiler"
	"github.com/sutanuchaudhuri/fhir-server/compiler/gen"
	"github.com/sutanuchaudhuri/fhir-server/internal/cli/ui"
	"github.com/sutanuchaudhuri/fhir-server/internal/watch"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	var watchMode bool
	cmd := &cobra.Command{
		Use:   "generate <files or directories...>",
		Short: "Generate Go types from StructureDefinitions",
		Long: `Build the entity graph of the given sources and write one Go file per root
entity, plus a registry of resource types, into the target directory.

With --watch the sources are watched and the code is regenerated whenever
one of them changes, until interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			gc, err := s.genConfig()
			if err != nil {
				return err
			}
			if !watchMode {
				return runGenerate(cmd, s, gc, args)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchGenerate(ctx, cmd, s, gc, args)
		},
	}
	flags := cmd.Flags()
	flags.StringP("target", "t", "", "output directory (default ./fhirmodel)")
	flags.StringP("package", "p", "", "package name of the generated code (default fhirmodel)")
	flags.String("header", "", "header comment of generated files")
	flags.IntP("workers", "w", 0, "files rendered in parallel (default GOMAXPROCS)")
	flags.BoolVar(&watchMode, "watch", false, "regenerate when a source file changes")
	return cmd
}

// runGenerate runs the pipeline once and reports the result.
func runGenerate(cmd *cobra.Command, s *session, gc *gen.Config, paths []string) error {
	g, err := compiler.LoadGraph(cmd.Context(), gc, paths...)
	if err != nil {
		return err
	}
	generator, err := gen.NewGenerator(g, gc)
	if err != nil {
		return err
	}
	files, err := generator.Generate(cmd.Context())
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("Generated %d files in %s", len(files), gc.Target)
	if n := len(g.Warnings()); n > 0 {
		msg += fmt.Sprintf(" (%d warnings)", n)
	}
	ui.WriteSuccess(cmd.OutOrStdout(), msg, s.noColor)
	return nil
}

// watchGenerate generates once, then again on every debounced change of
// the sources until ctx is done. Failures while watching are reported and
// do not stop the watch.
func watchGenerate(ctx context.Context, cmd *cobra.Command, s *session, gc *gen.Config, paths []string) error {
	cmd.SetContext(ctx)
	report := func() {
		if err := runGenerate(cmd, s, gc, paths); err != nil {
			opts := errorMessage(err, s.noColor)
			ui.WriteMessage(cmd.ErrOrStderr(), opts)
		}
	}
	report()

	fw, err := watch.NewFileWatcher([]string{"*.json"}, nil, s.log, func(files []string) error {
		s.log.Info("sources changed", zap.Strings("files", files))
		report()
		return nil
	})
	if err != nil {
		return err
	}
	if err := fw.Add(paths...); err != nil {
		_ = fw.Stop()
		return err
	}
	ui.WriteMessage(cmd.OutOrStdout(), ui.MessageOptions{
		Level:   ui.LevelInfo,
		Problem: "Watching for changes, press Ctrl+C to stop",
		NoColor: s.noColor,
	})
	return fw.Run(ctx)
}
