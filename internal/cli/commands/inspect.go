package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	fhir "github.com/sutanuchaudhuri/fhir-server"
	"github.com/sutanuchaudhuri/fhir-server/compiler/element"
	"github.com/sutanuchaudhuri/fhir-server/compiler/load"
	"github.com/sutanuchaudhuri/fhir-server/internal/cli/ui"
)

// InspectHeaders are the columns of the inspection table.
var InspectHeaders = []string{"id", "path", "cardinality", "type", "referenced_type", "value_set", "binding_name"}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "inspect <files or directories...>",
		Short: "Print the normalized elements of every definition",
		Long: `Print one row per element with its id, path, cardinality, declared type,
referenced types, value set and binding name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			return runInspect(cmd, s, args, plain)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "pipe-separated output without alignment")
	return cmd
}

func runInspect(cmd *cobra.Command, s *session, paths []string, plain bool) error {
	gc, err := s.genConfig()
	if err != nil {
		return err
	}
	bundles, err := load.LoadPaths(cmd.Context(), gc.Workers, paths...)
	if err != nil {
		return err
	}
	norm := element.NewNormalizer(gc.BackboneCodes...)
	table := ui.NewTable(cmd.OutOrStdout(), InspectHeaders, &ui.TableOptions{NoColor: s.noColor, Plain: plain})
	for _, b := range bundles {
		for _, def := range b.Definitions {
			for i, raw := range def.Elements {
				el, err := norm.Normalize(raw)
				if err != nil {
					var mre *fhir.MalformedRecordError
					if errors.As(err, &mre) {
						mre.Index = i
					}
					if !gc.SkipMalformed {
						return fmt.Errorf("%s: definition %s: %w", b.Source, def.DisplayName(), err)
					}
					s.log.Warn("skipping malformed record", zap.String("definition", def.DisplayName()), zap.Error(err))
					continue
				}
				table.AddRow(inspectRow(el)...)
			}
		}
	}
	if plain {
		table.RenderPlain()
	} else {
		table.Render()
	}
	return nil
}

// inspectRow formats one element in InspectHeaders order.
func inspectRow(el *element.Element) []string {
	return []string{
		el.ID,
		el.PathString(),
		el.Cardinality.String(),
		el.DeclaredType,
		strings.Join(el.ReferenceTargets, ", "),
		el.EnumerationRef,
		el.BindingLabel,
	}
}
