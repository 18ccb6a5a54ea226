package commands

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sutanuchaudhuri/fhir-server/compiler"
	"github.com/sutanuchaudhuri/fhir-server/compiler/gen"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "graph <files or directories...>",
		Short: "Dump the entity graph as json, yaml or msgpack",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(gen.Formats, format) {
				return fmt.Errorf("%w %q", gen.ErrSnapshotFormat, format)
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			gc, err := s.genConfig()
			if err != nil {
				return err
			}
			g, err := compiler.LoadGraph(cmd.Context(), gc, args...)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return gen.NewSnapshot(g).Encode(w, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", gen.FormatJSON, "output format: json, yaml, msgpack")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}
