package commands

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			title := color.New(color.FgCyan, color.Bold)
			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
				title.DisableColor()
			}
			w := cmd.OutOrStdout()
			for _, kv := range [][2]string{
				{"fhirgen version: ", Version},
				{"Git commit: ", GitCommit},
				{"Build date: ", BuildDate},
				{"Go version: ", runtime.Version()},
			} {
				title.Fprint(w, kv[0])
				fmt.Fprintln(w, kv[1])
			}
		},
	}
}
