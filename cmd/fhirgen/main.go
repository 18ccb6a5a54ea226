// Command fhirgen builds entity hierarchies from FHIR StructureDefinition
// bundles and generates Go types from them.
package main

import (
	"os"

	"github.com/sutanuchaudhuri/fhir-server/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
