package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sutanuchaudhuri/fhir-server/compiler"
	"github.com/sutanuchaudhuri/fhir-server/compiler/gen"
	"github.com/sutanuchaudhuri/fhir-server/internal/cli/ui"
	"github.com/sutanuchaudhuri/fhir-server/internal/naming"
)

// NewTreeCommand creates the tree command.
func NewTreeCommand() *cobra.Command {
	var entitiesOnly bool
	cmd := &cobra.Command{
		Use:   "tree <files or directories...>",
		Short: "Print the entity hierarchy",
		Long: `Build the entity graph and print every root entity with its properties.
Nested entities are expanded under the property that declares them.`,
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
			g, err := compiler.LoadGraph(cmd.Context(), gc, args...)
			if err != nil {
				return err
			}
			ui.RenderTree(cmd.OutOrStdout(), Tree(g, entitiesOnly), s.noColor)
			return nil
		},
	}
	cmd.Flags().BoolVar(&entitiesOnly, "entities-only", false, "omit properties that do not declare nested entities")
	return cmd
}

// Tree converts the graph into renderable nodes: one per root entity,
// followed by orphaned entities that have no parent.
func Tree(g *gen.Graph, entitiesOnly bool) []*ui.TreeNode {
	var nodes []*ui.TreeNode
	for _, root := range g.Roots {
		n := &ui.TreeNode{Label: root.Name, Detail: fmt.Sprintf("(%s)", root.Kind)}
		addProperties(n, root, entitiesOnly)
		nodes = append(nodes, n)
	}
	for _, e := range g.Nodes {
		if e.IsRoot() || e.Parent != nil {
			continue
		}
		if indexed, ok := g.Lookup(e.Path); !ok || indexed != e {
			continue
		}
		n := &ui.TreeNode{Label: e.Path, Detail: "(orphan)"}
		addProperties(n, e, entitiesOnly)
		nodes = append(nodes, n)
	}
	return nodes
}

func addProperties(n *ui.TreeNode, e *gen.Entity, entitiesOnly bool) {
	for _, p := range e.Properties {
		expand := p.Nested != nil && !p.ContentReference
		if entitiesOnly && !expand {
			continue
		}
		child := n.Add(p.Name, propertyDetail(p))
		if expand {
			addProperties(child, p.Nested, entitiesOnly)
		}
	}
}

// propertyDetail renders "Type min..max -> Target, ..." for a property.
func propertyDetail(p *gen.Property) string {
	var parts []string
	switch {
	case p.Nested != nil:
		parts = append(parts, naming.TypeNameOf(p.Nested.Path))
	case p.IsChoice():
		parts = append(parts, strings.Join(p.Choices, "|"))
	default:
		parts = append(parts, p.Type)
	}
	if c := p.Cardinality.String(); c != "" {
		parts = append(parts, c)
	}
	if len(p.ReferenceTargets) > 0 {
		parts = append(parts, "-> "+strings.Join(p.ReferenceTargets, ", "))
	}
	return strings.Join(parts, " ")
}
