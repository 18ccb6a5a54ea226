package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// TreeNode is one line of a rendered tree.
type TreeNode struct {
	Label    string
	Detail   string
	Children []*TreeNode
}

// Add appends a child and returns it.
func (n *TreeNode) Add(label, detail string) *TreeNode {
	child := &TreeNode{Label: label, Detail: detail}
	n.Children = append(n.Children, child)
	return child
}

// RenderTree writes the given roots using box-drawing connectors.
func RenderTree(w io.Writer, roots []*TreeNode, noColor bool) {
	label := color.New(color.Bold, color.FgCyan)
	detail := color.New(color.FgHiBlack)
	branch := color.New(color.FgHiBlack)
	if noColor {
		label.DisableColor()
		detail.DisableColor()
		branch.DisableColor()
	}
	r := &treeRenderer{w: w, label: label, detail: detail, branch: branch}
	for _, root := range roots {
		r.line(root)
		r.children(root, "")
	}
}

type treeRenderer struct {
	w                     io.Writer
	label, detail, branch *color.Color
}

func (r *treeRenderer) children(n *TreeNode, prefix string) {
	for i, c := range n.Children {
		connector, next := "├── ", "│   "
		if i == len(n.Children)-1 {
			connector, next = "└── ", "    "
		}
		r.branch.Fprint(r.w, prefix+connector)
		r.line(c)
		r.children(c, prefix+next)
	}
}

func (r *treeRenderer) line(n *TreeNode) {
	r.label.Fprint(r.w, n.Label)
	if n.Detail != "" {
		fmt.Fprint(r.w, " ")
		r.detail.Fprint(r.w, n.Detail)
	}
	fmt.Fprintln(r.w)
}
