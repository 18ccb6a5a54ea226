package gen

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/sutanuchaudhuri/fhir-server/compiler/element"
)

// Snapshot formats.
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatMsgpack = "msgpack"
)

// Formats lists the supported snapshot formats.
var Formats = []string{FormatJSON, FormatYAML, FormatMsgpack}

// Snapshot is a serializable view of a Graph. Entities are flattened in
// creation order and refer to each other by path.
type Snapshot struct {
	Source      string            `json:"source,omitempty" yaml:"source,omitempty" msgpack:"source,omitempty"`
	Entities    []*EntitySnapshot `json:"entities" yaml:"entities" msgpack:"entities"`
	Diagnostics []*Diagnostic     `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty" msgpack:"diagnostics,omitempty"`
}

// EntitySnapshot is the serializable form of an Entity.
type EntitySnapshot struct {
	Name       string              `json:"name" yaml:"name" msgpack:"name"`
	Kind       string              `json:"kind" yaml:"kind" msgpack:"kind"`
	Path       string              `json:"path" yaml:"path" msgpack:"path"`
	Definition string              `json:"definition,omitempty" yaml:"definition,omitempty" msgpack:"definition,omitempty"`
	Parent     string              `json:"parent,omitempty" yaml:"parent,omitempty" msgpack:"parent,omitempty"`
	Root       bool                `json:"root,omitempty" yaml:"root,omitempty" msgpack:"root,omitempty"`
	Doc        string              `json:"doc,omitempty" yaml:"doc,omitempty" msgpack:"doc,omitempty"`
	Properties []*PropertySnapshot `json:"properties,omitempty" yaml:"properties,omitempty" msgpack:"properties,omitempty"`
}

// PropertySnapshot is the serializable form of a Property.
type PropertySnapshot struct {
	Name             string   `json:"name" yaml:"name" msgpack:"name"`
	Path             string   `json:"path" yaml:"path" msgpack:"path"`
	Type             string   `json:"type,omitempty" yaml:"type,omitempty" msgpack:"type,omitempty"`
	Kind             string   `json:"kind" yaml:"kind" msgpack:"kind"`
	Nested           string   `json:"nested,omitempty" yaml:"nested,omitempty" msgpack:"nested,omitempty"`
	ContentReference bool     `json:"contentReference,omitempty" yaml:"contentReference,omitempty" msgpack:"contentReference,omitempty"`
	Optional         bool     `json:"optional" yaml:"optional" msgpack:"optional"`
	IsList           bool     `json:"isList" yaml:"isList" msgpack:"isList"`
	Min              *int     `json:"min,omitempty" yaml:"min,omitempty" msgpack:"min,omitempty"`
	Max              string   `json:"max,omitempty" yaml:"max,omitempty" msgpack:"max,omitempty"`
	ReferenceTargets []string `json:"referenceTargets,omitempty" yaml:"referenceTargets,omitempty" msgpack:"referenceTargets,omitempty"`
	ValueSet         string   `json:"valueSet,omitempty" yaml:"valueSet,omitempty" msgpack:"valueSet,omitempty"`
	Binding          string   `json:"binding,omitempty" yaml:"binding,omitempty" msgpack:"binding,omitempty"`
	Doc              string   `json:"doc,omitempty" yaml:"doc,omitempty" msgpack:"doc,omitempty"`
	Choices          []string `json:"choices,omitempty" yaml:"choices,omitempty" msgpack:"choices,omitempty"`
}

// NewSnapshot returns the snapshot of g.
func NewSnapshot(g *Graph) *Snapshot {
	s := &Snapshot{Source: g.Source, Diagnostics: g.Diagnostics}
	roots := make(map[*Entity]bool, len(g.Roots))
	for _, r := range g.Roots {
		roots[r] = true
	}
	for _, n := range g.Nodes {
		es := &EntitySnapshot{
			Name:       n.Name,
			Kind:       n.Kind.String(),
			Path:       n.Path,
			Definition: n.Definition,
			Root:       roots[n],
			Doc:        n.Doc,
		}
		if n.Parent != nil {
			es.Parent = n.Parent.Path
		}
		for _, p := range n.Properties {
			ps := &PropertySnapshot{
				Name:             p.Name,
				Path:             p.Path,
				Type:             p.Type,
				Kind:             p.Kind.String(),
				ContentReference: p.ContentReference,
				Optional:         p.Optional,
				IsList:           p.IsList,
				Min:              p.Cardinality.Min,
				Max:              p.Cardinality.MaxString(),
				ReferenceTargets: p.ReferenceTargets,
				ValueSet:         p.EnumerationRef,
				Binding:          p.BindingLabel,
				Doc:              p.Doc,
				Choices:          p.Choices,
			}
			if p.Nested != nil {
				ps.Nested = p.Nested.Path
			}
			es.Properties = append(es.Properties, ps)
		}
		s.Entities = append(s.Entities, es)
	}
	return s
}

// Encode writes the snapshot to w in the given format.
func (s *Snapshot) Encode(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(s)
	default:
		return fmt.Errorf("%w %q", ErrSnapshotFormat, format)
	}
}

// DecodeSnapshot reads a snapshot written by Encode.
func DecodeSnapshot(r io.Reader, format string) (*Snapshot, error) {
	s := &Snapshot{}
	var err error
	switch strings.ToLower(format) {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(s)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(s)
	case FormatMsgpack:
		err = msgpack.NewDecoder(r).Decode(s)
	default:
		return nil, fmt.Errorf("%w %q", ErrSnapshotFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", format, err)
	}
	return s, nil
}

// Graph rebuilds the graph described by the snapshot. Entities sharing a
// path resolve to the last one, as the builder's default policy does.
func (s *Snapshot) Graph() *Graph {
	g := newGraph(s.Source)
	g.Diagnostics = s.Diagnostics
	for _, es := range s.Entities {
		e := &Entity{
			Name:       es.Name,
			Kind:       parseEntityKind(es.Kind),
			Path:       es.Path,
			Definition: es.Definition,
			Doc:        es.Doc,
		}
		if es.Parent != "" {
			if parent, ok := g.index[es.Parent]; ok {
				parent.adopt(e)
			}
		}
		g.index[e.Path] = e
		g.Nodes = append(g.Nodes, e)
		if es.Root {
			g.Roots = append(g.Roots, e)
		}
	}
	for i, es := range s.Entities {
		e := g.Nodes[i]
		for _, ps := range es.Properties {
			p := &Property{
				Name:             ps.Name,
				Path:             ps.Path,
				Type:             ps.Type,
				Kind:             parsePropertyKind(ps.Kind),
				ContentReference: ps.ContentReference,
				Optional:         ps.Optional,
				IsList:           ps.IsList,
				Cardinality:      element.Cardinality{Min: ps.Min, Max: parseMaxString(ps.Max)},
				ReferenceTargets: ps.ReferenceTargets,
				EnumerationRef:   ps.ValueSet,
				BindingLabel:     ps.Binding,
				Doc:              ps.Doc,
				Choices:          ps.Choices,
			}
			if ps.Nested != "" {
				p.Nested = g.index[ps.Nested]
			}
			e.Properties = append(e.Properties, p)
		}
	}
	return g
}

func parseEntityKind(s string) EntityKind {
	for i, name := range entityKindNames {
		if name == s {
			return EntityKind(i)
		}
	}
	return KindOther
}

func parsePropertyKind(s string) PropertyKind {
	for i, name := range propertyKindNames {
		if name == s {
			return PropertyKind(i)
		}
	}
	return PropertyComplex
}

func parseMaxString(s string) *int {
	if s == "" {
		return nil
	}
	var v int
	if s == "*" {
		v = element.Unbounded
	} else if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return nil
	}
	return &v
}
