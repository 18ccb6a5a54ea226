package gen

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	fhir "github.com/sutanuchaudhuri/fhir-server"
	"github.com/sutanuchaudhuri/fhir-server/compiler/element"
	"github.com/sutanuchaudhuri/fhir-server/compiler/load"
)

// Builder reconstructs the entity forest of one bundle from its element
// records, taken in declaration order. A Builder is not safe for
// concurrent use; independent bundles use independent builders.
type Builder struct {
	cfg   *Config
	log   *zap.Logger
	norm  *element.Normalizer
	graph *Graph

	// definition currently being processed.
	defName string
	defKind EntityKind
	defDoc  string
}

// NewBuilder returns a Builder for the bundle named source. A nil config
// uses the defaults of NewConfig.
func NewBuilder(cfg *Config, source string) *Builder {
	if cfg == nil {
		cfg = MustNewConfig()
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		cfg:   cfg,
		log:   log.With(zap.String("bundle", source)),
		norm:  element.NewNormalizer(cfg.BackboneCodes...),
		graph: newGraph(source),
	}
}

// Build builds the graph of a loaded bundle.
func Build(cfg *Config, b *load.Bundle) (*Graph, error) {
	builder := NewBuilder(cfg, b.Source)
	for _, def := range b.Definitions {
		if err := builder.AddDefinition(def); err != nil {
			return nil, err
		}
	}
	return builder.Graph(), nil
}

// Graph returns the graph built so far.
func (b *Builder) Graph() *Graph {
	return b.graph
}

// Begin starts a definition: roots created from now on take its name and
// kind.
func (b *Builder) Begin(name, kind, doc string) {
	b.defName = name
	b.defKind = entityKind(kind)
	b.defDoc = doc
}

// AddDefinition adds every element record of a definition.
func (b *Builder) AddDefinition(def *load.Definition) error {
	b.Begin(def.DisplayName(), def.Kind, def.Description)
	if len(def.Elements) == 0 {
		b.report(&Diagnostic{
			Severity:   SeverityInfo,
			Code:       CodeEmptyDefinition,
			Definition: b.defName,
			Message:    "definition has no elements",
		})
		return nil
	}
	for i, raw := range def.Elements {
		if err := b.AddRecord(i, raw); err != nil {
			return fmt.Errorf("definition %s: %w", b.defName, err)
		}
	}
	return nil
}

// AddRecord normalizes and adds one raw record. index is the position of
// the record in its definition, used in error messages.
func (b *Builder) AddRecord(index int, raw *load.Element) error {
	el, err := b.norm.Normalize(raw)
	if err != nil {
		var mre *fhir.MalformedRecordError
		if errors.As(err, &mre) {
			mre.Index = index
		}
		if !b.cfg.SkipMalformed {
			return err
		}
		b.report(&Diagnostic{
			Severity:   SeverityWarning,
			Code:       CodeMalformedRecord,
			Definition: b.defName,
			Message:    err.Error(),
		})
		return nil
	}
	b.Add(el)
	return nil
}

// Add adds one normalized element.
func (b *Builder) Add(el *element.Element) {
	b.log.Debug("element",
		zap.String("id", el.ID),
		zap.String("path", el.PathString()),
		zap.String("cardinality", el.Cardinality.String()),
		zap.String("type", el.DeclaredType),
		zap.Strings("targets", el.ReferenceTargets),
		zap.String("valueSet", el.EnumerationRef),
		zap.String("binding", el.BindingLabel),
	)
	switch el.Variant {
	case element.RootMarker:
		if len(el.Path) == 1 {
			b.addRoot(el)
			return
		}
		// Untyped nested elements, common in differentials, are kept as
		// nested entities so their children still resolve.
		b.warn(&Diagnostic{
			Code:       CodeUntypedElement,
			Definition: b.defName,
			Path:       el.PathString(),
			Message:    "nested element has no type, registered as a nested entity",
		})
		b.addBackbone(el)
	case element.Backbone:
		b.addBackbone(el)
	case element.ContentReference:
		b.addContentReference(el)
	default:
		b.attach(el, newProperty(el))
	}
}

func (b *Builder) addRoot(el *element.Element) {
	doc := el.Documentation
	if doc == "" {
		doc = b.defDoc
	}
	e := &Entity{
		Name:       el.Name(),
		Kind:       b.defKind,
		Path:       el.PathString(),
		Doc:        doc,
		Definition: b.defName,
	}
	if indexed, ok := b.register(e); ok && indexed == e {
		b.graph.Roots = append(b.graph.Roots, e)
	}
}

func (b *Builder) addBackbone(el *element.Element) {
	e := &Entity{
		Name:       el.Name(),
		Kind:       KindNested,
		Path:       el.PathString(),
		Definition: b.defName,
	}
	indexed, ok := b.register(e)
	if !ok {
		return
	}
	if indexed == e {
		if parent, found := b.graph.index[el.ParentPath()]; found {
			parent.adopt(e)
		}
	}
	p := newProperty(el)
	p.Kind = PropertyNested
	p.Nested = indexed
	b.attach(el, p)
}

func (b *Builder) addContentReference(el *element.Element) {
	p := newProperty(el)
	p.ContentReference = true
	p.Type = el.ContentRef
	if target, ok := b.graph.index[el.ContentRef]; ok {
		p.Kind = PropertyNested
		p.Nested = target
	} else {
		p.Kind = PropertyUnresolved
		b.warn(&Diagnostic{
			Code:       CodeContentReference,
			Definition: b.defName,
			Path:       el.PathString(),
			Message:    fmt.Sprintf("content reference %s is not registered", el.ContentRef),
		})
	}
	b.attach(el, p)
}

// register indexes e under its path according to the duplicate policy. It
// returns the entity that ends up indexed, and false if the element must
// be dropped.
func (b *Builder) register(e *Entity) (*Entity, bool) {
	prev, dup := b.graph.index[e.Path]
	if !dup {
		b.graph.index[e.Path] = e
		b.graph.Nodes = append(b.graph.Nodes, e)
		return e, true
	}
	b.warn(&Diagnostic{
		Code:       CodeDuplicatePath,
		Definition: b.defName,
		Path:       e.Path,
		Message:    fmt.Sprintf("path already registered (policy %s)", b.cfg.Duplicates),
	})
	switch b.cfg.Duplicates {
	case KeepFirst:
		return prev, true
	case Reject:
		return nil, false
	default:
		b.graph.index[e.Path] = e
		b.graph.Nodes = append(b.graph.Nodes, e)
		return e, true
	}
}

// attach appends p to the entity registered at the element's parent path.
func (b *Builder) attach(el *element.Element, p *Property) {
	parentPath := el.ParentPath()
	if parentPath == "" {
		return
	}
	parent, ok := b.graph.index[parentPath]
	if !ok {
		b.warn(&Diagnostic{
			Code:       CodeUnresolvedParent,
			Definition: b.defName,
			Path:       el.PathString(),
			Parent:     parentPath,
			Message:    fmt.Sprintf("parent %s is not registered", parentPath),
		})
		return
	}
	parent.Properties = append(parent.Properties, p)
}

func (b *Builder) warn(d *Diagnostic) {
	d.Severity = SeverityWarning
	b.report(d)
}

func (b *Builder) report(d *Diagnostic) {
	b.graph.Diagnostics = append(b.graph.Diagnostics, d)
	fields := []zap.Field{
		zap.String("code", d.Code),
		zap.String("definition", d.Definition),
	}
	if d.Path != "" {
		fields = append(fields, zap.String("path", d.Path))
	}
	if d.Parent != "" {
		fields = append(fields, zap.String("parent", d.Parent))
	}
	if d.Severity == SeverityWarning {
		b.log.Warn(d.Message, fields...)
		return
	}
	b.log.Info(d.Message, fields...)
}
