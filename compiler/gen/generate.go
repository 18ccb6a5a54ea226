package gen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dave/jennifer/jen"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	fhir "github.com/sutanuchaudhuri/fhir-server"
	"github.com/sutanuchaudhuri/fhir-server/internal/naming"
)

// RegistryFile is the name of the file holding the resource registry.
const RegistryFile = "resources.go"

// Generator renders Go types for the entities of a graph using Jennifer.
// Each root entity gets its own file holding the root struct followed by
// its nested structs.
type Generator struct {
	graph *Graph
	cfg   *Config
	log   *zap.Logger

	// files to render, in root order.
	files []*fileTask
	// types maps each emitted entity to its Go type name.
	types map[*Entity]string
}

type fileTask struct {
	name     string
	root     *Entity
	entities []*Entity
}

// NewGenerator returns a Generator writing into cfg.Target.
func NewGenerator(g *Graph, cfg *Config) (*Generator, error) {
	if cfg == nil || cfg.Target == "" {
		return nil, NewConfigError("Target", nil, "missing target directory in config")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	gen := &Generator{
		graph: g,
		cfg:   cfg,
		log:   log,
		types: make(map[*Entity]string),
	}
	gen.plan()
	return gen, nil
}

// plan assigns type and file names. Entities shadowed in the graph index,
// or whose names collide with an earlier entity, are skipped.
func (g *Generator) plan() {
	typeOwners := make(map[string]*Entity)
	fileOwners := map[string]*Entity{RegistryFile: nil}
	for _, root := range g.graph.Roots {
		if indexed, ok := g.graph.Lookup(root.Path); !ok || indexed != root {
			g.log.Warn("skipping shadowed root", zap.String("path", root.Path))
			continue
		}
		task := &fileTask{name: naming.FileName(naming.TypeNameOf(root.Path)), root: root}
		if _, taken := fileOwners[task.name]; taken {
			g.log.Warn("skipping root with conflicting file name", zap.String("path", root.Path), zap.String("file", task.name))
			continue
		}
		fileOwners[task.name] = root
		_ = root.Walk(func(e *Entity) error {
			if indexed, ok := g.graph.Lookup(e.Path); ok && indexed != e {
				return nil
			}
			name := naming.TypeNameOf(e.Path)
			if owner, taken := typeOwners[name]; taken && owner != e {
				g.log.Warn("skipping entity with conflicting type name", zap.String("path", e.Path), zap.String("type", name))
				return nil
			}
			typeOwners[name] = e
			g.types[e] = name
			task.entities = append(task.entities, e)
			return nil
		})
		g.files = append(g.files, task)
	}
}

// Files returns the names of the files Generate writes, in order.
func (g *Generator) Files() []string {
	names := make([]string, 0, len(g.files)+1)
	for _, f := range g.files {
		names = append(names, f.name)
	}
	if g.hasResources() {
		names = append(names, RegistryFile)
	}
	return names
}

// Generate renders and writes every file in parallel, bounded by the
// configured number of workers. It returns the written file names.
func (g *Generator) Generate(ctx context.Context) ([]string, error) {
	if err := os.MkdirAll(g.cfg.Target, 0o755); err != nil {
		return nil, NewGenerationError(PhaseWrite, g.cfg.Target, "create output directory", err)
	}
	errg, ctx := errgroup.WithContext(ctx)
	if g.cfg.Workers > 0 {
		errg.SetLimit(g.cfg.Workers)
	}
	for _, f := range g.files {
		f := f
		errg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return g.writeFile(g.renderFile(f), f.name)
		})
	}
	if g.hasResources() {
		errg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return g.writeFile(g.renderRegistry(), RegistryFile)
		})
	}
	if err := errg.Wait(); err != nil {
		return nil, err
	}
	files := g.Files()
	g.log.Info("generated", zap.String("target", g.cfg.Target), zap.Int("files", len(files)))
	return files, nil
}

// Render returns the source of the file holding root.
func (g *Generator) Render(root *Entity) (string, error) {
	for _, f := range g.files {
		if f.root == root {
			var buf bytes.Buffer
			if err := g.renderFile(f).Render(&buf); err != nil {
				return "", NewGenerationError(PhaseRender, f.name, "", err)
			}
			return buf.String(), nil
		}
	}
	return "", NewGenerationError(PhaseRender, "", fmt.Sprintf("entity %s is not emitted", root.Path), nil)
}

func (g *Generator) newFile() *jen.File {
	f := jen.NewFile(g.cfg.PackageName())
	if g.cfg.Header != "" {
		f.HeaderComment(g.cfg.Header)
	}
	return f
}

func (g *Generator) renderFile(t *fileTask) *jen.File {
	f := g.newFile()
	for _, e := range t.entities {
		g.renderEntity(f, e)
	}
	return f
}

func (g *Generator) renderEntity(f *jen.File, e *Entity) {
	name := g.types[e]
	switch {
	case e.Kind == KindNested:
		f.Comment(fmt.Sprintf("%s is the %s element of %s.", name, e.Name, g.parentType(e)))
	default:
		f.Comment(fmt.Sprintf("%s is the FHIR %s %s.", name, e.Name, kindLabel(e.Kind)))
	}
	if doc := strings.TrimSpace(e.Doc); doc != "" {
		f.Comment("")
		for _, line := range commentLines(doc) {
			f.Comment(line)
		}
	}
	var (
		fields []jen.Code
		seen   = make(map[string]bool)
	)
	add := func(goName, jsonName string, typ jen.Code, comments []string) {
		if seen[goName] {
			g.log.Debug("duplicate field", zap.String("entity", e.Path), zap.String("field", goName))
			return
		}
		seen[goName] = true
		for _, c := range comments {
			fields = append(fields, jen.Comment(c))
		}
		fields = append(fields, jen.Id(goName).Add(typ).Tag(map[string]string{"json": jsonName + ",omitempty"}))
	}
	for _, p := range e.Properties {
		if !p.IsChoice() {
			add(naming.Pascal(p.Name), p.Name, g.fieldType(p, p.Type), propertyComments(p))
			continue
		}
		for i, code := range p.Choices {
			var comments []string
			if i == 0 {
				comments = propertyComments(p)
			}
			jsonName := naming.ChoiceName(p.Name, code)
			add(naming.Pascal(jsonName), jsonName, g.fieldType(p, code), comments)
		}
	}
	f.Type().Id(name).Struct(fields...)
	if e.Kind == KindResource && e.Parent == nil {
		recv := naming.Receiver(name)
		f.Comment("ResourceType returns the FHIR resource type name.")
		f.Func().Params(jen.Id(recv).Op("*").Id(name)).Id("ResourceType").Params().String().Block(
			jen.Return(jen.Lit(e.Name)),
		)
	}
}

// fieldType returns the Go type of p when it holds a value of the given
// type code.
func (g *Generator) fieldType(p *Property, code string) jen.Code {
	base := g.baseType(p, code)
	upper := p.Cardinality.Max
	switch {
	case p.IsList || (upper != nil && *upper > 1):
		return jen.Index().Add(base)
	case p.IsChoice() || p.Optional || p.Kind == PropertyNested:
		return jen.Op("*").Add(base)
	default:
		return base
	}
}

func (g *Generator) baseType(p *Property, code string) jen.Code {
	switch {
	case p.Kind == PropertyNested && p.Nested != nil:
		if name, ok := g.types[p.Nested]; ok {
			return jen.Id(name)
		}
		if indexed, ok := g.graph.Lookup(p.Nested.Path); ok {
			if name, ok := g.types[indexed]; ok {
				return jen.Id(name)
			}
		}
		return jen.Id(naming.TypeNameOf(p.Nested.Path))
	case p.Kind == PropertyUnresolved:
		return jen.Qual("encoding/json", "RawMessage")
	}
	if builtin, ok := primitiveType(code); ok {
		return builtin
	}
	return jen.Id(naming.Pascal(code))
}

// primitiveType maps FHIR primitive and FHIRPath system types to Go.
func primitiveType(code string) (jen.Code, bool) {
	switch strings.TrimPrefix(code, fhir.SystemTypePrefix) {
	case "boolean", "Boolean":
		return jen.Bool(), true
	case "integer", "unsignedInt", "positiveInt", "Integer":
		return jen.Int(), true
	case "integer64", "Long":
		return jen.Int64(), true
	case "decimal", "Decimal":
		return jen.Qual("encoding/json", "Number"), true
	case "string", "code", "id", "markdown", "uri", "url", "canonical", "oid", "uuid",
		"base64Binary", "date", "dateTime", "instant", "time", "xhtml",
		"String", "Date", "DateTime", "Time":
		return jen.String(), true
	}
	if propertyKind(code) == PropertyPrimitive {
		return jen.String(), true
	}
	return nil, false
}

func (g *Generator) parentType(e *Entity) string {
	if e.Parent != nil {
		if name, ok := g.types[e.Parent]; ok {
			return name
		}
	}
	segs := e.Segments()
	return naming.TypeName(segs[:len(segs)-1]...)
}

func (g *Generator) hasResources() bool {
	for _, f := range g.files {
		if f.root.Kind == KindResource {
			return true
		}
	}
	return false
}

// renderRegistry renders NewResource, which allocates a resource by its
// type name.
func (g *Generator) renderRegistry() *jen.File {
	f := g.newFile()
	var (
		cases []jen.Code
		names []string
	)
	for _, t := range g.files {
		if t.root.Kind != KindResource {
			continue
		}
		name := g.types[t.root]
		names = append(names, t.root.Name)
		cases = append(cases, jen.Case(jen.Lit(t.root.Name)).Block(jen.Return(jen.Op("&").Id(name).Values())))
	}
	sort.Strings(names)
	lits := make([]jen.Code, len(names))
	for i, n := range names {
		lits[i] = jen.Lit(n)
	}
	f.Comment("ResourceTypes lists the generated resource types.")
	f.Var().Id("ResourceTypes").Op("=").Index().String().Values(lits...)
	f.Comment("NewResource returns a new resource of the given type, or nil.")
	f.Func().Id("NewResource").Params(jen.Id("resourceType").String()).Id("any").Block(
		jen.Switch(jen.Id("resourceType")).Block(cases...),
		jen.Return(jen.Nil()),
	)
	return f
}

func kindLabel(k EntityKind) string {
	switch k {
	case KindResource:
		return "resource"
	case KindComplexType:
		return "data type"
	default:
		return "definition"
	}
}

func propertyComments(p *Property) []string {
	var lines []string
	if doc := strings.TrimSpace(p.Doc); doc != "" {
		lines = append(lines, commentLines(doc)...)
	}
	if p.BindingLabel != "" || p.EnumerationRef != "" {
		switch {
		case p.BindingLabel == "":
			lines = append(lines, "Binding: "+p.EnumerationRef)
		case p.EnumerationRef == "":
			lines = append(lines, "Binding: "+p.BindingLabel)
		default:
			lines = append(lines, fmt.Sprintf("Binding: %s (%s)", p.BindingLabel, p.EnumerationRef))
		}
	}
	if len(p.ReferenceTargets) > 0 {
		lines = append(lines, "References: "+strings.Join(p.ReferenceTargets, ", "))
	}
	return lines
}

func commentLines(s string) []string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return lines
}
