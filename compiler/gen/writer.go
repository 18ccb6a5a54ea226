package gen

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/dave/jennifer/jen"
	"go.uber.org/zap"
	"golang.org/x/tools/imports"
)

// writeFile renders f, formats it with goimports and writes it under the
// target directory. When formatting fails the unformatted source is kept
// next to the target as <name>.error for debugging.
func (g *Generator) writeFile(f *jen.File, name string) error {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return NewGenerationError(PhaseRender, name, "", err)
	}
	fullPath := filepath.Join(g.cfg.Target, name)
	formatted, err := imports.Process(fullPath, buf.Bytes(), nil)
	if err != nil {
		debugPath := fullPath + ".error"
		_ = os.WriteFile(debugPath, buf.Bytes(), 0o644)
		return NewGenerationError(PhaseFormat, name, "unformatted source written to "+debugPath, err)
	}
	if err := os.WriteFile(fullPath, formatted, 0o644); err != nil {
		return NewGenerationError(PhaseWrite, name, "", err)
	}
	g.log.Debug("wrote file", zap.String("file", fullPath), zap.Int("bytes", len(formatted)))
	return nil
}
