// Package load decodes FHIR JSON documents into bundles of definitions
// whose elements are kept as raw records for the normalizer.
package load

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	fhir "github.com/sutanuchaudhuri/fhir-server"
)

// ErrUnsupportedResource is returned for JSON documents that are neither a
// Bundle nor a StructureDefinition.
var ErrUnsupportedResource = errors.New("load: unsupported resource")

type document struct {
	ResourceType string `json:"resourceType"`
	Entry        []struct {
		Resource json.RawMessage `json:"resource"`
	} `json:"entry"`
}

type structureDefinition struct {
	Definition
	ResourceType string       `json:"resourceType"`
	Snapshot     *elementList `json:"snapshot"`
	Differential *elementList `json:"differential"`
}

type elementList struct {
	Element []*Element `json:"element"`
}

// Unmarshal decodes a FHIR Bundle, or a single StructureDefinition, into a
// Bundle. Entries of any other resource type are skipped.
func Unmarshal(data []byte, source string) (*Bundle, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}
	b := &Bundle{Source: source}
	switch doc.ResourceType {
	case fhir.ResourceTypeBundle:
		for i, entry := range doc.Entry {
			if len(entry.Resource) == 0 {
				continue
			}
			def, err := unmarshalDefinition(entry.Resource)
			if err != nil {
				return nil, fmt.Errorf("load %s: entry %d: %w", source, i, err)
			}
			if def != nil {
				b.Definitions = append(b.Definitions, def)
			}
		}
	case fhir.ResourceTypeStructureDefinition:
		def, err := unmarshalDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", source, err)
		}
		b.Definitions = append(b.Definitions, def)
	default:
		return nil, fmt.Errorf("load %s: %w %q", source, ErrUnsupportedResource, doc.ResourceType)
	}
	return b, nil
}

// unmarshalDefinition returns nil for resources that are not
// StructureDefinitions.
func unmarshalDefinition(raw json.RawMessage) (*Definition, error) {
	var sd structureDefinition
	if err := json.Unmarshal(raw, &sd); err != nil {
		return nil, err
	}
	if sd.ResourceType != fhir.ResourceTypeStructureDefinition {
		return nil, nil
	}
	def := sd.Definition
	switch {
	case sd.Snapshot != nil:
		def.Elements = sd.Snapshot.Element
	case sd.Differential != nil:
		def.Elements = sd.Differential.Element
	}
	return &def, nil
}

// Decode reads all of r and decodes it with Unmarshal.
func Decode(r io.Reader, source string) (*Bundle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return Unmarshal(data, source)
}

// LoadFile loads a bundle from a JSON file.
func LoadFile(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Unmarshal(data, path)
}

// LoadPaths loads every given file concurrently, with at most workers files
// open at once (GOMAXPROCS when workers is not positive). Directories are
// expanded to the JSON files they contain, in lexical order. Bundles are
// returned in the order of the expanded path list.
func LoadPaths(ctx context.Context, workers int, paths ...string) ([]*Bundle, error) {
	files, err := Expand(paths...)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	bundles := make([]*Bundle, len(files))
	errg, ctx := errgroup.WithContext(ctx)
	errg.SetLimit(workers)
	for i, f := range files {
		i, f := i, f
		errg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := LoadFile(f)
			if err != nil {
				return err
			}
			bundles[i] = b
			return nil
		})
	}
	if err := errg.Wait(); err != nil {
		return nil, err
	}
	return bundles, nil
}

// Expand resolves the given paths to a list of JSON files.
func Expand(paths ...string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isJSONFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isJSONFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
