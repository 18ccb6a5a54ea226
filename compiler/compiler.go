// Package compiler wires loading, hierarchy building and code generation
// into a single pipeline.
//
//	cfg, err := gen.NewConfig(gen.WithTarget("./fhirmodel"))
//	if err != nil {
//	    return err
//	}
//	files, err := compiler.Generate(ctx, cfg, "profiles-resources.json", "profiles-types.json")
package compiler

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sutanuchaudhuri/fhir-server/compiler/gen"
	"github.com/sutanuchaudhuri/fhir-server/compiler/load"
)

// BuildGraphs builds one graph per bundle. Bundles share no state, so each
// gets its own Builder and they are built in parallel. Graphs are returned
// in bundle order.
func BuildGraphs(ctx context.Context, cfg *gen.Config, bundles ...*load.Bundle) ([]*gen.Graph, error) {
	graphs := make([]*gen.Graph, len(bundles))
	errg, ctx := errgroup.WithContext(ctx)
	if cfg != nil && cfg.Workers > 0 {
		errg.SetLimit(cfg.Workers)
	}
	for i, b := range bundles {
		i, b := i, b
		errg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			g, err := gen.Build(cfg, b)
			if err != nil {
				return fmt.Errorf("build %s: %w", b.Source, err)
			}
			graphs[i] = g
			return nil
		})
	}
	if err := errg.Wait(); err != nil {
		return nil, err
	}
	return graphs, nil
}

// LoadGraph loads every path, builds the bundles and merges the results in
// path order.
func LoadGraph(ctx context.Context, cfg *gen.Config, paths ...string) (*gen.Graph, error) {
	bundles, err := load.LoadPaths(ctx, cfg.Workers, paths...)
	if err != nil {
		return nil, err
	}
	graphs, err := BuildGraphs(ctx, cfg, bundles...)
	if err != nil {
		return nil, err
	}
	g := gen.Merge(graphs...)
	logger(cfg).Info("graph built",
		zap.Int("bundles", len(bundles)),
		zap.Int("roots", len(g.Roots)),
		zap.Int("entities", len(g.Nodes)),
		zap.Int("warnings", len(g.Warnings())),
	)
	return g, nil
}

// Generate runs the whole pipeline and returns the names of the files
// written into cfg.Target.
func Generate(ctx context.Context, cfg *gen.Config, paths ...string) ([]string, error) {
	g, err := LoadGraph(ctx, cfg, paths...)
	if err != nil {
		return nil, err
	}
	generator, err := gen.NewGenerator(g, cfg)
	if err != nil {
		return nil, err
	}
	return generator.Generate(ctx)
}

func logger(cfg *gen.Config) *zap.Logger {
	if cfg == nil || cfg.Logger == nil {
		return zap.NewNop()
	}
	return cfg.Logger
}
