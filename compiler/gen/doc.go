// Package gen reconstructs the entity hierarchy of FHIR definitions and
// generates Go types from it.
//
// # Architecture
//
// The pipeline follows this flow:
//
//	load.Bundle (definitions with raw element records)
//	        ↓ element.Normalizer
//	element.Element (path, cardinality, type, targets, binding)
//	        ↓ Builder
//	Graph (roots, nested entities, typed properties, diagnostics)
//	        ↓ Generator
//	Go source files (one per root entity)
//
// # Building
//
// A Builder walks the records of one bundle in declaration order and keeps
// an index of the entities created so far, keyed by structural path. An
// element without a type opens a root entity; a back-bone element opens a
// nested entity and becomes a property of its parent; every other element
// becomes a property of the entity registered at its parent path.
//
//	cfg, err := gen.NewConfig(gen.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	graph, err := gen.Build(cfg, bundle)
//
// Structural problems never abort a build. A child whose parent is not
// registered, a path registered twice, or a content reference to an
// unknown path is recorded once in Graph.Diagnostics and logged as a
// warning. Records without a path fail the build unless WithSkipMalformed
// is set.
//
// Builders are not safe for concurrent use. Independent bundles can be
// built in parallel with one Builder each and combined with Merge.
//
// # Error Handling
//
// The package uses structured error types:
//
//   - ConfigError: invalid options (matches ErrInvalidConfig)
//   - GenerationError: rendering, formatting or writing failures (matches ErrGenerationFailed)
//
// # Configuration
//
// Configuration is done via the functional options pattern:
//
//	cfg, err := gen.NewConfig(
//	    gen.WithTarget("./fhirmodel"),
//	    gen.WithBackboneCodes(fhir.BackboneElement, fhir.ElementCode),
//	    gen.WithDuplicatePolicy(gen.KeepFirst),
//	)
package gen
