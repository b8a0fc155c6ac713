// Package codeindex builds a queryable symbol index over a source repository:
// function and method definitions, call-site references, and the call graph
// derived by linking the two.
//
// # Pipeline
//
// Indexing runs in two conceptual phases:
//
//  1. Extract: each source file is parsed with tree-sitter and a
//     language-specific adapter emits definition and reference candidates
//     with location, qualifier, and signature metadata.
//
//  2. Resolve: references are linked to definitions by (name, overload key).
//     A reference resolves only when exactly one full definition matches;
//     ambiguity and missing targets are recorded, never guessed at.
//     Resolution is computed lazily and cached against the index's
//     generation counter.
//
// # Usage
//
// Create an Indexer, index a project, and query:
//
//	ix := codeindex.New(codeindex.WithRelativePaths(root))
//	stats, err := ix.IndexProject(ctx, root, nil)
//	if err != nil { ... }
//
//	defs := ix.FindDefinitions("parse_json")
//	info, ok := ix.FunctionInfo("parse_json")
//
// # Persistence
//
// Snapshots round-trip through two interchangeable strategies, a flat JSON
// document and a relational SQLite database, both restoring a structurally
// equal index including the generation counter:
//
//	err = ix.DumpIndex(".code_index.cache/index.json", persist.NewJSONStrategy())
//	err = ix.LoadIndex(".code_index.cache/index.json", persist.NewJSONStrategy())
//
// # Incremental updates
//
// [Indexer.IndexFile] re-indexes one file by evicting its stale entries and
// inserting fresh ones; every structural mutation bumps the index generation,
// which invalidates cached resolution. The internal/service package layers a
// concurrency-safe facade plus an annotation work queue on top, for driving
// the index from multiple analysis agents.
package codeindex
