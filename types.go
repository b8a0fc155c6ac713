package codeindex

import (
	"github.com/MisakaVan/code-index/internal/index"
	"github.com/MisakaVan/code-index/internal/persist"
	"github.com/MisakaVan/code-index/internal/symbol"
)

// Public type aliases for the internal model types used in the Indexer API.
// These are Go type aliases (=), identical to the internal types at compile
// time. External consumers use these names; no conversion is needed.

type Location = symbol.Location
type Definition = symbol.Definition
type Reference = symbol.Reference
type FunctionInfo = symbol.FunctionInfo
type CallEdge = symbol.CallEdge
type OverloadKey = symbol.OverloadKey
type Note = symbol.Note
type Candidate = symbol.Candidate
type Kind = symbol.Kind
type Matches = index.Matches
type Strategy = persist.Strategy

const (
	KindFunction = symbol.KindFunction
	KindMethod   = symbol.KindMethod
)
