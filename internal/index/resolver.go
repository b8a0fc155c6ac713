package index

import (
	"log/slog"

	"github.com/MisakaVan/code-index/internal/symbol"
)

// resolution is the per-symbol link snapshot computed from the current index
// contents: resolved call edges plus references whose target was missing or
// ambiguous. Rebuilt lazily whenever the generation moves.
type resolution struct {
	edges      []symbol.CallEdge
	unresolved []symbol.Reference
}

// FunctionInfo assembles the full resolved view of one symbol: all
// definitions and references plus call-graph edges where the symbol appears
// as callee or caller. Returns false when the name is not indexed.
//
// The underlying resolution snapshot is cached and keyed on the generation
// counter, so repeated queries between mutations pay only the lookup.
func (ix *Index) FunctionInfo(name string) (symbol.FunctionInfo, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	rec, ok := ix.records[name]
	if !ok {
		return symbol.FunctionInfo{}, false
	}
	ix.ensureResolvedLocked()

	info := symbol.FunctionInfo{
		Name:        name,
		Definitions: cloneDefs(rec.defs),
		References:  cloneRefs(rec.refs),
	}
	if res := ix.resolved[name]; res != nil {
		info.CallEdges = append(info.CallEdges, res.edges...)
		info.Unresolved = append(info.Unresolved, res.unresolved...)
	}
	// Edges where this symbol is the caller live under the callee's entry;
	// collect them so the caller view shows its outgoing calls too.
	for _, callee := range ix.order {
		if callee == name {
			continue
		}
		res := ix.resolved[callee]
		if res == nil {
			continue
		}
		for _, e := range res.edges {
			if e.Caller == name {
				info.CallEdges = append(info.CallEdges, e)
			}
		}
	}
	return info, true
}

// CallEdges returns the complete resolved call graph at the current
// generation, in deterministic (symbol insertion, then reference) order.
func (ix *Index) CallEdges() []symbol.CallEdge {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ensureResolvedLocked()
	var out []symbol.CallEdge
	for _, name := range ix.order {
		if res := ix.resolved[name]; res != nil {
			out = append(out, res.edges...)
		}
	}
	return out
}

// UnresolvedReferences returns every reference that could not be linked to
// exactly one full definition, so callers can distinguish "no definition
// found" from "ambiguous overload" (both appear here; neither is an error).
func (ix *Index) UnresolvedReferences() []symbol.Reference {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ensureResolvedLocked()
	var out []symbol.Reference
	for _, name := range ix.order {
		if res := ix.resolved[name]; res != nil {
			out = append(out, res.unresolved...)
		}
	}
	return out
}

// ensureResolvedLocked rebuilds the resolution snapshot if the generation has
// moved since the last build. Callers hold ix.mu exclusively.
func (ix *Index) ensureResolvedLocked() {
	if ix.resolvedOK && ix.resolvedGen == ix.gen {
		return
	}
	ix.resolved = make(map[string]*resolution, len(ix.records))
	for _, name := range ix.order {
		ix.resolved[name] = ix.resolveSymbolLocked(name)
	}
	ix.resolvedGen = ix.gen
	ix.resolvedOK = true
}

// resolveSymbolLocked links each reference of name against the full (non-
// declaration) definitions of the same name.
//
// Resolution rules, in order:
//   - only full definitions are link targets; forward declarations stay
//     stored but never receive call-graph edges;
//   - a reference with a known overload key resolves iff exactly one full
//     definition carries the same key;
//   - a reference with an unknown key resolves iff the name has exactly one
//     full definition;
//   - anything else (zero or several candidates) is recorded as unresolved,
//     ambiguity is data, not an error.
func (ix *Index) resolveSymbolLocked(name string) *resolution {
	rec := ix.records[name]
	res := &resolution{}

	var full []symbol.Definition
	for _, d := range rec.defs {
		if !d.IsDeclaration {
			full = append(full, d)
		}
	}

	for _, r := range rec.refs {
		target, ok := pickTarget(full, r)
		if !ok {
			res.unresolved = append(res.unresolved, r)
			continue
		}
		res.edges = append(res.edges, symbol.CallEdge{
			Caller: r.CallerContext,
			Callee: name,
			Site:   r.Location,
			Target: target.Location,
		})
	}
	return res
}

// pickTarget selects the unique definition a reference resolves to, if any.
func pickTarget(full []symbol.Definition, r symbol.Reference) (symbol.Definition, bool) {
	key := r.Key()
	if key.Known() {
		var match []symbol.Definition
		for _, d := range full {
			if d.Key() == key {
				match = append(match, d)
			}
		}
		if len(match) == 1 {
			return match[0], true
		}
		return symbol.Definition{}, false
	}
	if len(full) == 1 {
		return full[0], true
	}
	return symbol.Definition{}, false
}

// Resolver feeds raw per-file extraction output into an Index, applying the
// evict-then-insert incremental update protocol. Definitions are inserted
// before references so that intra-file references see their targets within
// one pass; the actual linking happens lazily in the Index.
type Resolver struct {
	idx *Index
	log *slog.Logger
}

// NewResolver wires a resolver to the index it mutates. A nil logger falls
// back to slog.Default.
func NewResolver(idx *Index, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{idx: idx, log: logger.With("component", "resolver")}
}

// Index returns the index this resolver mutates.
func (rv *Resolver) Index() *Index { return rv.idx }

// ReindexFile replaces all entries for path with the given extraction
// candidates. Malformed entries are logged and skipped individually; one bad
// entry never aborts the file. Returns the number of entries applied and the
// number skipped.
func (rv *Resolver) ReindexFile(path string, candidates []symbol.Candidate) (applied, skipped int) {
	evicted := rv.idx.EvictFile(path)
	if evicted > 0 {
		rv.log.Debug("evicted stale entries", "file", path, "count", evicted)
	}

	// Definitions first, keyed by (name, overload key), then references.
	for _, c := range candidates {
		if c.Def == nil {
			continue
		}
		if err := rv.idx.AddDefinition(*c.Def); err != nil {
			rv.log.Warn("skipping malformed definition", "file", path, "symbol", c.Def.Name, "err", err)
			skipped++
			continue
		}
		applied++
	}
	for _, c := range candidates {
		if c.Ref == nil {
			continue
		}
		if err := rv.idx.AddReference(*c.Ref); err != nil {
			rv.log.Warn("skipping malformed reference", "file", path, "symbol", c.Ref.Name, "err", err)
			skipped++
			continue
		}
		applied++
	}
	return applied, skipped
}
