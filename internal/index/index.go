// Package index implements the in-memory symbol index and the cross-reference
// resolver that links call-site references to their definitions.
//
// The Index owns every Definition and Reference it stores; callers only ever
// receive copies. A generation counter is bumped on each structural mutation
// and doubles as the invalidation token for the lazily computed resolution
// snapshot and for caches in the service layer.
package index

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/MisakaVan/code-index/internal/symbol"
)

// Matches is the read-only result of a name lookup: all definitions and
// references recorded for one symbol, in insertion order.
type Matches struct {
	Definitions []symbol.Definition
	References  []symbol.Reference
}

// Empty reports whether the lookup found nothing.
func (m Matches) Empty() bool {
	return len(m.Definitions) == 0 && len(m.References) == 0
}

// record is the per-symbol storage. Slices grow append-only between
// evictions, preserving insertion order.
type record struct {
	defs []symbol.Definition
	refs []symbol.Reference
}

// noteKey identifies the definition a note is attached to.
type noteKey struct {
	name string
	loc  symbol.Location
}

// Index is an in-memory store of symbols for one project snapshot.
// All methods are safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	gen     uint64
	order   []string // symbol names in first-insertion order
	records map[string]*record
	notes   map[noteKey]symbol.Note

	// resolution snapshot, rebuilt lazily when resolvedGen falls behind gen.
	resolved    map[string]*resolution
	resolvedGen uint64
	resolvedOK  bool
}

// New returns an empty Index at generation zero.
func New() *Index {
	return &Index{
		records: make(map[string]*record),
		notes:   make(map[noteKey]symbol.Note),
	}
}

// Generation returns the current version stamp. It increases on every
// structural mutation and never decreases except through SetGeneration.
func (ix *Index) Generation() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.gen
}

// SetGeneration overwrites the version stamp. Persistence strategies use it
// to restore the counter recorded in a snapshot after replaying insertions.
func (ix *Index) SetGeneration(gen uint64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.gen = gen
}

// AddDefinition appends a definition to its symbol's record. Entries are
// validated; a malformed entry is rejected with *MalformedSymbolError and the
// index is unchanged. Never overwrites existing entries.
func (ix *Index) AddDefinition(d symbol.Definition) error {
	if err := d.Validate(); err != nil {
		return &MalformedSymbolError{Entry: "definition " + d.Name, Err: err}
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	rec := ix.recordFor(d.Name)
	rec.defs = append(rec.defs, d)
	ix.gen++
	return nil
}

// AddReference appends a call-site reference to its symbol's record, subject
// to the same validation as AddDefinition.
func (ix *Index) AddReference(r symbol.Reference) error {
	if err := r.Validate(); err != nil {
		return &MalformedSymbolError{Entry: "reference " + r.Name, Err: err}
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	rec := ix.recordFor(r.Name)
	rec.refs = append(rec.refs, r)
	ix.gen++
	return nil
}

// recordFor returns the record for name, creating it (and registering the
// name in insertion order) on first use. Callers hold ix.mu.
func (ix *Index) recordFor(name string) *record {
	rec, ok := ix.records[name]
	if !ok {
		rec = &record{}
		ix.records[name] = rec
		ix.order = append(ix.order, name)
	}
	return rec
}

// FindByExactName returns every definition and reference recorded under name.
// A name with no matches yields an empty Matches, not an error.
func (ix *Index) FindByExactName(name string) Matches {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.records[name]
	if !ok {
		return Matches{}
	}
	return Matches{
		Definitions: cloneDefs(rec.defs),
		References:  cloneRefs(rec.refs),
	}
}

// FindByRegex applies pattern to every stored symbol name and returns the
// matching records keyed by name. A malformed pattern fails with
// *InvalidPatternError.
func (ix *Index) FindByRegex(pattern string) (map[string]Matches, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &InvalidPatternError{Pattern: pattern, Err: err}
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string]Matches)
	for _, name := range ix.order {
		if !re.MatchString(name) {
			continue
		}
		rec := ix.records[name]
		out[name] = Matches{
			Definitions: cloneDefs(rec.defs),
			References:  cloneRefs(rec.refs),
		}
	}
	return out, nil
}

// EvictFile removes every definition and reference whose location lies in
// path, along with notes attached to evicted definitions. Symbols left with
// no entries disappear from enumeration. Returns the number of entries
// removed. Eviction is the unit of incremental update: re-indexing a file is
// evict-then-insert.
func (ix *Index) EvictFile(path string) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	removed := 0
	keep := ix.order[:0]
	for _, name := range ix.order {
		rec := ix.records[name]

		defs := rec.defs[:0]
		for _, d := range rec.defs {
			if d.Location.File == path {
				removed++
				delete(ix.notes, noteKey{name: name, loc: d.Location})
				continue
			}
			defs = append(defs, d)
		}
		rec.defs = defs

		refs := rec.refs[:0]
		for _, r := range rec.refs {
			if r.Location.File == path {
				removed++
				continue
			}
			refs = append(refs, r)
		}
		rec.refs = refs

		if len(rec.defs) == 0 && len(rec.refs) == 0 {
			delete(ix.records, name)
			continue
		}
		keep = append(keep, name)
	}
	ix.order = keep
	ix.gen++
	return removed
}

// AllSymbols returns every stored symbol name in stable first-insertion
// order. The returned slice is a snapshot the caller may keep.
func (ix *Index) AllSymbols() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, len(ix.order))
	copy(out, ix.order)
	return out
}

// Len returns the number of distinct symbols.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Annotate attaches a note to the definition of name at loc. The definition
// itself stays immutable; notes live in a side table keyed by (name,
// location). Annotating is a structural mutation and bumps the generation.
func (ix *Index) Annotate(name string, loc symbol.Location, note symbol.Note) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	rec, ok := ix.records[name]
	if !ok {
		return fmt.Errorf("annotate %s: symbol not indexed", name)
	}
	found := false
	for _, d := range rec.defs {
		if d.Location == loc {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("annotate %s: no definition at %s", name, loc)
	}
	ix.notes[noteKey{name: name, loc: loc}] = note
	ix.gen++
	return nil
}

// Note returns the annotation attached to the definition of name at loc.
func (ix *Index) Note(name string, loc symbol.Location) (symbol.Note, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n, ok := ix.notes[noteKey{name: name, loc: loc}]
	return n, ok
}

// AnnotatedDefinition pairs a note with the definition it describes, for
// persistence and enumeration.
type AnnotatedDefinition struct {
	Name     string          `json:"name"`
	Location symbol.Location `json:"location"`
	Note     symbol.Note     `json:"note"`
}

// Annotations returns every stored note, ordered by symbol name then
// location, so enumeration is deterministic.
func (ix *Index) Annotations() []AnnotatedDefinition {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]AnnotatedDefinition, 0, len(ix.notes))
	for k, n := range ix.notes {
		out = append(out, AnnotatedDefinition{Name: k.name, Location: k.loc, Note: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		if out[i].Location.File != out[j].Location.File {
			return out[i].Location.File < out[j].Location.File
		}
		return out[i].Location.StartLine < out[j].Location.StartLine
	})
	return out
}

// Equal reports structural equality with other: same generation, same
// symbol→entries mapping with per-symbol ordering preserved, and same notes.
// Insertion order of unrelated symbols is ignored, per the round-trip law.
func (ix *Index) Equal(other *Index) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	other.mu.RLock()
	defer other.mu.RUnlock()

	if ix.gen != other.gen || len(ix.records) != len(other.records) || len(ix.notes) != len(other.notes) {
		return false
	}
	for name, rec := range ix.records {
		orec, ok := other.records[name]
		if !ok || len(rec.defs) != len(orec.defs) || len(rec.refs) != len(orec.refs) {
			return false
		}
		for i := range rec.defs {
			if rec.defs[i] != orec.defs[i] {
				return false
			}
		}
		for i := range rec.refs {
			if rec.refs[i] != orec.refs[i] {
				return false
			}
		}
	}
	for k, n := range ix.notes {
		on, ok := other.notes[k]
		if !ok || on.Summary != n.Summary {
			return false
		}
	}
	return true
}

func cloneDefs(in []symbol.Definition) []symbol.Definition {
	if len(in) == 0 {
		return nil
	}
	out := make([]symbol.Definition, len(in))
	copy(out, in)
	return out
}

func cloneRefs(in []symbol.Reference) []symbol.Reference {
	if len(in) == 0 {
		return nil
	}
	out := make([]symbol.Reference, len(in))
	copy(out, in)
	return out
}
