package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MisakaVan/code-index/internal/index"
	"github.com/MisakaVan/code-index/internal/symbol"
)

// jsonSnapshot is the flat document layout: one object per symbol name with
// its definition and reference lists, plus the generation counter and the
// annotation side table. Unknown top-level fields are ignored on load so the
// format can grow additively.
type jsonSnapshot struct {
	Generation  uint64                      `json:"generation"`
	Symbols     map[string]jsonSymbolRecord `json:"symbols"`
	Annotations []index.AnnotatedDefinition `json:"annotations,omitempty"`
}

type jsonSymbolRecord struct {
	Definitions []symbol.Definition `json:"definitions"`
	References  []symbol.Reference  `json:"references"`
}

// JSONStrategy persists the index as one pretty-printed JSON document.
// Writes go through a temp file in the same directory followed by a rename,
// so a crash mid-save never leaves a truncated snapshot behind.
type JSONStrategy struct{}

func NewJSONStrategy() *JSONStrategy { return &JSONStrategy{} }

func (s *JSONStrategy) Name() string { return "json" }

func (s *JSONStrategy) Save(idx *index.Index, path string) error {
	snap := jsonSnapshot{
		Generation:  idx.Generation(),
		Symbols:     make(map[string]jsonSymbolRecord),
		Annotations: idx.Annotations(),
	}
	for _, name := range idx.AllSymbols() {
		m := idx.FindByExactName(name)
		snap.Symbols[name] = jsonSymbolRecord{
			Definitions: m.Definitions,
			References:  m.References,
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return &PersistenceError{Medium: "json", Path: path, Op: "save", Err: err}
	}
	if err := ensureParentDir(path); err != nil {
		return &PersistenceError{Medium: "json", Path: path, Op: "save", Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*.json.tmp")
	if err != nil {
		return &PersistenceError{Medium: "json", Path: path, Op: "save", Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistenceError{Medium: "json", Path: path, Op: "save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Medium: "json", Path: path, Op: "save", Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Medium: "json", Path: path, Op: "save", Err: err}
	}
	return nil
}

func (s *JSONStrategy) Load(path string) (*index.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PersistenceError{Medium: "json", Path: path, Op: "load", Err: err}
	}
	var snap jsonSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &PersistenceError{Medium: "json", Path: path, Op: "load", Err: err}
	}

	idx := index.New()
	for name, rec := range snap.Symbols {
		for _, d := range rec.Definitions {
			if err := idx.AddDefinition(d); err != nil {
				return nil, &PersistenceError{Medium: "json", Path: path, Op: "load",
					Err: fmt.Errorf("symbol %s: %w", name, err)}
			}
		}
		for _, r := range rec.References {
			if err := idx.AddReference(r); err != nil {
				return nil, &PersistenceError{Medium: "json", Path: path, Op: "load",
					Err: fmt.Errorf("symbol %s: %w", name, err)}
			}
		}
	}
	for _, a := range snap.Annotations {
		if err := idx.Annotate(a.Name, a.Location, a.Note); err != nil {
			return nil, &PersistenceError{Medium: "json", Path: path, Op: "load",
				Err: fmt.Errorf("annotation %s: %w", a.Name, err)}
		}
	}
	// Replaying insertions moved the counter; restore the recorded value so
	// the round-trip law holds exactly.
	idx.SetGeneration(snap.Generation)
	return idx, nil
}
