// Package persist stores and restores index snapshots. Two interchangeable
// strategies are provided: a single JSON document for portability and diffing,
// and a relational SQLite database for querying at rest. Both obey the same
// round-trip law: loading a saved snapshot reproduces an equal index,
// generation counter included.
package persist

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MisakaVan/code-index/internal/index"
)

// Default on-disk layout inside the indexed repository.
const (
	CacheDir       = ".code_index.cache"
	JSONFileName   = "index.json"
	SQLiteFileName = "index.sqlite"
)

// Strategy is a persistence backend for index snapshots. Implementations are
// safe for sequential use; the service layer serializes calls.
type Strategy interface {
	// Save writes a full snapshot of idx to path, replacing any previous
	// snapshot atomically with respect to readers of the same strategy.
	Save(idx *index.Index, path string) error
	// Load reads the snapshot at path into a fresh index.
	Load(path string) (*index.Index, error)
	// Name identifies the strategy for logs and CLI flags.
	Name() string
}

// PersistenceError wraps any storage failure with the medium, path, and
// operation, so callers can report "which file, doing what" without parsing
// message strings.
type PersistenceError struct {
	Medium string // "json" or "sqlite"
	Path   string
	Op     string // "save" or "load"
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Op, e.Medium, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ForPath selects a strategy from a snapshot file extension: .json selects
// the JSON strategy, anything else SQLite.
func ForPath(path string) Strategy {
	if filepath.Ext(path) == ".json" {
		return NewJSONStrategy()
	}
	return NewSQLiteStrategy()
}

// ensureParentDir creates the snapshot's parent directory so that saving into
// a fresh .code_index.cache works without a separate setup step.
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
