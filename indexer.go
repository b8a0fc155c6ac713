package codeindex

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/MisakaVan/code-index/internal/index"
	"github.com/MisakaVan/code-index/internal/lang"
	"github.com/MisakaVan/code-index/internal/persist"
	"github.com/MisakaVan/code-index/internal/symbol"
)

// Indexer orchestrates the pipeline: file discovery, per-language extraction,
// incremental index updates, and snapshot persistence.
type Indexer struct {
	mu       sync.RWMutex
	idx      *index.Index
	resolver *index.Resolver

	log      *slog.Logger
	relRoot  string
	parallel int
	adapter  lang.Adapter // forced adapter, nil selects by extension
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithRelativePaths stores file paths relative to root instead of as given,
// keeping snapshots position-independent.
func WithRelativePaths(root string) Option {
	return func(ix *Indexer) { ix.relRoot = root }
}

// WithParallel sets the extraction worker count for IndexProject. Zero or
// negative selects GOMAXPROCS workers; one forces serial extraction.
func WithParallel(n int) Option {
	return func(ix *Indexer) { ix.parallel = n }
}

// WithAdapter forces one language adapter for every file, bypassing
// extension-based selection.
func WithAdapter(a lang.Adapter) Option {
	return func(ix *Indexer) { ix.adapter = a }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Indexer) { ix.log = l }
}

// New creates an empty Indexer.
func New(opts ...Option) *Indexer {
	ix := &Indexer{
		idx: index.New(),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	ix.resolver = index.NewResolver(ix.idx, ix.log)
	return ix
}

// Index exposes the underlying index for read access.
func (ix *Indexer) Index() *index.Index {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.idx
}

func (ix *Indexer) currentResolver() *index.Resolver {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.resolver
}

// storedPath converts path to the form entries are recorded under.
func (ix *Indexer) storedPath(path string) string {
	if ix.relRoot == "" {
		return path
	}
	rel, err := filepath.Rel(ix.relRoot, path)
	if err != nil {
		return path
	}
	return rel
}

// adapterFor picks the adapter for path, honoring a forced adapter.
func (ix *Indexer) adapterFor(path string) (lang.Adapter, bool) {
	if ix.adapter != nil {
		return ix.adapter, true
	}
	return lang.ForFile(path)
}

// extract reads and parses one file. The returned candidates already carry
// the stored (possibly root-relative) path.
func (ix *Indexer) extract(path string) ([]symbol.Candidate, string, error) {
	adapter, ok := ix.adapterFor(path)
	if !ok {
		return nil, "", fmt.Errorf("index %s: no adapter for extension", path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("index %s: %w", path, err)
	}
	stored := ix.storedPath(path)
	cands, err := adapter.Extract(stored, src)
	if err != nil && cands == nil {
		return nil, "", fmt.Errorf("index %s: %w", path, err)
	}
	if err != nil {
		// Construct-level issues: the rest of the file extracted fine.
		ix.log.Warn("partial extraction", "file", stored, "err", err)
	}
	return cands, stored, nil
}

// IndexFile indexes or re-indexes a single file: stale entries for the file
// are evicted, then fresh definitions and references are inserted.
func (ix *Indexer) IndexFile(path string) error {
	cands, stored, err := ix.extract(path)
	if err != nil {
		return err
	}
	applied, skipped := ix.currentResolver().ReindexFile(stored, cands)
	ix.log.Debug("indexed file", "file", stored, "applied", applied, "skipped", skipped)
	return nil
}

// Stats summarizes one IndexProject run.
type Stats struct {
	Files   int `json:"files"`
	Failed  int `json:"failed"`
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

// IndexProject discovers source files under root (git ls-files when
// available, gitignore-aware walk otherwise) and indexes them. Per-file
// failures are logged and counted, never fatal; only discovery errors and
// context cancellation abort the run. languages restricts extraction when
// non-empty.
func (ix *Indexer) IndexProject(ctx context.Context, root string, languages []string) (Stats, error) {
	files, err := DiscoverFiles(root, languages)
	if err != nil {
		return Stats{}, fmt.Errorf("discover %s: %w", root, err)
	}
	if ix.parallel == 1 {
		return ix.indexFilesSerial(ctx, root, files)
	}
	return ix.indexFilesParallel(ctx, root, files)
}

func (ix *Indexer) indexFilesSerial(ctx context.Context, root string, files []FileEntry) (Stats, error) {
	var stats Stats
	resolver := ix.currentResolver()
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		cands, stored, err := ix.extract(filepath.Join(root, f.Path))
		if err != nil {
			ix.log.Warn("skipping file", "file", f.Path, "err", err)
			stats.Failed++
			continue
		}
		applied, skipped := resolver.ReindexFile(stored, cands)
		stats.Files++
		stats.Applied += applied
		stats.Skipped += skipped
	}
	return stats, nil
}

// FindDefinitions returns all definitions recorded under name.
func (ix *Indexer) FindDefinitions(name string) []symbol.Definition {
	return ix.Index().FindByExactName(name).Definitions
}

// FindReferences returns all call-site references recorded under name.
func (ix *Indexer) FindReferences(name string) []symbol.Reference {
	return ix.Index().FindByExactName(name).References
}

// FindByRegex returns matching records keyed by symbol name.
func (ix *Indexer) FindByRegex(pattern string) (map[string]index.Matches, error) {
	return ix.Index().FindByRegex(pattern)
}

// FunctionInfo returns the resolved view of one symbol.
func (ix *Indexer) FunctionInfo(name string) (symbol.FunctionInfo, bool) {
	return ix.Index().FunctionInfo(name)
}

// DumpIndex saves the current index to path using the given strategy.
func (ix *Indexer) DumpIndex(path string, strategy persist.Strategy) error {
	return strategy.Save(ix.Index(), path)
}

// LoadIndex replaces the current index with the snapshot at path.
func (ix *Indexer) LoadIndex(path string, strategy persist.Strategy) error {
	loaded, err := strategy.Load(path)
	if err != nil {
		return err
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.idx = loaded
	ix.resolver = index.NewResolver(loaded, ix.log)
	return nil
}
