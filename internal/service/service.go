// Package service layers a concurrency-safe facade over the indexer for
// multi-agent use: a canonical index service, an annotation work queue, a
// repository analysis driver, and a cached source fetcher. Each service has a
// package-level default acquired through double-checked initialization;
// constructors stay exported so tests build isolated instances.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	codeindex "github.com/MisakaVan/code-index"
	"github.com/MisakaVan/code-index/internal/index"
	"github.com/MisakaVan/code-index/internal/lang"
	"github.com/MisakaVan/code-index/internal/persist"
	"github.com/MisakaVan/code-index/internal/symbol"
)

// IndexService owns the canonical index of one project plus the persistence
// strategy used for its snapshots. All methods are safe for concurrent use;
// mutations of the service's configuration (Setup, Reload) serialize against
// queries.
type IndexService struct {
	mu  sync.RWMutex
	log *slog.Logger

	indexer      *codeindex.Indexer
	strategy     persist.Strategy
	projectRoot  string
	snapshotPath string
	languages    []string
}

// NewIndexService builds an independent, unconfigured service. Production
// code normally goes through Default; tests construct their own instances.
func NewIndexService(logger *slog.Logger) *IndexService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexService{log: logger.With("component", "index-service")}
}

var (
	defaultIndexSvc   atomic.Pointer[IndexService]
	defaultIndexSvcMu sync.Mutex
)

// Default returns the process-wide IndexService, creating it on first use.
// The atomic fast path avoids the mutex once initialized.
func Default() *IndexService {
	if s := defaultIndexSvc.Load(); s != nil {
		return s
	}
	defaultIndexSvcMu.Lock()
	defer defaultIndexSvcMu.Unlock()
	if s := defaultIndexSvc.Load(); s != nil {
		return s
	}
	s := NewIndexService(slog.Default())
	defaultIndexSvc.Store(s)
	return s
}

// Setup indexes the project at projectPath and configures persistence.
// language restricts extraction to one adapter when non-empty; strategyName
// is "json" or "sqlite" (default json). Calling Setup again replaces the
// previous project wholesale.
func (s *IndexService) Setup(ctx context.Context, projectPath, language, strategyName string) (codeindex.Stats, error) {
	var languages []string
	if language != "" {
		if _, ok := lang.ByName(language); !ok {
			return codeindex.Stats{}, fmt.Errorf("setup: unsupported language %q", language)
		}
		languages = []string{language}
	}

	var strategy persist.Strategy
	var snapshotName string
	switch strategyName {
	case "", "json":
		strategy = persist.NewJSONStrategy()
		snapshotName = persist.JSONFileName
	case "sqlite":
		strategy = persist.NewSQLiteStrategy()
		snapshotName = persist.SQLiteFileName
	default:
		return codeindex.Stats{}, fmt.Errorf("setup: unknown strategy %q", strategyName)
	}

	indexer := codeindex.New(
		codeindex.WithRelativePaths(projectPath),
		codeindex.WithLogger(s.log),
	)
	stats, err := indexer.IndexProject(ctx, projectPath, languages)
	if err != nil {
		return stats, fmt.Errorf("setup: %w", err)
	}

	s.mu.Lock()
	s.indexer = indexer
	s.strategy = strategy
	s.projectRoot = projectPath
	s.snapshotPath = filepath.Join(projectPath, persist.CacheDir, snapshotName)
	s.languages = languages
	s.mu.Unlock()

	s.log.Info("project indexed",
		"root", projectPath, "files", stats.Files, "failed", stats.Failed,
		"entries", stats.Applied, "strategy", strategy.Name())
	return stats, nil
}

// ErrNotConfigured is returned by operations that need a prior Setup.
var ErrNotConfigured = fmt.Errorf("index service: not configured, call Setup first")

func (s *IndexService) current() (*codeindex.Indexer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.indexer == nil {
		return nil, ErrNotConfigured
	}
	return s.indexer, nil
}

// ProjectRoot returns the configured project path, empty before Setup.
func (s *IndexService) ProjectRoot() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectRoot
}

// QueryExact returns all entries recorded under name.
func (s *IndexService) QueryExact(name string) (index.Matches, error) {
	ix, err := s.current()
	if err != nil {
		return index.Matches{}, err
	}
	return ix.Index().FindByExactName(name), nil
}

// QueryRegex returns matching records keyed by symbol name.
func (s *IndexService) QueryRegex(pattern string) (map[string]index.Matches, error) {
	ix, err := s.current()
	if err != nil {
		return nil, err
	}
	return ix.FindByRegex(pattern)
}

// FunctionInfo returns the resolved view of one symbol.
func (s *IndexService) FunctionInfo(name string) (symbol.FunctionInfo, bool, error) {
	ix, err := s.current()
	if err != nil {
		return symbol.FunctionInfo{}, false, err
	}
	info, ok := ix.FunctionInfo(name)
	return info, ok, nil
}

// AllSymbols returns every indexed symbol name in insertion order.
func (s *IndexService) AllSymbols() ([]string, error) {
	ix, err := s.current()
	if err != nil {
		return nil, err
	}
	return ix.Index().AllSymbols(), nil
}

// Annotate attaches a note to the definition of name at loc.
func (s *IndexService) Annotate(name string, loc symbol.Location, note symbol.Note) error {
	ix, err := s.current()
	if err != nil {
		return err
	}
	return ix.Index().Annotate(name, loc, note)
}

// Note returns the annotation on the definition of name at loc, if any.
func (s *IndexService) Note(name string, loc symbol.Location) (symbol.Note, bool, error) {
	ix, err := s.current()
	if err != nil {
		return symbol.Note{}, false, err
	}
	n, ok := ix.Index().Note(name, loc)
	return n, ok, nil
}

// ReindexFile re-extracts one file, evicting its stale entries first. path
// may be absolute or relative to the project root.
func (s *IndexService) ReindexFile(path string) error {
	s.mu.RLock()
	ix, root := s.indexer, s.projectRoot
	s.mu.RUnlock()
	if ix == nil {
		return ErrNotConfigured
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	return ix.IndexFile(path)
}

// ReindexProject re-walks the project and re-extracts every discovered file.
// Files are evicted and re-inserted one by one, so concurrent queries observe
// a consistent (if mid-update) index throughout.
func (s *IndexService) ReindexProject(ctx context.Context) (codeindex.Stats, error) {
	s.mu.RLock()
	ix, root, languages := s.indexer, s.projectRoot, s.languages
	s.mu.RUnlock()
	if ix == nil {
		return codeindex.Stats{}, ErrNotConfigured
	}
	stats, err := ix.IndexProject(ctx, root, languages)
	if err != nil {
		return stats, fmt.Errorf("reindex %s: %w", root, err)
	}
	s.log.Info("project reindexed", "root", root, "files", stats.Files, "failed", stats.Failed)
	return stats, nil
}

// Persist saves the canonical index to the configured snapshot path.
func (s *IndexService) Persist() error {
	s.mu.RLock()
	ix, strategy, path := s.indexer, s.strategy, s.snapshotPath
	s.mu.RUnlock()
	if ix == nil {
		return ErrNotConfigured
	}
	if err := ix.DumpIndex(path, strategy); err != nil {
		return err
	}
	s.log.Info("index persisted", "path", path, "strategy", strategy.Name())
	return nil
}

// Reload replaces the in-memory index with the configured snapshot.
func (s *IndexService) Reload() error {
	s.mu.RLock()
	ix, strategy, path := s.indexer, s.strategy, s.snapshotPath
	s.mu.RUnlock()
	if ix == nil {
		return ErrNotConfigured
	}
	if err := ix.LoadIndex(path, strategy); err != nil {
		return err
	}
	s.log.Info("index reloaded", "path", path)
	return nil
}

// Indexer exposes the underlying indexer, nil before Setup. Intended for the
// CLI and tests; agent-facing callers use the typed query methods.
func (s *IndexService) Indexer() *codeindex.Indexer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexer
}
