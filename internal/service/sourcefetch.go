package service

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// SourceFetchService serves file contents to agents with a read-through
// cache, so repeated range fetches of the same file hit disk once. One lock
// guards the whole cache; entries are invalidated explicitly after edits.
type SourceFetchService struct {
	mu    sync.Mutex
	log   *slog.Logger
	cache map[string][]byte
}

// NewSourceFetchService builds an empty cache.
func NewSourceFetchService(logger *slog.Logger) *SourceFetchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceFetchService{
		log:   logger.With("component", "source-fetch"),
		cache: make(map[string][]byte),
	}
}

var (
	defaultFetch   atomic.Pointer[SourceFetchService]
	defaultFetchMu sync.Mutex
)

// DefaultFetch returns the process-wide source fetcher.
func DefaultFetch() *SourceFetchService {
	if f := defaultFetch.Load(); f != nil {
		return f
	}
	defaultFetchMu.Lock()
	defer defaultFetchMu.Unlock()
	if f := defaultFetch.Load(); f != nil {
		return f
	}
	f := NewSourceFetchService(slog.Default())
	defaultFetch.Store(f)
	return f
}

// FetchFile returns the full contents of path, reading through the cache.
func (f *SourceFetchService) FetchFile(path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadLocked(path)
}

func (f *SourceFetchService) loadLocked(path string) ([]byte, error) {
	if data, ok := f.cache[path]; ok {
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	f.cache[path] = data
	return data, nil
}

// FetchLines returns lines start..end of path, 1-based inclusive, joined with
// newlines. Out-of-range bounds are clamped to the file and logged rather
// than rejected.
func (f *SourceFetchService) FetchLines(path string, start, end int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.loadLocked(path)
	if err != nil {
		return "", err
	}

	lines := strings.Split(string(data), "\n")
	// A trailing newline yields one empty trailing element; drop it so line
	// counts match what editors display.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	clampedStart, clampedEnd := start, end
	if clampedStart < 1 {
		clampedStart = 1
	}
	if clampedEnd > len(lines) {
		clampedEnd = len(lines)
	}
	if clampedStart != start || clampedEnd != end {
		f.log.Warn("line range clamped", "file", path,
			"requested_start", start, "requested_end", end,
			"start", clampedStart, "end", clampedEnd)
	}
	if clampedStart > clampedEnd {
		return "", nil
	}
	return strings.Join(lines[clampedStart-1:clampedEnd], "\n"), nil
}

// FetchBytes returns bytes [start, end) of path, 0-based half-open.
// Out-of-range bounds are clamped and logged.
func (f *SourceFetchService) FetchBytes(path string, start, end int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.loadLocked(path)
	if err != nil {
		return nil, err
	}

	clampedStart, clampedEnd := start, end
	if clampedStart < 0 {
		clampedStart = 0
	}
	if clampedEnd > len(data) {
		clampedEnd = len(data)
	}
	if clampedStart != start || clampedEnd != end {
		f.log.Warn("byte range clamped", "file", path,
			"requested_start", start, "requested_end", end,
			"start", clampedStart, "end", clampedEnd)
	}
	if clampedStart >= clampedEnd {
		return nil, nil
	}
	out := make([]byte, clampedEnd-clampedStart)
	copy(out, data[clampedStart:clampedEnd])
	return out, nil
}

// Invalidate drops the cached contents of path, forcing the next fetch to
// re-read disk. Call after re-indexing a changed file.
func (f *SourceFetchService) Invalidate(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cache, path)
}
