package codeindex

import (
	"context"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/MisakaVan/code-index/internal/symbol"
)

// extraction is one file's parsed output, handed from a worker to the applier.
type extraction struct {
	stored string
	cands  []symbol.Candidate
	failed bool
}

// indexFilesParallel runs extraction on a worker pool and applies results on
// a single goroutine, so index mutation stays linearizable:
//
//	workers (parallel): read + parse + extract, own parser each
//	applier (serial):   evict-then-insert through the resolver
func (ix *Indexer) indexFilesParallel(parent context.Context, root string, files []FileEntry) (Stats, error) {
	workers := ix.parallel
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(parent)
	work := make(chan FileEntry)
	results := make(chan extraction, workers)

	g.Go(func() error {
		defer close(work)
		for _, f := range files {
			select {
			case work <- f:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	wg, _ := errgroup.WithContext(ctx)
	for range workers {
		wg.Go(func() error {
			for f := range work {
				cands, stored, err := ix.extract(filepath.Join(root, f.Path))
				if err != nil {
					ix.log.Warn("skipping file", "file", f.Path, "err", err)
					results <- extraction{failed: true}
					continue
				}
				results <- extraction{stored: stored, cands: cands}
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(results)
		return wg.Wait()
	})

	var stats Stats
	resolver := ix.currentResolver()
	for res := range results {
		if res.failed {
			stats.Failed++
			continue
		}
		applied, skipped := resolver.ReindexFile(res.stored, res.cands)
		stats.Files++
		stats.Applied += applied
		stats.Skipped += skipped
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, parent.Err()
}
