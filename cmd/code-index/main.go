package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	codeindex "github.com/MisakaVan/code-index"
	"github.com/MisakaVan/code-index/internal/persist"
)

var (
	flagCache  string
	flagFormat string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "code-index",
	Short:         "Repository symbol index: definitions, references, call graph",
	Long:          "code-index parses source files with tree-sitter, links call sites to definitions by name and overload key, and persists the result as JSON or SQLite snapshots.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagCache, "cache", "", "snapshot path (default: .code_index.cache/index.<ext> under the repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(serveCmd)
}

var (
	flagLanguages string
	flagStrategy  string
	flagSerial    bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a repository and write a snapshot",
	Long:  "Discovers source files (git ls-files when available), extracts definitions and references per language, and saves the index to the snapshot path.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. python,cpp)")
	indexCmd.Flags().StringVar(&flagStrategy, "strategy", "json", "snapshot strategy: json|sqlite")
	indexCmd.Flags().BoolVar(&flagSerial, "serial", false, "disable parallel extraction")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	repoRoot := findRepoRoot(targetDir)

	strategy, err := strategyByName(flagStrategy)
	if err != nil {
		return err
	}
	snapshot := resolveSnapshotPath(repoRoot, strategy)

	opts := []codeindex.Option{codeindex.WithRelativePaths(targetDir)}
	if flagSerial {
		opts = append(opts, codeindex.WithParallel(1))
	}
	ix := codeindex.New(opts...)

	stats, err := ix.IndexProject(context.Background(), targetDir, splitLanguages(flagLanguages))
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	if err := ix.DumpIndex(snapshot, strategy); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s (%d files, %d entries, %d failed)\n",
		targetDir, time.Since(start).Round(time.Millisecond),
		stats.Files, stats.Applied, stats.Failed)
	fmt.Fprintf(os.Stderr, "Snapshot: %s\n", snapshot)
	return output(os.Stdout, stats)
}

func splitLanguages(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func strategyByName(name string) (persist.Strategy, error) {
	switch name {
	case "json":
		return persist.NewJSONStrategy(), nil
	case "sqlite":
		return persist.NewSQLiteStrategy(), nil
	}
	return nil, fmt.Errorf("unknown strategy %q: want json or sqlite", name)
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveSnapshotPath returns the snapshot path from --cache or the default
// cache location for the strategy.
func resolveSnapshotPath(repoRoot string, strategy persist.Strategy) string {
	if flagCache != "" {
		if filepath.IsAbs(flagCache) {
			return flagCache
		}
		return filepath.Join(repoRoot, flagCache)
	}
	name := persist.JSONFileName
	if strategy.Name() == "sqlite" {
		name = persist.SQLiteFileName
	}
	return filepath.Join(repoRoot, persist.CacheDir, name)
}

// findSnapshot locates an existing snapshot for query commands: --cache if
// set, otherwise the first of index.json / index.sqlite in the cache dir.
func findSnapshot(repoRoot string) (string, error) {
	if flagCache != "" {
		path := flagCache
		if !filepath.IsAbs(path) {
			path = filepath.Join(repoRoot, path)
		}
		return path, nil
	}
	for _, name := range []string{persist.JSONFileName, persist.SQLiteFileName} {
		path := filepath.Join(repoRoot, persist.CacheDir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no snapshot found under %s, run 'code-index index' first",
		filepath.Join(repoRoot, persist.CacheDir))
}
