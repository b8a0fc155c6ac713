package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/MisakaVan/code-index/internal/index"
	"github.com/MisakaVan/code-index/internal/persist"
	"github.com/MisakaVan/code-index/internal/symbol"
)

var (
	flagRegex  bool
	flagFilter string
	flagInfo   bool
)

var queryCmd = &cobra.Command{
	Use:   "query <name>",
	Short: "Look up a symbol in an existing snapshot",
	Long:  "Loads the snapshot from the cache directory and prints the definitions and references recorded for the symbol. With --info the resolved call graph view is printed instead.",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&flagRegex, "regex", false, "treat <name> as a regular expression")
	queryCmd.Flags().StringVar(&flagFilter, "filter", "", "restrict to a symbol kind: function|method")
	queryCmd.Flags().BoolVar(&flagInfo, "info", false, "print the resolved caller/callee view for the symbol")
}

// queryResult is the printable shape for one symbol.
type queryResult struct {
	Name        string              `json:"name"`
	Definitions []symbol.Definition `json:"definitions"`
	References  []symbol.Reference  `json:"references"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	name := args[0]

	kind, err := parseKindFilter(flagFilter)
	if err != nil {
		return err
	}

	repoRoot := findRepoRoot(mustGetwd())
	snapshot, err := findSnapshot(repoRoot)
	if err != nil {
		return err
	}
	idx, err := persist.ForPath(snapshot).Load(snapshot)
	if err != nil {
		return fmt.Errorf("loading snapshot %s: %w", snapshot, err)
	}

	if flagInfo {
		if flagRegex {
			return fmt.Errorf("--info and --regex cannot be combined")
		}
		info, ok := idx.FunctionInfo(name)
		if !ok {
			return fmt.Errorf("symbol not found: %s", name)
		}
		return output(os.Stdout, info)
	}

	results, err := collectMatches(idx, name, flagRegex)
	if err != nil {
		return err
	}
	if kind != "" {
		results = filterByKind(results, kind)
	}
	if len(results) == 0 {
		return fmt.Errorf("no matches for %q", name)
	}
	return output(os.Stdout, results)
}

func parseKindFilter(filter string) (symbol.Kind, error) {
	switch filter {
	case "":
		return "", nil
	case "function":
		return symbol.KindFunction, nil
	case "method":
		return symbol.KindMethod, nil
	}
	return "", fmt.Errorf("unknown filter %q: want function or method", filter)
}

func collectMatches(idx *index.Index, name string, regex bool) ([]queryResult, error) {
	if !regex {
		m := idx.FindByExactName(name)
		if len(m.Definitions) == 0 && len(m.References) == 0 {
			return nil, nil
		}
		return []queryResult{{Name: name, Definitions: m.Definitions, References: m.References}}, nil
	}

	byName, err := idx.FindByRegex(name)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)

	results := make([]queryResult, 0, len(names))
	for _, n := range names {
		m := byName[n]
		results = append(results, queryResult{Name: n, Definitions: m.Definitions, References: m.References})
	}
	return results, nil
}

// filterByKind keeps results with at least one definition of the given kind.
func filterByKind(results []queryResult, kind symbol.Kind) []queryResult {
	kept := results[:0]
	for _, r := range results {
		for _, d := range r.Definitions {
			if d.Kind == kind {
				kept = append(kept, r)
				break
			}
		}
	}
	return kept
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
