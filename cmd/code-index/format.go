package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	codeindex "github.com/MisakaVan/code-index"
	"github.com/MisakaVan/code-index/internal/symbol"
)

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

// output writes v to w in the selected format. Text dispatches on the
// concrete result type; anything without a text formatter falls back to JSON.
func output(w io.Writer, v any) error {
	if flagFormat == "text" {
		switch r := v.(type) {
		case codeindex.Stats:
			formatStatsText(w, r)
			return nil
		case []queryResult:
			formatQueryResultsText(w, r)
			return nil
		case symbol.FunctionInfo:
			formatFunctionInfoText(w, r)
			return nil
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatStatsText(w io.Writer, stats codeindex.Stats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILES\tFAILED\tAPPLIED\tSKIPPED")
	fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n", stats.Files, stats.Failed, stats.Applied, stats.Skipped)
	tw.Flush()
}

func formatQueryResultsText(w io.Writer, results []queryResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tROLE\tKIND\tSIGNATURE\tLOCATION")
	for _, r := range results {
		for _, d := range r.Definitions {
			kind := string(d.Kind)
			if d.IsDeclaration {
				kind += " (decl)"
			}
			name := d.Name
			if d.Qualifier != "" {
				name = d.Qualifier + "::" + d.Name
			}
			fmt.Fprintf(tw, "%s\tdef\t%s\t%s\t%s\n",
				name, kind, d.Signature, formatLocation(d.Location))
		}
		for _, ref := range r.References {
			caller := ref.CallerContext
			if caller == "" {
				caller = "<top level>"
			}
			fmt.Fprintf(tw, "%s\tref\tfrom %s\t%s\t%s\n",
				ref.Name, caller, ref.Signature, formatLocation(ref.Location))
		}
	}
	tw.Flush()
}

func formatFunctionInfoText(w io.Writer, info symbol.FunctionInfo) {
	fmt.Fprintf(w, "Symbol: %s\n", info.Name)
	fmt.Fprintf(w, "Definitions: %d, References: %d\n\n", len(info.Definitions), len(info.References))

	formatQueryResultsText(w, []queryResult{{
		Name:        info.Name,
		Definitions: info.Definitions,
		References:  info.References,
	}})

	if len(info.CallEdges) > 0 {
		fmt.Fprintln(w, "\nCall edges:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CALLER\tCALLEE\tSITE\tTARGET")
		for _, e := range info.CallEdges {
			caller := e.Caller
			if caller == "" {
				caller = "<top level>"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				caller, e.Callee, formatLocation(e.Site), formatLocation(e.Target))
		}
		tw.Flush()
	}

	if len(info.Unresolved) > 0 {
		fmt.Fprintf(w, "\nUnresolved references: %d\n", len(info.Unresolved))
		for _, r := range info.Unresolved {
			fmt.Fprintf(w, "  %s\n", formatLocation(r.Location))
		}
	}
}

func formatLocation(loc symbol.Location) string {
	return fmt.Sprintf("%s:%d:%d", loc.File, loc.StartLine, loc.StartCol)
}
