package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MisakaVan/code-index/internal/mcptools"
)

var (
	flagHTTP          string
	flagProject       string
	flagServeLanguage string
	flagServeStrategy string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the annotation tool server",
	Long:  "Exposes index queries, source fetching, and the describe-task workflow as tools over stdio (default) or streamable HTTP. With --project the repository is indexed before the server starts accepting requests.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagHTTP, "http", "", "listen address for HTTP transport (default: stdio)")
	serveCmd.Flags().StringVar(&flagProject, "project", "", "repository to index at startup")
	serveCmd.Flags().StringVar(&flagServeLanguage, "language", "", "language filter for startup indexing")
	serveCmd.Flags().StringVar(&flagServeStrategy, "strategy", "json", "snapshot strategy: json|sqlite")
}

func runServe(cmd *cobra.Command, args []string) error {
	svc := mcptools.NewAgentService()
	ctx := cmd.Context()

	if flagProject != "" {
		stats, err := svc.Index.Setup(ctx, flagProject, flagServeLanguage, flagServeStrategy)
		if err != nil {
			return fmt.Errorf("startup indexing: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Indexed %s (%d files, %d entries)\n",
			flagProject, stats.Files, stats.Applied)
	}

	if flagHTTP != "" {
		fmt.Fprintf(os.Stderr, "Serving on http://%s\n", flagHTTP)
		return mcptools.RunHTTP(ctx, svc, flagHTTP)
	}
	return mcptools.RunStdio(ctx, svc)
}
