package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewServer creates an MCP server with all code index tools registered.
func NewServer(svc *AgentService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "code-index",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "setup_repo_index",
		Description: "Index a repository: discover source files, extract function/method definitions and call-site references, and configure snapshot persistence. Must run before any query tool.",
	}, svc.SetupRepoIndex)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_symbol",
		Description: "Look up symbols by exact name or regular expression, optionally filtered to functions or methods. Returns all recorded definitions and references per matching symbol.",
	}, svc.QuerySymbol)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_definitions",
		Description: "Return every definition recorded under an exact symbol name, including forward declarations.",
	}, svc.GetDefinitions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_references",
		Description: "Return every call-site reference recorded under an exact symbol name.",
	}, svc.GetReferences)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_function_info",
		Description: "Return the resolved view of one symbol: definitions, references, call-graph edges, and references that stayed unresolved (missing or ambiguous target).",
	}, svc.GetFunctionInfo)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reindex_file",
		Description: "Re-extract one file after an edit: stale entries are evicted, fresh definitions and references inserted, and the cached source invalidated.",
	}, svc.ReindexFile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ready_describe_definitions",
		Description: "Scan the index and enqueue a describe task for every definition that has no note yet. Safe to call repeatedly; existing tasks are not duplicated.",
	}, svc.ReadyDescribeDefinitions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_pending_tasks",
		Description: "Return pending describe tasks, oldest first, each naming the definition to annotate.",
	}, svc.GetPendingTasks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "submit_note",
		Description: "Submit the note for a describe task. Each task accepts exactly one submission; later submissions are rejected.",
	}, svc.SubmitNote)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_progress",
		Description: "Report completed vs total describe tasks for the current annotation run.",
	}, svc.GetProgress)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "fetch_source_by_lines",
		Description: "Fetch a line range of a source file, 1-based inclusive. Out-of-range bounds are clamped to the file.",
	}, svc.FetchSourceByLines)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "fetch_source_by_bytes",
		Description: "Fetch a byte range of a source file, 0-based half-open. Out-of-range bounds are clamped to the file.",
	}, svc.FetchSourceByBytes)

	return server
}

// RunStdio serves the tools over stdin/stdout until the client disconnects
// or ctx is cancelled.
func RunStdio(ctx context.Context, svc *AgentService) error {
	return NewServer(svc).Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the tools over streamable HTTP at addr. Shuts down
// gracefully when ctx is cancelled.
func RunHTTP(ctx context.Context, svc *AgentService, addr string) error {
	server := NewServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
