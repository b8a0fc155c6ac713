// Package mcptools exposes the index service layer to analysis agents as MCP
// tools, served over stdio or streamable HTTP.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MisakaVan/code-index/internal/index"
	"github.com/MisakaVan/code-index/internal/service"
	"github.com/MisakaVan/code-index/internal/symbol"
)

// AgentService bundles the services the tool handlers operate on. Production
// wiring uses the package-level defaults; tests build isolated instances.
type AgentService struct {
	Index    *service.IndexService
	Analysis *service.RepoAnalysisService
	Fetch    *service.SourceFetchService
}

// NewAgentService wires handlers to the process-wide default services.
func NewAgentService() *AgentService {
	return &AgentService{
		Index:    service.Default(),
		Analysis: service.DefaultAnalysis(),
		Fetch:    service.DefaultFetch(),
	}
}

// resolvePath turns a project-relative path absolute for filesystem access.
func (s *AgentService) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if root := s.Index.ProjectRoot(); root != "" {
		return filepath.Join(root, path)
	}
	return path
}

func (s *AgentService) SetupRepoIndex(
	ctx context.Context, _ *mcp.CallToolRequest, in SetupRepoIndexInput,
) (*mcp.CallToolResult, SetupRepoIndexOutput, error) {
	if in.ProjectPath == "" {
		return nil, SetupRepoIndexOutput{}, fmt.Errorf("projectPath is required")
	}
	stats, err := s.Index.Setup(ctx, in.ProjectPath, in.Language, in.Strategy)
	if err != nil {
		return nil, SetupRepoIndexOutput{}, err
	}
	names, err := s.Index.AllSymbols()
	if err != nil {
		return nil, SetupRepoIndexOutput{}, err
	}
	return nil, SetupRepoIndexOutput{
		Files:   stats.Files,
		Failed:  stats.Failed,
		Entries: stats.Applied,
		Symbols: len(names),
	}, nil
}

// filterMatches drops entries not matching the requested kind. References
// carry no kind; a kind filter keeps only symbols that have at least one
// matching definition.
func filterMatches(name string, m index.Matches, filter string) (SymbolMatch, bool) {
	if filter == "" {
		return SymbolMatch{Name: name, Definitions: m.Definitions, References: m.References}, true
	}
	var defs []symbol.Definition
	for _, d := range m.Definitions {
		if string(d.Kind) == filter {
			defs = append(defs, d)
		}
	}
	if len(defs) == 0 {
		return SymbolMatch{}, false
	}
	return SymbolMatch{Name: name, Definitions: defs, References: m.References}, true
}

func (s *AgentService) QuerySymbol(
	ctx context.Context, _ *mcp.CallToolRequest, in QuerySymbolInput,
) (*mcp.CallToolResult, QuerySymbolOutput, error) {
	if in.Filter != "" && in.Filter != string(symbol.KindFunction) && in.Filter != string(symbol.KindMethod) {
		return nil, QuerySymbolOutput{}, fmt.Errorf("unknown filter %q: want function or method", in.Filter)
	}

	var out QuerySymbolOutput
	if in.Regex {
		byName, err := s.Index.QueryRegex(in.Name)
		if err != nil {
			return nil, QuerySymbolOutput{}, err
		}
		for name, m := range byName {
			if sm, ok := filterMatches(name, m, in.Filter); ok {
				out.Matches = append(out.Matches, sm)
			}
		}
		return nil, out, nil
	}

	m, err := s.Index.QueryExact(in.Name)
	if err != nil {
		return nil, QuerySymbolOutput{}, err
	}
	if sm, ok := filterMatches(in.Name, m, in.Filter); ok && !m.Empty() {
		out.Matches = append(out.Matches, sm)
	}
	return nil, out, nil
}

func (s *AgentService) GetDefinitions(
	ctx context.Context, _ *mcp.CallToolRequest, in GetDefinitionsInput,
) (*mcp.CallToolResult, GetDefinitionsOutput, error) {
	m, err := s.Index.QueryExact(in.Name)
	if err != nil {
		return nil, GetDefinitionsOutput{}, err
	}
	return nil, GetDefinitionsOutput{Definitions: m.Definitions}, nil
}

func (s *AgentService) GetReferences(
	ctx context.Context, _ *mcp.CallToolRequest, in GetReferencesInput,
) (*mcp.CallToolResult, GetReferencesOutput, error) {
	m, err := s.Index.QueryExact(in.Name)
	if err != nil {
		return nil, GetReferencesOutput{}, err
	}
	return nil, GetReferencesOutput{References: m.References}, nil
}

func (s *AgentService) GetFunctionInfo(
	ctx context.Context, _ *mcp.CallToolRequest, in GetFunctionInfoInput,
) (*mcp.CallToolResult, GetFunctionInfoOutput, error) {
	info, ok, err := s.Index.FunctionInfo(in.Name)
	if err != nil {
		return nil, GetFunctionInfoOutput{}, err
	}
	return nil, GetFunctionInfoOutput{Found: ok, Info: info}, nil
}

func (s *AgentService) ReindexFile(
	ctx context.Context, _ *mcp.CallToolRequest, in ReindexFileInput,
) (*mcp.CallToolResult, ReindexFileOutput, error) {
	if err := s.Index.ReindexFile(in.Path); err != nil {
		return nil, ReindexFileOutput{}, err
	}
	s.Fetch.Invalidate(s.resolvePath(in.Path))
	ix := s.Index.Indexer()
	return nil, ReindexFileOutput{Generation: ix.Index().Generation()}, nil
}

func (s *AgentService) ReadyDescribeDefinitions(
	ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput,
) (*mcp.CallToolResult, ReadyDescribeDefinitionsOutput, error) {
	added, err := s.Analysis.ReadyDescribeDefinitions()
	if err != nil {
		return nil, ReadyDescribeDefinitionsOutput{}, err
	}
	return nil, ReadyDescribeDefinitionsOutput{
		TasksAdded:   added,
		TasksPending: len(s.Analysis.PendingDescribeTasks(0)),
	}, nil
}

func (s *AgentService) GetPendingTasks(
	ctx context.Context, _ *mcp.CallToolRequest, in GetPendingTasksInput,
) (*mcp.CallToolResult, GetPendingTasksOutput, error) {
	return nil, GetPendingTasksOutput{Tasks: s.Analysis.PendingDescribeTasks(in.Limit)}, nil
}

func (s *AgentService) SubmitNote(
	ctx context.Context, _ *mcp.CallToolRequest, in SubmitNoteInput,
) (*mcp.CallToolResult, SubmitNoteOutput, error) {
	if in.TaskID == "" {
		return nil, SubmitNoteOutput{}, fmt.Errorf("taskId is required")
	}
	if in.Summary == "" {
		return nil, SubmitNoteOutput{}, fmt.Errorf("summary is required")
	}
	err := s.Analysis.SubmitNote(in.TaskID, symbol.Note{Summary: in.Summary, Detail: in.Detail})
	var cbErr *service.CallbackError
	if errors.As(err, &cbErr) {
		// The submission committed; only applying the note to the index
		// failed. Report it without failing the tool call.
		return nil, SubmitNoteOutput{Applied: false, Warning: cbErr.Error()}, nil
	}
	if err != nil {
		return nil, SubmitNoteOutput{}, err
	}
	return nil, SubmitNoteOutput{Applied: true}, nil
}

func (s *AgentService) GetProgress(
	ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput,
) (*mcp.CallToolResult, GetProgressOutput, error) {
	done, total := s.Analysis.Progress()
	return nil, GetProgressOutput{Done: done, Total: total}, nil
}

func (s *AgentService) FetchSourceByLines(
	ctx context.Context, _ *mcp.CallToolRequest, in FetchSourceByLinesInput,
) (*mcp.CallToolResult, FetchSourceByLinesOutput, error) {
	content, err := s.Fetch.FetchLines(s.resolvePath(in.Path), in.StartLine, in.EndLine)
	if err != nil {
		return nil, FetchSourceByLinesOutput{}, err
	}
	return nil, FetchSourceByLinesOutput{Content: content}, nil
}

func (s *AgentService) FetchSourceByBytes(
	ctx context.Context, _ *mcp.CallToolRequest, in FetchSourceByBytesInput,
) (*mcp.CallToolResult, FetchSourceByBytesOutput, error) {
	content, err := s.Fetch.FetchBytes(s.resolvePath(in.Path), in.StartByte, in.EndByte)
	if err != nil {
		return nil, FetchSourceByBytesOutput{}, err
	}
	return nil, FetchSourceByBytesOutput{Content: string(content)}, nil
}
