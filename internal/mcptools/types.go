package mcptools

import (
	"github.com/MisakaVan/code-index/internal/service"
	"github.com/MisakaVan/code-index/internal/symbol"
)

// --- MCP tool input/output types for the agent surface ---
// Field docs double as the JSON schema descriptions agents see.

// SetupRepoIndexInput is the input for the setup_repo_index tool.
type SetupRepoIndexInput struct {
	ProjectPath string `json:"projectPath" jsonschema:"absolute path to the repository to index"`
	Language    string `json:"language,omitempty" jsonschema:"restrict indexing to one language (python, c, cpp); empty indexes all supported"`
	Strategy    string `json:"strategy,omitempty" jsonschema:"persistence strategy: json (default) or sqlite"`
}

// SetupRepoIndexOutput is the result of the setup_repo_index tool.
type SetupRepoIndexOutput struct {
	Files   int `json:"files"`
	Failed  int `json:"failed"`
	Entries int `json:"entries"`
	Symbols int `json:"symbols"`
}

// QuerySymbolInput is the input for the query_symbol tool.
type QuerySymbolInput struct {
	Name   string `json:"name" jsonschema:"symbol name, or a regular expression when regex is true"`
	Regex  bool   `json:"regex,omitempty" jsonschema:"treat name as a regular expression over symbol names"`
	Filter string `json:"filter,omitempty" jsonschema:"restrict results to one kind: function or method"`
}

// SymbolMatch is one symbol's entries in a query result.
type SymbolMatch struct {
	Name        string              `json:"name"`
	Definitions []symbol.Definition `json:"definitions"`
	References  []symbol.Reference  `json:"references"`
}

// QuerySymbolOutput is the result of the query_symbol tool.
type QuerySymbolOutput struct {
	Matches []SymbolMatch `json:"matches"`
}

// GetDefinitionsInput is the input for the get_definitions tool.
type GetDefinitionsInput struct {
	Name string `json:"name" jsonschema:"exact symbol name"`
}

// GetDefinitionsOutput is the result of the get_definitions tool.
type GetDefinitionsOutput struct {
	Definitions []symbol.Definition `json:"definitions"`
}

// GetReferencesInput is the input for the get_references tool.
type GetReferencesInput struct {
	Name string `json:"name" jsonschema:"exact symbol name"`
}

// GetReferencesOutput is the result of the get_references tool.
type GetReferencesOutput struct {
	References []symbol.Reference `json:"references"`
}

// GetFunctionInfoInput is the input for the get_function_info tool.
type GetFunctionInfoInput struct {
	Name string `json:"name" jsonschema:"exact symbol name"`
}

// GetFunctionInfoOutput is the result of the get_function_info tool.
type GetFunctionInfoOutput struct {
	Found bool                `json:"found"`
	Info  symbol.FunctionInfo `json:"info,omitempty"`
}

// ReindexFileInput is the input for the reindex_file tool.
type ReindexFileInput struct {
	Path string `json:"path" jsonschema:"file path, absolute or relative to the project root"`
}

// ReindexFileOutput is the result of the reindex_file tool.
type ReindexFileOutput struct {
	Generation uint64 `json:"generation"`
}

// ReadyDescribeDefinitionsOutput is the result of the
// ready_describe_definitions tool (no input).
type ReadyDescribeDefinitionsOutput struct {
	TasksAdded   int `json:"tasksAdded"`
	TasksPending int `json:"tasksPending"`
}

// GetPendingTasksInput is the input for the get_pending_tasks tool.
type GetPendingTasksInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum tasks to return; 0 returns all"`
}

// GetPendingTasksOutput is the result of the get_pending_tasks tool.
type GetPendingTasksOutput struct {
	Tasks []service.DescribeTask `json:"tasks"`
}

// SubmitNoteInput is the input for the submit_note tool.
type SubmitNoteInput struct {
	TaskID  string         `json:"taskId" jsonschema:"pending task identifier from get_pending_tasks"`
	Summary string         `json:"summary" jsonschema:"one-paragraph description of the definition"`
	Detail  map[string]any `json:"detail,omitempty" jsonschema:"optional structured detail attached to the note"`
}

// SubmitNoteOutput is the result of the submit_note tool.
type SubmitNoteOutput struct {
	Applied bool   `json:"applied"`
	Warning string `json:"warning,omitempty"`
}

// GetProgressOutput is the result of the get_progress tool (no input).
type GetProgressOutput struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// FetchSourceByLinesInput is the input for the fetch_source_by_lines tool.
type FetchSourceByLinesInput struct {
	Path      string `json:"path" jsonschema:"file path, absolute or relative to the project root"`
	StartLine int    `json:"startLine" jsonschema:"first line, 1-based inclusive"`
	EndLine   int    `json:"endLine" jsonschema:"last line, 1-based inclusive"`
}

// FetchSourceByLinesOutput is the result of the fetch_source_by_lines tool.
type FetchSourceByLinesOutput struct {
	Content string `json:"content"`
}

// FetchSourceByBytesInput is the input for the fetch_source_by_bytes tool.
type FetchSourceByBytesInput struct {
	Path      string `json:"path" jsonschema:"file path, absolute or relative to the project root"`
	StartByte int    `json:"startByte" jsonschema:"first byte offset, 0-based inclusive"`
	EndByte   int    `json:"endByte" jsonschema:"end byte offset, exclusive"`
}

// FetchSourceByBytesOutput is the result of the fetch_source_by_bytes tool.
type FetchSourceByBytesOutput struct {
	Content string `json:"content"`
}

type emptyInput struct{}
