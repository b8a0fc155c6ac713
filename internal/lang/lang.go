// Package lang extracts symbol candidates from source files using tree-sitter
// grammars. Each supported language registers an adapter mapping file
// extensions to a grammar plus an embedded query file; the extraction walk is
// shared across languages, with per-language hooks for qualifiers, caller
// contexts, and signatures.
package lang

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/MisakaVan/code-index/internal/symbol"
)

//go:embed queries/*.scm
var queryFS embed.FS

var whitespaceRe = regexp.MustCompile(`\s+`)

// Adapter turns one language's source text into ordered symbol candidates.
// Implementations are safe for concurrent use: every Extract call builds its
// own parser, and compiled queries are shared read-only.
type Adapter interface {
	// Name is the canonical language name ("python", "c", "cpp").
	Name() string
	// Extensions lists the file extensions this adapter claims, with dots.
	Extensions() []string
	// Extract parses src and returns candidates in source order. The error,
	// when non-nil alongside candidates, aggregates per-construct
	// *UnsupportedConstructError values; callers log them and keep the
	// candidates. A nil candidate slice with an error means the parse failed.
	Extract(path string, src []byte) ([]symbol.Candidate, error)
}

// UnsupportedConstructError reports a source construct the adapter recognized
// but cannot express as a definition or reference. Construct-scoped: the rest
// of the file still extracts.
type UnsupportedConstructError struct {
	Language  string
	Construct string
	Location  symbol.Location
}

func (e *UnsupportedConstructError) Error() string {
	return fmt.Sprintf("%s adapter: unsupported construct %q at %s", e.Language, e.Construct, e.Location)
}

var (
	registryMu sync.RWMutex
	adapters   = map[string]Adapter{}
	byExt      = map[string]Adapter{}
)

// Register adds an adapter to the registry, claiming its extensions. Later
// registrations win extension conflicts; built-in adapters register in init.
func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	adapters[a.Name()] = a
	for _, ext := range a.Extensions() {
		byExt[strings.ToLower(ext)] = a
	}
}

// ForFile returns the adapter claiming path's extension.
func ForFile(path string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := byExt[strings.ToLower(filepath.Ext(path))]
	return a, ok
}

// ByName returns a registered adapter by canonical language name.
func ByName(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// Names returns the registered language names, unordered.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(adapters))
	for name := range adapters {
		out = append(out, name)
	}
	return out
}

// captureKind classifies a query pattern capture.
type captureKind struct {
	isRef         bool
	kind          symbol.Kind
	isDeclaration bool
}

var captureMap = map[string]captureKind{
	"definition.function":  {kind: symbol.KindFunction},
	"definition.method":    {kind: symbol.KindMethod},
	"declaration.function": {kind: symbol.KindFunction, isDeclaration: true},
	"declaration.method":   {kind: symbol.KindMethod, isDeclaration: true},
	"reference.call":       {isRef: true},
}

// treeAdapter is the shared tree-sitter extraction engine. Per-language
// behavior is injected through the hook fields.
type treeAdapter struct {
	name       string
	extensions []string
	grammar    *sitter.Language

	queryOnce sync.Once
	query     *sitter.Query
	queryErr  error

	// qualifier returns the class/namespace path of a definition node,
	// empty for free functions.
	qualifier func(node *sitter.Node, src []byte) string
	// signature returns the raw parameter signature of a definition node,
	// empty when the language carries no type metadata.
	signature func(node *sitter.Node, src []byte) string
	// enclosing returns the qualified name of the function containing a
	// call-site node, empty at file top level.
	enclosing func(node *sitter.Node, src []byte) string
	// isMethod upgrades a @definition.function capture to a method when the
	// node turns out to be class-scoped (Python style). May be nil.
	isMethod func(node *sitter.Node, src []byte) bool
}

func (a *treeAdapter) Name() string         { return a.name }
func (a *treeAdapter) Extensions() []string { return a.extensions }

// compiledQuery compiles the embedded query once; the compiled query is
// safe to share across goroutines.
func (a *treeAdapter) compiledQuery() (*sitter.Query, error) {
	a.queryOnce.Do(func() {
		data, err := queryFS.ReadFile(fmt.Sprintf("queries/%s.scm", a.name))
		if err != nil {
			a.queryErr = fmt.Errorf("reading query file: %w", err)
			return
		}
		q, err := sitter.NewQuery(data, a.grammar)
		if err != nil {
			a.queryErr = fmt.Errorf("compiling query: %w", err)
			return
		}
		a.query = q
	})
	return a.query, a.queryErr
}

func (a *treeAdapter) Extract(path string, src []byte) ([]symbol.Candidate, error) {
	if len(src) == 0 {
		return nil, nil
	}
	query, err := a.compiledQuery()
	if err != nil {
		return nil, fmt.Errorf("%s adapter: %w", a.name, err)
	}

	// Parsers are not goroutine-safe; build one per call.
	parser := sitter.NewParser()
	parser.SetLanguage(a.grammar)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("%s adapter: parse %s: %w", a.name, path, err)
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	var cands []symbol.Candidate
	var constructErrs []error
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, src)

		var nameNode, patternNode *sitter.Node
		var captureName string
		for _, c := range match.Captures {
			cname := query.CaptureNameForId(c.Index)
			if cname == "name" {
				nameNode = c.Node
				continue
			}
			if _, known := captureMap[cname]; known {
				captureName = cname
				patternNode = c.Node
				continue
			}
			constructErrs = append(constructErrs, &UnsupportedConstructError{
				Language:  a.name,
				Construct: cname,
				Location:  nodeLocation(c.Node, path),
			})
		}
		if nameNode == nil || patternNode == nil {
			continue
		}

		ck := captureMap[captureName]
		name := nodeText(nameNode, src)

		if ck.isRef {
			r := symbol.Reference{
				Name:     name,
				Location: nodeLocation(nameNode, path),
			}
			if a.enclosing != nil {
				r.CallerContext = a.enclosing(nameNode, src)
			}
			cands = append(cands, symbol.Candidate{Ref: &r})
			continue
		}

		d := symbol.Definition{
			Name:          name,
			Kind:          ck.kind,
			Location:      nodeLocation(patternNode, path),
			IsDeclaration: ck.isDeclaration,
		}
		if a.qualifier != nil {
			d.Qualifier = a.qualifier(patternNode, src)
		}
		if a.signature != nil {
			d.Signature = a.signature(patternNode, src)
		}
		if d.Kind == symbol.KindFunction && a.isMethod != nil && a.isMethod(patternNode, src) {
			d.Kind = symbol.KindMethod
		}
		cands = append(cands, symbol.Candidate{Def: &d})
	}
	return cands, errors.Join(constructErrs...)
}

func nodeText(node *sitter.Node, src []byte) string {
	return string(src[node.StartByte():node.EndByte()])
}

// nodeLocation converts tree-sitter's 0-based, end-exclusive points to the
// index's 1-based inclusive ranges.
func nodeLocation(node *sitter.Node, path string) symbol.Location {
	start := node.StartPoint()
	end := node.EndPoint()
	loc := symbol.Location{
		File:      path,
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column),
	}
	if loc.EndCol < 1 {
		// Node ends exactly at a line start; clamp to the prior line's end.
		loc.EndCol = 1
	}
	return loc
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// firstChildOfType returns the first direct child with the given node type.
func firstChildOfType(node *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if c := node.Child(i); c.Type() == typ {
			return c
		}
	}
	return nil
}

// findDescendant walks the subtree breadth-first for the first node of the
// given type. Bounded by the definition node, so the walk stays small.
func findDescendant(node *sitter.Node, typ string) *sitter.Node {
	queue := []*sitter.Node{node}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.Type() == typ {
			return n
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			queue = append(queue, n.Child(i))
		}
	}
	return nil
}
