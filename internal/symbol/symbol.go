// Package symbol defines the immutable value types of the code index: source
// locations, function/method definitions, call-site references, and the
// resolved per-symbol view. These types carry no behavior beyond validation
// and key derivation; all mutation happens in the index that owns them.
package symbol

import (
	"fmt"
	"strings"
)

// Kind classifies a definition as a standalone function or a bound method.
type Kind string

const (
	KindFunction Kind = "function"
	KindMethod   Kind = "method"
)

// Location is a source position range. Lines and columns are 1-based and
// inclusive at both ends.
type Location struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// Validate reports whether the location is well-formed: non-empty file path,
// positive 1-based coordinates, and end position at or after start position.
func (l Location) Validate() error {
	if l.File == "" {
		return fmt.Errorf("location: empty file path")
	}
	if l.StartLine < 1 || l.StartCol < 1 || l.EndLine < 1 || l.EndCol < 1 {
		return fmt.Errorf("location %s: coordinates must be 1-based, got %d:%d-%d:%d",
			l.File, l.StartLine, l.StartCol, l.EndLine, l.EndCol)
	}
	if l.EndLine < l.StartLine || (l.EndLine == l.StartLine && l.EndCol < l.StartCol) {
		return fmt.Errorf("location %s: end %d:%d precedes start %d:%d",
			l.File, l.EndLine, l.EndCol, l.StartLine, l.StartCol)
	}
	return nil
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.StartLine, l.StartCol)
}

// Definition is a located occurrence of a function or method declaration or
// full body. Definitions are created once per extraction pass and are
// immutable thereafter.
type Definition struct {
	Name     string   `json:"name"`
	Kind     Kind     `json:"kind"`
	Location Location `json:"location"`
	// Qualifier is the enclosing class/namespace path, empty for free functions.
	Qualifier string `json:"qualifier,omitempty"`
	// Signature is the raw parameter signature used for overload
	// disambiguation, empty when the language carries no type metadata.
	Signature string `json:"signature,omitempty"`
	// IsDeclaration marks a forward declaration as opposed to a full body.
	IsDeclaration bool `json:"is_declaration,omitempty"`
}

// Validate checks structural invariants of the definition.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("definition: empty symbol name")
	}
	if d.Kind != KindFunction && d.Kind != KindMethod {
		return fmt.Errorf("definition %s: unknown kind %q", d.Name, d.Kind)
	}
	return d.Location.Validate()
}

// Key returns the overload key identifying this definition among same-named
// symbols.
func (d Definition) Key() OverloadKey {
	return DeriveKey(d.Name, d.Signature)
}

// Reference is a located call site naming a symbol.
type Reference struct {
	Name     string   `json:"name"`
	Location Location `json:"location"`
	// CallerContext is the enclosing function or method in which the call
	// occurs, empty at file top level.
	CallerContext string `json:"caller_context,omitempty"`
	// Signature carries inferred argument type tokens when the adapter can
	// derive them, enabling overload resolution at the call site.
	Signature string `json:"signature,omitempty"`
}

// Validate checks structural invariants of the reference.
func (r Reference) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("reference: empty symbol name")
	}
	return r.Location.Validate()
}

// Key returns the overload key inferred for this call site. References
// without signature metadata key on the bare name.
func (r Reference) Key() OverloadKey {
	return DeriveKey(r.Name, r.Signature)
}

// OverloadKey is the derived identity distinguishing same-named symbols by
// parameter signature. When no signature metadata is available the key
// collapses to the bare name, which means overloads of untyped languages
// share one record, a known precision limit.
type OverloadKey struct {
	Name string `json:"name"`
	// Params is the normalized parameter-type token list, "" when unknown.
	Params string `json:"params,omitempty"`
}

// Known reports whether the key carries signature metadata.
func (k OverloadKey) Known() bool { return k.Params != "" }

func (k OverloadKey) String() string {
	if k.Params == "" {
		return k.Name
	}
	return k.Name + "(" + k.Params + ")"
}

// DeriveKey builds an OverloadKey from a symbol name and a raw signature
// string. The signature is reduced to a comma-joined list of parameter-type
// tokens so that formatting differences ("int x" vs "int  x") do not split
// identical overloads.
func DeriveKey(name, signature string) OverloadKey {
	sig := strings.TrimSpace(signature)
	if sig == "" {
		return OverloadKey{Name: name}
	}
	sig = strings.TrimPrefix(sig, "(")
	sig = strings.TrimSuffix(sig, ")")
	parts := strings.Split(sig, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		fields := strings.Fields(p)
		if len(fields) == 0 {
			continue
		}
		// Keep the type portion: drop a trailing parameter name when the
		// token has more than one field ("unsigned long count" -> "unsigned long").
		tok := strings.Join(fields, " ")
		if len(fields) > 1 && !strings.ContainsAny(fields[len(fields)-1], "*&[]<>") {
			tok = strings.Join(fields[:len(fields)-1], " ")
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		// "()" and "(void)" both mean zero parameters.
		return OverloadKey{Name: name, Params: "void"}
	}
	if len(tokens) == 1 && tokens[0] == "void" {
		return OverloadKey{Name: name, Params: "void"}
	}
	return OverloadKey{Name: name, Params: strings.Join(tokens, ",")}
}

// CallEdge is one resolved caller→callee link in the call graph. Site is the
// call site, Target the callee definition the site resolved to.
type CallEdge struct {
	Caller string   `json:"caller"`
	Callee string   `json:"callee"`
	Site   Location `json:"site"`
	Target Location `json:"target"`
}

// Note is a free-text annotation with structured detail, attached to one
// definition by an analysis agent.
type Note struct {
	Summary string         `json:"summary"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// FunctionInfo is the resolved view of one symbol: every known definition and
// reference plus the call-graph edges derived from resolved references.
// Unresolved holds references whose target was missing or ambiguous; they are
// never dropped, only excluded from CallEdges.
type FunctionInfo struct {
	Name        string       `json:"name"`
	Definitions []Definition `json:"definitions"`
	References  []Reference  `json:"references"`
	CallEdges   []CallEdge   `json:"call_edges,omitempty"`
	Unresolved  []Reference  `json:"unresolved,omitempty"`
}

// Candidate is one raw extraction result from a language adapter: exactly one
// of Def or Ref is set. Candidates preserve source order within a file.
type Candidate struct {
	Def *Definition
	Ref *Reference
}

func (c Candidate) String() string {
	switch {
	case c.Def != nil:
		return fmt.Sprintf("def %s at %s", c.Def.Name, c.Def.Location)
	case c.Ref != nil:
		return fmt.Sprintf("ref %s at %s", c.Ref.Name, c.Ref.Location)
	}
	return "empty candidate"
}
