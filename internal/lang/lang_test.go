package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MisakaVan/code-index/internal/symbol"
)

func findDef(cands []symbol.Candidate, name string) *symbol.Definition {
	for _, c := range cands {
		if c.Def != nil && c.Def.Name == name {
			return c.Def
		}
	}
	return nil
}

func findRef(cands []symbol.Candidate, name string) *symbol.Reference {
	for _, c := range cands {
		if c.Ref != nil && c.Ref.Name == name {
			return c.Ref
		}
	}
	return nil
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	for _, ext := range []string{".py", ".c", ".h", ".cpp", ".hpp"} {
		_, ok := ForFile("src/x" + ext)
		assert.True(t, ok, "extension %s must be claimed", ext)
	}
	_, ok := ForFile("notes.txt")
	assert.False(t, ok)

	a, ok := ByName("python")
	require.True(t, ok)
	assert.Equal(t, "python", a.Name())
	assert.Len(t, Names(), 3)
}

func TestPythonExtract(t *testing.T) {
	t.Parallel()
	src := []byte(`def helper(x):
    return x + 1

class Parser:
    def parse(self, text):
        return helper(len(text))

def main():
    p = Parser()
    p.parse("hi")
`)
	a, _ := ByName("python")
	cands, err := a.Extract("tool.py", src)
	require.NoError(t, err)

	d := findDef(cands, "helper")
	require.NotNil(t, d)
	assert.Equal(t, symbol.KindFunction, d.Kind)
	assert.Empty(t, d.Qualifier)
	assert.False(t, d.IsDeclaration)
	assert.Equal(t, 1, d.Location.StartLine)

	m := findDef(cands, "parse")
	require.NotNil(t, m)
	assert.Equal(t, symbol.KindMethod, m.Kind)
	assert.Equal(t, "Parser", m.Qualifier)

	r := findRef(cands, "helper")
	require.NotNil(t, r)
	assert.Equal(t, "Parser.parse", r.CallerContext)

	pr := findRef(cands, "parse")
	require.NotNil(t, pr, "attribute calls are extracted by attribute name")
	assert.Equal(t, "main", pr.CallerContext)
}

func TestPythonExtract_TopLevelCall(t *testing.T) {
	t.Parallel()
	src := []byte(`def f():
    pass

f()
`)
	a, _ := ByName("python")
	cands, err := a.Extract("m.py", src)
	require.NoError(t, err)

	r := findRef(cands, "f")
	require.NotNil(t, r)
	assert.Empty(t, r.CallerContext, "module-level calls have no caller context")
}

func TestCExtract(t *testing.T) {
	t.Parallel()
	src := []byte(`int add(int a, int b);

int add(int a, int b) {
    return a + b;
}

int main(void) {
    return add(1, 2);
}
`)
	a, _ := ByName("c")
	cands, err := a.Extract("add.c", src)
	require.NoError(t, err)

	var decl, full *symbol.Definition
	for _, c := range cands {
		if c.Def == nil || c.Def.Name != "add" {
			continue
		}
		if c.Def.IsDeclaration {
			decl = c.Def
		} else {
			full = c.Def
		}
	}
	require.NotNil(t, decl, "the prototype must extract as a declaration")
	require.NotNil(t, full)
	assert.Equal(t, "(int a, int b)", full.Signature)
	assert.Equal(t, decl.Key(), full.Key(), "prototype and body share one overload key")

	r := findRef(cands, "add")
	require.NotNil(t, r)
	assert.Equal(t, "main", r.CallerContext)
	assert.Equal(t, 8, r.Location.StartLine)
}

func TestCppExtract_OverloadsAndMethods(t *testing.T) {
	t.Parallel()
	src := []byte(`int f(int x) { return x; }
double f(double x) { return x; }

class Engine {
public:
    void run(int speed);
};

void Engine::run(int speed) {
    f(speed);
}
`)
	a, _ := ByName("cpp")
	cands, err := a.Extract("engine.cpp", src)
	require.NoError(t, err)

	var keys []symbol.OverloadKey
	for _, c := range cands {
		if c.Def != nil && c.Def.Name == "f" {
			keys = append(keys, c.Def.Key())
		}
	}
	require.Len(t, keys, 2)
	assert.NotEqual(t, keys[0], keys[1], "overloads must derive distinct keys")

	run := findDef(cands, "run")
	require.NotNil(t, run)
	assert.Equal(t, symbol.KindMethod, run.Kind)
	assert.Equal(t, "Engine", run.Qualifier)
	assert.False(t, run.IsDeclaration)

	r := findRef(cands, "f")
	require.NotNil(t, r)
	assert.Equal(t, "Engine::run", r.CallerContext)
}

func TestCppExtract_InClassDeclaration(t *testing.T) {
	t.Parallel()
	src := []byte(`class Engine {
public:
    void run(int speed);
};
`)
	a, _ := ByName("cpp")
	cands, err := a.Extract("engine.hpp", src)
	require.NoError(t, err)

	run := findDef(cands, "run")
	require.NotNil(t, run)
	assert.True(t, run.IsDeclaration)
	assert.Equal(t, symbol.KindMethod, run.Kind)
	assert.Equal(t, "Engine", run.Qualifier)
}

func TestExtract_EmptySource(t *testing.T) {
	t.Parallel()
	a, _ := ByName("c")
	cands, err := a.Extract("empty.c", nil)
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestExtract_CandidatesValidate(t *testing.T) {
	t.Parallel()
	src := []byte(`def f():
    g()
`)
	a, _ := ByName("python")
	cands, err := a.Extract("v.py", src)
	require.NoError(t, err)
	require.NotEmpty(t, cands)
	for _, c := range cands {
		if c.Def != nil {
			assert.NoError(t, c.Def.Validate())
		}
		if c.Ref != nil {
			assert.NoError(t, c.Ref.Validate())
		}
	}
}
