package index

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MisakaVan/code-index/internal/symbol"
)

func loc(file string, line int) symbol.Location {
	return symbol.Location{File: file, StartLine: line, StartCol: 1, EndLine: line, EndCol: 10}
}

func def(name, file string, line int) symbol.Definition {
	return symbol.Definition{Name: name, Kind: symbol.KindFunction, Location: loc(file, line)}
}

func ref(name, file string, line int) symbol.Reference {
	return symbol.Reference{Name: name, Location: loc(file, line)}
}

func TestAddDefinition_BumpsGeneration(t *testing.T) {
	t.Parallel()
	ix := New()
	require.Zero(t, ix.Generation())

	require.NoError(t, ix.AddDefinition(def("alpha", "a.c", 3)))
	assert.Equal(t, uint64(1), ix.Generation())

	require.NoError(t, ix.AddReference(ref("alpha", "b.c", 7)))
	assert.Equal(t, uint64(2), ix.Generation())
}

func TestAddDefinition_Malformed(t *testing.T) {
	t.Parallel()
	ix := New()

	bad := def("", "a.c", 1)
	err := ix.AddDefinition(bad)
	require.Error(t, err)

	var merr *MalformedSymbolError
	require.ErrorAs(t, err, &merr)
	assert.Zero(t, ix.Generation(), "rejected entries must not move the generation")
	assert.Zero(t, ix.Len())
}

func TestAddReference_MalformedLocation(t *testing.T) {
	t.Parallel()
	ix := New()

	r := ref("alpha", "a.c", 5)
	r.Location.EndLine = 2 // ends before it starts
	err := ix.AddReference(r)

	var merr *MalformedSymbolError
	require.ErrorAs(t, err, &merr)
	assert.Zero(t, ix.Len())
}

func TestFindByExactName(t *testing.T) {
	t.Parallel()
	ix := New()
	require.NoError(t, ix.AddDefinition(def("alpha", "a.c", 3)))
	require.NoError(t, ix.AddReference(ref("alpha", "b.c", 7)))
	require.NoError(t, ix.AddDefinition(def("beta", "a.c", 20)))

	m := ix.FindByExactName("alpha")
	require.Len(t, m.Definitions, 1)
	require.Len(t, m.References, 1)
	assert.Equal(t, "a.c", m.Definitions[0].Location.File)

	assert.True(t, ix.FindByExactName("gamma").Empty())
}

func TestFindByExactName_ReturnsCopies(t *testing.T) {
	t.Parallel()
	ix := New()
	require.NoError(t, ix.AddDefinition(def("alpha", "a.c", 3)))

	m := ix.FindByExactName("alpha")
	m.Definitions[0].Name = "mutated"

	again := ix.FindByExactName("alpha")
	assert.Equal(t, "alpha", again.Definitions[0].Name)
}

func TestFindByRegex(t *testing.T) {
	t.Parallel()
	ix := New()
	for _, name := range []string{"parse_json", "parse_xml", "serialize"} {
		require.NoError(t, ix.AddDefinition(def(name, "p.c", 1)))
	}

	m, err := ix.FindByRegex("^parse_")
	require.NoError(t, err)
	require.Len(t, m, 2)
	assert.Contains(t, m, "parse_json")
	assert.Contains(t, m, "parse_xml")
	assert.NotContains(t, m, "serialize")
	require.Len(t, m["parse_json"].Definitions, 1)
}

func TestFindByRegex_InvalidPattern(t *testing.T) {
	t.Parallel()
	ix := New()
	require.NoError(t, ix.AddDefinition(def("alpha", "a.c", 3)))

	_, err := ix.FindByRegex("((")
	var perr *InvalidPatternError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "((", perr.Pattern)
}

func TestEvictFile(t *testing.T) {
	t.Parallel()
	ix := New()
	require.NoError(t, ix.AddDefinition(def("alpha", "a.c", 3)))
	require.NoError(t, ix.AddDefinition(def("alpha", "b.c", 9)))
	require.NoError(t, ix.AddReference(ref("alpha", "a.c", 40)))
	require.NoError(t, ix.AddDefinition(def("beta", "a.c", 80)))
	genBefore := ix.Generation()

	removed := ix.EvictFile("a.c")
	assert.Equal(t, 3, removed)
	assert.Greater(t, ix.Generation(), genBefore)

	m := ix.FindByExactName("alpha")
	require.Len(t, m.Definitions, 1)
	assert.Equal(t, "b.c", m.Definitions[0].Location.File)
	assert.Empty(t, m.References)

	// beta's only entry lived in a.c; the symbol itself disappears.
	assert.True(t, ix.FindByExactName("beta").Empty())
	assert.Equal(t, 1, ix.Len())
}

func TestEvictFile_UnknownPathStillBumps(t *testing.T) {
	t.Parallel()
	ix := New()
	require.NoError(t, ix.AddDefinition(def("alpha", "a.c", 3)))
	genBefore := ix.Generation()

	assert.Zero(t, ix.EvictFile("missing.c"))
	assert.Equal(t, genBefore+1, ix.Generation())
}

func TestAnnotate(t *testing.T) {
	t.Parallel()
	ix := New()
	d := def("alpha", "a.c", 3)
	require.NoError(t, ix.AddDefinition(d))

	note := symbol.Note{Summary: "entry point for parsing"}
	require.NoError(t, ix.Annotate("alpha", d.Location, note))

	got, ok := ix.Note("alpha", d.Location)
	require.True(t, ok)
	assert.Equal(t, "entry point for parsing", got.Summary)

	// The definition record itself stays untouched.
	m := ix.FindByExactName("alpha")
	assert.Equal(t, d, m.Definitions[0])
}

func TestAnnotate_MissingTarget(t *testing.T) {
	t.Parallel()
	ix := New()
	err := ix.Annotate("alpha", loc("a.c", 3), symbol.Note{Summary: "x"})
	require.Error(t, err)
}

func TestAnnotations_Sorted(t *testing.T) {
	t.Parallel()
	ix := New()
	db := def("beta", "b.c", 1)
	da := def("alpha", "a.c", 1)
	require.NoError(t, ix.AddDefinition(db))
	require.NoError(t, ix.AddDefinition(da))
	require.NoError(t, ix.Annotate("beta", db.Location, symbol.Note{Summary: "second"}))
	require.NoError(t, ix.Annotate("alpha", da.Location, symbol.Note{Summary: "first"}))

	anns := ix.Annotations()
	require.Len(t, anns, 2)
	assert.Equal(t, "alpha", anns[0].Name)
	assert.Equal(t, "beta", anns[1].Name)
}

func TestEqual(t *testing.T) {
	t.Parallel()
	a := New()
	b := New()
	require.NoError(t, a.AddDefinition(def("alpha", "a.c", 3)))
	require.NoError(t, b.AddDefinition(def("alpha", "a.c", 3)))
	assert.True(t, a.Equal(b))

	require.NoError(t, b.AddReference(ref("alpha", "b.c", 9)))
	assert.False(t, a.Equal(b), "differing contents and generation")

	require.NoError(t, a.AddReference(ref("alpha", "b.c", 9)))
	assert.True(t, a.Equal(b))

	b.SetGeneration(99)
	assert.False(t, a.Equal(b), "generation is part of equality")
}

func TestSetGeneration(t *testing.T) {
	t.Parallel()
	ix := New()
	ix.SetGeneration(7)
	assert.Equal(t, uint64(7), ix.Generation())
}

func TestMalformedSymbolError_Unwrap(t *testing.T) {
	t.Parallel()
	inner := errors.New("boom")
	err := &MalformedSymbolError{Entry: "def alpha", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "def alpha")
}
