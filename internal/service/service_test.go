package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeProject lays out a small python project and returns its root.
func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"parser.py": `def parse_json(text):
    return text

def parse_xml(text):
    return text
`,
		"tool.py": `from parser import parse_json

def run():
    parse_json("{}")
`,
	}
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(src), 0o644))
	}
	return root
}

func setupService(t *testing.T, strategy string) *IndexService {
	t.Helper()
	svc := NewIndexService(nil)
	stats, err := svc.Setup(context.Background(), writeProject(t), "python", strategy)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Files)
	return svc
}

func TestDefault_SingletonIdentity(t *testing.T) {
	t.Parallel()
	const n = 32
	got := make([]*IndexService, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Default()
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		assert.Same(t, got[0], got[i])
	}
}

func TestNewIndexService_Isolated(t *testing.T) {
	t.Parallel()
	a := NewIndexService(nil)
	b := NewIndexService(nil)
	assert.NotSame(t, a, b)
	assert.NotSame(t, a, Default())
}

func TestSetupAndQuery(t *testing.T) {
	t.Parallel()
	svc := setupService(t, "json")

	m, err := svc.QueryExact("parse_json")
	require.NoError(t, err)
	require.Len(t, m.Definitions, 1)
	assert.Equal(t, "parser.py", m.Definitions[0].Location.File, "paths are project-relative")
	require.Len(t, m.References, 1)

	byRe, err := svc.QueryRegex("^parse_")
	require.NoError(t, err)
	assert.Len(t, byRe, 2)
	assert.NotContains(t, byRe, "run")

	info, ok, err := svc.FunctionInfo("parse_json")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, info.CallEdges, 1)
	assert.Equal(t, "run", info.CallEdges[0].Caller)
}

func TestQuery_BeforeSetup(t *testing.T) {
	t.Parallel()
	svc := NewIndexService(nil)
	_, err := svc.QueryExact("anything")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, svc.Persist(), ErrNotConfigured)
	assert.ErrorIs(t, svc.ReindexFile("x.py"), ErrNotConfigured)
}

func TestSetup_UnknownLanguageOrStrategy(t *testing.T) {
	t.Parallel()
	svc := NewIndexService(nil)
	_, err := svc.Setup(context.Background(), t.TempDir(), "cobol", "json")
	assert.Error(t, err)
	_, err = svc.Setup(context.Background(), t.TempDir(), "python", "csv")
	assert.Error(t, err)
}

func TestPersistAndReload(t *testing.T) {
	t.Parallel()
	for _, strategy := range []string{"json", "sqlite"} {
		strategy := strategy
		t.Run(strategy, func(t *testing.T) {
			t.Parallel()
			svc := setupService(t, strategy)

			before := svc.Indexer().Index()
			require.NoError(t, svc.Persist())
			require.NoError(t, svc.Reload())
			after := svc.Indexer().Index()

			assert.True(t, before.Equal(after), "reload restores the persisted state")
		})
	}
}

func TestReindexFile(t *testing.T) {
	t.Parallel()
	svc := setupService(t, "json")
	root := svc.ProjectRoot()

	// The function moves and gains a sibling; stale entries must go.
	updated := `def parse_json(text, strict):
    return text

def parse_yaml(text):
    return text
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "parser.py"), []byte(updated), 0o644))
	require.NoError(t, svc.ReindexFile("parser.py"))

	m, err := svc.QueryExact("parse_json")
	require.NoError(t, err)
	require.Len(t, m.Definitions, 1)

	m, err = svc.QueryExact("parse_xml")
	require.NoError(t, err)
	assert.Empty(t, m.Definitions, "removed function disappears after reindex")

	m, err = svc.QueryExact("parse_yaml")
	require.NoError(t, err)
	assert.Len(t, m.Definitions, 1)
}

func TestReindexProject(t *testing.T) {
	t.Parallel()
	svc := setupService(t, "json")
	root := svc.ProjectRoot()

	extra := `def parse_toml(text):
    return text
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "extra.py"), []byte(extra), 0o644))

	stats, err := svc.ReindexProject(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Files)

	m, err := svc.QueryExact("parse_toml")
	require.NoError(t, err)
	assert.Len(t, m.Definitions, 1)
}

func TestConcurrentQueriesDuringReindex(t *testing.T) {
	t.Parallel()
	svc := setupService(t, "json")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = svc.QueryExact("parse_json")
				_, _, _ = svc.FunctionInfo("parse_json")
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 10; j++ {
			_ = svc.ReindexFile("parser.py")
		}
	}()
	wg.Wait()
}
