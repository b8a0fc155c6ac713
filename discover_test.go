package codeindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, src := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
}

func discoveredPaths(entries []FileEntry) []string {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths
}

func TestDiscoverFiles_SortedAndFiltered(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"zeta.py":       "def z():\n    pass\n",
		"alpha.c":       "int a(void) { return 0; }\n",
		"sub/beta.cpp":  "int b() { return 0; }\n",
		"README.md":     "docs\n",
		"Makefile":      "all:\n",
		"data/conf.yml": "x: 1\n",
	})

	entries, err := DiscoverFiles(root, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha.c", filepath.Join("sub", "beta.cpp"), "zeta.py"},
		discoveredPaths(entries))
	assert.Equal(t, "c", entries[0].Language)
	assert.Equal(t, "cpp", entries[1].Language)
	assert.Equal(t, "python", entries[2].Language)
}

func TestDiscoverFiles_SkipsBuildAndHiddenDirs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"keep.py":                   "def k():\n    pass\n",
		"__pycache__/cached.py":     "def c():\n    pass\n",
		"node_modules/dep/index.py": "def d():\n    pass\n",
		".hidden/secret.py":         "def s():\n    pass\n",
		"build/gen.c":               "int g(void) { return 0; }\n",
		".venv/lib.py":              "def v():\n    pass\n",
	})

	entries, err := DiscoverFiles(root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.py"}, discoveredPaths(entries))
}

func TestDiscoverFiles_HonorsGitignore(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":       "generated/\n*.gen.py\n",
		"main.py":          "def m():\n    pass\n",
		"util.gen.py":      "def u():\n    pass\n",
		"generated/out.py": "def o():\n    pass\n",
	})

	entries, err := DiscoverFiles(root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py"}, discoveredPaths(entries))
}

func TestDiscoverFiles_LanguageFilter(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py":  "def a():\n    pass\n",
		"b.c":   "int b(void) { return 0; }\n",
		"c.cpp": "int c() { return 0; }\n",
	})

	entries, err := DiscoverFiles(root, []string{"python", "cpp"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "c.cpp"}, discoveredPaths(entries))
}

func TestDiscoverFiles_EmptyTree(t *testing.T) {
	t.Parallel()
	entries, err := DiscoverFiles(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
