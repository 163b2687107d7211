package diff

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relPaths(items []ItemState) []string {
	r := make([]string, len(items))
	for i, it := range items {
		r[i] = it.RelPath
	}
	return r
}

func TestEnumerateBasicTree(t *testing.T) {
	root := tempTree(t)
	addFile(t, root, "a.txt", "a")
	addFile(t, root, "sub/b.txt", "bb")

	items, err := Enumerate(root, ExclusionConfig{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "sub", "sub/b.txt"}, relPaths(items))

	byRel := make(map[string]ItemState)
	for _, it := range items {
		byRel[it.RelPath] = it
	}
	assert.True(t, byRel["sub"].IsDir)
	assert.False(t, byRel["a.txt"].IsDir)
	assert.Equal(t, int64(2), byRel["sub/b.txt"].Size)
}

func TestEnumerateSkipsHiddenByDefault(t *testing.T) {
	root := tempTree(t)
	addFile(t, root, ".hidden.txt", "h")
	addFile(t, root, ".hiddendir/inner.txt", "h")
	addFile(t, root, "visible.txt", "v")

	items, err := Enumerate(root, ExclusionConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"visible.txt"}, relPaths(items))

	items, err = Enumerate(root, ExclusionConfig{IncludeHidden: true})
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{".hidden.txt", ".hiddendir", ".hiddendir/inner.txt", "visible.txt"},
		relPaths(items))
}

func TestEnumeratePrunesExcludedDirs(t *testing.T) {
	root := tempTree(t)
	addFile(t, root, "node_modules/pkg/index.js", "x")
	addFile(t, root, "src/main.go", "x")

	items, err := Enumerate(root, ExclusionConfig{Patterns: []string{"node_modules"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src", "src/main.go"}, relPaths(items))
}

func TestEnumerateExclusionIsComponentExact(t *testing.T) {
	root := tempTree(t)
	// Substring matches must not count: ".gitignore" is not ".git".
	addFile(t, root, ".gitignore", "x")
	addFile(t, root, "my.git.txt", "x")

	items, err := Enumerate(root, ExclusionConfig{
		Patterns:      []string{".git"},
		IncludeHidden: true,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{".gitignore", "my.git.txt"}, relPaths(items))
}

func TestEnumerateSymlinkedRootAliasesAgree(t *testing.T) {
	root := tempTree(t)
	addFile(t, root, "sub/data.txt", "x")

	alias := filepath.Join(tempTree(t), "alias")
	if err := os.Symlink(root, alias); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	direct, err := Enumerate(root, ExclusionConfig{})
	require.NoError(t, err)
	viaAlias, err := Enumerate(alias, ExclusionConfig{})
	require.NoError(t, err)
	assert.Equal(t, relPaths(direct), relPaths(viaAlias))
}

func TestEnumerateRejectsNonDirectories(t *testing.T) {
	root := tempTree(t)
	file := filepath.Join(root, "f.txt")
	addFile(t, root, "f.txt", "x")

	_, err := Enumerate(file, ExclusionConfig{})
	assert.Error(t, err)
	_, err = Enumerate(filepath.Join(root, "missing"), ExclusionConfig{})
	assert.Error(t, err)
}

func TestExcluded(t *testing.T) {
	cfg := ExclusionConfig{Patterns: []string{".git", "vendor"}}
	assert.True(t, cfg.Excluded(".git"))
	assert.True(t, cfg.Excluded("a/vendor/lib.go"))
	assert.True(t, cfg.Excluded(".git/config"))
	assert.False(t, cfg.Excluded(".gitignore"))
	assert.False(t, cfg.Excluded("a/vendored/lib.go"))
	assert.False(t, cfg.Excluded(""))
	assert.False(t, ExclusionConfig{}.Excluded(".git"))
}

func TestHidden(t *testing.T) {
	assert.True(t, Hidden(".DS_Store"))
	assert.False(t, Hidden("file.txt"))
	assert.False(t, Hidden("."))
	assert.False(t, Hidden(".."))
}
