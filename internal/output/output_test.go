package output

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/morozRed/wcm/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func listFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	return files
}

func fixtureGraph(t *testing.T) *graph.Graph {
	t.Helper()
	pkgRoot := t.TempDir()
	mustWriteFile(t, filepath.Join(pkgRoot, "polymer", "polymer.html"), "<link>")
	mustWriteFile(t, filepath.Join(pkgRoot, "polymer", "src", "lib.html"), "lib")
	mustWriteFile(t, filepath.Join(pkgRoot, "iron-icon", "iron-icon.html"), "icon")

	g := graph.NewGraph()
	g.Add(&graph.Node{Name: "polymer", Version: "1.2.0", Path: filepath.Join(pkgRoot, "polymer")})
	g.Add(&graph.Node{Name: "iron-icon", Version: "1.0.8", Path: filepath.Join(pkgRoot, "iron-icon")})
	return g
}

func TestMaterializeClearsStaleState(t *testing.T) {
	g := fixtureGraph(t)
	dest := filepath.Join(t.TempDir(), "web_components")
	mustWriteFile(t, filepath.Join(dest, "stale", "old.txt"), "stale")

	var progress []int
	report, err := Materialize(context.Background(), g, dest, Options{
		OnCopied: func(node *graph.Node, done, total int) {
			assert.Equal(t, 2, total)
			progress = append(progress, done)
		},
	})
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(dest, "stale", "old.txt"))
	assert.Equal(t, []string{
		"iron-icon/1.0.8/iron-icon.html",
		"polymer/1.2.0/polymer.html",
		"polymer/1.2.0/src/lib.html",
	}, listFiles(t, dest))
	assert.Equal(t, []int{1, 2}, progress)
	assert.Equal(t, []string{
		filepath.Join(dest, "polymer", "1.2.0"),
		filepath.Join(dest, "iron-icon", "1.0.8"),
	}, report.Packages)

	got, err := os.ReadFile(filepath.Join(dest, "polymer", "1.2.0", "src", "lib.html"))
	require.NoError(t, err)
	assert.Equal(t, "lib", string(got))
}

func TestMaterializeToleratesMissingDestination(t *testing.T) {
	g := fixtureGraph(t)
	dest := filepath.Join(t.TempDir(), "does", "not", "exist")

	_, err := Materialize(context.Background(), g, dest, Options{})
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(dest, "polymer", "1.2.0"))
}

func TestMaterializeWrapsCopyFailure(t *testing.T) {
	g := graph.NewGraph()
	g.Add(&graph.Node{Name: "ghost", Version: "1.0.0", Path: filepath.Join(t.TempDir(), "missing")})

	_, err := Materialize(context.Background(), g, filepath.Join(t.TempDir(), "out"), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResourceCopyFailure))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var copyErr *CopyError
	require.True(t, errors.As(err, &copyErr))
	assert.Equal(t, "copy", copyErr.Op)
}

func TestWriteReadableOnlyRewritesOnChange(t *testing.T) {
	g := fixtureGraph(t)
	readable, err := g.Readable()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), LockFile)
	written, err := WriteReadable(path, readable)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = WriteReadable(path, readable)
	require.NoError(t, err)
	assert.False(t, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded struct {
		Graph      map[string][]string `json:"graph"`
		Shrinkwrap map[string]string   `json:"shrinkwrap"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "1.2.0", decoded.Shrinkwrap["polymer"])
	assert.Equal(t, []string{}, decoded.Graph["polymer"])
}
