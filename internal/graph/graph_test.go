package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/morozRed/wcm/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePackage creates <root>/<dir>/.bower.json with the given dependencies.
func writePackage(t *testing.T, root, dir, name, release string, deps map[string]string) {
	t.Helper()
	pkgDir := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(pkgDir, 0755))

	entries := make([]string, 0, len(deps))
	for dep, version := range deps {
		entries = append(entries, fmt.Sprintf("%q: %q", dep, version))
	}
	content := fmt.Sprintf(`{"name": %q, "_release": %q, "dependencies": {%s}}`, name, release, strings.Join(entries, ", "))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, manifest.ReleaseFile), []byte(content), 0644))
}

func buildFixture(t *testing.T, packageRoot string, deps map[string]string) *Graph {
	t.Helper()
	root := &manifest.Manifest{Name: "app", Dependencies: deps}
	g, err := Build(context.Background(), root, BuildOptions{PackageRoot: packageRoot})
	require.NoError(t, err)
	return g
}

func TestBuildCaseInsensitiveDiamond(t *testing.T) {
	pkgRoot := t.TempDir()
	writePackage(t, pkgRoot, "left", "left", "1.0.0", map[string]string{"Foo": "^2.0.0"})
	writePackage(t, pkgRoot, "right", "right", "1.1.0", map[string]string{"foo": "^2.0.0"})
	writePackage(t, pkgRoot, "Foo", "Foo", "2.0.1", nil)

	g := buildFixture(t, pkgRoot, map[string]string{"left": "^1.0.0", "right": "^1.0.0"})

	require.Equal(t, 3, g.Len())
	foo, ok := g.Lookup("FOO")
	require.True(t, ok)
	assert.Equal(t, "Foo", foo.Name)
	assert.Equal(t, "2.0.1", foo.Version)
	assert.Equal(t, 2, foo.References)
	assert.Equal(t, filepath.Join(pkgRoot, "Foo"), foo.Path)
	assert.Equal(t, []string{"left", "foo", "right"}, g.Order)

	readable, err := g.Readable()
	require.NoError(t, err)
	assert.Equal(t, []string{"Foo"}, readable.Graph["left"])
	assert.Equal(t, []string{"Foo"}, readable.Graph["right"])
	for _, deps := range readable.Graph {
		for _, dep := range deps {
			assert.Contains(t, readable.Shrinkwrap, dep)
		}
	}
}

func TestBuildMatchesPackageDirectoryIgnoringCase(t *testing.T) {
	pkgRoot := t.TempDir()
	writePackage(t, pkgRoot, "polymer", "polymer", "1.9.3", nil)
	writePackage(t, pkgRoot, "Paper-Button", "paper-button", "1.0.5", map[string]string{"Polymer": "^1.0.0"})

	g := buildFixture(t, pkgRoot, map[string]string{"PAPER-BUTTON": "^1.0.0", "Polymer": "^1.9.0"})

	require.Equal(t, 2, g.Len())
	polymer, ok := g.Lookup("polymer")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(pkgRoot, "polymer"), polymer.Path)
	assert.Equal(t, "1.9.3", polymer.Version)
	assert.Equal(t, 2, polymer.References)

	button, ok := g.Lookup("paper-button")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(pkgRoot, "Paper-Button"), button.Path)
}

func TestBuildTerminatesOnCycles(t *testing.T) {
	pkgRoot := t.TempDir()
	writePackage(t, pkgRoot, "a", "a", "1.0.0", map[string]string{"b": "1.0.0"})
	writePackage(t, pkgRoot, "b", "b", "1.0.0", map[string]string{"a": "1.0.0"})

	g := buildFixture(t, pkgRoot, map[string]string{"a": "1.0.0"})

	require.Equal(t, 2, g.Len())
	a, _ := g.Lookup("a")
	b, _ := g.Lookup("b")
	assert.Equal(t, 2, a.References)
	assert.Equal(t, 1, b.References)

	readable, err := g.Readable()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, readable.Graph["a"])
	assert.Equal(t, []string{"a"}, readable.Graph["b"])
}

func TestBuildIsDeterministic(t *testing.T) {
	pkgRoot := t.TempDir()
	writePackage(t, pkgRoot, "polymer", "polymer", "1.2.0", map[string]string{"webcomponentsjs": "^0.7.0"})
	writePackage(t, pkgRoot, "webcomponentsjs", "webcomponentsjs", "0.7.24", nil)
	writePackage(t, pkgRoot, "Paper-Button", "Paper-Button", "1.0.3", map[string]string{"polymer": "^1.1.0", "iron-icon": "^1.0.0"})
	writePackage(t, pkgRoot, "iron-icon", "iron-icon", "1.0.8", map[string]string{"polymer": "^1.0.0"})

	deps := map[string]string{"Paper-Button": "^1.0.0", "polymer": "^1.2.0"}

	first, err := buildFixture(t, pkgRoot, deps).Readable()
	require.NoError(t, err)
	second, err := buildFixture(t, pkgRoot, deps).Readable()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))

	assert.Equal(t, []string{"iron-icon", "Paper-Button", "polymer", "webcomponentsjs"}, first.Names())
	assert.Equal(t, []string{"iron-icon", "polymer"}, first.Graph["Paper-Button"])
	assert.Equal(t, "0.7.24", first.Shrinkwrap["webcomponentsjs"])
	assert.True(t, strings.HasPrefix(string(firstJSON), `{"graph":{"iron-icon":["polymer"],"Paper-Button":`), string(firstJSON))
}

func TestBuildFailsOnMissingPackageDirectory(t *testing.T) {
	pkgRoot := t.TempDir()
	writePackage(t, pkgRoot, "a", "a", "1.0.0", map[string]string{"ghost": "1.0.0"})

	root := &manifest.Manifest{Name: "app", Dependencies: map[string]string{"a": "1.0.0"}}
	_, err := Build(context.Background(), root, BuildOptions{PackageRoot: pkgRoot})
	require.Error(t, err)
	assert.Contains(t, err.Error(), filepath.Join(pkgRoot, "ghost"))
	assert.Contains(t, err.Error(), `"a"`)
}

func TestBuildFailsOnMissingReleaseManifest(t *testing.T) {
	pkgRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(pkgRoot, "bare"), 0755))

	root := &manifest.Manifest{Name: "app", Dependencies: map[string]string{"bare": "1.0.0"}}
	_, err := Build(context.Background(), root, BuildOptions{PackageRoot: pkgRoot})
	require.ErrorIs(t, err, manifest.ErrManifestNotFound)
}

func TestBuildHonorsCancellation(t *testing.T) {
	pkgRoot := t.TempDir()
	writePackage(t, pkgRoot, "a", "a", "1.0.0", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	root := &manifest.Manifest{Name: "app", Dependencies: map[string]string{"a": "1.0.0"}}
	_, err := Build(ctx, root, BuildOptions{PackageRoot: pkgRoot})
	require.ErrorIs(t, err, context.Canceled)
}

func TestReadableRejectsDanglingPointer(t *testing.T) {
	g := NewGraph()
	g.Add(&Node{Name: "app-shell", Version: "1.0.0", Dependencies: []Pointer{{Name: "iron-ajax", Version: "^1.0.0"}}})

	_, err := g.Readable()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingDependencyReference))

	var missing *MissingDependencyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "app-shell", missing.Dependent)
	assert.Equal(t, "iron-ajax", missing.Missing)
	assert.Contains(t, err.Error(), "iron-ajax")
	assert.Contains(t, err.Error(), "app-shell")
}

func TestReadableReportsFirstDanglingPointerInOrder(t *testing.T) {
	g := NewGraph()
	for _, name := range []string{"a", "b", "c", "d"} {
		g.Add(&Node{Name: name, Version: "1.0.0", Dependencies: []Pointer{{Name: "ghost-" + name, Version: "1"}}})
	}

	for i := 0; i < 20; i++ {
		_, err := g.Readable()
		var missing *MissingDependencyError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "a", missing.Dependent)
		assert.Equal(t, "ghost-a", missing.Missing)
	}
}

func TestAddKeepsFirstNode(t *testing.T) {
	g := NewGraph()
	assert.True(t, g.Add(&Node{Name: "Foo", Version: "1"}))
	assert.False(t, g.Add(&Node{Name: "foo", Version: "2"}))

	node, ok := g.Lookup("foo")
	require.True(t, ok)
	assert.Equal(t, "1", node.Version)
}

func TestParsePointer(t *testing.T) {
	ptr, err := ParsePointer("paper-button@^1.0.0")
	require.NoError(t, err)
	assert.Equal(t, Pointer{Name: "paper-button", Version: "^1.0.0"}, ptr)
	assert.Equal(t, "paper-button@^1.0.0", ptr.String())

	_, err = ParsePointer("no-version")
	require.Error(t, err)
}
