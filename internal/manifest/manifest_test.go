package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadProjectManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, ProjectFile, `{
  "name": "my-app",
  "main": "index.html",
  "description": "ignored",
  "dependencies": {"polymer": "^1.0.0", "paper-button": "~1.0.2"}
}`)

	m, err := ReadProject(dir)
	require.NoError(t, err)
	assert.Equal(t, "my-app", m.Name)
	assert.Equal(t, []string{"index.html"}, m.Main)
	assert.Equal(t, []string{"paper-button", "polymer"}, m.DependencyNames())
	assert.Equal(t, "^1.0.0", m.Dependencies["polymer"])
	assert.Equal(t, filepath.Join(dir, ProjectFile), m.Path)
}

func TestReadReleaseManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, ReleaseFile, `{
  "name": "paper-button",
  "main": ["paper-button.html", "extra.html"],
  "version": "1.0.0",
  "_release": "1.0.3",
  "_resolution": {"type": "version", "tag": "v1.0.3"}
}`)

	m, err := ReadRelease(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"paper-button.html", "extra.html"}, m.Main)
	assert.Equal(t, "1.0.3", m.ResolvedVersion())
	assert.Empty(t, m.Dependencies)
}

func TestResolvedVersionFallsBackToVersion(t *testing.T) {
	m := &Manifest{Version: "2.0.0"}
	assert.Equal(t, "2.0.0", m.ResolvedVersion())
}

func TestReadMissingManifest(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), ProjectFile))
	require.ErrorIs(t, err, ErrManifestNotFound)
}

func TestParseRejectsInvalidManifests(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{name: "missing name", content: `{"main": "index.html"}`},
		{name: "empty name", content: `{"name": ""}`},
		{name: "numeric main", content: `{"name": "x", "main": 3}`},
		{name: "non-string dependency", content: `{"name": "x", "dependencies": {"a": 1}}`},
		{name: "malformed json", content: `{"name": "x",`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.content), "bower.json")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "bower.json")
		})
	}
}
