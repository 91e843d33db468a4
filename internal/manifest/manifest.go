// Package manifest reads and validates package manifests.
//
// A manifest declares a package's name, entry points and dependencies. Project
// manifests live in bower.json; packages installed under the package root carry a
// resolved release manifest (.bower.json) that additionally records the release tag.
package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	ProjectFile = "bower.json"
	ReleaseFile = ".bower.json"
)

// ErrManifestNotFound is returned when no manifest exists at the expected path.
var ErrManifestNotFound = errors.New("manifest not found")

//go:embed manifest_schema.cue
var manifestSchema []byte

// Manifest is a package's declared identity. Values are never mutated after Read.
type Manifest struct {
	Name         string
	Main         []string
	Dependencies map[string]string
	// Release is the resolved release tag of an installed package.
	Release string
	Version string
	// Path is the file the manifest was read from.
	Path string
}

// ResolvedVersion returns the release tag, falling back to the declared version.
func (m *Manifest) ResolvedVersion() string {
	if m.Release != "" {
		return m.Release
	}
	return m.Version
}

// DependencyNames returns the declared dependency names in sorted order.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// wireManifest mirrors the JSON shape after schema validation.
type wireManifest struct {
	Name         string            `json:"name"`
	Main         any               `json:"main"`
	Dependencies map[string]string `json:"dependencies"`
	Release      string            `json:"_release"`
	Version      string            `json:"version"`
}

// Read loads, validates and decodes the manifest at path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	m, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// ReadProject reads the project manifest (bower.json) in dir.
func ReadProject(dir string) (*Manifest, error) {
	return Read(filepath.Join(dir, ProjectFile))
}

// ReadRelease reads the resolved release manifest (.bower.json) in dir.
func ReadRelease(dir string) (*Manifest, error) {
	return Read(filepath.Join(dir, ReleaseFile))
}

// Parse validates data against the manifest schema and decodes it. filename is
// only used in error messages.
func Parse(data []byte, filename string) (*Manifest, error) {
	var wire wireManifest
	if err := decodeWithSchema(manifestSchema, data, "#Manifest", filename, &wire); err != nil {
		return nil, err
	}

	main, err := normalizeMain(wire.Main)
	if err != nil {
		return nil, fmt.Errorf("%s: main: %w", filename, err)
	}

	deps := make(map[string]string, len(wire.Dependencies))
	for name, spec := range wire.Dependencies {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%s: dependencies: empty dependency name", filename)
		}
		deps[name] = strings.TrimSpace(spec)
	}

	return &Manifest{
		Name:         strings.TrimSpace(wire.Name),
		Main:         main,
		Dependencies: deps,
		Release:      strings.TrimSpace(wire.Release),
		Version:      strings.TrimSpace(wire.Version),
	}, nil
}

func normalizeMain(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("entry %d is %T, expected string", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return v, nil
	default:
		return nil, fmt.Errorf("unexpected type %T", value)
	}
}
