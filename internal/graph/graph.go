package graph

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/morozRed/wcm/internal/manifest"
)

// Node represents one resolved package in the dependency graph
type Node struct {
	Key          string // normalized lookup key (lowercased name)
	Name         string
	Version      string
	Path         string // absolute package directory
	Main         []string
	Dependencies []Pointer
	References   int // number of dependency declarations that point at this node
}

// Graph maps normalized package names to nodes. Nodes are never removed once inserted.
type Graph struct {
	Nodes map[string]*Node
	Order []string // keys in insertion (pre-order) order
}

// BuildOptions configures Build.
type BuildOptions struct {
	// PackageRoot is the directory holding one subdirectory per installed dependency.
	PackageRoot string
	// ReleaseManifest is the manifest file name inside each package directory.
	// Defaults to manifest.ReleaseFile.
	ReleaseManifest string
	Logger          *log.Logger
}

// NewGraph creates a new empty graph
func NewGraph() *Graph {
	return &Graph{
		Nodes: make(map[string]*Node),
	}
}

// NormalizeName returns the graph key for a package name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup returns the node for name using case-insensitive comparison.
func (g *Graph) Lookup(name string) (*Node, bool) {
	node, ok := g.Nodes[NormalizeName(name)]
	return node, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// Ordered returns nodes in insertion order.
func (g *Graph) Ordered() []*Node {
	nodes := make([]*Node, 0, len(g.Order))
	for _, key := range g.Order {
		nodes = append(nodes, g.Nodes[key])
	}
	return nodes
}

// Add inserts node unless its key is already taken. An empty Key is derived from Name.
func (g *Graph) Add(node *Node) bool {
	if node.Key == "" {
		node.Key = NormalizeName(node.Name)
	}
	if _, exists := g.Nodes[node.Key]; exists {
		return false
	}
	g.Nodes[node.Key] = node
	g.Order = append(g.Order, node.Key)
	return true
}

// NewNode derives a graph node from a release manifest and its package directory.
func NewNode(m *manifest.Manifest, path string) *Node {
	deps := make([]Pointer, 0, len(m.Dependencies))
	for _, name := range m.DependencyNames() {
		deps = append(deps, Pointer{Name: name, Version: m.Dependencies[name]})
	}
	return &Node{
		Key:          NormalizeName(m.Name),
		Name:         m.Name,
		Version:      m.ResolvedVersion(),
		Path:         path,
		Main:         m.Main,
		Dependencies: deps,
	}
}

// Build traverses root's declared dependencies depth-first and returns the
// deduplicated graph. Each newly discovered package is inserted before its own
// dependencies are visited, so circular and diamond dependencies terminate at the
// existence check. A missing package directory or manifest aborts the build.
func Build(ctx context.Context, root *manifest.Manifest, opts BuildOptions) (*Graph, error) {
	if root == nil {
		return nil, errors.New("root manifest is required")
	}
	if opts.PackageRoot == "" {
		return nil, errors.New("package root is required")
	}
	if opts.ReleaseManifest == "" {
		opts.ReleaseManifest = manifest.ReleaseFile
	}
	packageRoot, err := filepath.Abs(opts.PackageRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve package root %q: %w", opts.PackageRoot, err)
	}

	g := NewGraph()
	logger := opts.Logger

	var visit func(dependent, name string) error
	visit = func(dependent, name string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		key := NormalizeName(name)
		if existing, ok := g.Nodes[key]; ok {
			existing.References++
			if logger != nil {
				logger.Debug("dependency already resolved", "name", existing.Name, "dependent", dependent, "references", existing.References)
			}
			return nil
		}

		node, err := loadNode(packageRoot, name, opts.ReleaseManifest)
		if err != nil {
			return fmt.Errorf("failed to resolve dependency %q of %q: %w", name, dependent, err)
		}
		// Key by the declared name so the existence check above sees this node even
		// when the release manifest spells its name differently.
		node.Key = key
		if node.Name == "" {
			node.Name = name
		}
		node.References++
		g.Add(node)
		if logger != nil {
			logger.Info("new dependency found", "name", node.Name, "version", node.Version)
		}

		for _, dep := range node.Dependencies {
			if err := visit(node.Name, dep.Name); err != nil {
				return err
			}
		}
		return nil
	}

	for _, name := range root.DependencyNames() {
		if logger != nil {
			logger.Debug("inspecting dependency", "name", name)
		}
		if err := visit(root.Name, name); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func loadNode(packageRoot, name, releaseFile string) (*Node, error) {
	dir, err := packageDir(packageRoot, name)
	if err != nil {
		return nil, err
	}

	m, err := manifest.Read(filepath.Join(dir, releaseFile))
	if err != nil {
		return nil, err
	}
	return NewNode(m, dir), nil
}

// packageDir locates the directory of package name under packageRoot. Names match
// case-insensitively: an entry spelled exactly like name wins, otherwise the first
// entry whose name folds to the same key is used.
func packageDir(packageRoot, name string) (string, error) {
	dir := filepath.Join(packageRoot, name)
	entries, err := os.ReadDir(packageRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("package directory %s does not exist", dir)
		}
		return "", fmt.Errorf("failed to list package root %s: %w", packageRoot, err)
	}

	key := NormalizeName(name)
	match := ""
	for _, entry := range entries {
		if entry.Name() == name {
			match = entry.Name()
			break
		}
		if match == "" && NormalizeName(entry.Name()) == key {
			match = entry.Name()
		}
	}
	if match == "" {
		return "", fmt.Errorf("package directory %s does not exist", dir)
	}

	dir = filepath.Join(packageRoot, match)
	// Stat follows symlinks so linked packages count as directories.
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("failed to access package directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("package path %s is not a directory", dir)
	}
	return dir, nil
}
