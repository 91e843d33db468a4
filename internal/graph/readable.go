package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/morozRed/wcm/internal/fileutil"
)

// ErrMissingDependencyReference marks a dependency pointer that names no node in the graph.
var ErrMissingDependencyReference = errors.New("missing dependency reference")

// MissingDependencyError reports the dependent and the dependency it could not find.
type MissingDependencyError struct {
	Dependent string
	Missing   string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing dependency with the name %q for %q", e.Missing, e.Dependent)
}

func (e *MissingDependencyError) Unwrap() error {
	return ErrMissingDependencyReference
}

// Readable is the sorted, externally consumable view of a graph.
type Readable struct {
	// Graph maps each package name to the sorted names of its dependencies.
	Graph map[string][]string
	// Shrinkwrap maps each package name to its resolved version.
	Shrinkwrap map[string]string
}

// Readable projects the graph. Every dependency pointer must resolve to a node in
// the graph; a dangling pointer is an integrity failure and is never repaired.
func (g *Graph) Readable() (*Readable, error) {
	out := &Readable{
		Graph:      make(map[string][]string, len(g.Nodes)),
		Shrinkwrap: make(map[string]string, len(g.Nodes)),
	}

	for _, node := range g.Ordered() {
		deps := make([]string, 0, len(node.Dependencies))
		for _, dep := range node.Dependencies {
			ptr, err := ParsePointer(dep.String())
			if err != nil {
				return nil, fmt.Errorf("node %q: %w", node.Name, err)
			}
			target, ok := g.Lookup(ptr.Name)
			if !ok {
				return nil, &MissingDependencyError{Dependent: node.Name, Missing: ptr.Name}
			}
			// Name the resolved node so every entry is also a key of the projection.
			deps = append(deps, target.Name)
		}
		deps = fileutil.DedupeStrings(deps)
		fileutil.SortFold(deps)
		out.Graph[node.Name] = deps
		out.Shrinkwrap[node.Name] = node.Version
	}

	return out, nil
}

// Names returns the package names sorted case-insensitively.
func (r *Readable) Names() []string {
	names := make([]string, 0, len(r.Shrinkwrap))
	for name := range r.Shrinkwrap {
		names = append(names, name)
	}
	fileutil.SortFold(names)
	return names
}

// MarshalJSON emits both maps with case-insensitively sorted keys.
func (r *Readable) MarshalJSON() ([]byte, error) {
	names := r.Names()

	var buf bytes.Buffer
	buf.WriteString(`{"graph":`)
	if err := writeOrderedObject(&buf, names, func(name string) any {
		deps := r.Graph[name]
		if deps == nil {
			deps = []string{}
		}
		return deps
	}); err != nil {
		return nil, err
	}
	buf.WriteString(`,"shrinkwrap":`)
	if err := writeOrderedObject(&buf, names, func(name string) any {
		return r.Shrinkwrap[name]
	}); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeOrderedObject(buf *bytes.Buffer, keys []string, value func(string) any) error {
	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value(key))
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return nil
}
