package rewrite

import (
	"sort"
	"sync"
)

// Visited is the set of absolute source paths a run has claimed.
type Visited struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func NewVisited() *Visited {
	return &Visited{paths: make(map[string]struct{})}
}

// Add claims path and reports whether it was newly added. The check and the
// insert happen under one lock, so exactly one caller wins per path.
func (v *Visited) Add(path string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.paths[path]; ok {
		return false
	}
	v.paths[path] = struct{}{}
	return true
}

func (v *Visited) Contains(path string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.paths[path]
	return ok
}

func (v *Visited) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.paths)
}

// Paths returns the claimed paths in sorted order.
func (v *Visited) Paths() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, 0, len(v.paths))
	for path := range v.paths {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}
