package graph

import (
	"fmt"
	"strings"
)

// Pointer is a name@version reference from one node to another.
type Pointer struct {
	Name    string
	Version string
}

func (p Pointer) String() string {
	return p.Name + "@" + p.Version
}

// ParsePointer splits a name@version pointer at its first "@".
func ParsePointer(raw string) (Pointer, error) {
	name, version, ok := strings.Cut(strings.TrimSpace(raw), "@")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Pointer{}, fmt.Errorf("invalid dependency pointer %q", raw)
	}
	return Pointer{Name: name, Version: strings.TrimSpace(version)}, nil
}
