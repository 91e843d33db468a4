package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func resolveProjectPath(args []string) (string, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	rootPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	info, err := os.Stat(rootPath)
	if err != nil {
		return "", fmt.Errorf("failed to access path %q: %w", rootPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path %q is not a directory", rootPath)
	}
	return rootPath, nil
}

// relativeTo shortens path for display when it lies below base.
func relativeTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
