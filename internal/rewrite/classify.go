package rewrite

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"unicode"
)

var (
	errEmptyReference = errors.New("reference is empty")
	errNoLookup       = errors.New("reference has no lookup path after the package name")
)

// reference is a parsed href or src value.
type reference struct {
	raw    string // as written in the document
	path   string // decoded path component, slash separated
	remote bool   // carries a scheme or a network host
}

func parseReference(raw string) (reference, error) {
	ref := reference{raw: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ref, errEmptyReference
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return ref, fmt.Errorf("reference %q contains control characters", raw)
		}
	}
	if strings.HasPrefix(trimmed, "//") {
		ref.remote = true
		return ref, nil
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return ref, fmt.Errorf("unable to parse reference %q: %w", raw, err)
	}
	if u.Scheme != "" || u.Host != "" {
		ref.remote = true
		return ref, nil
	}
	if u.Path == "" {
		return ref, fmt.Errorf("reference %q has no path", raw)
	}
	ref.path = u.Path
	return ref, nil
}

// IsRelative reports whether ref, resolved against the directory of file
// (relative to sourceRoot), stays inside sourceRoot.
func IsRelative(sourceRoot, file, ref string) (bool, error) {
	parsed, err := parseReference(ref)
	if err != nil {
		return false, err
	}
	if parsed.remote {
		return false, nil
	}
	root, err := filepath.Abs(sourceRoot)
	if err != nil {
		return false, fmt.Errorf("unable to resolve source root %q: %w", sourceRoot, err)
	}
	return isWithin(root, resolveTarget(root, file, parsed.path)), nil
}

// resolveTarget joins a reference path onto the directory of file. A leading
// slash anchors at the filesystem root, not at the project root.
func resolveTarget(root, file, refPath string) string {
	native := filepath.FromSlash(refPath)
	if filepath.IsAbs(native) {
		return filepath.Clean(native)
	}
	return filepath.Join(root, filepath.Dir(file), native)
}

func isWithin(root, target string) bool {
	return strings.HasPrefix(target, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}

// ParseExternal splits a reference into another package into the package name
// (its first path segment) and the lookup path within that package. Leading
// "./", "../" and "/" segments are skipped. The lookup keeps the reference's
// percent-encoding, query and fragment as written.
func ParseExternal(ref string) (name, lookup string, err error) {
	rest := trimLeadingDots(strings.TrimSpace(filepath.ToSlash(ref)))
	if rest == "" {
		return "", "", errEmptyReference
	}
	name, lookup, _ = strings.Cut(rest, "/")
	if name == "" || name == "." || name == ".." {
		return "", "", fmt.Errorf("reference %q has no package name", ref)
	}
	if lookup == "" {
		return name, "", errNoLookup
	}
	return name, lookup, nil
}

func trimLeadingDots(path string) string {
	for {
		switch {
		case strings.HasPrefix(path, "../"):
			path = path[3:]
		case strings.HasPrefix(path, "./"):
			path = path[2:]
		case strings.HasPrefix(path, "/"):
			path = path[1:]
		default:
			return path
		}
	}
}
