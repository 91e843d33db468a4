// Package output materializes a resolved dependency graph into a destination tree
// laid out as <dest>/<name>/<version>/.
package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/morozRed/wcm/internal/fileutil"
	"github.com/morozRed/wcm/internal/graph"
)

// LockFile is the default name of the written readable projection.
const LockFile = "wcm.lock.json"

// ErrResourceCopyFailure marks a filesystem failure while clearing or populating the destination.
var ErrResourceCopyFailure = errors.New("resource copy failure")

// CopyError wraps the underlying filesystem error of a failed copy or removal.
type CopyError struct {
	Op     string // "remove" or "copy"
	Source string
	Dest   string
	Err    error
}

func (e *CopyError) Error() string {
	if e.Op == "remove" {
		return fmt.Sprintf("resource copy failure: failed to clear %s: %v", e.Dest, e.Err)
	}
	return fmt.Sprintf("resource copy failure: failed to copy %s to %s: %v", e.Source, e.Dest, e.Err)
}

func (e *CopyError) Unwrap() []error {
	return []error{ErrResourceCopyFailure, e.Err}
}

// Options configures Materialize.
type Options struct {
	Logger *log.Logger
	// OnCopied is called after each package has been copied.
	OnCopied func(node *graph.Node, done, total int)
}

// Report summarizes a materialization run.
type Report struct {
	Destination string
	Packages    []string // destination directories, in copy order
}

// Materialize clears dest and copies every node's package directory into
// dest/<name>/<version>/. It is not atomic: a failure can leave dest partially
// populated.
func Materialize(ctx context.Context, g *graph.Graph, dest string, opts Options) (*Report, error) {
	if dest == "" {
		return nil, errors.New("destination directory is required")
	}

	if opts.Logger != nil {
		opts.Logger.Info("removing directory", "path", dest)
	}
	if err := fileutil.RemoveAll(dest); err != nil {
		return nil, &CopyError{Op: "remove", Dest: dest, Err: err}
	}

	nodes := g.Ordered()
	report := &Report{Destination: dest, Packages: make([]string, 0, len(nodes))}
	for i, node := range nodes {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		target := PackageDir(dest, node)
		if err := fileutil.CopyDir(node.Path, target); err != nil {
			return report, &CopyError{Op: "copy", Source: node.Path, Dest: target, Err: err}
		}
		report.Packages = append(report.Packages, target)

		if opts.Logger != nil {
			opts.Logger.Debug("copied package", "name", node.Name, "version", node.Version, "dest", target)
		}
		if opts.OnCopied != nil {
			opts.OnCopied(node, i+1, len(nodes))
		}
	}

	return report, nil
}

// PackageDir returns the destination directory for node under dest.
func PackageDir(dest string, node *graph.Node) string {
	return filepath.Join(dest, node.Name, node.Version)
}

// WriteReadable writes the readable projection as indented JSON, leaving the file
// untouched when its content is unchanged. It reports whether the file was written.
func WriteReadable(path string, readable *graph.Readable) (bool, error) {
	raw, err := json.Marshal(readable)
	if err != nil {
		return false, fmt.Errorf("failed to encode dependency graph: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return false, err
	}
	buf.WriteByte('\n')
	return fileutil.WriteIfChangedTracked(path, buf.Bytes())
}
