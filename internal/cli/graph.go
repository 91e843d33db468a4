package cli

import (
	"fmt"
	"time"

	"github.com/morozRed/wcm/internal/output"
	"github.com/spf13/cobra"
)

func RunGraph(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd, args, nil)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}
	write, err := OptionalBoolFlag(cmd, "write")
	if err != nil {
		return err
	}

	start := time.Now()
	root, g, readable, err := rt.resolveGraph(commandContext(cmd))
	if err != nil {
		return err
	}

	summary := GraphSummary{
		Mode:     "graph",
		RootPath: rt.cfg.ProjectPath,
		Project:  root.Name,
		Packages: g.Len(),
		Readable: readable,
	}
	if write {
		lockPath := rt.cfg.LockPath()
		if lockPath == "" {
			return fmt.Errorf("--write requires install.lock_file to be set")
		}
		written, err := output.WriteReadable(lockPath, readable)
		if err != nil {
			return fmt.Errorf("failed to write lock file: %w", err)
		}
		summary.LockFile = lockPath
		summary.LockWritten = written
	}
	summary.DurationMS = time.Since(start).Milliseconds()

	return PrintGraphSummary(rt.stdout, summary, asJSON)
}
