package cli

import (
	"fmt"
	"time"

	"github.com/morozRed/wcm/internal/graph"
	"github.com/morozRed/wcm/internal/output"
	"github.com/spf13/cobra"
)

func RunInstall(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd, args, map[string]string{"out": "install.out_dir"})
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}

	start := time.Now()
	ctx := commandContext(cmd)
	root, g, readable, err := rt.resolveGraph(ctx)
	if err != nil {
		return err
	}

	dest := rt.cfg.InstallOut()
	progress := newProgressReporter(rt.stderr, "install", "copied", g.Len(), asJSON)
	report, err := output.Materialize(ctx, g, dest, output.Options{
		Logger: rt.logger,
		OnCopied: func(node *graph.Node, done, _ int) {
			progress.Update(node.Name+"@"+node.Version, done)
		},
	})
	if err != nil {
		return err
	}
	progress.Done(len(report.Packages))

	summary := InstallSummary{
		Mode:      "install",
		RootPath:  rt.cfg.ProjectPath,
		Project:   root.Name,
		OutputDir: dest,
		Installed: make([]string, 0, len(report.Packages)),
	}
	for _, dir := range report.Packages {
		summary.Installed = append(summary.Installed, relativeTo(dest, dir))
	}

	if lockPath := rt.cfg.LockPath(); lockPath != "" {
		written, err := output.WriteReadable(lockPath, readable)
		if err != nil {
			return fmt.Errorf("failed to write lock file: %w", err)
		}
		summary.LockFile = lockPath
		summary.LockWritten = written
	}
	summary.DurationMS = time.Since(start).Milliseconds()

	return PrintInstallSummary(rt.stdout, summary, asJSON)
}
