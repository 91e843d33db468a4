package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/morozRed/wcm/internal/ignore"
	"github.com/morozRed/wcm/internal/rewrite"
	"github.com/morozRed/wcm/internal/watch"
	"github.com/spf13/cobra"
)

var prepareFlagKeys = map[string]string{
	"main":           "component.main",
	"root":           "component.root_dir",
	"out":            "component.out_dir",
	"follow-scripts": "component.follow_scripts",
}

func RunPrepare(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd, args, prepareFlagKeys)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}
	all, err := OptionalBoolFlag(cmd, "all")
	if err != nil {
		return err
	}
	watchMode, err := OptionalBoolFlag(cmd, "watch")
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	summary, err := rt.prepare(ctx, all)
	if err != nil {
		return err
	}
	if err := PrintPrepareSummary(rt.stdout, summary, asJSON); err != nil {
		return err
	}
	if !watchMode {
		return nil
	}
	return rt.watchPrepare(ctx, all, asJSON)
}

// prepare runs the rewrite once with a fresh visited set.
func (rt *runtime) prepare(ctx context.Context, all bool) (PrepareSummary, error) {
	start := time.Now()
	root := rt.cfg.ComponentRoot()
	out := rt.cfg.ComponentOut()

	matcher, err := rt.ignoreMatcher()
	if err != nil {
		return PrepareSummary{}, err
	}
	pipeline := rewrite.New(rewrite.Options{
		Logger:           rt.logger,
		FollowScripts:    rt.cfg.Component.FollowScripts,
		LogHandledErrors: rt.cfg.LogHandledErrors,
		Ignore:           matcher,
	})

	session := pipeline.NewSession()
	if all {
		err = session.ProcessDir(ctx, root, out, "")
	} else {
		err = session.Run(ctx, rt.cfg.Component.Main, root, out)
	}
	if err != nil {
		return PrepareSummary{}, err
	}

	result := session.Result()
	summary := PrepareSummary{
		Mode:       "prepare",
		RootPath:   root,
		OutputDir:  out,
		All:        all,
		Visited:    len(result.Visited),
		Written:    len(result.Writes),
		Issues:     result.Issues,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if !all {
		summary.Entries = rt.cfg.Component.Main
	}
	for _, script := range result.Scripts {
		summary.Scripts = append(summary.Scripts, relativeTo(out, script))
	}
	return summary, nil
}

func (rt *runtime) watchPrepare(ctx context.Context, all, asJSON bool) error {
	root := rt.cfg.ComponentRoot()
	matcher, err := rt.ignoreMatcher()
	if err != nil {
		return err
	}

	w, err := watch.New(watch.Config{
		BaseDir:  root,
		Ignore:   matcher,
		Debounce: rt.cfg.Watch.Debounce,
		Logger:   rt.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			rt.logger.Debug("changed files", "files", SummarizePaths(changed, 8))
			summary, err := rt.prepare(ctx, all)
			if err != nil {
				return err
			}
			return PrintPrepareSummary(rt.stdout, summary, asJSON)
		},
	})
	if err != nil {
		return err
	}

	rt.logger.Info("watching for changes", "root", root)
	return w.Run(ctx)
}

// ignoreMatcher combines .wcmignore with the generated and installed
// directories that lie inside the component root.
func (rt *runtime) ignoreMatcher() (*ignore.Matcher, error) {
	root := rt.cfg.ComponentRoot()
	rules, err := ignore.Load(root)
	if err != nil {
		return nil, err
	}
	matcher := ignore.NewMatcher(rules)
	for _, dir := range []string{rt.cfg.ComponentOut(), rt.cfg.PackageRoot(), rt.cfg.InstallOut()} {
		if rel := relativeTo(root, dir); !filepath.IsAbs(rel) && rel != "." {
			matcher.Add("/" + filepath.ToSlash(rel) + "/")
		}
	}
	return matcher, nil
}
