package cli

import (
	"context"
	"io"
	"maps"

	"github.com/charmbracelet/log"
	"github.com/morozRed/wcm/internal/config"
	"github.com/morozRed/wcm/internal/graph"
	"github.com/morozRed/wcm/internal/logging"
	"github.com/morozRed/wcm/internal/manifest"
	"github.com/spf13/cobra"
)

var persistentFlagKeys = map[string]string{
	"log-level": "log_level",
	"debug":     "debug",
}

// runtime is what every command needs: the resolved config, a logger and the
// command's output streams.
type runtime struct {
	cfg    *config.Config
	logger *log.Logger
	stdout io.Writer
	stderr io.Writer
}

func newRuntime(cmd *cobra.Command, args []string, flagKeys map[string]string) (*runtime, error) {
	projectPath, err := resolveProjectPath(args)
	if err != nil {
		return nil, err
	}
	configFile, err := OptionalStringFlag(cmd, "config")
	if err != nil {
		return nil, err
	}

	keys := maps.Clone(persistentFlagKeys)
	maps.Copy(keys, flagKeys)
	overrides, err := FlagOverrides(cmd, keys)
	if err != nil {
		return nil, err
	}
	if level, ok := overrides["log_level"].(string); ok && level == "" {
		delete(overrides, "log_level")
	}

	cfg, err := config.Load(config.LoadOptions{
		ProjectPath: projectPath,
		ConfigFile:  configFile,
		Overrides:   overrides,
	})
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.Debug)
	if err != nil {
		return nil, err
	}
	if cfg.File != "" {
		logger.Debug("loaded config", "file", cfg.File)
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		stdout: cmd.OutOrStdout(),
		stderr: cmd.ErrOrStderr(),
	}, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// resolveGraph reads the project manifest and builds its dependency graph.
func (rt *runtime) resolveGraph(ctx context.Context) (*manifest.Manifest, *graph.Graph, *graph.Readable, error) {
	root, err := manifest.Read(rt.cfg.ManifestPath())
	if err != nil {
		return nil, nil, nil, err
	}
	rt.logger.Debug("read project manifest", "name", root.Name, "dependencies", len(root.Dependencies))

	g, err := graph.Build(ctx, root, graph.BuildOptions{
		PackageRoot:     rt.cfg.PackageRoot(),
		ReleaseManifest: rt.cfg.ReleaseManifestFile,
		Logger:          rt.logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	readable, err := g.Readable()
	if err != nil {
		return nil, nil, nil, err
	}
	return root, g, readable, nil
}
