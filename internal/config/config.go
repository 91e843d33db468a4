// Package config loads the wcm configuration from wcm.yaml (or .yml, .json,
// .toml) in the project directory, WCM_* environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// FileName is the config file name without extension.
	FileName = "wcm"
	// EnvPrefix prefixes environment overrides, e.g. WCM_COMPONENT_OUT_DIR.
	EnvPrefix = "WCM"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Config is the resolved configuration of one invocation.
type Config struct {
	LogLevel            string          `mapstructure:"log_level"`
	LogHandledErrors    bool            `mapstructure:"log_handled_errors"`
	Debug               bool            `mapstructure:"debug"`
	PackageDir          string          `mapstructure:"package_dir"`
	ManifestFile        string          `mapstructure:"manifest_file"`
	ReleaseManifestFile string          `mapstructure:"release_manifest_file"`
	Install             InstallConfig   `mapstructure:"install"`
	Component           ComponentConfig `mapstructure:"component"`
	Watch               WatchConfig     `mapstructure:"watch"`

	// ProjectPath is the absolute project directory all relative paths resolve against.
	ProjectPath string `mapstructure:"-"`
	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// InstallConfig controls materialization of resolved packages.
type InstallConfig struct {
	OutDir   string `mapstructure:"out_dir"`
	LockFile string `mapstructure:"lock_file"`
}

// ComponentConfig controls the rewrite of the project's own markup.
type ComponentConfig struct {
	Main          []string `mapstructure:"main"`
	RootDir       string   `mapstructure:"root_dir"`
	OutDir        string   `mapstructure:"out_dir"`
	FollowScripts bool     `mapstructure:"follow_scripts"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// LoadOptions selects where configuration comes from.
type LoadOptions struct {
	// ProjectPath is searched for wcm.* files. Defaults to the working directory.
	ProjectPath string
	// ConfigFile, when set, is read exclusively and must exist.
	ConfigFile string
	// Overrides are applied with the highest precedence, keyed like the file (e.g. "component.out_dir").
	Overrides map[string]any
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	return Config{
		LogLevel:            "info",
		LogHandledErrors:    true,
		PackageDir:          "bower_components",
		ManifestFile:        "bower.json",
		ReleaseManifestFile: ".bower.json",
		Install: InstallConfig{
			OutDir:   "web_components",
			LockFile: "wcm.lock.json",
		},
		Component: ComponentConfig{
			Main:    []string{"index.html"},
			RootDir: ".",
			OutDir:  "dist",
		},
		Watch: WatchConfig{Debounce: 300 * time.Millisecond},
	}
}

// Load resolves the configuration and validates it.
func Load(opts LoadOptions) (*Config, error) {
	projectPath := opts.ProjectPath
	if projectPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		projectPath = wd
	}
	projectPath, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project path: %w", err)
	}

	v := viper.New()
	defaults := Default()
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_handled_errors", defaults.LogHandledErrors)
	v.SetDefault("debug", defaults.Debug)
	v.SetDefault("package_dir", defaults.PackageDir)
	v.SetDefault("manifest_file", defaults.ManifestFile)
	v.SetDefault("release_manifest_file", defaults.ReleaseManifestFile)
	v.SetDefault("install.out_dir", defaults.Install.OutDir)
	v.SetDefault("install.lock_file", defaults.Install.LockFile)
	v.SetDefault("component.main", defaults.Component.Main)
	v.SetDefault("component.root_dir", defaults.Component.RootDir)
	v.SetDefault("component.out_dir", defaults.Component.OutDir)
	v.SetDefault("component.follow_scripts", defaults.Component.FollowScripts)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(projectPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ProjectPath = projectPath
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations no command can run with.
func (c *Config) Validate() error {
	level := strings.ToLower(c.LogLevel)
	valid := false
	for _, candidate := range validLogLevels {
		if level == candidate {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("log_level must be one of %s, got: %q", strings.Join(validLogLevels, ", "), c.LogLevel)
	}

	required := []struct{ key, value string }{
		{"package_dir", c.PackageDir},
		{"manifest_file", c.ManifestFile},
		{"release_manifest_file", c.ReleaseManifestFile},
		{"install.out_dir", c.Install.OutDir},
		{"component.root_dir", c.Component.RootDir},
		{"component.out_dir", c.Component.OutDir},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%s must not be empty", field.key)
		}
	}

	if len(c.Component.Main) == 0 {
		return errors.New("component.main must list at least one entry pattern")
	}
	for _, pattern := range c.Component.Main {
		if strings.TrimSpace(pattern) == "" {
			return errors.New("component.main must not contain empty patterns")
		}
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got: %s", c.Watch.Debounce)
	}
	if c.ProjectPath == "" {
		return nil
	}
	if c.ComponentRoot() == c.ComponentOut() {
		return errors.New("component.out_dir must differ from component.root_dir")
	}
	// install clears its output directory before copying out of package_dir.
	installOut, packageRoot := c.InstallOut(), c.PackageRoot()
	if containsPath(installOut, packageRoot) || containsPath(packageRoot, installOut) {
		return fmt.Errorf("install.out_dir %s must not overlap package_dir %s", installOut, packageRoot)
	}
	if containsPath(installOut, filepath.Clean(c.ProjectPath)) {
		return fmt.Errorf("install.out_dir %s must not contain the project directory", installOut)
	}
	return nil
}

// containsPath reports whether path equals dir or lies below it.
func containsPath(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Resolve returns path made absolute against the project path.
func (c *Config) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(c.ProjectPath, path)
}

func (c *Config) ManifestPath() string  { return c.Resolve(c.ManifestFile) }
func (c *Config) PackageRoot() string   { return c.Resolve(c.PackageDir) }
func (c *Config) InstallOut() string    { return c.Resolve(c.Install.OutDir) }
func (c *Config) ComponentRoot() string { return c.Resolve(c.Component.RootDir) }
func (c *Config) ComponentOut() string  { return c.Resolve(c.Component.OutDir) }

// LockPath returns the readable graph location. A relative lock file lives in the project.
func (c *Config) LockPath() string {
	if c.Install.LockFile == "" {
		return ""
	}
	return c.Resolve(c.Install.LockFile)
}
