package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wcm",
		Short: "Resolve, install and prepare web components",
		Long: `wcm resolves the bower dependency tree of a project into a deduplicated
graph, installs every resolved package into <out>/<name>/<version>/, and
prepares the project's own markup so that references into other packages
become <wcm-link> and <wcm-script> lookup placeholders.

Configuration is read from wcm.yaml in the project directory and from
WCM_* environment variables. Flags take precedence over both.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Config file to read instead of <path>/wcm.yaml")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug|info|warn|error")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging with caller information")

	graphCmd := &cobra.Command{
		Use:   "graph [path]",
		Short: "Resolve the dependency graph and print it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunGraph,
	}
	graphCmd.Flags().Bool("json", false, "Print machine-readable graph summary")
	graphCmd.Flags().Bool("write", false, "Write the readable graph to the lock file")

	installCmd := &cobra.Command{
		Use:   "install [path]",
		Short: "Copy every resolved package into <out>/<name>/<version>/",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunInstall,
	}
	installCmd.Flags().String("out", "", "Destination directory (default: install.out_dir)")
	installCmd.Flags().Bool("json", false, "Print machine-readable run summary")

	prepareCmd := &cobra.Command{
		Use:   "prepare [path]",
		Short: "Rewrite the project's markup into the output directory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunPrepare,
	}
	prepareCmd.Flags().StringSlice("main", nil, "Entry file glob, relative to --root (repeatable)")
	prepareCmd.Flags().String("root", "", "Component source directory (default: component.root_dir)")
	prepareCmd.Flags().String("out", "", "Output directory (default: component.out_dir)")
	prepareCmd.Flags().Bool("all", false, "Process every file under the source directory, not only entries")
	prepareCmd.Flags().Bool("follow-scripts", false, "Also mirror the targets of relative script sources")
	prepareCmd.Flags().Bool("watch", false, "Re-run after source changes until interrupted")
	prepareCmd.Flags().Bool("json", false, "Print machine-readable run summary")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wcm %s\n", version)
		},
	}

	rootCmd.AddCommand(
		graphCmd,
		installCmd,
		prepareCmd,
		versionCmd,
	)

	return rootCmd
}
