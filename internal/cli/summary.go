package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/morozRed/wcm/internal/fileutil"
	"github.com/morozRed/wcm/internal/graph"
	"github.com/morozRed/wcm/internal/rewrite"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	nameStyle   = lipgloss.NewStyle().Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

type GraphSummary struct {
	Mode        string          `json:"mode"`
	RootPath    string          `json:"root_path"`
	Project     string          `json:"project"`
	Packages    int             `json:"packages"`
	LockFile    string          `json:"lock_file,omitempty"`
	LockWritten bool            `json:"lock_written,omitempty"`
	DurationMS  int64           `json:"duration_ms"`
	Readable    *graph.Readable `json:"readable"`
}

type InstallSummary struct {
	Mode        string   `json:"mode"`
	RootPath    string   `json:"root_path"`
	Project     string   `json:"project"`
	OutputDir   string   `json:"output_dir"`
	Installed   []string `json:"installed"`
	LockFile    string   `json:"lock_file,omitempty"`
	LockWritten bool     `json:"lock_written,omitempty"`
	DurationMS  int64    `json:"duration_ms"`
}

type PrepareSummary struct {
	Mode       string          `json:"mode"`
	RootPath   string          `json:"root_path"`
	OutputDir  string          `json:"output_dir"`
	Entries    []string        `json:"entries,omitempty"`
	All        bool            `json:"all,omitempty"`
	Visited    int             `json:"visited"`
	Written    int             `json:"written"`
	Scripts    []string        `json:"scripts,omitempty"`
	Issues     []rewrite.Issue `json:"issues,omitempty"`
	DurationMS int64           `json:"duration_ms"`
}

func PrintGraphSummary(w io.Writer, summary GraphSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	fmt.Fprintf(w, "%s %s %s\n",
		headerStyle.Render("graph:"),
		summary.Project,
		labelStyle.Render(fmt.Sprintf("packages=%d duration=%dms", summary.Packages, summary.DurationMS)))
	if summary.Readable != nil {
		for _, name := range summary.Readable.Names() {
			line := fmt.Sprintf("  %s@%s", nameStyle.Render(name), summary.Readable.Shrinkwrap[name])
			if deps := summary.Readable.Graph[name]; len(deps) > 0 {
				line += labelStyle.Render(" -> ") + strings.Join(deps, ", ")
			}
			fmt.Fprintln(w, line)
		}
	}
	if summary.LockFile != "" {
		state := "unchanged"
		if summary.LockWritten {
			state = "written"
		}
		fmt.Fprintf(w, "%s %s (%s)\n", labelStyle.Render("lock:"), summary.LockFile, state)
	}
	return nil
}

func PrintInstallSummary(w io.Writer, summary InstallSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	fmt.Fprintf(w, "%s %s %s\n",
		headerStyle.Render("install:"),
		summary.Project,
		labelStyle.Render(fmt.Sprintf("packages=%d duration=%dms", len(summary.Installed), summary.DurationMS)))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("output:"), summary.OutputDir)
	if len(summary.Installed) > 0 {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("installed (%d):", len(summary.Installed))), SummarizePaths(summary.Installed, 8))
	}
	if summary.LockFile != "" {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("lock:"), summary.LockFile)
	}
	return nil
}

func PrintPrepareSummary(w io.Writer, summary PrepareSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	fmt.Fprintf(w, "%s %s\n",
		headerStyle.Render("prepare:"),
		labelStyle.Render(fmt.Sprintf("visited=%d written=%d scripts=%d issues=%d duration=%dms",
			summary.Visited, summary.Written, len(summary.Scripts), len(summary.Issues), summary.DurationMS)))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("output:"), summary.OutputDir)
	if len(summary.Scripts) > 0 {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("extracted scripts (%d):", len(summary.Scripts))), SummarizePaths(summary.Scripts, 8))
	}
	for _, issue := range summary.Issues {
		fmt.Fprintf(w, "  %s %s: %s\n", warnStyle.Render(string(issue.Kind)), issue.File, issue.Message)
	}
	return nil
}

func SummarizePaths(paths []string, max int) string {
	if len(paths) <= max {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(paths[:max], ", "), len(paths)-max)
}
