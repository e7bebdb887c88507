// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

func newRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "despace",
		Short: "Merge Deno workspace manifests into one import map",
		Long: TitleStyle.Render("despace") + SubtitleStyle.Render(" - Merge Deno workspace manifests into one import map") + `

despace walks the workspaces declared by your project's deno.json or
deno.jsonc, collects every member's name and exports, and writes a single
import map to .despace/imports.json. Point the project's "importMap" field
at that file and every workspace member becomes importable by name.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Run 'despace init' in the project root
  2. Add the printed fields to your manifest
  3. Run 'despace build', or 'despace build --watch' while developing

` + SubtitleStyle.Render("Examples:") + `
  despace init                 Initialize using ./deno.json or ./deno.jsonc
  despace build                Write .despace/imports.json
  despace build --dry-run      Print the import map instead of writing it
  despace build --watch        Rebuild whenever a manifest changes
  despace -C app build         Build the project in ./app`,
		PersistentPreRun: func(*cobra.Command, []string) {
			app.applyFlags()
		},
	}

	root.PersistentFlags().BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVarP(&app.flags.chdir, "chdir", "C", "", "run as if despace was started in `dir`")

	root.AddCommand(newBuildCommand(app))
	root.AddCommand(newInitCommand(app))

	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Main runs the CLI and returns the process exit code.
func Main() int {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return 1
	}
	return 0
}

// Execute runs the CLI and exits the process. It is called by main.main().
func Execute() {
	os.Exit(Main())
}
