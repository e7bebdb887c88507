// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/studios/despace/internal/build"
	"github.com/studios/despace/internal/config"
	"github.com/studios/despace/internal/issue"
	"github.com/studios/despace/internal/watch"
)

type buildFlagValues struct {
	watch  bool
	dryRun bool
	strict bool
}

// watchPatterns select the files whose changes trigger a rebuild, relative
// to the project root.
var watchPatterns = []string{
	config.StateDir + "/**",
	"**/deno.json",
	"**/deno.jsonc",
}

func newBuildCommand(app *App) *cobra.Command {
	var flags buildFlagValues

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write the merged import map to .despace/imports.json",
		Long: `Walk the workspaces declared by the project manifest and write the merged
import map to .despace/imports.json.

Workspace exports are added first, then each member's own imports, then the
"despace.imports" overrides of the project manifest. A later source replaces
an earlier one under the same key.

With --watch, the import map is rebuilt 500ms after the last change to any
deno.json, deno.jsonc or file under .despace. Stop with Ctrl+C.

Examples:
  despace build                Write .despace/imports.json
  despace build --dry-run      Print the import map to stdout
  despace build --strict       Fail on local imports that do not exist
  despace build --watch        Rebuild on manifest changes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.watch {
				return runWatchMode(cmd.Context(), app, flags)
			}
			return runBuild(cmd.Context(), app, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "rebuild when a manifest changes")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the import map instead of writing it")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "treat unresolved local imports as errors")
	cmd.MarkFlagsMutuallyExclusive("watch", "dry-run")

	return cmd
}

func runBuild(ctx context.Context, app *App, flags buildFlagValues) error {
	root, err := app.projectRoot()
	if err != nil {
		return app.fail(err)
	}

	res, err := build.Run(ctx, build.Options{Root: root, Strict: flags.strict, DryRun: flags.dryRun})
	if err != nil {
		return app.fail(err)
	}
	reportBuild(app, root, res)
	return nil
}

// runWatchMode builds once, then rebuilds on every debounced burst of
// manifest changes until the context is canceled or a rebuild fails.
func runWatchMode(ctx context.Context, app *App, flags buildFlagValues) error {
	root, err := app.projectRoot()
	if err != nil {
		return app.fail(err)
	}
	opts := build.Options{Root: root, Strict: flags.strict}

	res, err := build.Run(ctx, opts)
	if err != nil {
		return app.fail(err)
	}
	reportBuild(app, root, res)

	var paths []string
	if p, ok := watchPath(root, res.Project.ConfigSourcePath(root)); ok {
		paths = append(paths, p)
	} else {
		app.logger.Warn("config source is outside the project root and will not be watched", "path", res.Project.ConfigSource)
	}

	sched, err := watch.NewScheduler(watch.Config{
		BaseDir:  root,
		Patterns: watchPatterns,
		Paths:    paths,
		Logger:   app.logger,
	}, func(ctx context.Context, changed []string) error {
		app.logger.Info("detected file change, rebuilding", "changed", len(changed))
		app.logger.Debug("changed files", "paths", changed)
		res, err := build.Run(ctx, opts)
		if err != nil {
			return err
		}
		reportBuild(app, root, res)
		return nil
	})
	if err != nil {
		return app.fail(watchError(err))
	}
	sched.OnStateChange = func(from, to watch.State) {
		app.logger.Debug("watch state", "from", from, "to", to)
	}

	fmt.Fprintf(app.stdout, "%s Watching for changes (Ctrl+C to stop)...\n", CmdStyle.Render("→"))
	runErr := sched.Run(ctx)
	app.logger.Debug("stopped watching", "rebuilds", sched.Rebuilds())
	if runErr != nil {
		var ae *issue.ActionableError
		if errors.As(runErr, &ae) {
			// A failed rebuild already carries its own guidance.
			return app.fail(runErr)
		}
		return app.fail(watchError(runErr))
	}
	return nil
}

// watchError wraps a failure of the watch handle itself.
func watchError(err error) error {
	return issue.NewErrorContext().
		WithOperation("watch for changes").
		WithSuggestion("Raise the inotify limits (fs.inotify.max_user_watches) if the project is large").
		WithSuggestion("Run 'despace build' without --watch").
		WithIssue(issue.WatchFailedId).
		Wrap(err).
		BuildError()
}

// reportBuild renders the outcome of one build.
func reportBuild(app *App, root string, res *build.Result) {
	app.renderDiagnostics(res.Diagnostics)

	manifest := displayPath(root, res.Manifest)
	switch {
	case res.NothingToDo:
		fmt.Fprintf(app.stdout, "%s No workspaces found in %s, nothing to do\n",
			WarningStyle.Render("!"), CmdStyle.Render(manifest))
	case !res.Written:
		_, _ = app.stdout.Write(res.Encoded)
	default:
		fmt.Fprintf(app.stdout, "%s Built %s from %s (%d exports, %d imports)\n",
			SuccessStyle.Render("✓"),
			CmdStyle.Render(displayPath(root, res.OutputPath)),
			CmdStyle.Render(manifest),
			res.Exports, res.RawImports)
	}
}

// watchPath returns p relative to root in the slash form the watcher
// matches against. It reports false for paths outside root.
func watchPath(root, p string) (string, bool) {
	rel, err := filepath.Rel(root, p)
	if err != nil || !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// displayPath shows p relative to root when it is inside it.
func displayPath(root, p string) string {
	if rel, ok := watchPath(root, p); ok {
		return rel
	}
	return p
}
