// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/studios/despace/internal/discovery"
)

type (
	// App holds the writers, logger and global flag values shared by every
	// command handler.
	App struct {
		stdout io.Writer
		stderr io.Writer
		logger *log.Logger
		flags  rootFlagValues
	}

	// Dependencies defines the injection points for building an App. Nil
	// writers are replaced with os.Stdout and os.Stderr.
	Dependencies struct {
		Stdout io.Writer
		Stderr io.Writer
	}

	rootFlagValues struct {
		verbose bool
		chdir   string
	}
)

// NewApp creates an App from deps.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	return &App{
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		logger: log.NewWithOptions(deps.Stderr, log.Options{
			Prefix: "despace",
		}),
	}
}

// applyFlags adjusts the logger to the parsed global flags.
func (a *App) applyFlags() {
	if a.flags.verbose {
		a.logger.SetLevel(log.DebugLevel)
		return
	}
	a.logger.SetLevel(log.InfoLevel)
}

// projectRoot returns the absolute project root: the --chdir value, or the
// working directory.
func (a *App) projectRoot() (string, error) {
	dir := a.flags.chdir
	if dir == "" {
		dir = "."
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve project root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project root %s is not a directory", root)
	}
	return root, nil
}

// fail renders err with its catalog entry and returns the error that makes
// the process exit with status 1.
func (a *App) fail(err error) error {
	issueID, styled := classifyError(err, a.flags.verbose)
	renderServiceError(a.stderr, a.logger, newServiceError(err, issueID, styled))
	return &ExitError{Code: 1}
}

// renderDiagnostics logs walker diagnostics by severity.
func (a *App) renderDiagnostics(diags []discovery.Diagnostic) {
	for _, d := range diags {
		kv := []any{"path", d.Path, "code", d.Code}
		if d.Cause != nil && a.flags.verbose {
			kv = append(kv, "cause", d.Cause)
		}
		switch d.Severity {
		case discovery.SeverityError:
			a.logger.Error(d.Message, kv...)
		default:
			a.logger.Warn(d.Message, kv...)
		}
	}
}
