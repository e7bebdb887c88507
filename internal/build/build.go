// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/studios/despace/internal/config"
	"github.com/studios/despace/internal/discovery"
	"github.com/studios/despace/internal/importmap"
	"github.com/studios/despace/internal/issue"
	"github.com/studios/despace/internal/manifest"
	"github.com/studios/despace/pkg/fspath"
)

type (
	// Options configures a single build.
	Options struct {
		// Root is the project root. Relative values are resolved against the
		// working directory.
		Root string
		// Strict turns unresolved local imports into errors.
		Strict bool
		// DryRun computes the import map without writing it.
		DryRun bool
	}

	// Result describes a finished build.
	Result struct {
		// NothingToDo is set when the authoritative manifest declares no
		// workspaces. No file is written in that case.
		NothingToDo bool
		// Project is the configuration the build ran with.
		Project *config.Project
		// Manifest is the path of the authoritative manifest.
		Manifest string
		// ImportMap is the merged map. Nil when NothingToDo.
		ImportMap *importmap.ImportMap
		// Encoded is the exact content written (or, on a dry run, that would
		// have been written).
		Encoded []byte
		// OutputPath is the import map path.
		OutputPath string
		// Written reports whether OutputPath was replaced.
		Written bool
		// Diagnostics are the walker's non-fatal findings.
		Diagnostics []discovery.Diagnostic
		// Exports and RawImports count the collected entries by origin.
		Exports    int
		RawImports int
	}
)

// Run executes one build. Any returned error aborts the build before the
// output file is touched.
func Run(ctx context.Context, opts Options) (*Result, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	project, err := config.Load(ctx, root)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Project:    project,
		Manifest:   project.ConfigSourcePath(root),
		OutputPath: config.ImportsPath(root),
	}

	m, err := loadAuthoritative(res.Manifest)
	if err != nil {
		return nil, err
	}
	if !m.HasWorkspaces {
		res.NothingToDo = true
		return res, nil
	}

	walker, err := discovery.New(root, discovery.WithStrict(opts.Strict))
	if err != nil {
		return nil, err
	}
	manifestDir, err := fspath.Canonical(filepath.Dir(res.Manifest))
	if err != nil {
		return nil, err
	}
	// Workspace paths are relative to the manifest that declares them.
	rootPaths, err := relativeTo(walker.Root(), manifestDir, m.Workspaces)
	if err != nil {
		return nil, err
	}

	walked, err := walker.Walk(ctx, rootPaths)
	if err != nil {
		return nil, walkError(err)
	}
	res.Diagnostics = walked.Diagnostics
	res.Exports = len(walked.Exports())
	res.RawImports = len(walked.RawImports())

	res.ImportMap = importmap.Build(walked.Entries, m.ExplicitImports, m.ExplicitScopes, importmap.Options{
		PrependJSR: project.PrependJSR,
		Root:       walker.Root(),
		BaseDir:    manifestDir,
	})

	res.Encoded, err = importmap.Encode(res.ImportMap)
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		return res, nil
	}

	if err := importmap.Write(res.OutputPath, res.ImportMap); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("write import map").
			WithResource(filepath.Join(config.StateDir, config.ImportsFile)).
			WithIssue(issue.WriteFailedId).
			Wrap(err).
			BuildError()
	}
	res.Written = true
	return res, nil
}

// loadAuthoritative reads the project's own manifest. Unlike workspace
// manifests it is required.
func loadAuthoritative(path string) (*manifest.Manifest, error) {
	m, err := manifest.LoadFile(path)
	switch {
	case errors.Is(err, manifest.ErrNotFound):
		return nil, issue.NewErrorContext().
			WithOperation("load project manifest").
			WithResource(path).
			WithSuggestion(fmt.Sprintf("Check %q in %s", config.KeyConfigSource, filepath.Join(config.StateDir, config.ConfigFile))).
			WithIssue(issue.ManifestNotFoundId).
			Wrap(err).
			BuildError()
	case err != nil:
		return nil, issue.NewErrorContext().
			WithOperation("load project manifest").
			WithResource(path).
			WithIssue(issue.ManifestParseErrorId).
			Wrap(err).
			BuildError()
	}
	return m, nil
}

// walkError attaches user guidance to fatal walker errors.
func walkError(err error) error {
	var (
		cycle      *discovery.CycleError
		unresolved *discovery.UnresolvedImportError
		parse      *manifest.ParseError
	)
	ctx := issue.NewErrorContext().WithOperation("walk workspaces").Wrap(err)
	switch {
	case errors.As(err, &cycle):
		ctx.WithIssue(issue.WorkspaceCycleId).
			WithSuggestion("Remove the back reference from one of the listed workspaces")
	case errors.As(err, &unresolved):
		ctx.WithIssue(issue.UnresolvedImportId).
			WithResource(unresolved.Manifest).
			WithSuggestion("Fix the import path or drop --strict")
	case errors.As(err, &parse):
		ctx.WithIssue(issue.ManifestParseErrorId).
			WithResource(parse.Path)
	default:
		return err
	}
	return ctx.BuildError()
}

// relativeTo rewrites paths declared in dir as forward-slash paths relative
// to root. Both root and dir must be canonical.
func relativeTo(root, dir string, paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		target := filepath.FromSlash(p)
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}
		rel, err := filepath.Rel(root, target)
		if err != nil {
			return nil, fmt.Errorf("workspace %q: %w", p, err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out, nil
}
