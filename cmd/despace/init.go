// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/studios/despace/internal/config"
	"github.com/studios/despace/internal/importmap"
	"github.com/studios/despace/internal/issue"
	"github.com/studios/despace/internal/manifest"
)

// manifestFields are the fields the project manifest needs once despace is
// initialized. Field order is the printed order.
type manifestFields struct {
	ImportMap string                       `json:"importMap"`
	Imports   map[string]string            `json:"despace.imports"`
	Scopes    map[string]map[string]string `json:"despace.scopes"`
	Tasks     map[string]string            `json:"tasks"`
}

func newInitCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init [file]",
		Short: "Initialize despace in the current directory",
		Long: `Initialize despace in the current directory.

Creates .despace/config.json pointing at the project manifest and an empty
.despace/imports.json. Without an argument the manifest is the first of
deno.json and deno.jsonc that exists.

The manifest itself is not modified. Instead, the fields it needs are
printed: an "importMap" entry pointing at .despace/imports.json, and the
manifest's current imports and scopes moved under "despace.imports" and
"despace.scopes".

Examples:
  despace init                 Use ./deno.json or ./deno.jsonc
  despace init app/deno.jsonc  Use a specific manifest`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runInit(app, args)
		},
	}
}

func runInit(app *App, args []string) error {
	root, err := app.projectRoot()
	if err != nil {
		return app.fail(err)
	}

	source, err := findManifest(root, args)
	if err != nil {
		return app.fail(err)
	}
	app.logger.Debug("found manifest", "path", source)

	m, err := manifest.LoadFile(filepath.Join(root, filepath.FromSlash(source)))
	if err != nil {
		return app.fail(issue.NewErrorContext().
			WithOperation("read project manifest").
			WithResource(source).
			WithIssue(issue.ManifestParseErrorId).
			Wrap(err).
			BuildError())
	}
	fields, err := fieldsFor(m)
	if err != nil {
		return app.fail(err)
	}

	if err := config.Init(root, &config.Project{ConfigSource: source}); err != nil {
		return app.fail(err)
	}
	empty := &importmap.ImportMap{Imports: map[string]string{}, Scopes: map[string]map[string]string{}}
	if err := importmap.Write(config.ImportsPath(root), empty); err != nil {
		return app.fail(err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(fields); err != nil {
		return app.fail(err)
	}

	fmt.Fprintf(app.stdout, "%s Initialized despace for %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(source))
	fmt.Fprintln(app.stdout)
	fmt.Fprintln(app.stdout, SubtitleStyle.Render("Next steps:"))
	fmt.Fprintf(app.stdout, "  1. Add these fields to %s:\n\n", source)
	_, _ = app.stdout.Write(buf.Bytes())
	fmt.Fprintln(app.stdout)
	fmt.Fprintln(app.stdout, `  2. Remove "imports" and "scopes" from the manifest; they now live under "despace.*"`)
	fmt.Fprintf(app.stdout, "  3. Run %s\n", CmdStyle.Render("despace build"))
	return nil
}

// findManifest returns the root-relative, forward-slash path of the project
// manifest: args[0] when given, otherwise the first existing candidate.
func findManifest(root string, args []string) (string, error) {
	candidates := manifest.CandidateNames()
	if len(args) > 0 {
		candidates = []string{args[0]}
	}

	for _, name := range candidates {
		p := name
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, filepath.FromSlash(name))
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", fmt.Errorf("check %s: %w", name, err)
		}
		if info.IsDir() {
			continue
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return "", fmt.Errorf("manifest %s: %w", name, err)
		}
		return filepath.ToSlash(rel), nil
	}

	return "", issue.NewErrorContext().
		WithOperation("initialize despace").
		WithResource(root).
		WithSuggestion("Create a deno.json or deno.jsonc file").
		WithSuggestion("Or name the manifest explicitly: despace init <file>").
		WithIssue(issue.ManifestNotFoundId).
		Wrap(manifest.ErrNotFound).
		BuildError()
}

// fieldsFor moves the manifest's imports and scopes, including those of its
// external import map, under the despace override keys.
func fieldsFor(m *manifest.Manifest) (*manifestFields, error) {
	fields := &manifestFields{
		ImportMap: "./" + config.StateDir + "/" + config.ImportsFile,
		Imports:   map[string]string{},
		Scopes:    map[string]map[string]string{},
		Tasks: map[string]string{
			"despace:build": "despace build",
			"despace:dev":   "despace build --watch",
		},
	}
	maps.Copy(fields.Imports, m.Imports)
	maps.Copy(fields.Scopes, m.Scopes)

	if m.ImportMapRef != "" {
		ref := filepath.Join(filepath.Dir(m.Path), filepath.FromSlash(m.ImportMapRef))
		if filepath.Clean(ref) == filepath.Clean(filepath.Join(filepath.Dir(m.Path), config.StateDir, config.ImportsFile)) {
			return fields, nil
		}
		im, err := manifest.LoadImportMap(ref)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("read import map").
				WithResource(m.ImportMapRef).
				WithIssue(issue.ManifestParseErrorId).
				Wrap(err).
				BuildError()
		}
		maps.Copy(fields.Imports, im.Imports)
		maps.Copy(fields.Scopes, im.Scopes)
	}
	return fields, nil
}
