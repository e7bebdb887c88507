// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/studios/despace/internal/manifest"
	"github.com/studios/despace/pkg/fspath"
)

type (
	// Walker collects import entries from a workspace tree rooted at a
	// project directory. A Walker holds no state between walks.
	Walker struct {
		root   string
		strict bool
	}

	// Option configures a Walker.
	Option func(*Walker)
)

// WithStrict makes unresolved local raw imports fatal instead of a warning.
func WithStrict(strict bool) Option {
	return func(w *Walker) {
		w.strict = strict
	}
}

// New creates a Walker for the project rooted at root. root is made
// absolute and symlink-free; relative workspace paths passed to Walk are
// resolved against it.
func New(root string, opts ...Option) (*Walker, error) {
	abs, err := fspath.Canonical(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	w := &Walker{root: abs}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Root returns the absolute project root.
func (w *Walker) Root() string {
	return w.root
}

// Walk visits each of rootPaths (relative to the project root) and,
// recursively, every workspace they declare. Entries are returned in
// depth-first pre-order: a workspace's exports, then its raw imports, then
// its sub-workspaces in declared order.
//
// Missing manifests, missing names and missing exports are reported as
// diagnostics. Parse errors, unreadable import maps, cycles and (in strict
// mode) unresolved imports abort the walk.
func (w *Walker) Walk(ctx context.Context, rootPaths []string) (Result, error) {
	var res Result
	for _, p := range rootPaths {
		sub, err := w.visit(ctx, filepath.Join(w.root, filepath.FromSlash(p)), nil)
		if err != nil {
			return Result{}, err
		}
		res.append(sub)
	}
	return res, nil
}

// visit processes one workspace directory. stack holds the canonical paths
// of the workspaces currently being visited, outermost first.
func (w *Walker) visit(ctx context.Context, dir string, stack []string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("walk canceled: %w", err)
	}

	canonical, err := fspath.Canonical(dir)
	if err != nil {
		return Result{}, err
	}
	if i := slices.Index(stack, canonical); i >= 0 {
		cycle := make([]string, 0, len(stack)-i+1)
		for _, p := range stack[i:] {
			cycle = append(cycle, w.rel(p))
		}
		cycle = append(cycle, w.rel(canonical))
		return Result{}, &CycleError{Cycle: cycle}
	}
	stack = append(slices.Clip(stack), canonical)

	var res Result

	m, err := manifest.Load(dir)
	if errors.Is(err, manifest.ErrNotFound) {
		res.Diagnostics = append(res.Diagnostics, warning(CodeManifestNotFound, w.rel(dir),
			fmt.Sprintf("no %s or %s found in %s", manifest.FileJSON, manifest.FileJSONC, w.rel(dir)), err))
		return res, nil
	}
	if err != nil {
		return Result{}, err
	}
	manifestPath := w.rel(m.Path)

	if m.Shadowed != "" {
		res.Diagnostics = append(res.Diagnostics, warning(CodeManifestShadowed, w.rel(m.Shadowed),
			fmt.Sprintf("%s is ignored because %s exists", w.rel(m.Shadowed), manifestPath), nil))
	}

	res.Entries = append(res.Entries, w.exportEntries(m, dir, manifestPath, &res)...)

	imports, err := w.rawImportEntries(m, dir, manifestPath, &res)
	if err != nil {
		return Result{}, err
	}
	res.Entries = append(res.Entries, imports...)

	for _, ws := range m.Workspaces {
		sub, err := w.visit(ctx, filepath.Join(dir, filepath.FromSlash(ws)), stack)
		if err != nil {
			return Result{}, err
		}
		res.append(sub)
	}

	return res, nil
}

// exportEntries turns a manifest's name and exports into entries. Missing
// fields are recorded on res as diagnostics.
func (w *Walker) exportEntries(m *manifest.Manifest, dir, manifestPath string, res *Result) []Entry {
	if m.Name == "" {
		res.Diagnostics = append(res.Diagnostics, warning(CodeNameMissing, manifestPath,
			fmt.Sprintf("no name found in %s", manifestPath), nil))
		return nil
	}
	if m.Exports.IsZero() {
		res.Diagnostics = append(res.Diagnostics, warning(CodeExportsMissing, manifestPath,
			fmt.Sprintf("no exports found in %s (%s)", m.Name, manifestPath), nil))
		return nil
	}

	if target, ok := m.Exports.Single(); ok {
		return []Entry{{
			Name:     m.Name,
			Path:     fspath.Resolve(w.root, dir, target),
			Origin:   OriginWorkspaceExport,
			Manifest: manifestPath,
		}}
	}

	entries := make([]Entry, 0, m.Exports.Len())
	for _, key := range m.Exports.Keys() {
		entries = append(entries, Entry{
			Name:     path.Join(m.Name, key),
			Path:     fspath.Resolve(w.root, dir, m.Exports.Target(key)),
			Origin:   OriginWorkspaceExport,
			Manifest: manifestPath,
		})
	}
	return entries
}

// rawImportEntries collects a manifest's inline imports overlaid with the
// imports of its referenced import map file (the file wins on collision).
func (w *Walker) rawImportEntries(m *manifest.Manifest, dir, manifestPath string, res *Result) ([]Entry, error) {
	imports := maps.Clone(m.Imports)
	if m.ImportMapRef != "" {
		im, err := manifest.LoadImportMap(filepath.Join(dir, filepath.FromSlash(m.ImportMapRef)))
		if err != nil {
			return nil, fmt.Errorf("import map referenced by %s: %w", manifestPath, err)
		}
		if imports == nil {
			imports = make(map[string]string, len(im.Imports))
		}
		maps.Copy(imports, im.Imports)
	}

	entries := make([]Entry, 0, len(imports))
	for _, name := range slices.Sorted(maps.Keys(imports)) {
		target := imports[name]
		entry := Entry{Name: name, Origin: OriginRawImport, Manifest: manifestPath}

		if fspath.IsRemote(target) {
			entry.Path = target
			entries = append(entries, entry)
			continue
		}

		onDisk := filepath.Join(dir, filepath.FromSlash(target))
		if filepath.IsAbs(target) {
			// Absolute targets are kept verbatim, like explicit overrides.
			entry.Path = target
			onDisk = target
		} else {
			entry.Path = fspath.Resolve(w.root, dir, target)
		}
		if _, statErr := os.Stat(onDisk); statErr != nil {
			if w.strict {
				return nil, &UnresolvedImportError{Name: name, Target: target, Manifest: manifestPath, Err: statErr}
			}
			res.Diagnostics = append(res.Diagnostics, warning(CodeImportUnresolved, manifestPath,
				fmt.Sprintf("import %q in %s points to %q, which does not exist", name, manifestPath, target), statErr))
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// rel returns p relative to the project root in forward-slash form.
func (w *Walker) rel(p string) string {
	r, err := filepath.Rel(w.root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(r)
}
