// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"maps"
	"slices"
)

type (
	// Manifest is a parsed workspace manifest. It is rebuilt from disk on
	// every run and never cached.
	Manifest struct {
		// Path is the file the manifest was read from.
		Path string
		// Shadowed is set when a lower-priority candidate file also exists
		// in the same directory and was ignored.
		Shadowed string

		Name    string
		Exports Exports
		// Workspaces lists sub-workspace paths relative to the manifest
		// directory, in declared order. Nil when the field is absent.
		Workspaces []string
		// HasWorkspaces distinguishes an absent workspaces field from an
		// empty list.
		HasWorkspaces bool
		Imports       map[string]string
		Scopes        map[string]map[string]string
		// ImportMapRef is the path of an external import map file, relative
		// to the manifest directory.
		ImportMapRef string

		// ExplicitImports and ExplicitScopes are the despace.imports and
		// despace.scopes override fields. Only the project's authoritative
		// manifest is expected to carry them.
		ExplicitImports map[string]string
		ExplicitScopes  map[string]map[string]string
	}

	// Exports is either a single entry point or a mapping from subpath to
	// entry point. The zero value means the manifest declares no exports.
	Exports struct {
		single string
		paths  map[string]string
	}

	// ImportMapFile is an external import map referenced by a manifest.
	ImportMapFile struct {
		Path    string
		Imports map[string]string
		Scopes  map[string]map[string]string
	}
)

// SingleExport returns an Exports value with one entry point.
func SingleExport(target string) Exports {
	return Exports{single: target}
}

// MappedExports returns an Exports value keyed by subpath.
func MappedExports(paths map[string]string) Exports {
	return Exports{paths: maps.Clone(paths)}
}

// IsZero reports whether no exports were declared.
func (e Exports) IsZero() bool {
	return e.single == "" && e.paths == nil
}

// Single returns the single export target, if that is the declared form.
func (e Exports) Single() (string, bool) {
	return e.single, e.single != ""
}

// Keys returns the mapped subpaths in sorted order. It is empty for the
// single-target form.
func (e Exports) Keys() []string {
	return slices.Sorted(maps.Keys(e.paths))
}

// Target returns the entry point mapped to key.
func (e Exports) Target(key string) string {
	return e.paths[key]
}

// Len returns the number of export entries the manifest produces.
func (e Exports) Len() int {
	if e.single != "" {
		return 1
	}
	return len(e.paths)
}
