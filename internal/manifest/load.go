// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/studios/despace/internal/jsonc"
	"github.com/studios/despace/pkg/cueutil"
)

const (
	// FileJSON is the preferred manifest filename.
	FileJSON = "deno.json"
	// FileJSONC is the manifest filename for the commented dialect.
	FileJSONC = "deno.jsonc"
)

// ErrNotFound is returned when none of the candidate manifest files exist.
var ErrNotFound = errors.New("manifest not found")

//go:embed manifest_schema.cue
var schema []byte

type (
	// ParseError reports a manifest or import map that exists but could not
	// be read or parsed. It is always fatal to a build.
	ParseError struct {
		Path string
		Err  error
	}

	rawManifest struct {
		Name            string                       `json:"name"`
		Exports         any                          `json:"exports"`
		Workspaces      *[]string                    `json:"workspaces"`
		Workspace       *[]string                    `json:"workspace"`
		Imports         map[string]string            `json:"imports"`
		Scopes          map[string]map[string]string `json:"scopes"`
		ImportMap       string                       `json:"importMap"`
		ExplicitImports map[string]string            `json:"despace.imports"`
		ExplicitScopes  map[string]map[string]string `json:"despace.scopes"`
	}

	rawImportMap struct {
		Imports map[string]string            `json:"imports"`
		Scopes  map[string]map[string]string `json:"scopes"`
	}
)

// CandidateNames returns the manifest filenames tried in a directory, in
// priority order.
func CandidateNames() []string {
	return []string{FileJSON, FileJSONC}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads the manifest in dir. names overrides the candidate filenames;
// when empty, CandidateNames is used. The first existing candidate wins and
// the next existing one, if any, is recorded in Manifest.Shadowed.
//
// Returns an error wrapping ErrNotFound when no candidate exists.
func Load(dir string, names ...string) (*Manifest, error) {
	if len(names) == 0 {
		names = CandidateNames()
	}

	var found *Manifest
	for _, name := range names {
		path := filepath.Join(dir, name)
		if found != nil {
			if _, err := os.Stat(path); err == nil {
				found.Shadowed = path
				break
			}
			continue
		}

		m, err := LoadFile(path)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		found = m
	}

	if found == nil {
		return nil, fmt.Errorf("%w in %s", ErrNotFound, dir)
	}
	return found, nil
}

// LoadFile reads a single manifest file.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	m, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Parse parses manifest content. filename is used for error messages and
// recorded as Manifest.Path.
func Parse(data []byte, filename string) (*Manifest, error) {
	std, err := jsonc.Standardize(data)
	if err != nil {
		return nil, &ParseError{Path: filename, Err: err}
	}

	res, err := cueutil.ParseAndDecode[rawManifest](schema, std, "#Manifest", cueutil.WithFilename(filename))
	if err != nil {
		return nil, &ParseError{Path: filename, Err: err}
	}
	raw := res.Value

	m := &Manifest{
		Path:            filename,
		Name:            raw.Name,
		Imports:         raw.Imports,
		Scopes:          raw.Scopes,
		ImportMapRef:    raw.ImportMap,
		ExplicitImports: raw.ExplicitImports,
		ExplicitScopes:  raw.ExplicitScopes,
	}
	switch {
	case raw.Workspaces != nil:
		m.HasWorkspaces = true
		m.Workspaces = *raw.Workspaces
	case raw.Workspace != nil:
		// Deno's own spelling.
		m.HasWorkspaces = true
		m.Workspaces = *raw.Workspace
	}

	exports, err := decodeExports(raw.Exports)
	if err != nil {
		return nil, &ParseError{Path: filename, Err: err}
	}
	m.Exports = exports

	return m, nil
}

// LoadImportMap reads an external import map file. A missing file is a
// *ParseError wrapping fs.ErrNotExist, since the referencing manifest
// requires it.
func LoadImportMap(path string) (*ImportMapFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	std, err := jsonc.Standardize(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	res, err := cueutil.ParseAndDecode[rawImportMap](schema, std, "#ImportMap", cueutil.WithFilename(path))
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	return &ImportMapFile{
		Path:    path,
		Imports: res.Value.Imports,
		Scopes:  res.Value.Scopes,
	}, nil
}

// decodeExports converts the schema-validated exports value, which is
// either a string or a mapping of strings.
func decodeExports(v any) (Exports, error) {
	switch exp := v.(type) {
	case nil:
		return Exports{}, nil
	case string:
		return SingleExport(exp), nil
	case map[string]any:
		paths := make(map[string]string, len(exp))
		for key, target := range exp {
			s, ok := target.(string)
			if !ok {
				return Exports{}, fmt.Errorf("exports.%s: expected string, got %T", key, target)
			}
			paths[key] = s
		}
		return MappedExports(paths), nil
	default:
		return Exports{}, fmt.Errorf("exports: expected string or mapping, got %T", v)
	}
}
