// SPDX-License-Identifier: MPL-2.0

package importmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/studios/despace/internal/discovery"
	"github.com/studios/despace/pkg/fspath"
)

// JSRPrefix is prepended to workspace export names when Options.PrependJSR
// is set.
const JSRPrefix = "jsr:"

type (
	// ImportMap is the persisted build output.
	ImportMap struct {
		Imports map[string]string            `json:"imports"`
		Scopes  map[string]map[string]string `json:"scopes"`
	}

	// Options controls name and path transforms applied by Build.
	Options struct {
		// PrependJSR prefixes workspace export names with "jsr:".
		PrependJSR bool
		// Root is the absolute project root.
		Root string
		// BaseDir is the absolute directory of the manifest declaring the
		// explicit overrides. Defaults to Root.
		BaseDir string
	}
)

// Build merges entries (in traversal order) with the explicit overrides.
// explicitScopes is passed through unchanged.
func Build(entries []discovery.Entry, explicitImports map[string]string, explicitScopes map[string]map[string]string, opts Options) *ImportMap {
	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = opts.Root
	}

	imports := make(map[string]string, len(entries)+len(explicitImports))
	for _, e := range entries {
		if e.Origin != discovery.OriginWorkspaceExport {
			continue
		}
		name := e.Name
		if opts.PrependJSR {
			name = JSRPrefix + name
		}
		imports[name] = fspath.ToOutput(e.Path)
	}
	for _, e := range entries {
		if e.Origin != discovery.OriginRawImport {
			continue
		}
		imports[e.Name] = fspath.ToOutput(e.Path)
	}
	for name, target := range explicitImports {
		imports[name] = explicitTarget(opts.Root, baseDir, target)
	}

	scopes := maps.Clone(explicitScopes)
	if scopes == nil {
		scopes = map[string]map[string]string{}
	}

	return &ImportMap{Imports: imports, Scopes: scopes}
}

// explicitTarget normalizes a local override path relative to the project
// root before adding the parent marker. Remote and absolute paths are kept.
func explicitTarget(root, baseDir, target string) string {
	if fspath.IsRemote(target) || filepath.IsAbs(target) || root == "" {
		return fspath.ToOutput(target)
	}
	return fspath.ToOutput(fspath.Resolve(root, baseDir, target))
}

// Encode renders m as indented JSON with a trailing newline. Map keys are
// sorted, so equal maps always encode to identical bytes.
func Encode(m *ImportMap) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode import map: %w", err)
	}
	return buf.Bytes(), nil
}

// Write encodes m and replaces the file at path. The content is written to a
// temporary file in the same directory first and renamed into place, so a
// failed write never leaves a truncated import map behind.
func Write(path string, m *ImportMap) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
