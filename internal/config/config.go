// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/studios/despace/internal/issue"
	"github.com/studios/despace/pkg/cueutil"
)

const (
	// StateDir is the project-local directory holding despace state.
	StateDir = ".despace"
	// ConfigFile is the config filename inside StateDir.
	ConfigFile = "config.json"
	// ImportsFile is the generated import map filename inside StateDir.
	ImportsFile = "imports.json"

	// KeyConfigSource is the config key naming the authoritative manifest.
	KeyConfigSource = "despace.configSource"
	// KeyPrependJSR is the config key enabling the "jsr:" export prefix.
	KeyPrependJSR = "despace.prependJSR"

	// EnvConfigSource overrides KeyConfigSource.
	EnvConfigSource = "DESPACE_CONFIG_SOURCE"
	// EnvPrependJSR overrides KeyPrependJSR.
	EnvPrependJSR = "DESPACE_PREPEND_JSR"

	// keyDelimiter keeps the dotted config keys literal inside Viper.
	keyDelimiter = "::"
)

// StatusAbsent and StatusPresent are the two non-error outcomes of Probe.
const (
	StatusAbsent Status = iota
	StatusPresent
)

var (
	// ErrNotInitialized is wrapped by Load when the project has no config file.
	ErrNotInitialized = errors.New("despace is not initialized in this directory")

	// ErrAlreadyInitialized is returned by Init when a config file exists.
	ErrAlreadyInitialized = errors.New("despace is already initialized in this directory")

	//go:embed config_schema.cue
	configSchema []byte
)

type (
	// Status reports whether a project has been initialized.
	Status int

	// Project is the persisted project configuration.
	Project struct {
		// ConfigSource is the authoritative manifest path, relative to the
		// project root.
		ConfigSource string `json:"despace.configSource"`
		// PrependJSR prefixes workspace export names with "jsr:".
		PrependJSR bool `json:"despace.prependJSR"`
	}
)

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusPresent:
		return "present"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// StatePath returns the absolute state directory of the project at root.
func StatePath(root string) string {
	return filepath.Join(root, StateDir)
}

// ConfigPath returns the config file path of the project at root.
func ConfigPath(root string) string {
	return filepath.Join(root, StateDir, ConfigFile)
}

// ImportsPath returns the generated import map path of the project at root.
func ImportsPath(root string) string {
	return filepath.Join(root, StateDir, ImportsFile)
}

// ConfigSourcePath returns the authoritative manifest path resolved against
// root. Absolute sources are returned unchanged.
func (p *Project) ConfigSourcePath(root string) string {
	if filepath.IsAbs(p.ConfigSource) {
		return p.ConfigSource
	}
	return filepath.Join(root, filepath.FromSlash(p.ConfigSource))
}

// Probe reports whether the project at root has a config file. Any failure
// other than the file not existing is returned as an error.
func Probe(root string) (Status, error) {
	path := ConfigPath(root)
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return StatusAbsent, nil
	case err != nil:
		return StatusAbsent, fmt.Errorf("probe %s: %w", path, err)
	case info.IsDir():
		return StatusAbsent, fmt.Errorf("probe %s: is a directory", path)
	default:
		return StatusPresent, nil
	}
}

// Load reads the project config at root. Environment overrides are applied
// on top of the file. A missing config file yields an issue.ActionableError
// wrapping ErrNotInitialized.
func Load(ctx context.Context, root string) (*Project, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	path := ConfigPath(root)

	status, err := Probe(root)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load project config").
			WithResource(path).
			Wrap(err).
			BuildError()
	}
	if status == StatusAbsent {
		return nil, issue.NewErrorContext().
			WithOperation("load project config").
			WithResource(filepath.Join(StateDir, ConfigFile)).
			WithSuggestions(
				"Run 'despace init' in the project root",
				"Use -C <dir> to run despace against another directory",
			).
			WithIssue(issue.NotInitializedId).
			Wrap(ErrNotInitialized).
			BuildError()
	}

	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	v.SetDefault(KeyPrependJSR, false)
	if err := v.BindEnv(KeyConfigSource, EnvConfigSource); err != nil {
		return nil, fmt.Errorf("bind %s: %w", EnvConfigSource, err)
	}
	if err := v.BindEnv(KeyPrependJSR, EnvPrependJSR); err != nil {
		return nil, fmt.Errorf("bind %s: %w", EnvPrependJSR, err)
	}

	if err := loadJSONIntoViper(v, path); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load project config").
			WithResource(path).
			WithSuggestion("Check that the file is valid JSON").
			WithSuggestion(fmt.Sprintf("%q must be a non-empty string and %q a boolean", KeyConfigSource, KeyPrependJSR)).
			Wrap(err).
			BuildError()
	}

	project := &Project{
		ConfigSource: strings.TrimSpace(v.GetString(KeyConfigSource)),
		PrependJSR:   v.GetBool(KeyPrependJSR),
	}
	if project.ConfigSource == "" {
		return nil, issue.NewErrorContext().
			WithOperation("load project config").
			WithResource(path).
			WithSuggestion(fmt.Sprintf("Set %q to the path of your deno.json", KeyConfigSource)).
			Wrap(fmt.Errorf("%s is empty", KeyConfigSource)).
			BuildError()
	}

	return project, nil
}

// loadJSONIntoViper validates the config file against the #Config schema and
// merges it into v, below any environment overrides.
func loadJSONIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	res, err := cueutil.ParseAndDecode[map[string]any](configSchema, data, "#Config", cueutil.WithFilename(path))
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(*res.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// Save writes p to the project at root, creating the state directory.
func Save(root string, p *Project) error {
	if err := os.MkdirAll(StatePath(root), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Init saves p unless the project is already initialized, in which case it
// returns an error wrapping ErrAlreadyInitialized and leaves the file as is.
func Init(root string, p *Project) error {
	status, err := Probe(root)
	if err != nil {
		return err
	}
	if status == StatusPresent {
		return issue.NewErrorContext().
			WithOperation("initialize despace").
			WithResource(filepath.Join(StateDir, ConfigFile)).
			WithSuggestion("Edit the existing config instead").
			WithIssue(issue.AlreadyInitializedId).
			Wrap(ErrAlreadyInitialized).
			BuildError()
	}
	return Save(root, p)
}
