// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/studios/despace/internal/config"
	"github.com/studios/despace/internal/discovery"
	"github.com/studios/despace/internal/importmap"
	"github.com/studios/despace/internal/issue"
	"github.com/studios/despace/internal/manifest"
	"github.com/studios/despace/internal/testutil"
)

const defaultConfig = `{"despace.configSource": "deno.json", "despace.prependJSR": false}`

// project writes files plus a config under a fresh root.
func project(t *testing.T, cfg string, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	if cfg != "" {
		testutil.WriteFile(t, config.ConfigPath(root), cfg)
	}
	testutil.WriteTree(t, root, files)
	return root
}

func readImports(t *testing.T, root string) *importmap.ImportMap {
	t.Helper()
	var m importmap.ImportMap
	if err := json.Unmarshal([]byte(testutil.ReadFile(t, config.ImportsPath(root))), &m); err != nil {
		t.Fatalf("decode imports.json: %v", err)
	}
	return &m
}

func TestRunExample(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"deno.json":            `{"workspaces": ["packages/a"]}`,
		"packages/a/deno.json": `{"name": "a", "exports": "./mod.ts"}`,
	}

	tests := []struct {
		name string
		cfg  string
		want map[string]string
	}{
		{
			name: "plain names",
			cfg:  defaultConfig,
			want: map[string]string{"a": "../packages/a/mod.ts"},
		},
		{
			name: "jsr names",
			cfg:  `{"despace.configSource": "deno.json", "despace.prependJSR": true}`,
			want: map[string]string{"jsr:a": "../packages/a/mod.ts"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := project(t, tt.cfg, files)
			res, err := Run(context.Background(), Options{Root: root})
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if !res.Written || res.NothingToDo {
				t.Fatalf("Run() = %+v, want a written import map", res)
			}
			if res.Exports != 1 || res.RawImports != 0 {
				t.Errorf("counts = %d exports, %d raw imports", res.Exports, res.RawImports)
			}

			got := readImports(t, root)
			if diff := cmp.Diff(tt.want, got.Imports); diff != "" {
				t.Errorf("imports mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(string(res.Encoded), testutil.ReadFile(t, res.OutputPath)); diff != "" {
				t.Errorf("Encoded differs from the written file:\n%s", diff)
			}
		})
	}
}

func TestRunFullProject(t *testing.T) {
	t.Parallel()

	root := project(t, `{"despace.configSource": "deno.jsonc", "despace.prependJSR": true}`, map[string]string{
		"deno.jsonc": `{
	// authoritative manifest
	"workspaces": ["./packages/core", "./packages/web", "./tools/none"],
	"despace.imports": {
		"@app/core": "./vendor/core-fork.ts",
		"preact": "npm:preact@10.20.0",
	},
	"despace.scopes": {
		"https://esm.sh/": {"react": "npm:preact/compat"},
	},
}`,
		"vendor/core-fork.ts": ``,
		"packages/core/deno.json": `{
	"name": "@app/core",
	"exports": {".": "./mod.ts", "./log": "./src/log.ts"},
	"imports": {"preact": "npm:preact@10.19.0", "std/": "https://deno.land/std@0.224.0/"}
}`,
		"packages/web/deno.jsonc": `{
	"name": "@app/web",
	"exports": "./main.tsx",
	"imports": {"@app/core/log": "./shim/log.ts"},
	"workspaces": ["./plugins/auth"],
}`,
		"packages/web/shim/log.ts":            ``,
		"packages/web/plugins/auth/deno.json": `{"name": "@app/auth", "exports": "./auth.ts"}`,
	})

	res, err := Run(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := &importmap.ImportMap{
		Imports: map[string]string{
			"jsr:@app/core":     "../packages/core/mod.ts",
			"jsr:@app/core/log": "../packages/core/src/log.ts",
			"jsr:@app/web":      "../packages/web/main.tsx",
			"jsr:@app/auth":     "../packages/web/plugins/auth/auth.ts",
			"preact":            "npm:preact@10.20.0",
			"std/":              "https://deno.land/std@0.224.0/",
			"@app/core/log":     "../packages/web/shim/log.ts",
			"@app/core":         "../vendor/core-fork.ts",
		},
		Scopes: map[string]map[string]string{
			"https://esm.sh/": {"react": "npm:preact/compat"},
		},
	}
	if diff := cmp.Diff(want, readImports(t, root)); diff != "" {
		t.Errorf("import map mismatch (-want +got):\n%s", diff)
	}

	var codes []string
	for _, d := range res.Diagnostics {
		codes = append(codes, d.Code)
	}
	if diff := cmp.Diff([]string{discovery.CodeManifestNotFound}, codes); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestRunNestedConfigSource(t *testing.T) {
	t.Parallel()

	root := project(t, `{"despace.configSource": "app/deno.json"}`, map[string]string{
		"app/deno.json":    `{"workspaces": ["../libs/x"], "despace.imports": {"cfg": "./config.ts"}}`,
		"app/config.ts":    ``,
		"libs/x/deno.json": `{"name": "x", "exports": "./x.ts"}`,
	})

	if _, err := Run(context.Background(), Options{Root: root}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	want := map[string]string{"x": "../libs/x/x.ts", "cfg": "../app/config.ts"}
	if diff := cmp.Diff(want, readImports(t, root).Imports); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}
}

func TestRunNothingToDo(t *testing.T) {
	t.Parallel()

	root := project(t, defaultConfig, map[string]string{
		"deno.json": `{"name": "solo", "exports": "./mod.ts"}`,
	})

	res, err := Run(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.NothingToDo || res.Written {
		t.Errorf("Run() = %+v, want NothingToDo without a write", res)
	}
	if _, err := os.Stat(res.OutputPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("imports.json should not exist, stat err = %v", err)
	}
}

func TestRunDryRun(t *testing.T) {
	t.Parallel()

	root := project(t, defaultConfig, map[string]string{
		"deno.json":   `{"workspaces": ["a"]}`,
		"a/deno.json": `{"name": "a", "exports": "./mod.ts"}`,
	})

	res, err := Run(context.Background(), Options{Root: root, DryRun: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Written {
		t.Error("dry run reported a write")
	}
	if _, err := os.Stat(res.OutputPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("dry run wrote %s", res.OutputPath)
	}
	if len(res.Encoded) == 0 || res.ImportMap.Imports["a"] != "../a/mod.ts" {
		t.Errorf("dry run result = %s", res.Encoded)
	}
}

func TestRunIdempotent(t *testing.T) {
	t.Parallel()

	root := project(t, defaultConfig, map[string]string{
		"deno.json":   `{"workspaces": ["b", "a"]}`,
		"a/deno.json": `{"name": "a", "exports": {"./z": "./z.ts", "./y": "./y.ts"}, "imports": {"q": "npm:q", "p": "npm:p"}}`,
		"b/deno.json": `{"name": "b", "exports": "./b.ts"}`,
	})

	if _, err := Run(context.Background(), Options{Root: root}); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	first := testutil.ReadFile(t, config.ImportsPath(root))

	if _, err := Run(context.Background(), Options{Root: root}); err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if second := testutil.ReadFile(t, config.ImportsPath(root)); first != second {
		t.Errorf("outputs differ:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       string
		files     map[string]string
		opts      Options
		wantIssue issue.Id
		check     func(t *testing.T, err error)
	}{
		{
			name:      "not initialized",
			files:     map[string]string{"deno.json": `{"workspaces": []}`},
			wantIssue: issue.NotInitializedId,
			check: func(t *testing.T, err error) {
				t.Helper()
				if !errors.Is(err, config.ErrNotInitialized) {
					t.Errorf("error should wrap ErrNotInitialized: %v", err)
				}
			},
		},
		{
			name:      "missing authoritative manifest",
			cfg:       defaultConfig,
			wantIssue: issue.ManifestNotFoundId,
			check: func(t *testing.T, err error) {
				t.Helper()
				if !errors.Is(err, manifest.ErrNotFound) {
					t.Errorf("error should wrap manifest.ErrNotFound: %v", err)
				}
			},
		},
		{
			name:      "malformed authoritative manifest",
			cfg:       defaultConfig,
			files:     map[string]string{"deno.json": `{"workspaces": [`},
			wantIssue: issue.ManifestParseErrorId,
		},
		{
			name: "malformed workspace manifest",
			cfg:  defaultConfig,
			files: map[string]string{
				"deno.json":   `{"workspaces": ["a"]}`,
				"a/deno.json": `{"name": "a", "exports": 3}`,
			},
			wantIssue: issue.ManifestParseErrorId,
			check: func(t *testing.T, err error) {
				t.Helper()
				var pe *manifest.ParseError
				if !errors.As(err, &pe) {
					t.Errorf("error should wrap *manifest.ParseError: %v", err)
				}
			},
		},
		{
			name: "cycle",
			cfg:  defaultConfig,
			files: map[string]string{
				"deno.json":   `{"workspaces": ["a"]}`,
				"a/deno.json": `{"name": "a", "exports": "./mod.ts", "workspaces": ["."]}`,
			},
			wantIssue: issue.WorkspaceCycleId,
		},
		{
			name: "strict unresolved import",
			cfg:  defaultConfig,
			files: map[string]string{
				"deno.json":   `{"workspaces": ["a"]}`,
				"a/deno.json": `{"name": "a", "exports": "./mod.ts", "imports": {"x": "./nope.ts"}}`,
			},
			opts:      Options{Strict: true},
			wantIssue: issue.UnresolvedImportId,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := project(t, tt.cfg, tt.files)
			opts := tt.opts
			opts.Root = root

			res, err := Run(context.Background(), opts)
			if err == nil {
				t.Fatalf("Run() = %+v, want error", res)
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("Run() error should be *issue.ActionableError, got %T: %v", err, err)
			}
			if ae.Issue != tt.wantIssue {
				t.Errorf("Issue = %d, want %d", ae.Issue, tt.wantIssue)
			}
			if tt.check != nil {
				tt.check(t, err)
			}
			if _, statErr := os.Stat(filepath.Join(root, config.StateDir, config.ImportsFile)); !errors.Is(statErr, os.ErrNotExist) {
				t.Errorf("failed build left an import map behind")
			}
		})
	}
}

func TestRunFailureKeepsPreviousOutput(t *testing.T) {
	t.Parallel()

	root := project(t, defaultConfig, map[string]string{
		"deno.json":   `{"workspaces": ["a"]}`,
		"a/deno.json": `{"name": "a", "exports": "./mod.ts"}`,
	})
	if _, err := Run(context.Background(), Options{Root: root}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	before := testutil.ReadFile(t, config.ImportsPath(root))

	testutil.WriteFile(t, filepath.Join(root, "a", "deno.json"), `{"name": `)
	if _, err := Run(context.Background(), Options{Root: root}); err == nil {
		t.Fatal("Run() should fail on a malformed manifest")
	}
	if after := testutil.ReadFile(t, config.ImportsPath(root)); after != before {
		t.Errorf("failed build changed imports.json:\n%s", after)
	}
}
