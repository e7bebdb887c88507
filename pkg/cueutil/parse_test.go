// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"
)

const testSchema = `
#Package: {
	name:     string
	version?: string
	exports?: string | {[string]: string}
	...
}
`

type testPackage struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Exports any    `json:"exports,omitempty"`
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	t.Run("valid JSON decodes", func(t *testing.T) {
		t.Parallel()

		data := []byte(`{"name": "@scope/a", "version": "1.0.0", "exports": "./mod.ts"}`)
		result, err := ParseAndDecode[testPackage]([]byte(testSchema), data, "#Package")
		if err != nil {
			t.Fatalf("ParseAndDecode() error: %v", err)
		}
		if result.Value.Name != "@scope/a" {
			t.Errorf("Name = %q, want %q", result.Value.Name, "@scope/a")
		}
		if got, ok := result.Value.Exports.(string); !ok || got != "./mod.ts" {
			t.Errorf("Exports = %#v, want %q", result.Value.Exports, "./mod.ts")
		}
	})

	t.Run("mapping exports decode to map", func(t *testing.T) {
		t.Parallel()

		data := []byte(`{"name": "a", "exports": {".": "./mod.ts", "./utils": "./utils.ts"}}`)
		result, err := ParseAndDecode[testPackage]([]byte(testSchema), data, "#Package")
		if err != nil {
			t.Fatalf("ParseAndDecode() error: %v", err)
		}
		m, ok := result.Value.Exports.(map[string]any)
		if !ok {
			t.Fatalf("Exports = %#v, want map", result.Value.Exports)
		}
		if m["./utils"] != "./utils.ts" {
			t.Errorf("Exports[./utils] = %v", m["./utils"])
		}
	})

	t.Run("unknown fields are allowed by open schema", func(t *testing.T) {
		t.Parallel()

		data := []byte(`{"name": "a", "tasks": {"dev": "deno run mod.ts"}}`)
		if _, err := ParseAndDecode[testPackage]([]byte(testSchema), data, "#Package"); err != nil {
			t.Fatalf("ParseAndDecode() error: %v", err)
		}
	})

	t.Run("type mismatch reports field path", func(t *testing.T) {
		t.Parallel()

		data := []byte(`{"name": "a", "exports": 3}`)
		_, err := ParseAndDecode[testPackage]([]byte(testSchema), data, "#Package", WithFilename("pkg/deno.json"))
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "pkg/deno.json") {
			t.Errorf("error should name the file, got: %v", err)
		}
		if !strings.Contains(err.Error(), "exports") {
			t.Errorf("error should name the field, got: %v", err)
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		t.Parallel()

		data := []byte(`{"version": "1.0.0"}`)
		if _, err := ParseAndDecode[testPackage]([]byte(testSchema), data, "#Package"); err == nil {
			t.Fatal("expected error for missing name")
		}
	})

	t.Run("oversized input rejected", func(t *testing.T) {
		t.Parallel()

		data := []byte(`{"name": "a"}`)
		_, err := ParseAndDecode[testPackage]([]byte(testSchema), data, "#Package", WithMaxFileSize(4))
		if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
			t.Fatalf("expected size error, got %v", err)
		}
	})

	t.Run("bad schema path is an internal error", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testPackage]([]byte(testSchema), []byte(`{"name": "a"}`), "#Missing")
		if err == nil || !strings.Contains(err.Error(), "internal error") {
			t.Fatalf("expected internal error, got %v", err)
		}
	})
}
