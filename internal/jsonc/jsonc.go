// SPDX-License-Identifier: MPL-2.0

// Package jsonc reads the relaxed JSON accepted by deno.json and deno.jsonc
// files: standard JSON extended with line comments, block comments and
// trailing commas. Both manifest dialects and external import-map files go
// through Standardize so format quirks never reach the traversal logic.
package jsonc

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tailscale/hujson"
)

// ErrEmpty is returned when the input contains no JSON value at all
// (only whitespace and comments).
var ErrEmpty = errors.New("empty document")

// Standardize converts relaxed JSON into standard JSON. Comments are elided
// and trailing commas removed; byte offsets of the remaining content are
// preserved so positions reported by later decoding stages still line up
// with the original file. Objects that repeat a key keep only the last
// occurrence, matching JSON.parse. Offsets then shift but line numbers
// still hold.
func Standardize(data []byte) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	ast, err := hujson.Parse(bytes.Clone(data))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	ast.Standardize()
	dropDuplicateKeys(&ast)
	std := ast.Pack()
	if len(bytes.TrimSpace(std)) == 0 {
		return nil, ErrEmpty
	}
	return std, nil
}

// dropDuplicateKeys removes every object member whose name appears again
// later in the same object. Newlines of removed members are carried over to
// the next kept member.
func dropDuplicateKeys(v *hujson.Value) {
	switch t := v.Value.(type) {
	case *hujson.Array:
		for i := range t.Elements {
			dropDuplicateKeys(&t.Elements[i])
		}
	case *hujson.Object:
		last := make(map[string]int, len(t.Members))
		for i, m := range t.Members {
			if name, ok := memberName(m); ok {
				last[name] = i
			}
		}

		kept := t.Members[:0]
		lines := 0
		for i, m := range t.Members {
			if name, ok := memberName(m); ok && last[name] != i {
				lines += bytes.Count(m.Name.Pack(), []byte("\n")) + bytes.Count(m.Value.Pack(), []byte("\n"))
				continue
			}
			if lines > 0 {
				m.Name.BeforeExtra = append(bytes.Repeat([]byte("\n"), lines), m.Name.BeforeExtra...)
				lines = 0
			}
			dropDuplicateKeys(&m.Value)
			kept = append(kept, m)
		}
		t.Members = kept
	}
}

func memberName(m hujson.ObjectMember) (string, bool) {
	lit, ok := m.Name.Value.(hujson.Literal)
	if !ok {
		return "", false
	}
	return lit.String(), true
}
