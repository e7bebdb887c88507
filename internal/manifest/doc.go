// SPDX-License-Identifier: MPL-2.0

// Package manifest loads deno.json / deno.jsonc workspace manifests and the
// external import map files they may reference.
//
// Both manifest dialects are read through the same relaxed JSON reader
// (comments and trailing commas allowed) and validated against an embedded
// CUE schema. Absence of a manifest is reported as ErrNotFound so callers
// can treat it as non-fatal; every other failure is a *ParseError.
package manifest
