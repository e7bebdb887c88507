// SPDX-License-Identifier: MPL-2.0

// Package importmap merges walker entries and the project's explicit
// overrides into the single import map written to .despace/imports.json.
//
// Merge precedence, later overwriting earlier on a name collision:
//  1. workspace exports, in traversal order
//  2. raw imports, in traversal order
//  3. explicit overrides from the authoritative manifest
package importmap
