// SPDX-License-Identifier: MPL-2.0

// Package discovery walks a workspace tree and collects import entries.
//
// The walk starts at the workspace paths declared by the project manifest and
// visits every nested workspace depth-first, pre-order, in declared order.
// That order is part of the contract: the import map builder resolves name
// collisions by letting later entries win, so two walks over the same tree
// must yield the same sequence.
//
// File organization:
//   - diagnostic.go: non-fatal diagnostics returned to callers
//   - entry.go: Entry and Origin
//   - errors.go: fatal walk errors (cycles, unresolved imports in strict mode)
//   - walker.go: the traversal itself
package discovery
