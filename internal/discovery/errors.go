// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"fmt"
	"strings"
)

type (
	// CycleError is returned when a workspace lists one of its own ancestors
	// (or itself) among its sub-workspaces.
	CycleError struct {
		// Cycle lists the root-relative workspace directories forming the
		// cycle, starting and ending with the repeated directory.
		Cycle []string
	}

	// UnresolvedImportError is returned in strict mode when a local raw
	// import points at a file that does not exist.
	UnresolvedImportError struct {
		Name     string
		Target   string
		Manifest string
		Err      error
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("workspace cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

func (e *UnresolvedImportError) Error() string {
	return fmt.Sprintf("import %q in %s: target %q does not exist", e.Name, e.Manifest, e.Target)
}

func (e *UnresolvedImportError) Unwrap() error { return e.Err }
