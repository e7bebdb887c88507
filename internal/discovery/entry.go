// SPDX-License-Identifier: MPL-2.0

package discovery

const (
	// OriginWorkspaceExport marks an entry derived from a manifest's
	// name and exports.
	OriginWorkspaceExport Origin = iota
	// OriginRawImport marks an entry copied from a manifest's imports or its
	// referenced import map.
	OriginRawImport
)

type (
	// Origin records which part of a manifest produced an Entry.
	Origin int

	// Entry is one name → path mapping collected during a walk.
	Entry struct {
		// Name is the import specifier, without any jsr: prefix.
		Name string
		// Path is a root-relative forward-slash path, or a remote specifier
		// copied verbatim.
		Path string
		// Origin is the manifest section the entry came from.
		Origin Origin
		// Manifest is the root-relative path of the declaring manifest.
		Manifest string
	}

	// Result is the outcome of a walk: entries in traversal order plus the
	// non-fatal diagnostics raised along the way.
	Result struct {
		Entries     []Entry
		Diagnostics []Diagnostic
	}
)

// String returns a human-readable origin name.
func (o Origin) String() string {
	switch o {
	case OriginWorkspaceExport:
		return "workspace export"
	case OriginRawImport:
		return "raw import"
	default:
		return "unknown"
	}
}

// Exports returns the workspace-export entries in traversal order.
func (r Result) Exports() []Entry {
	return r.filter(OriginWorkspaceExport)
}

// RawImports returns the raw-import entries in traversal order.
func (r Result) RawImports() []Entry {
	return r.filter(OriginRawImport)
}

func (r Result) filter(origin Origin) []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Origin == origin {
			out = append(out, e)
		}
	}
	return out
}

func (r *Result) append(other Result) {
	r.Entries = append(r.Entries, other.Entries...)
	r.Diagnostics = append(r.Diagnostics, other.Diagnostics...)
}
