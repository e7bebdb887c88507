// SPDX-License-Identifier: MPL-2.0

package discovery

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal discovery error diagnostic.
	SeverityError Severity = "error"
)

const (
	// CodeManifestNotFound marks a workspace directory with no manifest.
	// The branch is pruned.
	CodeManifestNotFound = "manifest_not_found"
	// CodeManifestShadowed marks a directory holding both deno.json and
	// deno.jsonc; only the first is read.
	CodeManifestShadowed = "manifest_shadowed"
	// CodeNameMissing marks a manifest without "name"; it contributes no
	// exports but is still traversed.
	CodeNameMissing = "manifest_name_missing"
	// CodeExportsMissing marks a named manifest without "exports".
	CodeExportsMissing = "manifest_exports_missing"
	// CodeImportUnresolved marks a local raw import whose target does not
	// exist on disk.
	CodeImportUnresolved = "import_unresolved"
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// Diagnostic represents a structured discovery diagnostic that is returned
	// to callers (rather than written to stderr) for consistent rendering policy.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "manifest_not_found").
		Code string
		// Message is the human-readable description.
		Message string
		// Path is the root-relative path associated with this diagnostic.
		Path string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}
)

func warning(code, path, message string, cause error) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  message,
		Path:     path,
		Cause:    cause,
	}
}
