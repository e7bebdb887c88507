// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation steps. It may link an entry of the issue catalog: a Markdown
// page, rendered with glamour, that explains the failure and how to fix it.
package issue
