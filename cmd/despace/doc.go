// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for despace.
//
// The root command wires the build and init subcommands to the internal
// packages. Errors returned by those packages are rendered here, together
// with the matching issue catalog entry, and mapped to exit codes through
// ExitError.
package cmd
