// SPDX-License-Identifier: MPL-2.0

// Package config reads and writes the per-project state kept in .despace/.
//
// .despace/config.json holds two settings: the path of the authoritative
// manifest (despace.configSource) and whether workspace exports are prefixed
// with "jsr:" (despace.prependJSR). The file is validated against an embedded
// CUE schema and loaded through Viper, so either setting can be overridden
// from the environment with DESPACE_CONFIG_SOURCE and DESPACE_PREPEND_JSR.
package config
