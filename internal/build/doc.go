// SPDX-License-Identifier: MPL-2.0

// Package build runs one complete despace build: load the project config,
// read the authoritative manifest, walk its workspaces, merge the import map
// and write it to .despace/imports.json.
//
// Every run starts from the file system; nothing is carried over between
// runs.
package build
