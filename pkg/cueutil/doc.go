// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates decoded manifest data against embedded CUE schemas.
//
// Manifests are JSON, and JSON is valid CUE, so the same three steps serve
// every file despace reads:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with schema
//  3. Validate and decode to Go struct
//
// # Usage
//
//	//go:embed manifest_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[rawManifest](
//	    schemaBytes,
//	    standardJSON,
//	    "#Manifest",
//	    cueutil.WithFilename("packages/a/deno.json"),
//	)
//	if err != nil {
//	    return nil, err // error includes the CUE path of the offending field
//	}
//	return result.Value, nil
package cueutil
