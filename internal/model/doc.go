// Package model defines the core data structures used throughout sourcemapscan.
//
// This package contains the following main types:
//   - ScriptReference: A script URL discovered on the analyzed page
//   - Outcome: The tagged result of analyzing one script
//   - SourcemapDetails: What was learned from a fetched sourcemap
//   - UploadCandidate: A script/sourcemap pair that should be uploaded
//   - Report: The accumulated result of one analysis run
//
// The models are serializable to JSON for history storage.
package model
