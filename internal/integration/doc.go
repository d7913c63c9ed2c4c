// Package integration provides cross-package integration tests for
// archdrift. They drive the real pipeline end to end: a fixture project
// and its system maps on disk, a real scan, the full validator suite,
// and report assembly.
//
// Build tag: integration
// Run with: go test -tags integration ./internal/integration/...
package integration
