// Package core defines the shared language of the fetchsql translation core.
//
// This package contains:
//   - Resource limits shared by every public entry point (input size guard)
//   - The metadata collaborator interface consumed by host-layer completion
//   - Diagnostic severities shared by the CLI, LSP and preview server
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// The core packages (token, parser, format, fetchxml, transpile, completion)
// never perform I/O or logging; hosts present their results.
package core
