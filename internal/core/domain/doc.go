// Package domain defines the core business entities for the harvester.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Run: One harvesting execution and its lifecycle state
//   - Repository, Organization, User: Canonical entity records
//   - Content: Ancillary files (READMEs) attached to an entity
//   - LogEntry: Append-only run and audit events
//   - RawNode: Undecoded API payloads handed to the normaliser
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
