// Package sqlite provides a unified SQLite-based implementation of the
// harvester's storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements three store interfaces
// through a single database connection:
//
//   - EntityStore: repositories, organizations, users and their READMEs
//   - RunStore: harvest runs and their status transitions
//   - LogStore: the run log and API audit trail
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Applied versions are recorded in schema_migrations.
// Natural keys use NOCASE collation. Timestamps are stored as unix
// nanoseconds so that ordering and MAX() compare instants exactly.
//
// # Data Location
//
// By default, the database is stored at ~/.harvester/data/harvester.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Status checks that guard an insert or update run in
// the same statement, so they stay atomic across processes.
package sqlite
