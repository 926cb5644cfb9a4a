// Package sqlite provides a SQLite-backed embedding index.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. The index mirrors the most recent
// embedding archive so records can be queried with SQL:
//
//	SELECT name, text FROM embeddings WHERE document = 'intro' ORDER BY chunk_index;
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// Vectors are stored as little-endian float32 blobs, the same byte layout as
// the archive's embeddings array.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
