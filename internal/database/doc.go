// Package database provides SQLite-based storage for a11yscan.
//
// This package implements the AuditDB, which stores:
//   - Audit responses (single-engine and comparative) as JSON
//   - One row per reported violation, for per-criterion history
//   - A SHA3-256 digest of every stored response to detect tampering
//
// SQLite (via modernc.org/sqlite) keeps the history in a single CGO-free
// file; WAL mode lets the HTTP server read while audits are written.
package database
