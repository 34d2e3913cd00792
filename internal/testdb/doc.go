//go:build integration

// Package testdb provides helpers for PostgreSQL integration tests. Each
// test runs inside a transaction that is rolled back when it finishes, so
// tests can share one migrated database and run in parallel.
package testdb
