// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx driver. It owns the schema (embedded goose
// migrations) and the JSONB encoding of results and metadata.
package postgres
