// Package redis implements store.ResultCache on Redis. Results are stored as
// JSON under a per-session key with a fixed TTL.
package redis
