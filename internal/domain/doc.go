// Package domain contains the core entities of the assessment engine: the
// instruments, answer records, derived scores and results, and the session
// aggregate with its status machine. It is independent of any storage or
// delivery mechanism.
package domain
