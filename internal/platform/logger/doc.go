// Package logger provides structured logging functionality for the application.
//
// It builds log/slog JSON loggers with configurable levels, optionally
// mirrored to a size-rotated file, and carries request-scoped loggers
// through context.Context.
package logger
