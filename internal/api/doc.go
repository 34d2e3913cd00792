// Package api handles incoming HTTP requests, request validation and
// response formatting. It adapts HTTP clients to the scoring engine and the
// assessment service and never exposes internal error text.
package api
