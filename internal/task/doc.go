// Package task runs recurring background jobs, such as expiring sessions
// that were left open past their time-to-live, outside of HTTP request
// handling.
package task
