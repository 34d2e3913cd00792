// Package store defines interfaces for session, answer and result
// persistence. The scoring core never imports it; the assessment service
// depends on these interfaces and the platform packages implement them.
package store
