// Package events carries domain events between the assessment service and
// whoever reacts to them. Services emit events without knowing the handlers,
// which keeps alerting and follow-up work out of the request path code.
//
// Event types:
//   - session.completed: a session reached the completed status with a result
//   - risk.flagged: a submitted answer carries a safety flag, raised at
//     submit time whether or not the answer was stored
package events
