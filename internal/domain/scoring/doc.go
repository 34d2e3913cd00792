// Package scoring implements the answer pipeline for every supported
// instrument: validation, cleaning, dimension scoring, answer pattern
// analysis and result synthesis.
//
// The Engine is pure and synchronous. It holds only immutable state (the
// question bank, the Params and the per-instrument strategy table) so a
// single instance can be shared across goroutines. Identical input always
// yields an identical Result apart from Metadata.GeneratedAt and
// Metadata.ProcessingTime.
//
// Instrument-specific behavior lives behind the Strategy interface:
//   - type inventory: binary-pole votes per dimension producing a type code
//   - clinical screening: item sums mapped to severity bands, with a risk flag
//   - emotional competency and wellbeing: ordinal means with reverse items
//
// Problems with user-supplied answers are reported as data (ValidationResult,
// low-confidence Results). Only caller misuse, such as asking for an
// instrument the engine does not know, is returned as an error.
package scoring
