// Package services defines shared utilities consumed by the job pipeline and
// the transport integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that let callers classify
//     failures (user error vs tool failure vs timeout vs transient) with
//     errors.Is instead of string matching.
//
// Use these helpers when wiring new pipeline logic so error handling and
// observability stay uniform.
package services
