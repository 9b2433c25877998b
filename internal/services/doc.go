// Package services provides shared error classification and context helpers
// used across the pipeline stages.
//
// Stage code wraps failures with one of the sentinel markers so the
// orchestrator can count swallowed failures by kind without parsing messages.
// Context helpers carry entry identifiers and stage names into loggers.
package services
