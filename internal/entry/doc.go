// Package entry persists journal entries in SQLite and exposes helpers for
// driving their enrichment lifecycle.
//
// The Store manages database connections, schema initialization, owner-scoped
// CRUD, list filtering, and the status transitions that gate the pipeline:
// pending entries are claimed with a compare-and-set, running entries send
// heartbeats, and stale claims are reclaimed so a crashed worker never wedges
// an entry permanently.
//
// Derived fields (thumbnail, duration, transcript, summary, tags, sentiment)
// are written only through FinishProcessing; user-authored fields only through
// UpdateUserFields. Schema changes bump the version in schema.go; users clear
// the database to adopt the new schema.
package entry
