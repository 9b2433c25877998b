// Package api implements the journal's application service layer: entry
// creation and upload, listing, partial updates, deletion with blob
// release, favorites, and manual re-enrichment. The HTTP server in
// internal/daemon and the CLI both sit on top of EntryService, so ownership
// checks and validation live here, once.
package api
