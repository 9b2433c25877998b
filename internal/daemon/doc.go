// Package daemon coordinates the long-running lifelog process.
//
// It wires configuration, the entry store, the enrichment worker, and the
// HTTP API into a single lifecycle with flock-based locking to prevent
// multiple instances from sharing one database. Startup requeues entries
// left in the running state by a crashed predecessor.
//
// Keep orchestration logic here: enrichment stages and storage access live
// in their respective packages while the daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
