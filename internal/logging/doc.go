// Package logging centralizes slog construction for the daemon and CLI.
//
// It offers console and JSON handlers, multi-destination output (stdout plus a
// file under the configured log directory), context-derived attributes for
// entry identifiers and stage names, and small helpers so call sites stay
// terse. Console output colors level labels only when attached to a TTY.
package logging
