// Package main hosts the lifelogd entrypoint and command graph.
//
// The Cobra-based command tree runs the daemon in the foreground, queries a
// running daemon over its HTTP API for status and entry listings, and
// scaffolds configuration files. It centralizes configuration resolution so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
