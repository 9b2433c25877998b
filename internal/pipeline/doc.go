// Package pipeline turns a pending entry's uploaded video into derived
// journal fields.
//
// The Processor runs the stages for one entry: download, thumbnail, duration
// probe, audio extraction, transcription, and the keyword text stages. Stage
// failures are isolated; only a failed download, extraction, or transcription
// keeps later text stages from running, and every run ends with the entry
// marked done carrying whatever was derived. Temp files are scoped to the run
// and removed on all paths, after the finishing write.
//
// The Worker owns the loop around the Processor: it polls for pending
// entries, claims them with a compare-and-set so concurrent triggers cannot
// double-process, heartbeats while working, and returns stale claims from
// crashed workers to pending.
package pipeline
