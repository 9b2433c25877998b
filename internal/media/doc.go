// Package media wraps the ffmpeg and ffprobe binaries behind a Toolkit.
//
// Operations cover what the enrichment pipeline needs from a source video:
// thumbnail capture, duration probing, audio extraction for transcription,
// optional compression, and preview clip cutting. Failed invocations surface
// a ToolkitError carrying the exit code and stderr, tagged as an external
// tool failure for classification.
package media
