// Package transcribe runs the whisper CLI against extracted audio.
//
// The service shells out to the configured binary, reads the JSON transcript
// whisper writes next to the audio file, and reports empty speech as an empty
// transcript rather than an error. A binary or model that cannot run is an
// engine-unavailable failure the pipeline can isolate.
package transcribe
