// Package encoding orchestrates the single ffmpeg subprocess that turns a
// primary video (plus an optional WebVTT subtitle track) into a
// streaming-safe MP4.
//
// It owns the three moving parts of an encode: resolving which ffmpeg binary
// to run, building the fixed HLS-safe argument vector, and supervising the
// child process while its stderr progress text is relayed to the caller in
// arrival order. Every request ends in exactly one Result.
//
// The argument builder is pure and has no knowledge of process spawning, so
// the encoding policy (codec, GOP structure, frame rate, audio layout) can be
// exercised in tests without an ffmpeg install. Callers that need to observe
// the running process hold the *Job returned by Orchestrator.Start; only one
// job may be active per Orchestrator.
package encoding
