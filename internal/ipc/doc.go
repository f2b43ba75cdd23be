// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. Encoder
// output reaches the client through a long-poll Output call that returns
// sequenced chunks, so the CLI renders ffmpeg diagnostics as they arrive
// without ever starting a process itself.
//
// Reuse these types when adding new RPC endpoints to keep the protocol stable
// and compatible with existing command implementations.
package ipc
