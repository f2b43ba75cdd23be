// Package main hosts the hlssafe CLI entrypoint and command graph.
//
// Commands talk to the daemon over its Unix socket; the CLI never launches
// ffmpeg itself. Path selection happens here, through the picker, before a
// request is sent.
package main
