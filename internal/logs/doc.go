// Package logs reads the daemon log file for `hlssafe logs`.
//
// Last returns the final lines with the byte offset that follows them, and
// Follow polls from an offset, handing new lines to a callback until its
// context ends. Memory stays bounded by the requested line count.
package logs
