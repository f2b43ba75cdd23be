// Package preflight provides readiness checks for the filesystem paths and
// the encoder executable hlssafe depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failing check as a
//     warning. Failures do not stop the daemon; an encode reports its own
//     error when it actually runs.
//   - The CLI "hlssafe doctor" command renders the same results as a table.
package preflight
