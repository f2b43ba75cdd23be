// Package daemon owns the privileged side of hlssafe: it is the only place an
// encoder process is started.
//
// A Daemon wraps the encoding orchestrator with flock-based single-instance
// locking and keeps a short history of encode sessions so remote callers can
// long-poll a job's diagnostic output and collect its result after the
// fact. Presentation code reaches it exclusively through the ipc package.
package daemon
