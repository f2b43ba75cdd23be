package encoding

import (
	"errors"
	"fmt"
)

var (
	// ErrExecutableNotFound means no ffmpeg candidate exists and no bare
	// command name is configured. Its message carries the install hint shown
	// to users.
	ErrExecutableNotFound = errors.New("ffmpeg not found. Install via: brew install ffmpeg (macOS) or your system package manager (e.g. apt install ffmpeg)")
	ErrLaunch             = errors.New("encoder launch failed")
	ErrNonZeroExit        = errors.New("encoder exited with non-zero status")
	ErrTerminated         = errors.New("encoder terminated")
	ErrBusy               = errors.New("an encode is already running")
	ErrInvalidRequest     = errors.New("invalid encode request")
)

// LaunchError reports an OS-level failure to start the encoder. Its message
// is the underlying system error, unchanged.
type LaunchError struct {
	Binary string
	Err    error
}

func (e *LaunchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("start %s", e.Binary)
	}
	return e.Err.Error()
}

func (e *LaunchError) Unwrap() []error {
	return []error{ErrLaunch, e.Err}
}

// ExitError reports an encoder that ran and exited with a non-zero code.
type ExitError struct {
	Tool string
	Code int
	// Requested is set when the exit followed a termination request. ffmpeg
	// traps SIGTERM and exits 255 instead of dying by the signal.
	Requested bool
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.Code)
}

func (e *ExitError) Unwrap() []error {
	if e.Requested {
		return []error{ErrNonZeroExit, ErrTerminated}
	}
	return []error{ErrNonZeroExit}
}

// SignalError reports an encoder killed by a signal before it could exit.
type SignalError struct {
	Tool string
}

func (e *SignalError) Error() string {
	return e.Tool + " terminated by signal"
}

func (e *SignalError) Unwrap() error { return ErrTerminated }

// exitCoder is satisfied by *exec.ExitError and by test doubles.
type exitCoder interface {
	ExitCode() int
}

// classifyExit maps the error returned by Process.Wait to a terminal error.
// A nil result means the encoder succeeded.
func classifyExit(tool string, waitErr error) error {
	if waitErr == nil {
		return nil
	}
	var coded exitCoder
	if errors.As(waitErr, &coded) {
		if code := coded.ExitCode(); code >= 0 {
			return &ExitError{Tool: tool, Code: code}
		}
		return &SignalError{Tool: tool}
	}
	return fmt.Errorf("%s: %w", tool, waitErr)
}

// markRequested flags an exit that followed a termination request so it
// classifies as ErrTerminated.
func markRequested(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		exitErr.Requested = true
	}
	return err
}
