//go:build !unix

package encoding

import (
	"errors"
	"os"
)

// Non-unix platforms have no SIGTERM; the encoder is killed.
func terminate(proc *os.Process) error {
	if proc == nil {
		return nil
	}
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
