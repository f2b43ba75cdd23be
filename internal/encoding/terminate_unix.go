//go:build unix

package encoding

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func terminate(proc *os.Process) error {
	if proc == nil {
		return nil
	}
	if err := proc.Signal(unix.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
