package encoding

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// Process is a launched encoder whose diagnostic stream can be read and
// whose exit can be awaited.
type Process interface {
	// Stderr yields the encoder's diagnostic output until it exits.
	Stderr() io.Reader
	// Wait blocks until the process exits. Stderr must be drained first.
	Wait() error
	// Terminate asks the process to stop. It is best-effort.
	Terminate() error
}

// Executor launches encoder processes. Tests substitute a fake.
type Executor interface {
	Start(ctx context.Context, binary string, args []string) (Process, error)
}

// terminateGrace bounds how long Wait waits for a terminated encoder to
// close its pipes before it is killed outright.
const terminateGrace = 10 * time.Second

type commandExecutor struct{}

func (commandExecutor) Start(ctx context.Context, binary string, args []string) (Process, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Cancel = func() error {
		return terminate(cmd.Process)
	}
	cmd.WaitDelay = terminateGrace
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &commandProcess{cmd: cmd, stderr: stderr}, nil
}

type commandProcess struct {
	cmd    *exec.Cmd
	stderr io.Reader
}

func (p *commandProcess) Stderr() io.Reader { return p.stderr }

func (p *commandProcess) Wait() error { return p.cmd.Wait() }

func (p *commandProcess) Terminate() error {
	return terminate(p.cmd.Process)
}
