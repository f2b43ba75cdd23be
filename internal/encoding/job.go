package encoding

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"hlssafe/internal/logging"
)

const (
	// chunkSize caps a single read from the encoder's stderr pipe.
	chunkSize = 4096
	// outputBuffer is the number of undelivered chunks a job holds before
	// reading from the pipe blocks.
	outputBuffer = 64
)

// Job is a running encode. The creator must drain Output until it is closed;
// an undrained job stalls the encoder once the buffer fills.
type Job struct {
	id         string
	request    Request
	binary     string
	args       []string
	outputPath string
	tool       string
	started    time.Time

	proc    Process
	stopped atomic.Bool
	stopCtx context.Context
	output  chan string
	done    chan struct{}
	logger  *slog.Logger

	mu       sync.Mutex
	result   Result
	err      error
	finished time.Time
}

// ID returns the job's unique identifier.
func (j *Job) ID() string { return j.id }

// Request returns the request the job was started with.
func (j *Job) Request() Request { return j.request }

// Binary returns the executable the job launched.
func (j *Job) Binary() string { return j.binary }

// Args returns a copy of the argument vector passed to the encoder.
func (j *Job) Args() []string {
	out := make([]string, len(j.args))
	copy(out, j.args)
	return out
}

// OutputPath returns the file the encoder writes. It exists only once the
// job has succeeded.
func (j *Job) OutputPath() string { return j.outputPath }

// StartedAt returns when the encoder was launched.
func (j *Job) StartedAt() time.Time { return j.started }

// Output delivers the encoder's diagnostic text in arrival order. Chunks are
// not line-framed. The channel is closed when the stream ends.
func (j *Job) Output() <-chan string { return j.output }

// Done is closed once the job has a terminal Result.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes or ctx ends. The returned error is
// non-nil only when ctx ended first; encode failures are reported in Result.
func (j *Job) Wait(ctx context.Context) (Result, error) {
	select {
	case <-j.done:
		return j.Result(), nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Result returns the terminal result, or the zero Result while running.
func (j *Job) Result() Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Err returns the classified terminal error (an *ExitError, for example),
// or nil on success or while running. It matches ErrTerminated when the
// encoder stopped because Terminate was called or the job's context ended.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Elapsed reports how long the encoder has run, or ran.
func (j *Job) Elapsed() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finished.IsZero() {
		return time.Since(j.started)
	}
	return j.finished.Sub(j.started)
}

// Terminate asks the encoder to stop. Calling it after the job finished is a
// no-op.
func (j *Job) Terminate() error {
	select {
	case <-j.done:
		return nil
	default:
	}
	j.stopped.Store(true)
	return j.proc.Terminate()
}

func (j *Job) terminationRequested() bool {
	if j.stopped.Load() {
		return true
	}
	return j.stopCtx != nil && j.stopCtx.Err() != nil
}

// run pumps stderr into Output, waits for exit and records the result.
// onExit runs before Done is closed so the owner's bookkeeping is settled
// by the time waiters wake.
func (j *Job) run(onExit func(*Job)) {
	j.pump(j.proc.Stderr())
	close(j.output)

	termErr := classifyExit(j.tool, j.proc.Wait())
	if termErr != nil && j.terminationRequested() {
		termErr = markRequested(termErr)
	}

	j.mu.Lock()
	j.finished = time.Now()
	j.err = termErr
	if termErr == nil {
		j.result = Succeeded(j.outputPath)
	} else {
		j.result = Failed(termErr.Error())
	}
	j.mu.Unlock()

	if onExit != nil {
		onExit(j)
	}
	close(j.done)
}

func (j *Job) pump(r io.Reader) {
	if r == nil {
		return
	}
	buf := make([]byte, chunkSize)
	var pending []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			cut := completeUTF8(pending)
			if cut > 0 {
				j.output <- string(pending[:cut])
				pending = append(pending[:0], pending[cut:]...)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				j.logger.Debug("encoder stderr read ended", logging.Error(err))
			}
			break
		}
	}
	if len(pending) > 0 {
		j.output <- string(pending)
	}
}

// completeUTF8 returns the length of the prefix of b that does not end in a
// truncated multi-byte sequence, so a rune split across reads is delivered
// whole in the next chunk.
func completeUTF8(b []byte) int {
	n := len(b)
	// A UTF-8 sequence is at most 4 bytes; only the tail can be partial.
	for i := n - 1; i >= 0 && i >= n-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return n
			}
			return i
		}
	}
	return n
}
