package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"hlssafe/internal/config"
	"hlssafe/internal/encoding"
	"hlssafe/internal/logging"
	"hlssafe/internal/stream"
)

// maxSessions bounds how many finished encodes stay queryable.
const maxSessions = 16

var (
	// ErrNotRunning is returned when an operation needs a started daemon.
	ErrNotRunning = errors.New("daemon is not running")
	// ErrUnknownJob is returned for job identifiers the daemon does not hold.
	ErrUnknownJob = errors.New("unknown job")
)

// Daemon coordinates encodes and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	orch    *encoding.Orchestrator
	logPath string

	lockPath string
	lock     *flock.Flock

	streamCapacity int

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	stopMu   sync.Mutex
	sessions map[string]*session
	order    []string
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithStreamCapacity bounds how many diagnostic chunks each job retains for
// readers that have not fetched them yet.
func WithStreamCapacity(n int) Option {
	return func(d *Daemon) {
		if n > 0 {
			d.streamCapacity = n
		}
	}
}

type session struct {
	job *encoding.Job
	hub *stream.Hub
}

// JobStatus describes one encode known to the daemon.
type JobStatus struct {
	ID          string
	PrimaryPath string
	Subtitle    bool
	OutputPath  string
	Binary      string
	StartedAt   time.Time
	Elapsed     time.Duration
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	ActiveJob    *JobStatus
	LockFilePath string
	LogPath      string
	PID          int
}

// New constructs a daemon around an orchestrator.
func New(cfg *config.Config, orch *encoding.Orchestrator, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || orch == nil {
		return nil, errors.New("daemon requires config and orchestrator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:            cfg,
		logger:         logging.NewComponentLogger(logger, "daemon"),
		orch:           orch,
		logPath:        filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		lockPath:       lockPath,
		lock:           flock.New(lockPath),
		streamCapacity: stream.DefaultCapacity,
		sessions:       make(map[string]*session),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the daemon lock. Encodes started later inherit a context
// derived from ctx, so cancelling it terminates them.
func (d *Daemon) Start(ctx context.Context) error {
	d.stopMu.Lock()
	defer d.stopMu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another hlssafe daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.running.Store(true)
	d.logger.Info("hlssafe daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop terminates any running encode and releases the daemon lock. It is
// safe to call from several goroutines; only the first call does the work.
func (d *Daemon) Stop() {
	d.stopMu.Lock()
	defer d.stopMu.Unlock()
	if !d.running.Load() {
		return
	}

	d.orch.Shutdown()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next daemon start may report another instance"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("hlssafe daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Encode starts req and returns its job handle. Diagnostic output is
// buffered until fetched with Output.
func (d *Daemon) Encode(req encoding.Request) (*encoding.Job, error) {
	if !d.running.Load() {
		return nil, ErrNotRunning
	}
	job, err := d.orch.Start(d.ctx, req)
	if err != nil {
		return nil, err
	}
	hub := stream.NewHub(d.streamCapacity)
	go hub.Relay(job.Output())

	d.mu.Lock()
	d.sessions[job.ID()] = &session{job: job, hub: hub}
	d.order = append(d.order, job.ID())
	d.pruneLocked()
	d.mu.Unlock()
	return job, nil
}

// Output returns diagnostic chunks for jobID after sequence since. The
// batch is done once the job's stream has ended and been fully read.
func (d *Daemon) Output(ctx context.Context, jobID string, since uint64, wait bool) (stream.Batch, error) {
	s, err := d.lookup(jobID)
	if err != nil {
		return stream.Batch{Next: since}, err
	}
	batch, err := s.hub.Fetch(ctx, since, 0, wait)
	if err == nil && batch.Missed > 0 {
		d.logger.Debug("reader fell behind diagnostic stream",
			logging.String(logging.FieldEventType, "stream_chunks_missed"),
			logging.String(logging.FieldJobID, jobID),
			logging.Int64("missed", int64(batch.Missed)),
		)
	}
	return batch, err
}

// Result returns the terminal result for jobID. With wait it blocks until
// the job finishes or ctx ends; otherwise done reports whether it finished.
func (d *Daemon) Result(ctx context.Context, jobID string, wait bool) (encoding.Result, bool, error) {
	s, err := d.lookup(jobID)
	if err != nil {
		return encoding.Result{}, false, err
	}
	if !wait {
		select {
		case <-s.job.Done():
			return s.job.Result(), true, nil
		default:
			return encoding.Result{}, false, nil
		}
	}
	result, err := s.job.Wait(ctx)
	if err != nil {
		return encoding.Result{}, false, err
	}
	return result, true, nil
}

// Cancel terminates jobID if it is still running.
func (d *Daemon) Cancel(jobID string) error {
	s, err := d.lookup(jobID)
	if err != nil {
		return err
	}
	return s.job.Terminate()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
		PID:          os.Getpid(),
	}
	if job, ok := d.orch.Active(); ok {
		req := job.Request()
		status.ActiveJob = &JobStatus{
			ID:          job.ID(),
			PrimaryPath: req.PrimaryPath,
			Subtitle:    req.HasSubtitle(),
			OutputPath:  job.OutputPath(),
			Binary:      job.Binary(),
			StartedAt:   job.StartedAt(),
			Elapsed:     job.Elapsed(),
		}
	}
	return status
}

func (d *Daemon) lookup(jobID string) (*session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	return s, nil
}

// pruneLocked drops the oldest finished sessions beyond maxSessions.
func (d *Daemon) pruneLocked() {
	for len(d.order) > maxSessions {
		evicted := false
		for i, id := range d.order {
			s := d.sessions[id]
			select {
			case <-s.job.Done():
			default:
				continue
			}
			delete(d.sessions, id)
			d.order = append(d.order[:i], d.order[i+1:]...)
			evicted = true
			break
		}
		if !evicted {
			return
		}
	}
}
