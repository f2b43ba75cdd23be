package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hlssafe/internal/logging"
)

// Observer receives job lifecycle notifications, typically for metrics.
type Observer interface {
	JobStarted()
	JobRejected(reason string)
	// JobFinished receives the result and the classified error behind it,
	// nil on success.
	JobFinished(result Result, err error, elapsed time.Duration)
}

// Rejection reasons passed to Observer.JobRejected.
const (
	RejectBusy     = "busy"
	RejectInvalid  = "invalid_request"
	RejectNotFound = "executable_not_found"
	RejectLaunch   = "launch_error"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(o *Orchestrator) {
		if exec != nil {
			o.exec = exec
		}
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers a lifecycle observer.
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// Orchestrator runs at most one encode at a time.
type Orchestrator struct {
	resolver *Resolver
	exec     Executor
	logger   *slog.Logger
	observer Observer

	mu     sync.Mutex
	active *Job
}

// NewOrchestrator builds an orchestrator that launches whatever resolver
// selects.
func NewOrchestrator(resolver *Resolver, opts ...Option) *Orchestrator {
	if resolver == nil {
		resolver = NewResolver(nil, DefaultCommand)
	}
	o := &Orchestrator{
		resolver: resolver,
		exec:     commandExecutor{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "encoder")
	return o
}

// Resolver returns the executable resolver in use.
func (o *Orchestrator) Resolver() *Resolver { return o.resolver }

// Start launches an encode and returns its handle without waiting for it.
// A second Start while a job is active fails with ErrBusy. Cancelling ctx
// terminates the encoder.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*Job, error) {
	if err := req.Validate(); err != nil {
		o.reject(RejectInvalid)
		return nil, err
	}
	binary, err := o.resolver.Resolve()
	if err != nil {
		o.reject(RejectNotFound)
		return nil, err
	}
	args := BuildArgs(req)
	outputPath := args[len(args)-1]

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active != nil {
		o.reject(RejectBusy)
		return nil, fmt.Errorf("%w (job %s)", ErrBusy, o.active.id)
	}
	if err := req.checkInputs(); err != nil {
		o.reject(RejectInvalid)
		return nil, err
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		o.reject(RejectInvalid)
		return nil, fmt.Errorf("%w: create output directory: %w", ErrInvalidRequest, err)
	}
	if _, err := os.Stat(outputPath); err == nil {
		logging.WarnWithContext(o.logger, "output file exists and will be overwritten", "output_overwrite",
			logging.String("output", outputPath),
			logging.String(logging.FieldImpact, "previous encode at this path is replaced"),
			logging.String(logging.FieldErrorHint, "choose another output directory to keep the existing file"),
		)
	}

	proc, err := o.exec.Start(ctx, binary, args)
	if err != nil {
		o.reject(RejectLaunch)
		logging.ErrorWithContext(o.logger, "encoder launch failed", "encoder_launch_failed",
			logging.String("binary", binary),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `hlssafe doctor` to check the ffmpeg install"),
		)
		return nil, &LaunchError{Binary: binary, Err: err}
	}

	id := uuid.NewString()
	job := &Job{
		id:         id,
		request:    req,
		binary:     binary,
		args:       args,
		outputPath: outputPath,
		tool:       toolName(binary),
		started:    time.Now(),
		proc:       proc,
		stopCtx:    ctx,
		output:     make(chan string, outputBuffer),
		done:       make(chan struct{}),
		logger:     o.logger.With(logging.String(logging.FieldJobID, id)),
	}
	o.active = job
	if o.observer != nil {
		o.observer.JobStarted()
	}
	job.logger.Info("encode started",
		logging.String(logging.FieldEventType, "encode_started"),
		logging.String("binary", binary),
		logging.String("input", req.PrimaryPath),
		logging.Bool("subtitles", req.HasSubtitle()),
		logging.String("output", outputPath),
	)
	job.logger.Debug("encoder command", logging.String(logging.FieldCommand, FormatCommand(binary, args)))

	go job.run(o.finish)
	return job, nil
}

// Encode runs req to completion, passing each diagnostic chunk to onOutput
// as it arrives. Every failure, including launch errors, is returned as a
// failed Result.
func (o *Orchestrator) Encode(ctx context.Context, req Request, onOutput func(string)) Result {
	job, err := o.Start(ctx, req)
	if err != nil {
		return FailureFromError(err)
	}
	for chunk := range job.Output() {
		if onOutput != nil {
			onOutput(chunk)
		}
	}
	<-job.Done()
	return job.Result()
}

// Active returns the running job, if any.
func (o *Orchestrator) Active() (*Job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active, o.active != nil
}

// Shutdown terminates the running encode, if any. It does not wait for the
// process to exit.
func (o *Orchestrator) Shutdown() {
	job, ok := o.Active()
	if !ok {
		return
	}
	job.logger.Info("terminating encode for shutdown", logging.String(logging.FieldEventType, "encode_terminate"))
	if err := job.Terminate(); err != nil {
		logging.WarnWithContext(job.logger, "failed to terminate encoder", "encode_terminate_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "ffmpeg may keep running after shutdown"),
			logging.String(logging.FieldErrorHint, "stop the ffmpeg process manually"),
		)
	}
}

func (o *Orchestrator) finish(job *Job) {
	o.mu.Lock()
	if o.active == job {
		o.active = nil
	}
	o.mu.Unlock()

	result := job.Result()
	elapsed := job.Elapsed()
	if o.observer != nil {
		o.observer.JobFinished(result, job.Err(), elapsed)
	}
	if result.Success {
		job.logger.Info("encode completed",
			logging.String(logging.FieldEventType, "encode_completed"),
			logging.String("output", result.OutputPath),
			logging.Duration("elapsed", elapsed),
		)
		return
	}
	logging.ErrorWithContext(job.logger, "encode failed", "encode_failed",
		logging.String("reason", result.Error),
		logging.Duration("elapsed", elapsed),
		logging.String(logging.FieldErrorHint, "review the ffmpeg output above for the cause"),
	)
}

func (o *Orchestrator) reject(reason string) {
	if o.observer != nil {
		o.observer.JobRejected(reason)
	}
}

// toolName is the label used in exit messages, e.g. "ffmpeg".
func toolName(binary string) string {
	name := strings.TrimSuffix(filepath.Base(binary), ".exe")
	if name == "" || name == "." || name == string(filepath.Separator) {
		return DefaultCommand
	}
	return name
}

// FormatCommand renders binary and args as one shell-quoted command line,
// for logs and dry runs.
func FormatCommand(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, QuoteArg(binary))
	for _, arg := range args {
		parts = append(parts, QuoteArg(arg))
	}
	return strings.Join(parts, " ")
}

// QuoteArg renders arg for display in a POSIX shell command line.
func QuoteArg(arg string) string {
	if arg == "" {
		return "''"
	}
	if strings.IndexFunc(arg, needsShellQuote) < 0 {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

func needsShellQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./:=+@%,", r)
}
