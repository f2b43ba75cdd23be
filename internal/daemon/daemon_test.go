package daemon_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"hlssafe/internal/config"
	"hlssafe/internal/daemon"
	"hlssafe/internal/encoding"
)

type signalled struct{}

func (signalled) Error() string { return "signal: terminated" }
func (signalled) ExitCode() int { return -1 }

// scriptedProcess writes its stderr through a pipe the test controls.
type scriptedProcess struct {
	pr   *io.PipeReader
	pw   *io.PipeWriter
	exit chan error
	once sync.Once
}

func newScriptedProcess() *scriptedProcess {
	pr, pw := io.Pipe()
	return &scriptedProcess{pr: pr, pw: pw, exit: make(chan error, 1)}
}

func (p *scriptedProcess) Stderr() io.Reader { return p.pr }
func (p *scriptedProcess) Wait() error       { return <-p.exit }
func (p *scriptedProcess) Terminate() error {
	p.finish(signalled{})
	return nil
}

func (p *scriptedProcess) write(s string) { _, _ = p.pw.Write([]byte(s)) }

func (p *scriptedProcess) finish(err error) {
	p.once.Do(func() {
		_ = p.pw.Close()
		p.exit <- err
	})
}

type queueExecutor struct {
	mu    sync.Mutex
	procs []*scriptedProcess
}

func (q *queueExecutor) Start(context.Context, string, []string) (encoding.Process, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.procs) == 0 {
		return nil, errors.New("no scripted process")
	}
	p := q.procs[0]
	q.procs = q.procs[1:]
	return p, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	return &cfg
}

func testRequest(t *testing.T) encoding.Request {
	t.Helper()
	dir := t.TempDir()
	primary := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(primary, []byte("x"), 0o644); err != nil {
		t.Fatalf("write primary: %v", err)
	}
	return encoding.Request{PrimaryPath: primary, OutputDir: filepath.Join(dir, "out")}
}

func newDaemon(t *testing.T, procs ...*scriptedProcess) *daemon.Daemon {
	t.Helper()
	resolver := encoding.NewResolver([]string{"/nonexistent/hlssafe-test/ffmpeg"}, "ffmpeg")
	orch := encoding.NewOrchestrator(resolver, encoding.WithExecutor(&queueExecutor{procs: procs}))
	d, err := daemon.New(testConfig(t), orch, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.ActiveJob != nil {
		t.Fatal("no job should be active")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("unexpected pid %d", status.PID)
	}
	if !strings.HasSuffix(status.LockFilePath, "hlssafed.lock") {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestConcurrentStopReleasesOnce(t *testing.T) {
	proc := newScriptedProcess()
	d := newDaemon(t, proc)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	job, err := d.Encode(testRequest(t))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Stop()
		}()
	}
	wg.Wait()

	if d.Running() {
		t.Fatal("expected daemon to be stopped")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := job.Wait(ctx); err != nil {
		t.Fatalf("job did not finish after Stop: %v", err)
	}

	// The lock was released exactly once and can be taken again.
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("restart after concurrent Stop: %v", err)
	}
	d.Stop()
}

func TestSecondDaemonInstanceIsLockedOut(t *testing.T) {
	cfg := testConfig(t)
	orch := encoding.NewOrchestrator(nil)
	first, err := daemon.New(cfg, orch, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := daemon.New(cfg, orch, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	defer second.Close()

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(context.Background()); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}
}

func TestEncodeRequiresRunningDaemon(t *testing.T) {
	d := newDaemon(t)
	if _, err := d.Encode(testRequest(t)); !errors.Is(err, daemon.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestEncodeStreamsOutputAndResult(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	proc := newScriptedProcess()
	d := newDaemon(t, proc)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	req := testRequest(t)
	job, err := d.Encode(req)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	status := d.Status()
	if status.ActiveJob == nil || status.ActiveJob.ID != job.ID() {
		t.Fatalf("expected active job in status, got %+v", status.ActiveJob)
	}
	if status.ActiveJob.OutputPath != encoding.OutputPath(req) {
		t.Fatalf("unexpected output path %q", status.ActiveJob.OutputPath)
	}

	go func() {
		proc.write("frame=1\n")
		proc.write("frame=2\n")
		proc.finish(nil)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var text strings.Builder
	var since uint64
	for {
		batch, err := d.Output(ctx, job.ID(), since, true)
		if err != nil {
			t.Fatalf("Output: %v", err)
		}
		for _, c := range batch.Chunks {
			text.WriteString(c.Text)
		}
		since = batch.Next
		if batch.Done {
			break
		}
	}
	if text.String() != "frame=1\nframe=2\n" {
		t.Fatalf("unexpected output %q", text.String())
	}

	result, done, err := d.Result(ctx, job.ID(), true)
	if err != nil || !done {
		t.Fatalf("Result: done=%v err=%v", done, err)
	}
	if !result.Success || result.OutputPath != encoding.OutputPath(req) {
		t.Fatalf("unexpected result %+v", result)
	}
	if d.Status().ActiveJob != nil {
		t.Fatal("active job should clear after completion")
	}
}

func TestResultWithoutWaitReportsPending(t *testing.T) {
	proc := newScriptedProcess()
	d := newDaemon(t, proc)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	job, err := d.Encode(testRequest(t))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if _, done, err := d.Result(context.Background(), job.ID(), false); err != nil || done {
		t.Fatalf("expected pending result, done=%v err=%v", done, err)
	}

	if err := d.Cancel(job.ID()); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	result, done, err := d.Result(context.Background(), job.ID(), true)
	if err != nil || !done {
		t.Fatalf("Result: done=%v err=%v", done, err)
	}
	if result.Success || result.Error != "ffmpeg terminated by signal" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestStopTerminatesActiveEncode(t *testing.T) {
	proc := newScriptedProcess()
	d := newDaemon(t, proc)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	job, err := d.Encode(testRequest(t))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	d.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := job.Wait(ctx)
	if err != nil {
		t.Fatalf("job did not finish after Stop: %v", err)
	}
	if result.Success {
		t.Fatal("terminated encode must not report success")
	}
}

func TestUnknownJob(t *testing.T) {
	d := newDaemon(t)
	if _, err := d.Output(context.Background(), "missing", 0, false); !errors.Is(err, daemon.ErrUnknownJob) {
		t.Fatalf("Output: expected ErrUnknownJob, got %v", err)
	}
	if _, _, err := d.Result(context.Background(), "missing", false); !errors.Is(err, daemon.ErrUnknownJob) {
		t.Fatalf("Result: expected ErrUnknownJob, got %v", err)
	}
	if err := d.Cancel("missing"); !errors.Is(err, daemon.ErrUnknownJob) {
		t.Fatalf("Cancel: expected ErrUnknownJob, got %v", err)
	}
}
