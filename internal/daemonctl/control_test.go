package daemonctl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"hlssafe/internal/config"
	"hlssafe/internal/daemon"
	"hlssafe/internal/encoding"
	"hlssafe/internal/ipc"
)

// startDaemon serves a real daemon on a temp socket; closing stop mimics the
// daemon process exiting after a Stop RPC.
func startDaemon(t *testing.T) string {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	orch := encoding.NewOrchestrator(encoding.NewResolver(nil, "ffmpeg"))
	d, err := daemon.New(&cfg, orch, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}

	var srv *ipc.Server
	srv, err = ipc.NewServer(ctx, cfg.SocketPath(), d, nil, ipc.WithShutdown(func() {
		go srv.Close()
	}))
	if err != nil {
		cancel()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
		d.Stop()
		cancel()
	})
	return cfg.SocketPath()
}

func TestIsDaemonUnavailable(t *testing.T) {
	_, err := ipc.Dial(filepath.Join(t.TempDir(), "missing.sock"))
	if err == nil {
		t.Fatal("expected dial error")
	}
	if !IsDaemonUnavailable(err) {
		t.Fatalf("missing socket should be unavailable: %v", err)
	}
	if !IsDaemonUnavailable(syscall.ECONNREFUSED) {
		t.Fatal("refused connection should be unavailable")
	}
	if IsDaemonUnavailable(errors.New("boom")) {
		t.Fatal("generic error should not be unavailable")
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := Launch("  ", LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable")
	}
}

func TestEnsureStartedAlreadyRunning(t *testing.T) {
	socket := startDaemon(t)

	result, err := EnsureStarted(context.Background(), socket, "/nonexistent/hlssafe", LaunchOptions{}, time.Second)
	if err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if result.State != StartStateAlreadyRunning {
		t.Fatalf("state = %s, want %s", result.State, StartStateAlreadyRunning)
	}
	if result.PID != os.Getpid() {
		t.Fatalf("pid = %d, want %d", result.PID, os.Getpid())
	}
}

func TestEnsureStartedLaunchFailure(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "hlssafe.sock")
	_, err := EnsureStarted(context.Background(), socket, filepath.Join(t.TempDir(), "missing-binary"), LaunchOptions{}, 200*time.Millisecond)
	if err == nil {
		t.Fatal("expected launch failure")
	}
}

func TestWaitForClientTimeout(t *testing.T) {
	start := time.Now()
	_, err := WaitForClient(context.Background(), filepath.Join(t.TempDir(), "none.sock"), 300*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("WaitForClient overran its timeout")
	}
}

func TestWaitForClientHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WaitForClient(ctx, filepath.Join(t.TempDir(), "none.sock"), 10*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStopAndTerminateNotRunning(t *testing.T) {
	_, err := StopAndTerminate(context.Background(), filepath.Join(t.TempDir(), "none.sock"), time.Second)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestStopAndTerminateGraceful(t *testing.T) {
	socket := startDaemon(t)

	result, err := StopAndTerminate(context.Background(), socket, 3*time.Second)
	if err != nil {
		t.Fatalf("StopAndTerminate: %v", err)
	}
	if !result.StopAcknowledged {
		t.Fatal("expected stop to be acknowledged")
	}
	if result.ForcedKill {
		t.Fatal("graceful stop must not kill the process")
	}
}
