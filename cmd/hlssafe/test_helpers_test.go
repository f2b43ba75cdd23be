package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hlssafe/internal/config"
	"hlssafe/internal/daemon"
	"hlssafe/internal/encoding"
	"hlssafe/internal/ipc"
	"hlssafe/internal/logging"
)

// stubEncoder writes its last argument and exits with $HLSSAFE_STUB_EXIT.
const stubEncoder = `#!/bin/sh
echo "frame=  1 fps=0.0 q=0.0" >&2
for last; do :; done
printf 'encoded' > "$last"
exit "${HLSSAFE_STUB_EXIT:-0}"
`

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	baseDir    string
	mediaDir   string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	stub := filepath.Join(base, "bin", "ffmpeg")
	if err := os.MkdirAll(filepath.Dir(stub), 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	if err := os.WriteFile(stub, []byte(stubEncoder), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv(config.EncoderEnvVar, "")

	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Encoder.Candidates = []string{stub}
	cfg := &cfgVal
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	logger := logging.NewNop()
	orch := encoding.NewOrchestrator(
		encoding.NewResolver(cfg.Encoder.Candidates, cfg.Encoder.Command),
		encoding.WithLogger(logger),
	)
	d, err := daemon.New(cfg, orch, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}
	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	mediaDir := filepath.Join(base, "media")
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		t.Fatalf("mkdir media: %v", err)
	}

	env := &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		baseDir:    base,
		mediaDir:   mediaDir,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func (e *cliTestEnv) mediaFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.mediaDir, name)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	quoted := make([]string, 0, len(cfg.Encoder.Candidates))
	for _, candidate := range cfg.Encoder.Candidates {
		quoted = append(quoted, fmt.Sprintf("%q", candidate))
	}
	content := fmt.Sprintf(
		"[paths]\nlog_dir = %q\n\n[encoder]\ncommand = %q\ncandidates = [%s]\n\n[logging]\nlevel = \"error\"\n",
		cfg.Paths.LogDir,
		cfg.Encoder.Command,
		strings.Join(quoted, ", "),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
