package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"hlssafe/internal/config"
	"hlssafe/internal/daemon"
	"hlssafe/internal/deps"
	"hlssafe/internal/encoding"
	"hlssafe/internal/ipc"
	"hlssafe/internal/logging"
	"hlssafe/internal/metrics"
	"hlssafe/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides [logging] level when set.
	LogLevel string
	// Ready, when set, is called once the IPC socket accepts connections.
	Ready func(socketPath string)
}

// Run starts the hlssafe daemon and blocks until it is signalled, stopped
// over IPC, or cmdCtx is cancelled.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runCfg := *cfg
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		runCfg.Logging.Level = level
	}
	sessionID := uuid.NewString()
	logger, err := logging.NewFromConfig(&runCfg, sessionID)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	resolver := encoding.NewResolver(cfg.Encoder.Candidates, cfg.Encoder.Command)
	logDependencySnapshot(logger, resolver)
	for _, failed := range preflight.Failed(preflight.RunAll(cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldImpact, "encodes may fail until this is fixed"),
			logging.String(logging.FieldErrorHint, "run hlssafe doctor for details"),
		)
	}

	encoderMetrics := metrics.New(prometheus.NewRegistry())
	orch := encoding.NewOrchestrator(resolver,
		encoding.WithLogger(logger),
		encoding.WithObserver(encoderMetrics),
	)

	d, err := daemon.New(cfg, orch, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	// The lock must be held before the socket is replaced, otherwise a
	// second daemon would steal a live instance's socket.
	if err := d.Start(signalCtx); err != nil {
		return err
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger, ipc.WithShutdown(cancel))
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if bind := strings.TrimSpace(cfg.Metrics.Bind); bind != "" {
		stopMetrics, err := serveMetrics(bind, encoderMetrics.Handler(), logger)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	logger.Info("hlssafe daemon ready",
		logging.String(logging.FieldEventType, "daemon_ready"),
		logging.String("socket", cfg.SocketPath()),
		logging.String("log_path", d.LogPath()),
	)
	if opts.Ready != nil {
		opts.Ready(cfg.SocketPath())
	}

	<-signalCtx.Done()
	logger.Info("hlssafe daemon shutting down", logging.String(logging.FieldEventType, "daemon_stopping"))
	d.Stop()
	return nil
}

func serveMetrics(bind string, handler http.Handler, logger *slog.Logger) (func(), error) {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics on %s: %w", bind, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.WarnWithContext(logger, "metrics server stopped", "metrics_server_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "metrics are no longer exported"),
			)
		}
	}()
	logger.Info("metrics endpoint listening",
		logging.String(logging.FieldEventType, "metrics_listening"),
		logging.String("address", listener.Addr().String()),
	)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
		<-done
	}, nil
}

func logDependencySnapshot(logger *slog.Logger, resolver *encoding.Resolver) {
	report := deps.CheckEncoder(resolver)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("ffmpeg_available", report.Ready()),
		logging.String("ffmpeg_binary", report.Selected),
	}
	for _, candidate := range report.Candidates {
		if candidate.Available {
			attrs = append(attrs, logging.String("ffmpeg_candidate", candidate.Command))
			break
		}
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
