package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"hlssafe/internal/daemon"
	"hlssafe/internal/encoding"
	"hlssafe/internal/logging"
)

// defaultPollTimeout bounds a waiting Output call so abandoned clients do not
// pin server goroutines.
const defaultPollTimeout = 30 * time.Second

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithShutdown registers fn to run after a Stop RPC has stopped the daemon,
// typically cancelling the process context.
func WithShutdown(fn func()) ServerOption {
	return func(s *Server) {
		s.shutdown = fn
	}
}

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server
	shutdown  func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, opts ...ServerOption) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	s := &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpc.NewServer(),
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.rpcServer.RegisterName(ServiceName, &service{server: s}); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}
	return s, nil
}

// Path returns the socket path.
func (s *Server) Path() string { return s.path }

// Serve starts accepting RPC connections until the server is closed.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"),
				)
				continue
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.track(c, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server, disconnects clients and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun hlssafe stop"),
		)
	}
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.ctx.Err() != nil {
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		return
	}
	delete(s.conns, conn)
}

// service holds the exported RPC methods. net/rpc requires the
// (args, *reply) error shape.
type service struct {
	server *Server
}

func (s *service) log() *slog.Logger { return s.server.logger }

func (s *service) Encode(req EncodeRequest, resp *EncodeResponse) error {
	s.log().Debug("encode requested",
		logging.String("input", req.Request.PrimaryPath),
		logging.String("output_dir", req.Request.OutputDir),
	)
	job, err := s.server.daemon.Encode(req.Request)
	if err != nil {
		if errors.Is(err, daemon.ErrNotRunning) {
			return err
		}
		result := encoding.FailureFromError(err)
		resp.Result = &result
		return nil
	}
	resp.JobID = job.ID()
	resp.OutputPath = job.OutputPath()
	return nil
}

func (s *service) Output(req OutputRequest, resp *OutputResponse) error {
	ctx := s.server.ctx
	if req.Wait {
		timeout := defaultPollTimeout
		if req.TimeoutMillis > 0 {
			timeout = min(time.Duration(req.TimeoutMillis)*time.Millisecond, defaultPollTimeout)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	batch, err := s.server.daemon.Output(ctx, req.JobID, req.Since, req.Wait)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// Poll window elapsed with nothing new; the client polls again.
			resp.Next = req.Since
			return nil
		}
		return err
	}
	resp.Chunks = batch.Chunks
	resp.Next = batch.Next
	resp.Missed = batch.Missed
	resp.Done = batch.Done
	return nil
}

func (s *service) Result(req ResultRequest, resp *ResultResponse) error {
	result, done, err := s.server.daemon.Result(s.server.ctx, req.JobID, req.Wait)
	if err != nil {
		return err
	}
	resp.Result = result
	resp.Done = done
	return nil
}

func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	if err := s.server.daemon.Cancel(req.JobID); err != nil {
		return err
	}
	resp.Cancelled = true
	s.log().Info("encode cancel requested via IPC",
		logging.String(logging.FieldEventType, "encode_cancel"),
		logging.String(logging.FieldJobID, req.JobID),
	)
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.server.daemon.Status()
	resp.Running = status.Running
	resp.LockPath = status.LockFilePath
	resp.LogPath = status.LogPath
	resp.PID = status.PID
	if job := status.ActiveJob; job != nil {
		resp.ActiveJob = &ActiveJob{
			ID:             job.ID,
			PrimaryPath:    job.PrimaryPath,
			Subtitle:       job.Subtitle,
			OutputPath:     job.OutputPath,
			Binary:         job.Binary,
			StartedAt:      job.StartedAt,
			ElapsedSeconds: job.Elapsed.Seconds(),
		}
	}
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.server.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	if s.server.shutdown != nil {
		// Let the reply reach the client before the listener goes away.
		go s.server.shutdown()
	}
	return nil
}
