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
	"path/filepath"
	"sync"

	"skmotion/internal/control"
	"skmotion/internal/logging"
	"skmotion/internal/pipeline"
)

// ServiceName is the RPC receiver name clients call into.
const ServiceName = "Recorder"

// Controller is the session surface exposed over the socket.
type Controller interface {
	Execute(line string) control.Reply
}

// StatusSource reports the live session status.
type StatusSource interface {
	Status() pipeline.Status
	Settings() pipeline.Settings
}

// Server exposes session control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewServer listens on path, replacing a stale socket left by a crashed run.
func NewServer(ctx context.Context, path string, controller Controller, status StatusSource, logger *slog.Logger) (*Server, error) {
	if controller == nil || status == nil {
		return nil, errors.New("ipc server requires a controller and status source")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create socket directory: %w", err)
	}
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{controller: controller, status: status, logger: logger}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Path returns the socket path.
func (s *Server) Path() string { return s.path }

// Serve starts accepting RPC connections until Close.
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
					logging.String(logging.FieldImpact, "ctl clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions"),
				)
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Run serves until ctx is cancelled, then closes the server. It lets the
// socket run as a pipeline companion.
func (s *Server) Run(ctx context.Context) error {
	s.Serve()
	select {
	case <-ctx.Done():
	case <-s.ctx.Done():
	}
	s.Close()
	return nil
}

// Close stops the server, waits for in-flight connections and removes the
// socket file.
func (s *Server) Close() {
	s.once.Do(func() {
		s.cancel()
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.wg.Wait()
		if err := os.RemoveAll(s.path); err != nil {
			logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
				logging.String("socket", s.path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "a stale socket may confuse skmotion ctl"),
				logging.String(logging.FieldErrorHint, "remove the socket file manually"),
			)
		}
	})
}

type service struct {
	controller Controller
	status     StatusSource
	logger     *slog.Logger
}

func (s *service) Command(req CommandRequest, resp *CommandResponse) error {
	reply := s.controller.Execute(req.Line)
	if reply.Command == "" && reply.Text == "" {
		return errors.New("empty command")
	}
	resp.Command = reply.Command
	resp.Text = reply.Text
	resp.Stop = reply.Stop
	if reply.Command != "" {
		s.logger.Info("remote command applied",
			logging.String("command", reply.Command),
			logging.String(logging.FieldEventType, "ipc_command"),
		)
	}
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	st := s.status.Status()
	resp.SessionID = st.SessionID
	resp.Phase = st.Phase.String()
	resp.Paused = st.Paused
	resp.StopReason = st.StopReason
	resp.ElapsedMillis = st.Elapsed.Milliseconds()
	resp.Captured = st.Counters.Captured
	resp.Accepted = st.Counters.Accepted
	resp.Saved = st.Counters.Saved
	resp.Skipped = st.Counters.Skipped
	resp.Dropped = st.Counters.Dropped
	resp.Similarity = st.Similarity
	resp.CaptureQueue = st.CaptureQueue
	resp.EncodeQueue = st.EncodeQueue
	resp.Destination = s.status.Settings().Destination
	resp.PID = os.Getpid()
	return nil
}
