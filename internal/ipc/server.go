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

	"inksync/internal/daemon"
	"inksync/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. shutdown is
// invoked when a client requests daemon stop; it should cancel the process
// root context.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, shutdown func(), logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	svc := &service{daemon: d, shutdown: shutdown, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Inksync", svc); err != nil {
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

// Serve starts accepting RPC connections until the context is canceled.
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
				s.logger.Warn("accept failed", logging.Error(err))
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

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon   *daemon.Daemon
	shutdown func()
	logger   *slog.Logger
	ctx      context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.StartedAt = status.StartedAt
	resp.State = string(status.Scheduler.State)
	resp.Paused = status.Scheduler.Paused
	resp.AutoSync = status.Scheduler.AutoSync
	resp.IntervalSeconds = status.Scheduler.IntervalSeconds
	resp.ConsecutiveFailures = status.Scheduler.ConsecutiveFailures
	resp.NextRunInSeconds = status.Scheduler.NextRunInSeconds
	resp.LastError = status.Scheduler.LastError
	resp.LastSync = status.Scheduler.LastSync
	resp.SyncedCount = status.Scheduler.SyncedCount
	resp.LedgerDBPath = status.LedgerDBPath
	resp.LockPath = status.LockPath
	resp.VaultDir = status.VaultDir
	return nil
}

func (s *service) SyncNow(_ SyncNowRequest, resp *SyncNowResponse) error {
	s.log().Debug("manual sync requested")
	report, err := s.daemon.SyncNow(s.ctx)
	if err != nil {
		return err
	}
	resp.Total = report.Total
	resp.Synced = report.Synced
	resp.Failures = report.Failures
	return nil
}

func (s *service) Pause(_ PauseRequest, resp *PauseResponse) error {
	s.daemon.Pause()
	resp.Paused = true
	s.log().Info("sync paused via IPC")
	return nil
}

func (s *service) Resume(_ ResumeRequest, resp *ResumeResponse) error {
	s.daemon.Resume()
	resp.Resumed = true
	s.log().Info("sync resumed via IPC")
	return nil
}

func (s *service) ResumeAfterError(_ ResumeAfterErrorRequest, resp *ResumeAfterErrorResponse) error {
	if err := s.daemon.ResumeAfterError(); err != nil {
		return err
	}
	resp.Resumed = true
	s.log().Info("sync resumed after error stop via IPC")
	return nil
}

func (s *service) Forget(req ForgetRequest, resp *ForgetResponse) error {
	if err := s.daemon.ForgetSynced(s.ctx, req.JobIDs); err != nil {
		return err
	}
	resp.Forgotten = true
	s.log().Info("ledger records forgotten via IPC", logging.Int("count", len(req.JobIDs)))
	return nil
}

func (s *service) Prune(_ PruneRequest, resp *PruneResponse) error {
	removed, err := s.daemon.PruneLedger(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("ledger pruned via IPC", logging.Int("removed", removed))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Info("daemon stop requested via IPC")
	if s.shutdown != nil {
		s.shutdown()
	}
	resp.Stopped = true
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	if err := s.daemon.TestNotification(s.ctx); err != nil {
		resp.Sent = false
		resp.Message = err.Error()
		return nil
	}
	resp.Sent = true
	resp.Message = "notification sent"
	return nil
}
