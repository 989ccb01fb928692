package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Somnusochi/auto-novel/errors"
	"github.com/Somnusochi/auto-novel/logger"
	"github.com/Somnusochi/auto-novel/sym"
)

// ServerState is the coarse lifecycle of the server
type ServerState int32

const (
	ServerStateRunning ServerState = iota
	ServerStateDraining
	ServerStateStopped
)

func (s *Server) getState() ServerState {
	return ServerState(s.state.Load())
}

func (s *Server) setState(newState ServerState) {
	s.state.Store(int32(newState))
	s.logger.Debugw("Server state changed", "new_state", stateString(newState))
}

func stateString(state ServerState) string {
	switch state {
	case ServerStateRunning:
		return "running"
	case ServerStateDraining:
		return "draining"
	case ServerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ListenAndServe serves on port until Shutdown. It returns nil after a
// graceful shutdown.
func (s *Server) ListenAndServe(port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return errors.Wrapf(err, "failed to listen on port %d", port)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener until Shutdown
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	logger.WithSymbol(sym.Sakura).Infow("Sakura server listening",
		logger.FieldAddress, listener.Addr().String())

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Shutdown stops accepting requests, ends status streams and stops every
// dispatcher so held jobs return to the queue.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Initiating server shutdown")
	s.setState(ServerStateDraining)

	s.mu.RLock()
	srv := s.httpServer
	s.mu.RUnlock()

	var shutdownErr error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			shutdownErr = errors.Wrap(err, "failed to shut down http server")
		}
	}

	// Ends the status streams, which hijacked their connections
	s.cancel()

	s.logger.Infow("Stopping dispatchers")
	s.facade.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(ShutdownTimeout):
		s.logger.Warnw("Status streams did not close in time", "timeout", ShutdownTimeout)
	}

	s.setState(ServerStateStopped)
	s.logger.Infow("Server shutdown complete")
	return shutdownErr
}
