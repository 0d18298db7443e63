package setup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// pprofShutdownTimeout bounds how long in-flight profiles may delay shutdown.
const pprofShutdownTimeout = 5 * time.Second

// pprofServer serves the runtime profiles of a long running watch process on the
// loopback interface.
type pprofServer struct {
	srv      *http.Server
	listener net.Listener
	logger   *zap.Logger
}

// startPprofServer listens on 127.0.0.1:port and serves the profiles in the
// background. Port 0 picks a free port.
func startPprofServer(ctx context.Context, port int, logger *zap.Logger) (*pprofServer, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("failed to listen for pprof: %w", err)
	}

	s := &pprofServer{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			// Profiles and traces stream for their requested duration
			WriteTimeout: 2 * time.Minute,
		},
		listener: listener,
		logger:   logger.Named("pprof"),
	}

	go func() {
		s.logger.Info("Serving pprof profiles", zap.String("address", s.addr()))

		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("pprof server stopped", zap.Error(err))
		}
	}()

	return s, nil
}

// addr returns the address the server listens on.
func (s *pprofServer) addr() string {
	return s.listener.Addr().String()
}

// shutdown stops the server, waiting for running profiles up to pprofShutdownTimeout.
func (s *pprofServer) shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pprofShutdownTimeout)
	defer cancel()

	return s.srv.Shutdown(ctx)
}
