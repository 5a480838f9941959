package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/juju/errors"
	"github.com/voxhall/voxhall/server/multierr"
)

const DefaultShutdownTimeout = 5 * time.Second

type Params struct {
	TLSCertFile string
	TLSKeyFile  string
	// ReadHeaderTimeout bounds how long a client may take to complete its
	// handshake request.
	ReadHeaderTimeout time.Duration
	// ShutdownTimeout bounds how long Start waits for in-flight requests
	// after its context is done. Defaults to DefaultShutdownTimeout.
	ShutdownTimeout time.Duration
}

type Server struct {
	server *http.Server
	params Params
}

func New(params Params, handler http.Handler) *Server {
	if params.ShutdownTimeout <= 0 {
		params.ShutdownTimeout = DefaultShutdownTimeout
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: params.ReadHeaderTimeout,
	}

	return &Server{
		server: server,
		params: params,
	}
}

func (s *Server) serve(l net.Listener) error {
	if s.params.TLSCertFile != "" {
		return errors.Trace(s.server.ServeTLS(l, s.params.TLSCertFile, s.params.TLSKeyFile))
	}

	return errors.Trace(s.server.Serve(l))
}

// Start serves on l until ctx is done. Every request context, including
// those of upgraded websocket connections, is cancelled before the server
// shuts down so that long-lived handlers run their cleanup.
func (s *Server) Start(ctx context.Context, l net.Listener) error {
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	s.server.BaseContext = func(net.Listener) context.Context {
		return baseCtx
	}

	startErrCh := make(chan error, 1)

	go func() {
		defer close(startErrCh)

		startErrCh <- errors.Annotate(s.serve(l), "start server")
	}()

	select {
	case <-ctx.Done():
	case err := <-startErrCh:
		return errors.Trace(err)
	}

	cancelBase()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), s.params.ShutdownTimeout)
	defer cancelShutdown()

	errs := multierr.New()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		errs.Add(errors.Annotate(err, "shutdown"))
		errs.Add(errors.Annotate(s.server.Close(), "close"))
	}

	if startErr := <-startErrCh; !multierr.Is(startErr, http.ErrServerClosed) {
		errs.Add(startErr)
	}

	return errors.Trace(errs.Err())
}
