package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	MetricsPath       = "/metrics"
	readHeaderTimeout = 10 * time.Second
)

// Server exposes the metrics handler until its context is cancelled.
type Server interface {
	Listen() error
	Addr() net.Addr
	Serve(ctx context.Context) error
}

// BindError means the listen address could not be bound.
type BindError struct {
	Address string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("error binding %s: %v", e.Address, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

type metricsServer struct {
	address         string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	listener        net.Listener
	logger          logrus.FieldLogger
}

// NewRouter routes GET /metrics to metrics. Any other path is 404 and any other
// method on /metrics is 405.
func NewRouter(metrics http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Handle(MetricsPath, metrics).Methods(http.MethodGet)
	return router
}

func New(address string, metrics http.Handler, shutdownTimeout time.Duration, logger logrus.FieldLogger) Server {
	return &metricsServer{
		address:         address,
		shutdownTimeout: shutdownTimeout,
		httpServer: &http.Server{
			Handler:           NewRouter(metrics),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: logger,
	}
}

func (s *metricsServer) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return &BindError{Address: s.address, Err: err}
	}
	s.listener = listener
	return nil
}

func (s *metricsServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve blocks until ctx is done, then stops accepting connections and waits
// up to the shutdown timeout for in-flight scrapes.
func (s *metricsServer) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()
	s.logger.WithField("address", s.listener.Addr().String()).Info("Serving metrics")

	select {
	case err := <-serveErr:
		return fmt.Errorf("error serving metrics: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutdown signal received, shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error serving metrics: %w", err)
	}
	s.logger.Info("Server stopped")
	return nil
}
