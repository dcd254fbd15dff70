// Package api exposes the gateway operations over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"github.com/tathienbao/terminal-gateway/internal/gateway"
)

// Config holds HTTP listener settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default listener settings.
func DefaultConfig() Config {
	return Config{
		Addr:         "0.0.0.0:5001",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Recorder receives HTTP metrics.
type Recorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	RecordError(kind string)
}

type nopRecorder struct{}

func (nopRecorder) RecordHTTPRequest(string, string, int, time.Duration) {}
func (nopRecorder) RecordError(string)                                   {}

// Mounter registers additional handlers, such as metrics and probes.
type Mounter interface {
	Mount(r *mux.Router)
}

// Server serves the gateway API.
type Server struct {
	cfg      Config
	svc      *gateway.Service
	logger   *zap.Logger
	recorder Recorder
	tracer   opentracing.Tracer
	validate *validator.Validate
	router   *mux.Router

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the HTTP metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Server) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithTracer sets the tracer used for request spans. The global tracer is
// used otherwise.
func WithTracer(t opentracing.Tracer) Option {
	return func(s *Server) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithMounts registers extra handlers on the API router.
func WithMounts(mounts ...Mounter) Option {
	return func(s *Server) {
		for _, m := range mounts {
			if m != nil {
				m.Mount(s.router)
			}
		}
	}
}

// NewServer creates the API server for svc.
func NewServer(cfg Config, svc *gateway.Service, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		tracer:   opentracing.GlobalTracer(),
		validate: newValidator(),
		router:   mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("starting api server", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the address the server listens on, once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down api server")
	return srv.Shutdown(ctx)
}
