package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/imagegen/internal/discovery"
	"github.com/muurk/imagegen/internal/logging"
	"github.com/muurk/imagegen/internal/version"
)

// Server is the gateway process: HTTP listener plus optional mDNS advertisement.
type Server struct {
	settings   *Settings
	upstream   *Upstream
	handler    http.Handler
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
	advert   *discovery.Advertisement
}

// New builds a Server from settings. Nothing listens until Run.
func New(settings *Settings) (*Server, error) {
	endpoints, err := LoadEndpoints(settings.EndpointsFile, settings.ExternalAPIURL)
	if err != nil {
		return nil, err
	}

	upstream := NewUpstream(settings.ExternalAPIURL, settings.APITimeout(), settings.ConnectTimeout)
	h := NewHandler(settings, upstream, NewCatalog(), endpoints)
	router := NewRouter(h, settings.CORSOrigins)

	return &Server{
		settings: settings,
		upstream: upstream,
		handler:  router,
		httpServer: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			// A generation may take the full upstream timeout
			WriteTimeout: settings.APITimeout() + 30*time.Second,
			IdleTimeout:  2 * time.Minute,
		},
	}, nil
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Upstream returns the proxied API target.
func (s *Server) Upstream() *Upstream {
	return s.upstream
}

// Addr returns the bound address once Run is listening, else "".
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run listens and serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.settings.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	logging.Info("Starting imagegen gateway",
		zap.String("addr", ln.Addr().String()),
		zap.String("external_api", s.upstream.URL()),
		zap.Duration("api_timeout", s.settings.APITimeout()),
		zap.Bool("debug", s.settings.Debug),
		zap.Bool("tls", s.settings.TLSCertFile != ""),
	)

	errCh := make(chan error, 1)
	go func() {
		if s.settings.TLSCertFile != "" {
			errCh <- s.httpServer.ServeTLS(ln, s.settings.TLSCertFile, s.settings.TLSKeyFile)
			return
		}
		errCh <- s.httpServer.Serve(ln)
	}()

	if s.settings.MDNSAdvertise {
		port := ln.Addr().(*net.TCPAddr).Port
		advert, err := discovery.Advertise(s.settings.Instance(), port, map[string]string{
			"version": version.Version,
			"path":    "/",
		})
		if err != nil {
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			s.mu.Lock()
			s.advert = advert
			s.mu.Unlock()
		}
	}

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping gateway...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.settings.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		s.withdraw()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("gateway stopped: %w", err)
	}
}

// Shutdown stops advertising, then drains in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.withdraw()

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		_ = s.httpServer.Close()
	} else {
		logging.Info("Gateway stopped")
	}

	logging.Sync()
	return err
}

func (s *Server) withdraw() {
	s.mu.Lock()
	advert := s.advert
	s.advert = nil
	s.mu.Unlock()
	advert.Shutdown()
}
