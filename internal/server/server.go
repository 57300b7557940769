// Package server exposes invoice checks over HTTP.
package server

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/invoice-check/internal/extract"
	"github.com/zombor/invoice-check/internal/history"
)

// Server handles HTTP requests for invoice checks
type Server struct {
	service      *history.Service
	availability extract.AvailabilitySource
	basicAuth    BasicAuth
	version      string
	started      time.Time
	mux          *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(service *history.Service, availability extract.AvailabilitySource, basicAuth BasicAuth, version string) *Server {
	return NewServerWithMux(service, availability, basicAuth, version, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *history.Service, availability extract.AvailabilitySource, basicAuth BasicAuth, version string, mux *http.ServeMux) *Server {
	s := &Server{
		service:      service,
		availability: availability,
		basicAuth:    basicAuth,
		version:      version,
		started:      time.Now(),
		mux:          mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return false
	}

	return user == s.basicAuth.Username && pass == s.basicAuth.Password
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Invoice Check"`)
			jsonError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	// Health stays open so load balancers need no credentials
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.requireAuth(s.handleStatus))

	s.mux.HandleFunc("POST /api/upload", s.requireAuth(s.handleUpload))
	s.mux.HandleFunc("POST /api/validate", s.requireAuth(s.handleValidate))

	s.mux.HandleFunc("GET /api/checks/{id}/file", s.requireAuth(s.handleGetCheckFile))
	s.mux.HandleFunc("GET /api/checks/{id}", s.requireAuth(s.handleGetCheck))
	s.mux.HandleFunc("DELETE /api/checks/{id}", s.requireAuth(s.handleDeleteCheck))
	s.mux.HandleFunc("GET /api/checks", s.requireAuth(s.handleListChecks))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	corsMiddleware(s.mux).ServeHTTP(w, r)
}
