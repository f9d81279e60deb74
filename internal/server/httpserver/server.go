// Package httpserver exposes the REST surface for issuing and redeeming
// secret links. Presentation only: all authorization decisions live in the
// link service and the ledger behind it.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/secretlink/secretlink/internal/logging"
	"github.com/secretlink/secretlink/internal/server/config"
)

// LinkIssuer describes the link service methods required by the HTTP layer.
type LinkIssuer interface {
	IssueLink(ctx context.Context, username string, max int, expiresAt *time.Time) (string, error)
	RedeemLink(ctx context.Context, token string) (string, bool, error)
}

// Server exposes the REST endpoints of the secret link service.
type Server struct {
	links     LinkIssuer
	logger    logging.Logger
	addr      string
	maxClicks int
	maxTTL    time.Duration
}

func New(cfg *config.Config, links LinkIssuer, logger logging.Logger) *Server {
	return &Server{
		links:     links,
		logger:    logger,
		addr:      cfg.EndpointAddrHTTP,
		maxClicks: cfg.MaxClicks,
		maxTTL:    cfg.MaxTTL,
	}
}

// Router assembles the chi router with all endpoints registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestID)

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/links", s.handleCreateLink)
	r.Get("/s/{token}", s.handleRedeem)

	return r
}

// requestID tags every request with a correlation id, echoed back in the
// X-Request-Id header and attached to all log lines for the request.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)

		log := s.logger.With("request_id", id)
		log.Debug(req.Context(), "request", "method", req.Method, "path", req.URL.Path)

		next.ServeHTTP(w, req.WithContext(withLogger(req.Context(), log)))
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type loggerKey struct{}

func withLogger(ctx context.Context, log logging.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// requestLogger returns the request-scoped logger, falling back to the
// server logger for handlers invoked outside the middleware (tests).
func (s *Server) requestLogger(ctx context.Context) logging.Logger {
	if log, ok := ctx.Value(loggerKey{}).(logging.Logger); ok {
		return log
	}
	return s.logger
}
