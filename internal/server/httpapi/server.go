// Package httpapi exposes the persistence API over HTTP: per-collection
// record CRUD, account endpoints, photo presigning and a health check.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/auditkeeper/internal/common"
	"github.com/dmitrijs2005/auditkeeper/internal/logging"
	"github.com/dmitrijs2005/auditkeeper/internal/server/models"
	"github.com/dmitrijs2005/auditkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MaxBodyBytes bounds request bodies. Audits may carry inline photos until
// they are offloaded, so the limit is generous.
const MaxBodyBytes = 32 << 20

const shutdownTimeout = 10 * time.Second

type Users interface {
	GetSalt(ctx context.Context, userName string) ([]byte, error)
	Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error)
	Login(ctx context.Context, userName string, verifier []byte) (*services.LoginResult, error)
	Authenticate(token string) (string, error)
}

type Records interface {
	List(ctx context.Context, userID, collection string) ([]json.RawMessage, error)
	Get(ctx context.Context, userID, collection, id string) (json.RawMessage, error)
	Create(ctx context.Context, userID, collection string, body []byte) (json.RawMessage, error)
	Update(ctx context.Context, userID, collection string, body []byte) (json.RawMessage, error)
	Delete(ctx context.Context, userID, collection string, body []byte) error
}

type Photos interface {
	PresignUpload(ctx context.Context, userID, contentType string) (string, string, error)
	PresignDownload(ctx context.Context, userID, key string) (string, error)
}

// Checker reports whether a backing dependency is usable.
type Checker func(ctx context.Context) error

type Server struct {
	address string
	users   Users
	records Records
	photos  Photos
	ready   Checker
	logger  logging.Logger
}

func NewServer(address string, l logging.Logger, users Users, records Records, photos Photos, ready Checker) *Server {
	return &Server{
		address: address,
		users:   users,
		records: records,
		photos:  photos,
		ready:   ready,
		logger:  l.With("module", "http_server"),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(limitBody)

	r.Get("/health", s.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/salt", s.salt)
		r.Post("/register", s.register)
		r.Post("/login", s.login)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/photos/upload-url", s.uploadURL)
		r.Post("/photos/download-url", s.downloadURL)

		for _, c := range common.Collections {
			r.Get("/"+c, s.list(c))
			r.Post("/"+c, s.create(c))
			r.Put("/"+c, s.update(c))
			r.Delete("/"+c, s.remove(c))
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
