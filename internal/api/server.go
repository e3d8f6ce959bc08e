// Package api serves the item REST endpoints and the scanner web pages.
package api

import (
	"context"
	"embed"
	"net/http"
	"sync"
	"time"

	"warehouse_bot/internal/items"
	"warehouse_bot/internal/notifications"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

//go:embed static/*.html
var staticFiles embed.FS

// Notifier is told about checkbox changes made through the API.
type Notifier interface {
	NotifyLabel(ctx context.Context, item notifications.ItemInfo)
}

type Server struct {
	store    items.Store
	notifier Notifier
	router   *chi.Mux

	mu     sync.Mutex
	server *http.Server
	closed bool
}

func NewServer(store items.Store, notifier Notifier) *Server {
	s := &Server{
		store:    store,
		notifier: notifier,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	// Every item call is a remote spreadsheet round trip.
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/webapp", http.StatusTemporaryRedirect)
	})
	s.router.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/items", func(r chi.Router) {
		r.Get("/", s.handleListItems)
		r.Get("/checked", s.handleListChecked)
		r.Get("/{inventory_id}", s.handleGetItem)
		r.Post("/check", s.handleCheck(true))
		r.Post("/uncheck", s.handleCheck(false))
		r.Post("/update-inventory-number", s.handleUpdateInventoryNumber)
	})

	s.router.Get("/webapp", s.servePage("webapp.html"))
	s.router.Get("/info", s.servePage("info.html"))
	s.router.Get("/history", s.servePage("history.html"))
	s.router.Get("/checked", s.servePage("checked.html"))
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// at once if Shutdown has already been called.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	server := s.server
	s.mu.Unlock()

	log.Info().Str("addr", addr).Msg("Starting HTTP server")
	return server.ListenAndServe()
}

// Shutdown gracefully stops the server. A later Start does not listen.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	server := s.server
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) servePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := staticFiles.ReadFile("static/" + name)
		if err != nil {
			log.Error().Err(err).Str("page", name).Msg("Embedded page missing")
			writeError(w, http.StatusNotFound, "page not found")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
	}
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("ip", r.RemoteAddr).
			Msg("HTTP request")
	})
}
