// Package api exposes the research engine over HTTP.
//
// The wire boundary is thin: handlers decode, delegate to the engine, and
// encode. All domain behavior lives behind the Researcher interface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/richinex/scriba/model"
)

// Researcher is the engine surface the server depends on.
type Researcher interface {
	Research(ctx context.Context, req model.ResearchRequest) (*model.ResearchResponse, error)
	ListStores() ([]model.StoreInfo, error)
	ListTools() []model.ToolInfo
	ListModels() []model.ModelInfo
}

// Server serves the research API.
type Server struct {
	engine Researcher
	http   *http.Server
}

// NewServer creates a server listening on addr.
func NewServer(addr string, engine Researcher) *Server {
	s := &Server{engine: engine}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router returns the HTTP handler (exported for tests).
func (s *Server) Router() http.Handler {
	return s.http.Handler
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/research", s.handleResearch)
	r.Get("/stores", s.handleStores)
	r.Get("/tools", s.handleTools)
	r.Get("/models", s.handleModels)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("http server shutting down")
	return s.http.Shutdown(shutdownCtx)
}

// Version is the API version reported by the health endpoint.
const Version = "0.1.0"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	storeCount := 0
	infos, err := s.engine.ListStores()
	if err != nil {
		status = "unhealthy"
	} else {
		storeCount = len(infos)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           status,
		"version":          Version,
		"stores_available": err == nil,
		"store_count":      storeCount,
	})
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req model.ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	resp, err := s.engine.Research(r.Context(), req)
	if err != nil {
		status, label := classify(err)
		writeError(w, status, label, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStores(w http.ResponseWriter, r *http.Request) {
	infos, err := s.engine.ListStores()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list stores", err.Error())
		return
	}
	if infos == nil {
		infos = []model.StoreInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": infos, "count": len(infos)})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	infos := s.engine.ListTools()
	writeJSON(w, http.StatusOK, map[string]any{"tools": infos, "count": len(infos)})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	infos := s.engine.ListModels()
	writeJSON(w, http.StatusOK, map[string]any{"models": infos, "count": len(infos)})
}

// classify maps engine errors to HTTP status codes. Bad requests are the
// caller's fault; anything else is a failed upstream dependency.
func classify(err error) (int, string) {
	var cfgErr *model.ConfigurationError
	var storeErr *model.StoreNotFoundError
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &storeErr):
		return http.StatusBadRequest, "invalid request"
	default:
		return http.StatusBadGateway, "research failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, label, detail string) {
	writeJSON(w, status, map[string]string{"error": label, "detail": detail})
}
