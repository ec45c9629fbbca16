// Package api exposes the REST surface next to the websocket endpoint:
// teacher login, poll history, and health.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pollboard/internal/history"
	"pollboard/pkg/types"
)

// Stats is the slice of the coordinator the API needs. A local interface
// keeps the package decoupled from the session implementation.
type Stats interface {
	Stats() map[string]int
}

// HealthChecker is implemented by stores that can probe their backend.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server serves the HTTP API. It holds no business logic; handlers only
// translate between HTTP and the coordinator/store.
type Server struct {
	coordinator Stats
	store       history.Store
	router      *chi.Mux
}

// NewServer builds the router with its middleware and routes.
func NewServer(coordinator Stats, store history.Store) *Server {
	s := &Server{
		coordinator: coordinator,
		store:       store,
		router:      chi.NewRouter(),
	}

	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.RealIP)
	s.router.Use(corsMiddleware)
	s.router.Use(jsonMiddleware)

	s.router.Post("/teacher-login", s.teacherLogin())
	s.router.Get("/poll-history", s.pollHistory())
	s.router.Get("/health", s.health())

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type teacherLoginResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Message  string `json:"message"`
}

type pollHistoryResponse struct {
	Success bool                `json:"success"`
	Polls   []*types.PollRecord `json:"polls"`
}

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Store     string         `json:"store"`
	Stats     map[string]int `json:"stats"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// teacherLogin mints a fresh teacher handle. There is no password: the
// handle is an identity for the duration of the session, nothing more.
func (s *Server) teacherLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle := types.RoleTeacher + "_" + uuid.NewString()[:8]
		log.Info().Str("username", handle).Msg("teacher login")

		writeJSON(w, http.StatusOK, teacherLoginResponse{
			Success:  true,
			Username: handle,
			Role:     types.RoleTeacher,
			Message:  "Teacher logged in successfully",
		})
	}
}

// pollHistory returns every ended poll with its final tally, oldest first.
func (s *Server) pollHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := s.store.List(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("poll history query failed")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load poll history"})
			return
		}
		if records == nil {
			records = []*types.PollRecord{}
		}
		writeJSON(w, http.StatusOK, pollHistoryResponse{Success: true, Polls: records})
	}
}

func (s *Server) health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "healthy"
		storeStatus := "healthy"
		if checker, ok := s.store.(HealthChecker); ok {
			if err := checker.HealthCheck(ctx); err != nil {
				status = "unhealthy"
				storeStatus = err.Error()
			}
		}

		code := http.StatusOK
		if status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, healthResponse{
			Status:    status,
			Timestamp: time.Now().UTC(),
			Store:     storeStatus,
			Stats:     s.coordinator.Stats(),
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// corsMiddleware opens the API to browser clients on any origin, matching
// the open-room trust model of the websocket endpoint.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
