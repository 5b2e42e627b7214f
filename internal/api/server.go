// Package api exposes the triage service over HTTP: batch upload and
// processing for tickets, and the review workflow for skill proposals.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opsdesk/triagent/internal/processor"
	"github.com/opsdesk/triagent/internal/runstore"
	"github.com/opsdesk/triagent/internal/skills"
	"github.com/opsdesk/triagent/internal/ticket"
)

// Runner executes a triage run. Satisfied by *processor.Processor.
type Runner interface {
	Run(ctx context.Context, runID string, tickets []ticket.Ticket) (*processor.Summary, error)
}

// SkillStore is the slice of the skill store the API needs.
type SkillStore interface {
	ListActive() ([]skills.Document, error)
	ListPending() ([]skills.Document, error)
	GetPending(id string) (skills.Document, error)
	Approve(id string) error
	Reject(id string) error
}

// Publisher emits skill lifecycle events. May be nil.
type Publisher interface {
	Publish(subject string, data any) error
}

type Server struct {
	router   *chi.Mux
	port     int
	logger   *slog.Logger
	runs     runstore.Store
	skills   SkillStore
	runner   Runner
	events   Publisher
	apiToken string
}

func NewServer(port int, apiToken string, runs runstore.Store, skillStore SkillStore, runner Runner, events Publisher, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		logger:   logger,
		runs:     runs,
		skills:   skillStore,
		runner:   runner,
		events:   events,
		apiToken: apiToken,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/upload", s.uploadTickets)
			r.Post("/process/{runID}", s.processRun)
			r.Get("/status/{runID}", s.runStatus)
			r.Get("/results/{runID}", s.runResults)
		})

		r.Route("/skills", func(r chi.Router) {
			r.Get("/", s.listActiveSkills)
			r.Get("/pending", s.listPendingSkills)
			r.Get("/{skillID}", s.getSkill)
			r.Post("/{skillID}/approve", s.approveSkill)
			r.Post("/{skillID}/reject", s.rejectSkill)
		})
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// Handler returns the HTTP handler, mainly for serving behind a
// caller-owned http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// BearerAuthMiddleware enforces a static bearer token. An empty token
// disables authentication, for local development only.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			presented, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
