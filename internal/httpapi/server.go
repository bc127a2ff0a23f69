package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/avitale/eduassist/internal/archive"
	"github.com/avitale/eduassist/internal/assistant"
	"github.com/avitale/eduassist/internal/auth"
	"github.com/avitale/eduassist/internal/config"
	"github.com/avitale/eduassist/internal/gateway"
	"github.com/avitale/eduassist/internal/observability"
	"github.com/avitale/eduassist/internal/prompt"
	"github.com/avitale/eduassist/internal/session"
)

type Server struct {
	cfg       config.Config
	sessions  *session.Manager
	assistant *assistant.Service
	auth      *auth.Service
	chats     archive.Store
	metrics   *observability.Metrics
	upgrader  websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, svc *assistant.Service, authSvc *auth.Service, chats archive.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		sessions:  sessions,
		assistant: svc,
		auth:      authSvc,
		chats:     chats,
		metrics:   metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other websites cannot drive a student's
				// session if the service is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post("/v1/auth/signup", s.handleSignup)
	r.Post("/v1/auth/login", s.handleLogin)

	r.Post("/v1/sessions", s.handleCreateSession)
	r.Post("/v1/sessions/{id}/end", s.handleEndSession)
	r.Post("/v1/sessions/{id}/learn", s.handleLearn)
	r.Post("/v1/sessions/{id}/chat", s.handleChat)
	r.Post("/v1/sessions/{id}/quiz", s.handleGenerateQuiz)
	r.Post("/v1/sessions/{id}/feedback", s.handleFeedback)
	r.Post("/v1/sessions/{id}/chat/save", s.handleSaveChat)
	r.Get("/v1/sessions/{id}/history", s.handleHistory)
	r.Get("/v1/sessions/{id}/context", s.handleGetContext)
	r.Delete("/v1/sessions/{id}/context", s.handleClearContext)
	r.Get("/v1/sessions/{id}/quiz", s.handleGetQuiz)
	r.Get("/v1/sessions/{id}/feedback", s.handleFeedbackLog)

	r.Get("/v1/users/{id}/archive", s.handleArchive)

	r.Get("/v1/chat/ws", s.handleChatWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"gateway_mode": s.cfg.GatewayMode,
		"archive_mode": s.archiveMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ready",
		"gateway_mode": s.cfg.GatewayMode,
		"archive_mode": s.archiveMode(),
	})
}

func (s *Server) archiveMode() string {
	if strings.TrimSpace(s.cfg.DatabaseURL) != "" {
		return "postgres"
	}
	return "in-memory"
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondIntentError maps the service error taxonomy onto HTTP statuses.
func respondIntentError(w http.ResponseWriter, err error) {
	var gwErr *gateway.Error
	switch {
	case errors.Is(err, prompt.ErrEmptyTopic):
		respondError(w, http.StatusBadRequest, "empty_topic", err.Error())
	case errors.Is(err, prompt.ErrMissingQuizParameters):
		respondError(w, http.StatusBadRequest, "missing_quiz_parameters", err.Error())
	case errors.Is(err, session.ErrUnknownTurn):
		respondError(w, http.StatusNotFound, "unknown_turn", err.Error())
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.As(err, &gwErr):
		respondError(w, http.StatusBadGateway, gwErr.Code, gwErr.Detail)
	default:
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	}
}

func sessionID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}
