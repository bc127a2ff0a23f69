package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/avitale/eduassist/internal/prompt"
	"github.com/avitale/eduassist/internal/session"
)

// maxArchiveLimit caps how many records one archive listing can request.
const maxArchiveLimit = 200

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}
	persona, err := prompt.ParsePersona(req.Persona)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_persona", err.Error())
		return
	}
	if strings.TrimSpace(req.Language) == "" {
		req.Language = s.cfg.DefaultLanguage
	}

	sess := s.sessions.Create(req.UserID, persona, req.Language)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusCreated, session.CreateResponse{
		SessionID:       sess.ID,
		UserID:          sess.UserID,
		Status:          sess.Status,
		Persona:         string(sess.Persona),
		Language:        sess.Language,
		StartedAt:       sess.StartedAt,
		LastActivityAt:  sess.LastActivityAt,
		InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, sess)
}

type learnRequest struct {
	Topic string `json:"topic"`
}

func (s *Server) handleLearn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := s.assistant.Learn(r.Context(), sessionID(r), req.Topic)
	if err != nil {
		respondIntentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type chatRequest struct {
	Text     string `json:"text"`
	Persona  string `json:"persona"`
	Language string `json:"language"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text must not be empty")
		return
	}

	res, err := s.assistant.Chat(r.Context(), sessionID(r), req.Text, req.Persona, req.Language, nil)
	if err != nil {
		respondIntentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type quizRequest struct {
	Subject string `json:"subject"`
	Grade   string `json:"grade"`
	Chapter string `json:"chapter"`
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := s.assistant.GenerateQuiz(r.Context(), sessionID(r), req.Subject, req.Grade, req.Chapter)
	if err != nil {
		respondIntentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type feedbackRequest struct {
	TurnID string `json:"turn_id"`
	Vote   string `json:"vote"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	vote, err := session.ParseVote(req.Vote)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_vote", err.Error())
		return
	}

	if err := s.assistant.Feedback(sessionID(r), req.TurnID, vote); err != nil {
		respondIntentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (s *Server) handleSaveChat(w http.ResponseWriter, r *http.Request) {
	res, err := s.assistant.SaveChat(r.Context(), sessionID(r))
	if err != nil {
		respondIntentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	store, err := s.sessions.Store(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"turns":      store.Turns(),
	})
}

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	store, err := s.sessions.Store(sessionID(r))
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	lc, ok := store.LearningContext()
	if !ok {
		respondJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"active":  true,
		"topic":   lc.Topic,
		"content": lc.Content,
	})
}

func (s *Server) handleClearContext(w http.ResponseWriter, r *http.Request) {
	store, err := s.sessions.Store(sessionID(r))
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	store.ClearLearningContext()
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	store, err := s.sessions.Store(sessionID(r))
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	quiz, ok := store.QuizResult()
	if !ok {
		respondError(w, http.StatusNotFound, "no_quiz", "no quiz generated for this session")
		return
	}
	respondJSON(w, http.StatusOK, quiz)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "id"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "missing user id")
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		if n > maxArchiveLimit {
			n = maxArchiveLimit
		}
		limit = n
	}

	records, err := s.chats.RecentByUser(r.Context(), userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "archive_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"records": records,
	})
}

func (s *Server) handleFeedbackLog(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	store, err := s.sessions.Store(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"feedback":   store.FeedbackLog(),
	})
}
