// Package assistant orchestrates the tutoring intents: learn a topic, chat
// with optional learning context, generate quizzes, record feedback, and
// archive transcripts. It ties the prompt builder, the completion gateway,
// and the session store together.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avitale/eduassist/internal/archive"
	"github.com/avitale/eduassist/internal/gateway"
	"github.com/avitale/eduassist/internal/observability"
	"github.com/avitale/eduassist/internal/policy"
	"github.com/avitale/eduassist/internal/prompt"
	"github.com/avitale/eduassist/internal/session"
)

// Service executes intents against a session's state.
type Service struct {
	sessions        *session.Manager
	gw              gateway.Adapter
	chats           archive.Store
	metrics         *observability.Metrics
	model           string
	defaultLanguage string
}

func NewService(sessions *session.Manager, gw gateway.Adapter, chats archive.Store, metrics *observability.Metrics, model, defaultLanguage string) *Service {
	if defaultLanguage == "" {
		defaultLanguage = "English"
	}
	return &Service{
		sessions:        sessions,
		gw:              gw,
		chats:           chats,
		metrics:         metrics,
		model:           model,
		defaultLanguage: defaultLanguage,
	}
}

// LearnResult is the outcome of a successful learn intent.
type LearnResult struct {
	Topic       string `json:"topic"`
	Explanation string `json:"explanation"`
}

// ChatResult is the outcome of a successful chat intent.
type ChatResult struct {
	TurnID  string         `json:"turn_id"`
	Text    string         `json:"text"`
	Persona prompt.Persona `json:"persona"`
}

// SaveResult reports how much of a transcript reached the archive.
type SaveResult struct {
	Saved    int  `json:"saved"`
	Redacted bool `json:"redacted"`
}

// Learn fetches an explanation for the topic and installs it as the session's
// learning context. A gateway failure clears any previously cached context so
// later chat and quiz requests never see half-updated state.
func (s *Service) Learn(ctx context.Context, sessionID, topic string) (LearnResult, error) {
	store, err := s.sessions.Store(sessionID)
	if err != nil {
		return LearnResult{}, err
	}

	p, err := prompt.BuildLearnPrompt(topic)
	if err != nil {
		s.countIntent("learn", "invalid")
		return LearnResult{}, err
	}

	started := time.Now()
	resp, err := s.gw.StreamCompletion(ctx, gateway.Request{
		Model:     s.model,
		System:    p.System,
		User:      p.User,
		SessionID: sessionID,
	}, nil)
	if err != nil {
		// Cancellation discards the pending result; only a real gateway
		// failure invalidates the cached context.
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			store.ClearLearningContext()
			s.recordGatewayError(err)
		}
		s.countIntent("learn", "error")
		return LearnResult{}, err
	}

	store.SetLearningContext(topic, resp.Text)
	_ = s.sessions.Touch(sessionID)
	s.observeStage("learn_total", started)
	s.countIntent("learn", "ok")
	return LearnResult{Topic: topic, Explanation: resp.Text}, nil
}

// Chat answers one user message, grounded in the active learning context when
// present. The turn is appended only after the gateway succeeds, so a failed
// chat leaves the conversation history exactly as it was.
func (s *Service) Chat(ctx context.Context, sessionID, input, personaRaw, language string, onDelta gateway.DeltaHandler) (ChatResult, error) {
	store, err := s.sessions.Store(sessionID)
	if err != nil {
		return ChatResult{}, err
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return ChatResult{}, err
	}

	persona := sess.Persona
	if personaRaw != "" {
		persona, err = prompt.ParsePersona(personaRaw)
		if err != nil {
			s.countIntent("chat", "invalid")
			return ChatResult{}, err
		}
	}
	if language == "" {
		language = sess.Language
	}
	if language == "" {
		language = s.defaultLanguage
	}

	var lc *prompt.LearningContext
	if cached, ok := store.LearningContext(); ok {
		lc = &cached
	}
	p := prompt.BuildChatPrompt(input, persona, language, lc)

	started := time.Now()
	delta := onDelta
	if onDelta != nil {
		first := false
		delta = func(chunk string) error {
			if !first {
				first = true
				s.observeStage("chat_first_delta", started)
			}
			return onDelta(chunk)
		}
	}

	resp, err := s.gw.StreamCompletion(ctx, gateway.Request{
		Model:     s.model,
		System:    p.System,
		User:      p.User,
		SessionID: sessionID,
	}, delta)
	if err != nil {
		s.recordGatewayError(err)
		s.countIntent("chat", "error")
		return ChatResult{}, err
	}

	turnID := store.AppendTurn(input, resp.Text, persona)
	_ = s.sessions.Touch(sessionID)
	s.observeStage("chat_total", started)
	s.countIntent("chat", "ok")
	return ChatResult{TurnID: turnID, Text: resp.Text, Persona: persona}, nil
}

// GenerateQuiz builds a quiz from the learning context when one is active,
// and from subject/grade/chapter otherwise. The stored quiz result is only
// replaced on success; a failed generation keeps the previous quiz readable.
func (s *Service) GenerateQuiz(ctx context.Context, sessionID, subject, grade, chapter string) (session.QuizResult, error) {
	store, err := s.sessions.Store(sessionID)
	if err != nil {
		return session.QuizResult{}, err
	}

	var lc *prompt.LearningContext
	if cached, ok := store.LearningContext(); ok {
		lc = &cached
	}
	qp, err := prompt.BuildQuizPrompt(lc, subject, grade, chapter)
	if err != nil {
		s.countIntent("quiz", "invalid")
		return session.QuizResult{}, err
	}

	started := time.Now()
	resp, err := s.gw.StreamCompletion(ctx, gateway.Request{
		Model:     s.model,
		System:    qp.System,
		User:      qp.User,
		SessionID: sessionID,
	}, nil)
	if err != nil {
		s.recordGatewayError(err)
		s.countIntent("quiz", "error")
		return session.QuizResult{}, err
	}

	store.SetQuizResult(qp.Title, resp.Text)
	_ = s.sessions.Touch(sessionID)
	s.observeStage("quiz_total", started)
	s.countIntent("quiz", "ok")

	result, _ := store.QuizResult()
	return result, nil
}

// Feedback records a vote against an existing turn.
func (s *Service) Feedback(sessionID, turnID string, vote session.Vote) error {
	store, err := s.sessions.Store(sessionID)
	if err != nil {
		return err
	}
	if err := store.RecordFeedback(turnID, vote); err != nil {
		return err
	}
	_ = s.sessions.Touch(sessionID)
	return nil
}

// SaveChat copies the session transcript into the durable archive. Every
// exchange is redacted first; the live session store keeps the raw text.
func (s *Service) SaveChat(ctx context.Context, sessionID string) (SaveResult, error) {
	store, err := s.sessions.Store(sessionID)
	if err != nil {
		return SaveResult{}, err
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return SaveResult{}, err
	}

	turns := store.Turns()
	if len(turns) == 0 {
		return SaveResult{}, nil
	}

	result := SaveResult{}
	now := time.Now().UTC()
	for _, turn := range turns {
		userInput, aiResponse, changed := policy.RedactExchange(turn.UserInput, turn.AIResponse)
		record := archive.ChatRecord{
			ID:         uuid.NewString(),
			UserID:     sess.UserID,
			SessionID:  sessionID,
			TurnID:     turn.ID,
			UserInput:  userInput,
			AIResponse: aiResponse,
			Persona:    string(turn.Persona),
			Redacted:   changed,
			SavedAt:    now,
		}
		if err := s.chats.SaveRecord(ctx, record); err != nil {
			return result, fmt.Errorf("archive turn %s: %w", turn.ID, err)
		}
		result.Saved++
		result.Redacted = result.Redacted || changed
	}
	_ = s.sessions.Touch(sessionID)
	return result, nil
}

func (s *Service) countIntent(intent, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IntentRequests.WithLabelValues(intent, outcome).Inc()
}

func (s *Service) observeStage(stage string, started time.Time) {
	if s.metrics == nil {
		return
	}
	d := time.Since(started)
	s.metrics.ObserveStage(stage, d)
	s.metrics.ObserveCompletionLatency(d)
}

func (s *Service) recordGatewayError(err error) {
	if s.metrics == nil {
		return
	}
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		s.metrics.GatewayErrors.WithLabelValues(gwErr.Code).Inc()
	}
}
