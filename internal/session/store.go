package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avitale/eduassist/internal/prompt"
)

var ErrUnknownTurn = errors.New("unknown turn id")

// Vote is a user rating of a single conversation turn.
type Vote string

const (
	VoteUp   Vote = "up"
	VoteDown Vote = "down"
)

// ParseVote validates a user-supplied vote value.
func ParseVote(raw string) (Vote, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "up":
		return VoteUp, nil
	case "down":
		return VoteDown, nil
	default:
		return "", fmt.Errorf("invalid vote %q (expected up|down)", raw)
	}
}

// ConversationTurn is one completed user-input/AI-response exchange.
// Immutable once appended.
type ConversationTurn struct {
	ID         string         `json:"turn_id"`
	UserInput  string         `json:"user_input"`
	AIResponse string         `json:"ai_response"`
	Persona    prompt.Persona `json:"persona"`
	CreatedAt  time.Time      `json:"created_at"`
}

// FeedbackEntry records a vote against a turn. Entries are append-only and
// multiple votes per turn are permitted.
type FeedbackEntry struct {
	TurnID    string    `json:"turn_id"`
	Vote      Vote      `json:"vote"`
	CreatedAt time.Time `json:"created_at"`
}

// QuizResult is the most recently generated quiz for the session.
type QuizResult struct {
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Store holds all mutable per-session state: the ordered turn sequence, the
// feedback log, the single active learning context, and the latest quiz
// result. It is the only mutation surface for that state and is never
// persisted; its lifetime equals the session's.
type Store struct {
	mu        sync.RWMutex
	turns     []ConversationTurn
	turnIndex map[string]struct{}
	feedback  []FeedbackEntry
	learning  *prompt.LearningContext
	quiz      *QuizResult
}

func NewStore() *Store {
	return &Store{turnIndex: make(map[string]struct{})}
}

// AppendTurn assigns a fresh unique id, appends the turn in insertion order,
// and returns the id. It never fails.
func (s *Store) AppendTurn(userInput, aiResponse string, persona prompt.Persona) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn := ConversationTurn{
		ID:         uuid.NewString(),
		UserInput:  userInput,
		AIResponse: aiResponse,
		Persona:    persona,
		CreatedAt:  time.Now().UTC(),
	}
	s.turns = append(s.turns, turn)
	s.turnIndex[turn.ID] = struct{}{}
	return turn.ID
}

// RecordFeedback appends a feedback entry for an existing turn. Unknown turn
// ids fail with ErrUnknownTurn and leave the feedback log untouched.
func (s *Store) RecordFeedback(turnID string, vote Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.turnIndex[turnID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTurn, turnID)
	}
	s.feedback = append(s.feedback, FeedbackEntry{
		TurnID:    turnID,
		Vote:      vote,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// SetLearningContext replaces the single active context.
func (s *Store) SetLearningContext(topic, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.learning = &prompt.LearningContext{Topic: topic, Content: content}
}

// ClearLearningContext erases the active context entirely. Safe to call when
// no context is set.
func (s *Store) ClearLearningContext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.learning = nil
}

// LearningContext returns a copy of the active context, if any.
func (s *Store) LearningContext() (prompt.LearningContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.learning == nil {
		return prompt.LearningContext{}, false
	}
	return *s.learning, true
}

// SetQuizResult replaces the latest generated quiz.
func (s *Store) SetQuizResult(title, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quiz = &QuizResult{Title: title, Text: text, GeneratedAt: time.Now().UTC()}
}

// ClearQuizResult erases the stored quiz. Safe to call when none is set.
func (s *Store) ClearQuizResult() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quiz = nil
}

// QuizResult returns a copy of the latest quiz, if any.
func (s *Store) QuizResult() (QuizResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.quiz == nil {
		return QuizResult{}, false
	}
	return *s.quiz, true
}

// Turns returns the turn sequence in insertion order.
func (s *Store) Turns() []ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ConversationTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// FeedbackLog returns the feedback entries in recording order.
func (s *Store) FeedbackLog() []FeedbackEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FeedbackEntry, len(s.feedback))
	copy(out, s.feedback)
	return out
}
