package archive

import (
	"context"
	"time"
)

// ChatRecord is one archived conversation exchange. Archived content is
// redacted before it arrives here; the interactive session store is never
// persisted, only what the user explicitly saves.
type ChatRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	TurnID     string    `json:"turn_id"`
	UserInput  string    `json:"user_input"`
	AIResponse string    `json:"ai_response"`
	Persona    string    `json:"persona"`
	Redacted   bool      `json:"redacted"`
	SavedAt    time.Time `json:"saved_at"`
}

// Store persists and retrieves archived chats.
type Store interface {
	SaveRecord(ctx context.Context, record ChatRecord) error
	RecentByUser(ctx context.Context, userID string, limit int) ([]ChatRecord, error)
	Close() error
}
