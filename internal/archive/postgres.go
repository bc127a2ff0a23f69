package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists archived chats in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_archive (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			turn_id TEXT NOT NULL,
			user_input TEXT NOT NULL,
			ai_response TEXT NOT NULL,
			persona TEXT NOT NULL,
			redacted BOOLEAN NOT NULL DEFAULT FALSE,
			saved_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_archive_user_saved ON chat_archive (user_id, saved_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveRecord(ctx context.Context, record ChatRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.SavedAt.IsZero() {
		record.SavedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_archive (id, user_id, session_id, turn_id, user_input, ai_response, persona, redacted, saved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID,
		record.UserID,
		record.SessionID,
		record.TurnID,
		record.UserInput,
		record.AIResponse,
		record.Persona,
		record.Redacted,
		record.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("save chat record: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentByUser(ctx context.Context, userID string, limit int) ([]ChatRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, session_id, turn_id, user_input, ai_response, persona, redacted, saved_at
		 FROM chat_archive WHERE user_id=$1 ORDER BY saved_at DESC LIMIT $2`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query chat archive: %w", err)
	}
	defer rows.Close()

	items := make([]ChatRecord, 0, limit)
	for rows.Next() {
		var r ChatRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.SessionID, &r.TurnID, &r.UserInput, &r.AIResponse, &r.Persona, &r.Redacted, &r.SavedAt); err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows: %w", err)
	}

	// Reverse into chronological order for display.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	return items, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
