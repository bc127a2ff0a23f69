package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists credentials in PostgreSQL.
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
	stmt := `CREATE TABLE IF NOT EXISTS credentials (
		username TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		password_hash BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("init schema failed on %q: %w", stmt, err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, cred Credential) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO credentials (username, display_name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4)`,
		strings.ToLower(cred.Username),
		cred.DisplayName,
		cred.PasswordHash,
		cred.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUser
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) Lookup(ctx context.Context, username string) (Credential, error) {
	var cred Credential
	err := s.pool.QueryRow(ctx,
		`SELECT username, display_name, password_hash, created_at
		 FROM credentials WHERE username=$1`,
		strings.ToLower(username),
	).Scan(&cred.Username, &cred.DisplayName, &cred.PasswordHash, &cred.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, errUnknownUser
		}
		return Credential{}, fmt.Errorf("lookup credential: %w", err)
	}
	return cred, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
