package auth

import (
	"context"
	"strings"
)

// NewStore selects the credential backend. With a database URL it uses
// PostgreSQL; otherwise accounts live only for the process lifetime.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}
