package auth

import (
	"context"
	"errors"
	"testing"
)

func newTestService() *Service {
	svc := NewService(NewInMemoryStore())
	svc.cost = 4
	return svc
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Register(ctx, "ada", "correct horse", "Ada L.")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.Username != "ada" || created.DisplayName != "Ada L." {
		t.Fatalf("unexpected registered credential: %+v", created)
	}
	if created.PasswordHash != nil {
		t.Fatal("password hash leaked out of Register")
	}

	cred, err := svc.Authenticate(ctx, "ada", "correct horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if cred.Username != "ada" || cred.DisplayName != "Ada L." {
		t.Fatalf("unexpected credential: %+v", cred)
	}
	if cred.PasswordHash != nil {
		t.Fatal("password hash leaked out of Authenticate")
	}
}

func TestAuthenticateCaseInsensitiveUsername(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Ada", "secret", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ada", "secret"); err != nil {
		t.Fatalf("authenticate lowercase: %v", err)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ada", "secret", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "ada", "not-it"},
		{"unknown user", "grace", "secret"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tc.username, tc.password)
			if !errors.Is(err, ErrBadCredentials) {
				t.Fatalf("want ErrBadCredentials, got %v", err)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ada", "secret", ""); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, "ADA", "other", ""); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("want ErrDuplicateUser, got %v", err)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	svc := newTestService()

	if _, err := svc.Register(context.Background(), "ada", "   ", ""); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("want ErrWeakPassword, got %v", err)
	}
}

func TestRegisterDefaultsDisplayName(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ada", "secret", "  "); err != nil {
		t.Fatalf("register: %v", err)
	}
	cred, err := svc.Authenticate(ctx, "ada", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if cred.DisplayName != "ada" {
		t.Fatalf("display name = %q, want username fallback", cred.DisplayName)
	}
}

func TestSeedAdmin(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if err := svc.SeedAdmin(ctx, "admin", "bootstrap"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Seeding again must tolerate the existing account.
	if err := svc.SeedAdmin(ctx, "admin", "bootstrap"); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	// Blank settings disable seeding entirely.
	if err := svc.SeedAdmin(ctx, "", ""); err != nil {
		t.Fatalf("blank seed: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "admin", "bootstrap"); err != nil {
		t.Fatalf("authenticate seeded admin: %v", err)
	}
}
