// Package auth implements the credential store: signup and login with
// bcrypt-hashed passwords. Plaintext passwords never touch storage.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadCredentials = errors.New("invalid username or password")
	ErrDuplicateUser  = errors.New("username already exists")
	ErrWeakPassword   = errors.New("password must not be empty")

	// errUnknownUser stays internal so login failures never reveal whether the
	// username or the password was wrong.
	errUnknownUser = errors.New("unknown user")
)

// Credential is one stored user record.
type Credential struct {
	Username     string
	DisplayName  string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Store persists credentials.
type Store interface {
	Insert(ctx context.Context, cred Credential) error
	Lookup(ctx context.Context, username string) (Credential, error)
	Close() error
}

// Service wraps a Store with hashing and verdict mapping.
type Service struct {
	store Store
	cost  int
}

func NewService(store Store) *Service {
	return &Service{store: store, cost: bcrypt.DefaultCost}
}

// Register creates a new user and returns the stored record with the hash
// stripped. Fails with ErrDuplicateUser when the username is taken and
// ErrWeakPassword on a blank password.
func (s *Service) Register(ctx context.Context, username, password, displayName string) (Credential, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Credential{}, fmt.Errorf("%w: username must not be empty", ErrBadCredentials)
	}
	if strings.TrimSpace(password) == "" {
		return Credential{}, ErrWeakPassword
	}
	if displayName = strings.TrimSpace(displayName); displayName == "" {
		displayName = username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Credential{}, fmt.Errorf("hash password: %w", err)
	}

	cred := Credential{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, cred); err != nil {
		return Credential{}, err
	}
	cred.PasswordHash = nil
	return cred, nil
}

// Authenticate verifies a username/password pair and returns the stored
// credential on success. Any mismatch fails with ErrBadCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Credential, error) {
	cred, err := s.store.Lookup(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, errUnknownUser) {
			// Burn a comparison anyway so unknown users cost the same as bad passwords.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return Credential{}, ErrBadCredentials
		}
		return Credential{}, err
	}
	if bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(password)) != nil {
		return Credential{}, ErrBadCredentials
	}
	cred.PasswordHash = nil
	return cred, nil
}

// SeedAdmin registers a bootstrap user when configured. An existing user with
// the same name is left untouched.
func (s *Service) SeedAdmin(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return nil
	}
	_, err := s.Register(ctx, username, password, "Admin")
	if errors.Is(err, ErrDuplicateUser) {
		return nil
	}
	if err == nil {
		log.Printf("seeded admin user %q", username)
	}
	return err
}

var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("eduassist-dummy"), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return h
}()
