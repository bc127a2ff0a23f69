package auth

import (
	"context"
	"strings"
	"sync"
)

// InMemoryStore keeps credentials in process memory for local/dev use.
type InMemoryStore struct {
	mu    sync.RWMutex
	creds map[string]Credential
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{creds: make(map[string]Credential)}
}

func (s *InMemoryStore) Insert(_ context.Context, cred Credential) error {
	key := strings.ToLower(cred.Username)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creds[key]; ok {
		return ErrDuplicateUser
	}
	s.creds[key] = cred
	return nil
}

func (s *InMemoryStore) Lookup(_ context.Context, username string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[strings.ToLower(username)]
	if !ok {
		return Credential{}, errUnknownUser
	}
	return cred, nil
}

func (s *InMemoryStore) Close() error { return nil }
