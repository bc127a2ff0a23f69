package archive

import (
	"context"
	"fmt"
	"testing"
)

func TestInMemoryStoreSaveAndRecent(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := s.SaveRecord(ctx, ChatRecord{
			UserID:     "u1",
			SessionID:  "s1",
			TurnID:     fmt.Sprintf("t%d", i),
			UserInput:  fmt.Sprintf("q%d", i),
			AIResponse: fmt.Sprintf("a%d", i),
			Persona:    "Teacher",
		})
		if err != nil {
			t.Fatalf("SaveRecord() error = %v", err)
		}
	}

	recent, err := s.RecentByUser(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("RecentByUser() error = %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len(recent) = %d, want 3", len(recent))
	}
	if recent[0].TurnID != "t2" || recent[2].TurnID != "t4" {
		t.Fatalf("recent window wrong: %+v", recent)
	}
	if recent[0].ID == "" || recent[0].SavedAt.IsZero() {
		t.Fatalf("SaveRecord should assign id and timestamp")
	}
}

func TestInMemoryStoreIsolatesUsers(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	_ = s.SaveRecord(ctx, ChatRecord{UserID: "u1", UserInput: "q", AIResponse: "a"})
	recent, err := s.RecentByUser(ctx, "u2", 10)
	if err != nil {
		t.Fatalf("RecentByUser() error = %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("u2 should have no records, got %d", len(recent))
	}
}
