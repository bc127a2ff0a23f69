package gateway

import (
	"context"
	"fmt"
	"strings"
)

// MockAdapter provides deterministic local replies when no completion
// provider is configured.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) StreamCompletion(ctx context.Context, req Request, onDelta DeltaHandler) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	text := buildMockReply(req)
	if onDelta != nil && text != "" {
		if err := onDelta(text); err != nil {
			return Response{}, err
		}
	}
	return Response{Text: text}, nil
}

func buildMockReply(req Request) string {
	user := strings.TrimSpace(req.User)
	switch {
	case strings.HasPrefix(user, "Explain the topic:"):
		topic := strings.TrimSpace(strings.TrimPrefix(user, "Explain the topic:"))
		if i := strings.Index(topic, "."); i >= 0 {
			topic = topic[:i]
		}
		return fmt.Sprintf("%s is a topic worth studying. This is a placeholder explanation produced without a completion provider.", topic)
	case strings.HasPrefix(user, "Generate a 3-question multiple-choice quiz"):
		return "Q1. Placeholder question?\nA) Yes\nB) No\nC) Maybe\nCorrect Answer: A"
	case user == "":
		return "I am listening."
	default:
		return fmt.Sprintf("I heard you: %s", user)
	}
}
