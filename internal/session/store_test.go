package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/avitale/eduassist/internal/prompt"
)

func TestAppendTurnAssignsDistinctIDsInOrder(t *testing.T) {
	s := NewStore()

	ids := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := s.AppendTurn(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), prompt.PersonaTeacher)
		if id == "" {
			t.Fatalf("AppendTurn() returned empty id")
		}
		if ids[id] {
			t.Fatalf("duplicate turn id %q", id)
		}
		ids[id] = true
	}

	turns := s.Turns()
	if len(turns) != 50 {
		t.Fatalf("len(Turns()) = %d, want 50", len(turns))
	}
	for i, turn := range turns {
		if turn.UserInput != fmt.Sprintf("q%d", i) {
			t.Fatalf("turn %d out of insertion order: %q", i, turn.UserInput)
		}
	}
}

func TestRecordFeedbackUnknownTurn(t *testing.T) {
	s := NewStore()
	s.AppendTurn("q", "a", prompt.PersonaFun)

	err := s.RecordFeedback("no-such-turn", VoteUp)
	if !errors.Is(err, ErrUnknownTurn) {
		t.Fatalf("RecordFeedback() error = %v, want ErrUnknownTurn", err)
	}
	if len(s.FeedbackLog()) != 0 {
		t.Fatalf("feedback log mutated on failed vote")
	}
}

func TestRecordFeedbackAllowsDuplicateVotes(t *testing.T) {
	s := NewStore()
	id := s.AppendTurn("q", "a", prompt.PersonaFun)

	if err := s.RecordFeedback(id, VoteUp); err != nil {
		t.Fatalf("RecordFeedback() error = %v", err)
	}
	if err := s.RecordFeedback(id, VoteDown); err != nil {
		t.Fatalf("RecordFeedback() error = %v", err)
	}

	log := s.FeedbackLog()
	if len(log) != 2 {
		t.Fatalf("len(FeedbackLog()) = %d, want 2 (append-only, multi-vote)", len(log))
	}
	if log[0].Vote != VoteUp || log[1].Vote != VoteDown {
		t.Fatalf("feedback out of recording order: %+v", log)
	}
}

func TestLearningContextSingleSlot(t *testing.T) {
	s := NewStore()

	if _, ok := s.LearningContext(); ok {
		t.Fatalf("fresh store should have no learning context")
	}

	s.SetLearningContext("Photosynthesis", "Plants use light...")
	ctx, ok := s.LearningContext()
	if !ok || ctx.Topic != "Photosynthesis" || ctx.Content != "Plants use light..." {
		t.Fatalf("LearningContext() = %+v, %v", ctx, ok)
	}

	s.SetLearningContext("Gravity", "Objects attract.")
	ctx, _ = s.LearningContext()
	if ctx.Topic != "Gravity" {
		t.Fatalf("new learn request should replace context, got topic %q", ctx.Topic)
	}

	s.ClearLearningContext()
	s.ClearLearningContext() // idempotent
	if _, ok := s.LearningContext(); ok {
		t.Fatalf("context should be absent after clear")
	}
}

func TestQuizResultSingleSlot(t *testing.T) {
	s := NewStore()

	s.SetQuizResult("Quiz on: Gravity", "Q1 ...")
	q, ok := s.QuizResult()
	if !ok || q.Title != "Quiz on: Gravity" {
		t.Fatalf("QuizResult() = %+v, %v", q, ok)
	}

	s.ClearQuizResult()
	if _, ok := s.QuizResult(); ok {
		t.Fatalf("quiz result should be absent after clear")
	}
}

func TestParseVote(t *testing.T) {
	if v, err := ParseVote(" UP "); err != nil || v != VoteUp {
		t.Fatalf("ParseVote(up) = %q, %v", v, err)
	}
	if v, err := ParseVote("down"); err != nil || v != VoteDown {
		t.Fatalf("ParseVote(down) = %q, %v", v, err)
	}
	if _, err := ParseVote("sideways"); err == nil {
		t.Fatalf("ParseVote(sideways) should fail")
	}
}
