package observability

import "testing"

func TestStageWindowSnapshot(t *testing.T) {
	w := newStageWindow(8)
	w.Observe("chat_first_delta", 300)
	w.Observe("chat_first_delta", 500)
	w.Observe("chat_first_delta", 700)
	w.ObserveIndicator("gateway_retry")
	w.ObserveIndicator("gateway_retry")

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != "chat_first_delta" {
		t.Fatalf("Stage = %q, want %q", s.Stage, "chat_first_delta")
	}
	if s.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", s.Samples)
	}
	if s.LastMS != 700 {
		t.Fatalf("LastMS = %.2f, want 700", s.LastMS)
	}
	if s.P50MS != 500 {
		t.Fatalf("P50MS = %.2f, want 500", s.P50MS)
	}
	if s.P95MS <= 500 || s.P95MS > 700 {
		t.Fatalf("P95MS = %.2f, want (500,700]", s.P95MS)
	}
	if s.TargetP95MS != 900 {
		t.Fatalf("TargetP95MS = %.2f, want 900", s.TargetP95MS)
	}
	if len(snap.Indicators) != 1 {
		t.Fatalf("len(Indicators) = %d, want 1", len(snap.Indicators))
	}
	if snap.Indicators[0].Name != "gateway_retry" {
		t.Fatalf("Indicators[0].Name = %q", snap.Indicators[0].Name)
	}
	if snap.Indicators[0].Count != 2 {
		t.Fatalf("Indicators[0].Count = %d, want 2", snap.Indicators[0].Count)
	}
}

func TestStageWindowWrapsAround(t *testing.T) {
	w := newStageWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe("learn_total", float64(100*(i+1)))
	}

	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Samples != 4 {
		t.Fatalf("Samples = %d, want window size 4", s.Samples)
	}
	if s.LastMS != 1000 {
		t.Fatalf("LastMS = %.2f, want 1000", s.LastMS)
	}
}

func TestStageWindowIgnoresInvalidSamples(t *testing.T) {
	w := newStageWindow(4)
	w.Observe("", 100)
	w.Observe("chat_total", -1)
	w.ObserveIndicator("  ")

	snap := w.Snapshot()
	if len(snap.Stages) != 0 || len(snap.Indicators) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestStageWindowReset(t *testing.T) {
	w := newStageWindow(4)
	w.Observe("chat_total", 100)
	w.ObserveIndicator("gateway_retry")
	w.Reset()

	snap := w.Snapshot()
	if len(snap.Stages) != 0 || len(snap.Indicators) != 0 {
		t.Fatalf("expected empty snapshot after reset, got %+v", snap)
	}
}
