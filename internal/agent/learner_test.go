package agent

import (
	"math"
	"testing"
	"time"

	"optobot/clients/broker"
	"optobot/internal/store"

	"go.uber.org/zap"
)

// recordingStore serves canned trades and captures learning runs.
type recordingStore struct {
	store.NoopStore
	trades []store.TradeEvent
	runs   []store.LearningRun
}

func (s *recordingStore) TradesSince(time.Time) ([]store.TradeEvent, error) {
	return s.trades, nil
}

func (s *recordingStore) RecordLearningRun(run *store.LearningRun) error {
	s.runs = append(s.runs, *run)
	return nil
}

func cannedTrades(wins, losses int) []store.TradeEvent {
	var out []store.TradeEvent
	for i := 0; i < wins; i++ {
		out = append(out, store.TradeEvent{Outcome: broker.OutcomeWin})
	}
	for i := 0; i < losses; i++ {
		out = append(out, store.TradeEvent{Outcome: broker.OutcomeLoss})
	}
	return out
}

func TestLearnRaisesThresholdOnWeakWinRate(t *testing.T) {
	a := NewAgent(zap.NewNop(), 0.75)
	st := &recordingStore{trades: cannedTrades(4, 8)}
	l := NewKnowledgeLearner(zap.NewNop(), a, st)

	if err := l.Learn(time.Now()); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	if got := a.MinConfidence(); math.Abs(got-0.80) > 1e-9 {
		t.Errorf("expected threshold raised to 0.80, got %v", got)
	}
	if len(st.runs) != 1 {
		t.Fatalf("expected the run to be persisted, got %d runs", len(st.runs))
	}
	if st.runs[0].Wins != 4 || st.runs[0].Losses != 8 {
		t.Errorf("persisted run has wrong tallies: %+v", st.runs[0])
	}
}

func TestLearnLowersThresholdOnStrongWinRate(t *testing.T) {
	a := NewAgent(zap.NewNop(), 0.75)
	st := &recordingStore{trades: cannedTrades(9, 3)}
	l := NewKnowledgeLearner(zap.NewNop(), a, st)

	if err := l.Learn(time.Now()); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if got := a.MinConfidence(); math.Abs(got-0.73) > 1e-9 {
		t.Errorf("expected threshold lowered to 0.73, got %v", got)
	}
}

func TestLearnIgnoresSmallSamples(t *testing.T) {
	a := NewAgent(zap.NewNop(), 0.75)
	st := &recordingStore{trades: cannedTrades(1, 4)}
	l := NewKnowledgeLearner(zap.NewNop(), a, st)

	if err := l.Learn(time.Now()); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if got := a.MinConfidence(); got != 0.75 {
		t.Errorf("expected threshold unchanged on a small sample, got %v", got)
	}
}

func TestLearnUpdatesStats(t *testing.T) {
	a := NewAgent(zap.NewNop(), 0.75)
	st := &recordingStore{trades: cannedTrades(6, 6)}
	l := NewKnowledgeLearner(zap.NewNop(), a, st)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := l.Learn(now); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	stats := l.Stats()
	if stats.Runs != 1 {
		t.Errorf("expected 1 run, got %d", stats.Runs)
	}
	if !stats.LastRunAt.Equal(now) {
		t.Errorf("expected last run at %v, got %v", now, stats.LastRunAt)
	}
	if stats.LastWinRate != 0.5 {
		t.Errorf("expected win rate 0.5, got %v", stats.LastWinRate)
	}
}
