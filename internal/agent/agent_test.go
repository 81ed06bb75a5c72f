package agent

import (
	"testing"

	"optobot/clients/broker"

	"go.uber.org/zap"
)

func TestSetMinConfidenceClamps(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{-1, 0.50},
		{0.3, 0.50},
		{0.5, 0.50},
		{0.7, 0.70},
		{0.95, 0.95},
		{2, 0.95},
	}
	for _, c := range cases {
		a := NewAgent(zap.NewNop(), 0.75)
		a.SetMinConfidence(c.in)
		if got := a.MinConfidence(); got != c.want {
			t.Errorf("SetMinConfidence(%v): got %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNewAgentClampsInitialThreshold(t *testing.T) {
	a := NewAgent(zap.NewNop(), 0.2)
	if got := a.MinConfidence(); got != 0.50 {
		t.Errorf("expected initial threshold clamped to 0.50, got %v", got)
	}
}

func TestStatsWinRate(t *testing.T) {
	a := NewAgent(zap.NewNop(), 0.75)
	for _, outcome := range []string{broker.OutcomeWin, broker.OutcomeWin, broker.OutcomeLoss, broker.OutcomeWin} {
		a.RecordOutcome(outcome)
	}

	st := a.Stats()
	if st.WinRate != 0.75 {
		t.Errorf("expected win rate 0.75, got %v", st.WinRate)
	}
	if st.Wins != 3 || st.Losses != 1 {
		t.Errorf("expected 3 wins 1 loss, got %d/%d", st.Wins, st.Losses)
	}
}

func TestEvaluateInsufficientData(t *testing.T) {
	a := NewAgent(zap.NewNop(), 0.75)

	sig, ok := a.Evaluate([]broker.Candle{{Close: 1.0}})
	if ok {
		t.Error("expected no signal on a near-empty series")
	}
	if sig.Confidence != 0 {
		t.Errorf("expected zero confidence, got %v", sig.Confidence)
	}

	if a.Stats().Signals != 1 {
		t.Error("evaluation should count as a signal attempt")
	}
}

func TestEvaluateConfidenceNeverExceedsCap(t *testing.T) {
	a := NewAgent(zap.NewNop(), 0.5)

	// Strongly trending series with an engulfing finish.
	candles := make([]broker.Candle, 0, 40)
	price := 1.0
	for i := 0; i < 38; i++ {
		next := price * 1.01
		candles = append(candles, broker.Candle{
			Time: int64(i) * 60, Open: price, High: next, Low: price, Close: next, Volume: 100,
		})
		price = next
	}
	candles = append(candles, broker.Candle{
		Time: 38 * 60, Open: price, High: price, Low: price * 0.995, Close: price * 0.996, Volume: 100,
	})
	candles = append(candles, broker.Candle{
		Time: 39 * 60, Open: price * 0.99, High: price * 1.03, Low: price * 0.99, Close: price * 1.02, Volume: 100,
	})

	sig, _ := a.Evaluate(candles)
	if sig.Confidence > 0.95 {
		t.Errorf("confidence %v exceeds the 0.95 cap", sig.Confidence)
	}
}
