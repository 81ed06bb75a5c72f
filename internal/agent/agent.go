package agent

import (
	"sync"

	"optobot/clients/broker"
	"optobot/internal/analysis"

	"go.uber.org/zap"
)

// Signal is the agent's verdict on the current market.
type Signal struct {
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Stats is a snapshot of the agent's decision record.
type Stats struct {
	Signals       int     `json:"signals"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"win_rate"`
	MinConfidence float64 `json:"min_confidence"`
}

// Agent scores market snapshots and decides whether to trade. The confidence
// threshold is adjustable at runtime, clamped to [0.50, 0.95].
type Agent struct {
	logger *zap.Logger

	mu            sync.Mutex
	minConfidence float64
	signals       int
	wins          int
	losses        int
}

func NewAgent(logger *zap.Logger, minConfidence float64) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Agent{logger: logger.Named("agent")}
	a.SetMinConfidence(minConfidence)
	return a
}

// SetMinConfidence updates the trade threshold, clamped to [0.50, 0.95].
func (a *Agent) SetMinConfidence(c float64) {
	if c < 0.50 {
		c = 0.50
	}
	if c > 0.95 {
		c = 0.95
	}
	a.mu.Lock()
	a.minConfidence = c
	a.mu.Unlock()
	a.logger.Info("minimum confidence set", zap.Float64("minConfidence", c))
}

func (a *Agent) MinConfidence() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.minConfidence
}

// Evaluate scores the candle series. It returns a signal and whether the
// signal clears the confidence threshold.
func (a *Agent) Evaluate(candles []broker.Candle) (Signal, bool) {
	sig := a.score(candles)

	a.mu.Lock()
	a.signals++
	threshold := a.minConfidence
	a.mu.Unlock()

	return sig, sig.Direction != "" && sig.Confidence >= threshold
}

func (a *Agent) score(candles []broker.Candle) Signal {
	if len(candles) < 20 {
		return Signal{Reason: "insufficient data", Confidence: 0}
	}

	patterns := analysis.DetectPatterns(candles)
	ind := analysis.ComputeIndicators(candles)
	trend := analysis.Trend(candles)

	var callScore, putScore float64
	reason := "no pattern"

	for _, p := range patterns {
		switch p.Direction {
		case broker.DirectionCall:
			callScore += p.Strength
			reason = p.Name
		case broker.DirectionPut:
			putScore += p.Strength
			reason = p.Name
		}
	}

	// RSI extremes argue for reversal.
	if ind.RSI < 30 {
		callScore += 0.4
	} else if ind.RSI > 70 {
		putScore += 0.4
	}

	// Trend agreement is a mild boost.
	switch trend {
	case analysis.TrendBullish:
		callScore += 0.2
	case analysis.TrendBearish:
		putScore += 0.2
	}

	direction := ""
	score := 0.0
	if callScore > putScore {
		direction = broker.DirectionCall
		score = callScore - putScore
	} else if putScore > callScore {
		direction = broker.DirectionPut
		score = putScore - callScore
	}

	confidence := 0.5 + score*0.3
	if confidence > 0.95 {
		confidence = 0.95
	}

	return Signal{Direction: direction, Confidence: confidence, Reason: reason}
}

// RecordOutcome feeds a resolved trade back into the agent's record.
func (a *Agent) RecordOutcome(outcome string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch outcome {
	case broker.OutcomeWin:
		a.wins++
	case broker.OutcomeLoss:
		a.losses++
	}
}

func (a *Agent) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	winRate := 0.0
	if total := a.wins + a.losses; total > 0 {
		winRate = float64(a.wins) / float64(total)
	}
	return Stats{
		Signals:       a.signals,
		Wins:          a.wins,
		Losses:        a.losses,
		WinRate:       winRate,
		MinConfidence: a.minConfidence,
	}
}
