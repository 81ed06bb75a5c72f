package agent

import (
	"sync"
	"time"

	"optobot/clients/broker"
	"optobot/internal/store"

	"go.uber.org/zap"
)

// LearnerStats is a snapshot of the learner's history.
type LearnerStats struct {
	Runs        int       `json:"runs"`
	LastRunAt   time.Time `json:"last_run_at"`
	LastWinRate float64   `json:"last_win_rate"`
	Threshold   float64   `json:"threshold"`
}

// KnowledgeLearner periodically reviews resolved trades and nudges the
// agent's confidence threshold: a weak win rate raises the bar, a strong one
// lowers it. Each pass is persisted.
type KnowledgeLearner struct {
	logger *zap.Logger
	agent  *Agent
	store  store.Store

	mu          sync.Mutex
	runs        int
	lastRunAt   time.Time
	lastWinRate float64
}

func NewKnowledgeLearner(logger *zap.Logger, agent *Agent, st store.Store) *KnowledgeLearner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if st == nil {
		st = store.NewNoopStore()
	}
	return &KnowledgeLearner{
		logger: logger.Named("learner"),
		agent:  agent,
		store:  st,
	}
}

// Learn runs one pass over the trades resolved in the last 24 hours.
func (l *KnowledgeLearner) Learn(now time.Time) error {
	trades, err := l.store.TradesSince(now.Add(-24 * time.Hour))
	if err != nil {
		return err
	}

	wins, losses := 0, 0
	for _, t := range trades {
		switch t.Outcome {
		case broker.OutcomeWin:
			wins++
		case broker.OutcomeLoss:
			losses++
		}
	}

	resolved := wins + losses
	winRate := 0.0
	if resolved > 0 {
		winRate = float64(wins) / float64(resolved)
	}

	threshold := l.agent.MinConfidence()
	if resolved >= 10 {
		if winRate < 0.5 {
			threshold += 0.05
		} else if winRate > 0.65 {
			threshold -= 0.02
		}
		l.agent.SetMinConfidence(threshold)
		threshold = l.agent.MinConfidence()
	}

	l.mu.Lock()
	l.runs++
	l.lastRunAt = now
	l.lastWinRate = winRate
	l.mu.Unlock()

	l.logger.Info("learning pass complete",
		zap.Int("trades", len(trades)),
		zap.Int("wins", wins),
		zap.Int("losses", losses),
		zap.Float64("winRate", winRate),
		zap.Float64("threshold", threshold),
	)

	return l.store.RecordLearningRun(&store.LearningRun{
		TradesSeen: len(trades),
		Wins:       wins,
		Losses:     losses,
		WinRate:    winRate,
		Threshold:  threshold,
		RanAt:      now,
	})
}

func (l *KnowledgeLearner) Stats() LearnerStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LearnerStats{
		Runs:        l.runs,
		LastRunAt:   l.lastRunAt,
		LastWinRate: l.lastWinRate,
		Threshold:   l.agent.MinConfidence(),
	}
}
