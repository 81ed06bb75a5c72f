package store

import "time"

// TradeEvent records one placed trade and, once resolved, its outcome.
type TradeEvent struct {
	TradeID    string
	Asset      string
	Direction  string // call or put
	Amount     float64
	Confidence float64
	Outcome    string // "" while open
	Profit     float64
	Simulated  bool
	PlacedAt   time.Time
	ResolvedAt time.Time
}

// TournamentEvent records one tournament entry.
type TournamentEvent struct {
	TournamentID string
	Name         string
	PrizePool    float64
	JoinedAt     time.Time
}

// LearningRun records one pass of the knowledge learner.
type LearningRun struct {
	TradesSeen int
	Wins       int
	Losses     int
	WinRate    float64
	Threshold  float64 // confidence threshold after the pass
	RanAt      time.Time
}

// Store persists bot history for later analysis and daily reporting.
type Store interface {
	RecordTrade(evt *TradeEvent) error
	RecordTradeOutcome(tradeID, outcome string, profit float64, resolvedAt time.Time) error
	RecordTournament(evt *TournamentEvent) error
	RecordLearningRun(run *LearningRun) error

	// TradesSince returns trades placed at or after the given time, newest first.
	TradesSince(since time.Time) ([]TradeEvent, error)

	Close() error
}
