package broker

import "context"

// Tournament statuses as reported by the broker.
const (
	TournamentActive = "active"
	TournamentEnded  = "ended"
)

// Trade outcomes as reported by the broker.
const (
	OutcomeWin  = "win"
	OutcomeLoss = "loss"
)

// Trade directions.
const (
	DirectionCall = "call"
	DirectionPut  = "put"
)

// Tournament is an immutable snapshot of a broker tournament.
type Tournament struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	EntryFee     float64 `json:"entry_fee"`
	PrizePool    float64 `json:"prize_pool"`
	Participants int     `json:"participants"`
	Status       string  `json:"status"`
}

// Candle is one OHLC bar for an asset/timeframe.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Broker is the capability interface over a broker session. Two
// implementations exist: a live websocket session and a deterministic
// simulated one. The implementation is selected once at construction and
// never changes at runtime.
type Broker interface {
	// Connect establishes the session. Safe to call once per process.
	Connect(ctx context.Context) error

	// IsConnected reports session liveness.
	IsConnected() bool

	// Simulated reports whether this is the synthetic implementation.
	Simulated() bool

	// Balance returns the current account balance.
	Balance(ctx context.Context) (float64, error)

	// Tournaments returns the full tournament list, all statuses included.
	Tournaments(ctx context.Context) ([]Tournament, error)

	// JoinTournament enters the tournament with the given ID.
	JoinTournament(ctx context.Context, id string) error

	// PlaceTrade opens a position and returns the broker trade ID.
	PlaceTrade(ctx context.Context, asset string, amount float64, direction string, expiration int64) (string, error)

	// TradeOutcome returns the outcome of an expired trade.
	TradeOutcome(ctx context.Context, id string) (string, error)

	// Candles returns the most recent count bars for asset/timeframe.
	Candles(ctx context.Context, asset string, timeframe, count int) ([]Candle, error)

	// Close tears down the session.
	Close() error
}
