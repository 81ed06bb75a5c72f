package broker

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SimClient is the simulated broker: every response is a deterministic
// synthetic value and no network I/O ever happens. It is selected when no
// session credential is configured.
type SimClient struct {
	logger *zap.Logger
	demo   bool

	mu        sync.Mutex
	connected bool
	balance   float64
	trades    map[string]simTrade
}

type simTrade struct {
	asset      string
	amount     float64
	direction  string
	expiration int64
}

func NewSimClient(logger *zap.Logger, demo bool) *SimClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimClient{
		logger: logger.Named("sim-broker"),
		demo:   demo,
		trades: make(map[string]simTrade),
	}
}

func (s *SimClient) Connect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	if s.demo {
		s.balance = 10000.0
	} else {
		s.balance = 0
	}
	s.logger.Info("simulated session connected", zap.Bool("demo", s.demo), zap.Float64("balance", s.balance))
	return nil
}

func (s *SimClient) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *SimClient) Simulated() bool { return true }

func (s *SimClient) Balance(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, nil
}

func (s *SimClient) Tournaments(_ context.Context) ([]Tournament, error) {
	return []Tournament{
		{
			ID:           "sim_tournament_1",
			Name:         "Daily Free Tournament",
			EntryFee:     0,
			PrizePool:    100,
			Participants: 50,
			Status:       TournamentActive,
		},
		{
			ID:           "sim_tournament_2",
			Name:         "Weekend Paid Contest",
			EntryFee:     10,
			PrizePool:    1000,
			Participants: 120,
			Status:       TournamentActive,
		},
		{
			ID:           "sim_tournament_3",
			Name:         "Last Week Free Tournament",
			EntryFee:     0,
			PrizePool:    100,
			Participants: 80,
			Status:       TournamentEnded,
		},
	}, nil
}

func (s *SimClient) JoinTournament(_ context.Context, id string) error {
	s.logger.Info("joined simulated tournament", zap.String("tournament", id))
	return nil
}

func (s *SimClient) PlaceTrade(_ context.Context, asset string, amount float64, direction string, expiration int64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("invalid trade amount %.2f", amount)
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.trades[id] = simTrade{asset: asset, amount: amount, direction: direction, expiration: expiration}
	s.mu.Unlock()
	s.logger.Info("placed simulated trade",
		zap.String("trade", id),
		zap.String("asset", asset),
		zap.String("direction", direction),
		zap.Float64("amount", amount),
	)
	return id, nil
}

// TradeOutcome resolves a simulated trade. The result is a pure function of
// the trade ID so repeated queries agree.
func (s *SimClient) TradeOutcome(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	t, ok := s.trades[id]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown trade %q", id)
	}

	h := fnv.New32a()
	h.Write([]byte(id))
	outcome := OutcomeLoss
	if h.Sum32()%2 == 0 {
		outcome = OutcomeWin
	}

	s.mu.Lock()
	if outcome == OutcomeWin {
		s.balance += t.amount * 0.85
	} else {
		s.balance -= t.amount
	}
	delete(s.trades, id)
	s.mu.Unlock()
	return outcome, nil
}

// Candles synthesizes a random-walk series seeded by asset and bar time, so
// the same request always yields the same bars.
func (s *SimClient) Candles(_ context.Context, asset string, timeframe, count int) ([]Candle, error) {
	if count <= 0 {
		count = 50
	}
	step := int64(timeframe)
	if step <= 0 {
		step = 60
	}
	end := time.Now().Unix() / step * step

	base := 1.0 + float64(seed(asset)%1000)/10000.0
	candles := make([]Candle, 0, count)
	price := base
	for i := count - 1; i >= 0; i-- {
		t := end - int64(i)*step
		r := seed(fmt.Sprintf("%s:%d", asset, t))
		drift := (float64(r%200) - 100.0) / 100000.0
		span := (float64(r%37) + 1.0) / 100000.0

		open := price
		close := open + drift
		high := math.Max(open, close) + span
		low := math.Min(open, close) - span
		candles = append(candles, Candle{
			Time:   t,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: float64(100 + r%900),
		})
		price = close
	}
	return candles, nil
}

func (s *SimClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func seed(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}
