package app

import (
	"context"
	"time"

	"optobot/clients"
	"optobot/clients/broker"
	"optobot/clients/notifier"
	"optobot/config"
	"optobot/internal/agent"
	"optobot/internal/analysis"
	"optobot/internal/store"

	"go.uber.org/zap"
)

// Payout ratio applied to winning trades.
const payoutRatio = 0.85

// PendingTrade is an open position awaiting expiration.
type PendingTrade struct {
	ID         string
	Asset      string
	Direction  string
	Amount     float64
	Confidence float64
	Expiration int64
	PlacedAt   time.Time
}

// TradeRecord is one entry of the trade history.
type TradeRecord struct {
	ID         string    `json:"id"`
	Asset      string    `json:"asset"`
	Direction  string    `json:"direction"`
	Amount     float64   `json:"amount"`
	Confidence float64   `json:"confidence"`
	Outcome    string    `json:"outcome"`
	Profit     float64   `json:"profit"`
	PlacedAt   time.Time `json:"placed_at"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// TradeStats is the trade history summary served by the control API.
type TradeStats struct {
	TotalTrades  int           `json:"total_trades"`
	TotalWins    int           `json:"total_wins"`
	TotalLosses  int           `json:"total_losses"`
	RecentTrades []TradeRecord `json:"recent_trades"`
	WinRate      float64       `json:"win_rate"`
}

// TradeExecutor places trades on agent signals and resolves expired ones.
// Rate limited to a fixed number of trades per rolling hour, one open trade
// at a time. It is only touched from the bot's dispatch queue.
type TradeExecutor struct {
	logger  *zap.Logger
	clients *clients.Clients
	agent   *agent.Agent

	asset      string
	timeframe  int
	amount     float64
	maxPerHour int

	history        []TradeRecord
	pending        map[string]PendingTrade
	tradesThisHour int
	hourStart      time.Time
	lastCandles    []broker.Candle
	lastPatterns   []analysis.Pattern
}

func NewTradeExecutor(logger *zap.Logger, cfg *config.Config, cl *clients.Clients, ag *agent.Agent) *TradeExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TradeExecutor{
		logger:     logger.Named("executor"),
		clients:    cl,
		agent:      ag,
		asset:      cfg.Broker.DefaultAsset,
		timeframe:  cfg.Broker.DefaultTimeframe,
		amount:     cfg.Broker.TradeAmount,
		maxPerHour: cfg.Bot.MaxTradesPerHour,
		pending:    make(map[string]PendingTrade),
	}
}

// Tick resolves expired trades and, when the market gives a signal, places a
// new one.
func (e *TradeExecutor) Tick(ctx context.Context, now time.Time) {
	e.rollHour(now)
	e.resolvePending(ctx, now)
	e.maybePlace(ctx, now)
}

// rollHour resets the hourly trade counter, keeping the window anchored at
// the first tick.
func (e *TradeExecutor) rollHour(now time.Time) {
	if e.hourStart.IsZero() {
		e.hourStart = now
		return
	}
	for now.Sub(e.hourStart) >= time.Hour {
		e.hourStart = e.hourStart.Add(time.Hour)
		e.tradesThisHour = 0
	}
}

func (e *TradeExecutor) resolvePending(ctx context.Context, now time.Time) {
	for id, p := range e.pending {
		if now.Unix() < p.Expiration {
			continue
		}

		outcome, err := e.clients.Broker.TradeOutcome(ctx, id)
		if err != nil {
			e.logger.Error("trade outcome fetch failed", zap.String("trade", id), zap.Error(err))
			continue
		}

		profit := -p.Amount
		if outcome == broker.OutcomeWin {
			profit = p.Amount * payoutRatio
		}

		rec := TradeRecord{
			ID:         p.ID,
			Asset:      p.Asset,
			Direction:  p.Direction,
			Amount:     p.Amount,
			Confidence: p.Confidence,
			Outcome:    outcome,
			Profit:     profit,
			PlacedAt:   p.PlacedAt,
			ResolvedAt: now,
		}
		e.history = append(e.history, rec)
		delete(e.pending, id)

		e.agent.RecordOutcome(outcome)

		e.logger.Info("trade resolved",
			zap.String("trade", id),
			zap.String("outcome", outcome),
			zap.Float64("profit", profit),
		)

		if err := e.clients.Store.RecordTradeOutcome(id, outcome, profit, now); err != nil {
			e.logger.Error("failed to record trade outcome", zap.Error(err))
		}

		balance, _ := e.clients.Broker.Balance(ctx)
		e.clients.Notifier.SendTradeNotice(notifier.TradeNotice{
			TradeID:    p.ID,
			Asset:      p.Asset,
			Direction:  p.Direction,
			Amount:     p.Amount,
			Confidence: p.Confidence,
			Outcome:    outcome,
			Balance:    balance,
			Simulated:  e.clients.Broker.Simulated(),
			Timestamp:  now,
		})
	}
}

func (e *TradeExecutor) maybePlace(ctx context.Context, now time.Time) {
	// One open trade at a time.
	if len(e.pending) > 0 {
		return
	}
	if e.tradesThisHour >= e.maxPerHour {
		return
	}

	candles, err := e.clients.Broker.Candles(ctx, e.asset, e.timeframe, 100)
	if err != nil {
		e.logger.Error("candle fetch failed", zap.String("asset", e.asset), zap.Error(err))
		return
	}
	e.lastCandles = candles
	e.lastPatterns = analysis.DetectPatterns(candles)

	sig, ok := e.agent.Evaluate(candles)
	if !ok {
		return
	}

	expiration := now.Unix() + int64(e.timeframe)
	id, err := e.clients.Broker.PlaceTrade(ctx, e.asset, e.amount, sig.Direction, expiration)
	if err != nil {
		e.logger.Error("trade placement failed", zap.Error(err))
		return
	}

	p := PendingTrade{
		ID:         id,
		Asset:      e.asset,
		Direction:  sig.Direction,
		Amount:     e.amount,
		Confidence: sig.Confidence,
		Expiration: expiration,
		PlacedAt:   now,
	}
	e.pending[id] = p
	e.tradesThisHour++

	e.logger.Info("trade placed",
		zap.String("trade", id),
		zap.String("asset", e.asset),
		zap.String("direction", sig.Direction),
		zap.Float64("confidence", sig.Confidence),
		zap.String("reason", sig.Reason),
	)

	if err := e.clients.Store.RecordTrade(&store.TradeEvent{
		TradeID:    id,
		Asset:      e.asset,
		Direction:  sig.Direction,
		Amount:     e.amount,
		Confidence: sig.Confidence,
		Simulated:  e.clients.Broker.Simulated(),
		PlacedAt:   now,
	}); err != nil {
		e.logger.Error("failed to record trade", zap.Error(err))
	}

	e.clients.Notifier.SendTradeNotice(notifier.TradeNotice{
		TradeID:    id,
		Asset:      e.asset,
		Direction:  sig.Direction,
		Amount:     e.amount,
		Confidence: sig.Confidence,
		Simulated:  e.clients.Broker.Simulated(),
		Timestamp:  now,
	})
}

// Stats summarizes the trade history.
func (e *TradeExecutor) Stats() TradeStats {
	wins, losses := 0, 0
	for _, t := range e.history {
		switch t.Outcome {
		case broker.OutcomeWin:
			wins++
		case broker.OutcomeLoss:
			losses++
		}
	}

	winRate := 0.0
	if len(e.history) > 0 {
		winRate = float64(wins) / float64(len(e.history))
	}

	recent := e.history
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	recentCopy := append([]TradeRecord(nil), recent...)

	return TradeStats{
		TotalTrades:  len(e.history),
		TotalWins:    wins,
		TotalLosses:  losses,
		RecentTrades: recentCopy,
		WinRate:      winRate,
	}
}

func (e *TradeExecutor) Asset() string { return e.asset }

func (e *TradeExecutor) Timeframe() int { return e.timeframe }

func (e *TradeExecutor) Candles() []broker.Candle { return e.lastCandles }

func (e *TradeExecutor) Patterns() []analysis.Pattern { return e.lastPatterns }

func (e *TradeExecutor) TradesThisHour() int { return e.tradesThisHour }

func (e *TradeExecutor) PendingCount() int { return len(e.pending) }

func (e *TradeExecutor) TotalTrades() int { return len(e.history) }
