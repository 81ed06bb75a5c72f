package app

import (
	"context"
	"errors"
	"time"

	"optobot/clients"
	"optobot/config"
	"optobot/internal/agent"
	"optobot/internal/analysis"

	"go.uber.org/zap"
)

// Loop names, also the keys of the task registry.
const (
	taskConnection = "connection"
	taskTournament = "tournament"
	taskExecutor   = "executor"
	taskLearner    = "learner"
)

// request is one unit of work for the dispatch queue.
type request struct {
	work func()
	done chan struct{} // closed after work returns; nil for fire-and-forget
}

// TaskHandle tracks one supervised background loop.
type TaskHandle struct {
	Name   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Status is the full bot state snapshot served by the control API.
type Status struct {
	IsRunning        bool               `json:"is_running"`
	IsTrading        bool               `json:"is_trading"`
	IsLearning       bool               `json:"is_learning"`
	Connected        bool               `json:"connected"`
	SimulationMode   bool               `json:"simulation_mode"`
	Balance          float64            `json:"balance"`
	CurrentAsset     string             `json:"current_asset"`
	CurrentTimeframe int                `json:"current_timeframe"`
	PatternsDetected int                `json:"patterns_detected"`
	TradesThisHour   int                `json:"trades_this_hour"`
	PendingTrades    int                `json:"pending_trades"`
	TotalTrades      int                `json:"total_trades"`
	AgentStats       agent.Stats        `json:"agent_stats"`
	KnowledgeStats   agent.LearnerStats `json:"knowledge_stats"`
}

// MarketAnalysis is the current analysis snapshot served by the control API.
type MarketAnalysis struct {
	Patterns   []analysis.Pattern  `json:"patterns"`
	Levels     analysis.Levels     `json:"levels"`
	Indicators analysis.Indicators `json:"indicators"`
	Trend      string              `json:"trend"`
}

// Bot is the trading bot core. All mutable state is owned by a single
// dispatcher goroutine (Run); the four supervised loops and the control API
// only enqueue work onto its queue. This keeps every state transition
// serialized without a single lock.
type Bot struct {
	logger  *zap.Logger
	cfg     *config.Config
	clients *clients.Clients

	conn      *ConnectionManager
	agent     *agent.Agent
	learner   *agent.KnowledgeLearner
	executor  *TradeExecutor
	scheduler *TournamentScheduler
	bridge    *Bridge

	reqCh chan request
	quit  chan struct{}
	now   func() time.Time

	// Dispatcher-owned state. Never touch off the queue.
	running   bool
	learning  bool
	tasks     map[string]*TaskHandle
	runCancel context.CancelFunc
}

func NewBot(logger *zap.Logger, cfg *config.Config, cl *clients.Clients) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("bot")

	ag := agent.NewAgent(logger, cfg.Bot.MinConfidence)
	b := &Bot{
		logger:    logger,
		cfg:       cfg,
		clients:   cl,
		conn:      NewConnectionManager(logger, cl.Broker),
		agent:     ag,
		learner:   agent.NewKnowledgeLearner(logger, ag, cl.Store),
		executor:  NewTradeExecutor(logger, cfg, cl, ag),
		scheduler: NewTournamentScheduler(logger, cfg, cl),
		reqCh:     make(chan request),
		quit:      make(chan struct{}),
		now:       time.Now,
		tasks:     make(map[string]*TaskHandle),
	}
	b.bridge = newBridge(logger, b.reqCh, b.quit, cfg.Bot.BridgeBudget)
	return b
}

// Bridge returns the cross-goroutine bridge onto the dispatch queue.
func (b *Bot) Bridge() *Bridge { return b.bridge }

// Run is the dispatcher. It processes queued work until ctx is cancelled and
// must be running before Start, Stop, or any bridged call is made.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info("dispatcher running")
	defer close(b.quit)

	for {
		select {
		case <-ctx.Done():
			b.stopLocked()
			b.logger.Info("dispatcher stopped")
			return
		case req := <-b.reqCh:
			req.work()
			if req.done != nil {
				close(req.done)
			}
		}
	}
}

// do runs work on the dispatch queue and waits for it to finish. It returns
// early when ctx is cancelled; queued work still runs.
func (b *Bot) do(ctx context.Context, work func()) error {
	req := request{work: work, done: make(chan struct{})}

	select {
	case b.reqCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-b.quit:
		return errors.New("dispatcher stopped")
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.quit:
		return errors.New("dispatcher stopped")
	}
}

// Start launches the four supervised loops. Starting a running bot is a
// warned no-op.
func (b *Bot) Start() error {
	return b.do(context.Background(), b.startLocked)
}

// Stop cancels all loops and clears the registry. Stopping a stopped bot is
// a no-op.
func (b *Bot) Stop() error {
	return b.do(context.Background(), b.stopLocked)
}

func (b *Bot) startLocked() {
	if b.running {
		b.logger.Warn("bot is already running")
		return
	}
	b.running = true
	b.logger.Info("starting bot")

	runCtx, runCancel := context.WithCancel(context.Background())
	b.runCancel = runCancel

	loops := map[string]func(context.Context, *TaskHandle){
		taskConnection: b.connectionLoop,
		taskTournament: b.tournamentLoop,
		taskExecutor:   b.executorLoop,
		taskLearner:    b.learnerLoop,
	}
	for name, loop := range loops {
		ctx, cancel := context.WithCancel(runCtx)
		h := &TaskHandle{Name: name, cancel: cancel, done: make(chan struct{})}
		b.tasks[name] = h
		go loop(ctx, h)
	}
}

func (b *Bot) stopLocked() {
	if !b.running {
		return
	}
	b.running = false
	b.logger.Info("stopping bot")

	for name, h := range b.tasks {
		h.cancel()
		b.logger.Info("cancelled loop", zap.String("loop", name))
	}
	b.tasks = make(map[string]*TaskHandle)
	if b.runCancel != nil {
		b.runCancel()
		b.runCancel = nil
	}
}

// halt requests a coordinated shutdown from inside a loop goroutine.
func (b *Bot) halt(reason string) {
	_ = b.do(context.Background(), func() {
		if !b.running {
			return
		}
		b.logger.Error("halting bot", zap.String("reason", reason))
		b.stopLocked()
	})
}

// connectionLoop establishes the broker session and then heartbeats it. A
// failed initial connect takes the whole bot down.
func (b *Bot) connectionLoop(ctx context.Context, h *TaskHandle) {
	defer close(h.done)

	var connectErr error
	if err := b.do(ctx, func() {
		connectErr = b.conn.Connect(ctx)
	}); err != nil {
		return
	}
	if connectErr != nil {
		b.logger.Error("connection failed", zap.Error(connectErr))
		b.halt("broker connect failed")
		return
	}

	for {
		if err := sleepCtx(ctx, b.cfg.Bot.HeartbeatInterval); err != nil {
			return
		}
		if err := b.do(ctx, func() { b.conn.Heartbeat(ctx) }); err != nil {
			return
		}
	}
}

// tournamentLoop periodically tries to join the daily free tournament. The
// scheduler enforces the daily-join window internally.
func (b *Bot) tournamentLoop(ctx context.Context, h *TaskHandle) {
	defer close(h.done)

	if err := sleepCtx(ctx, b.cfg.Bot.TournamentGrace); err != nil {
		return
	}
	for {
		if err := b.do(ctx, func() {
			if _, err := b.scheduler.JoinDailyFree(ctx, b.now()); err != nil {
				b.logger.Error("tournament check failed", zap.Error(err))
			}
		}); err != nil {
			return
		}
		if err := sleepCtx(ctx, b.cfg.Bot.TournamentInterval); err != nil {
			return
		}
	}
}

// executorLoop ticks the trade executor.
func (b *Bot) executorLoop(ctx context.Context, h *TaskHandle) {
	defer close(h.done)

	for {
		if err := sleepCtx(ctx, b.cfg.Bot.ExecutorInterval); err != nil {
			return
		}
		if err := b.do(ctx, func() {
			b.executor.Tick(ctx, b.now())
		}); err != nil {
			return
		}
	}
}

// learnerLoop runs a knowledge pass once per learn interval.
func (b *Bot) learnerLoop(ctx context.Context, h *TaskHandle) {
	defer close(h.done)

	for {
		if err := sleepCtx(ctx, b.cfg.Bot.LearnInterval); err != nil {
			return
		}
		if err := b.do(ctx, func() {
			b.learning = true
			if err := b.learner.Learn(b.now()); err != nil {
				b.logger.Error("learning pass failed", zap.Error(err))
			}
			b.learning = false
		}); err != nil {
			return
		}
	}
}

// statusLocked assembles the status snapshot. Dispatcher only.
func (b *Bot) statusLocked() Status {
	ex := b.executor
	return Status{
		IsRunning: b.running,
		// Trading means a position is open right now; a flag toggled inside
		// one executor tick would never be observable from the queue.
		IsTrading:        b.running && ex.PendingCount() > 0,
		IsLearning:       b.learning,
		Connected:        b.conn.IsConnected(),
		SimulationMode:   b.conn.Simulated(),
		Balance:          b.conn.Balance(),
		CurrentAsset:     ex.Asset(),
		CurrentTimeframe: ex.Timeframe(),
		PatternsDetected: len(ex.Patterns()),
		TradesThisHour:   ex.TradesThisHour(),
		PendingTrades:    ex.PendingCount(),
		TotalTrades:      ex.TotalTrades(),
		AgentStats:       b.agent.Stats(),
		KnowledgeStats:   b.learner.Stats(),
	}
}

// analysisLocked assembles the market analysis snapshot. Dispatcher only.
func (b *Bot) analysisLocked() MarketAnalysis {
	candles := b.executor.Candles()
	return MarketAnalysis{
		Patterns:   b.executor.Patterns(),
		Levels:     analysis.DetectLevels(candles),
		Indicators: analysis.ComputeIndicators(candles),
		Trend:      analysis.Trend(candles),
	}
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
