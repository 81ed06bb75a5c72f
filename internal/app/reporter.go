package app

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reporter posts a daily trading summary. It reads bot state through the
// bridge so the snapshot is consistent, and queries the store for the full
// day of trades.
type Reporter struct {
	logger *zap.Logger
	bot    *Bot
	spec   string
	cron   *cron.Cron
}

func NewReporter(logger *zap.Logger, bot *Bot, spec string) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		logger: logger.Named("reporter"),
		bot:    bot,
		spec:   spec,
		cron:   cron.New(cron.WithSeconds()),
	}
}

// Start schedules the daily summary job.
func (r *Reporter) Start() error {
	if _, err := r.cron.AddFunc(r.spec, r.run); err != nil {
		return fmt.Errorf("schedule daily report: %w", err)
	}
	r.cron.Start()
	r.logger.Info("daily reporter scheduled", zap.String("spec", r.spec))
	return nil
}

// Stop halts the schedule. Running jobs finish.
func (r *Reporter) Stop() {
	r.cron.Stop()
}

func (r *Reporter) run() {
	v, err := r.bot.Bridge().Submit(func() (any, error) {
		return summary{
			stats:   r.bot.executor.Stats(),
			balance: r.bot.conn.Balance(),
			running: r.bot.running,
		}, nil
	})
	if err != nil {
		r.logger.Error("daily report snapshot failed", zap.Error(err))
		return
	}
	s := v.(summary)

	now := r.bot.now()
	trades, err := r.bot.clients.Store.TradesSince(now.Add(-24 * time.Hour))
	if err != nil {
		r.logger.Error("daily report store query failed", zap.Error(err))
	}

	msg := fmt.Sprintf(
		"📊 **Daily Summary**\nTrades (24h): %d\nTotal: %d W / %d L (%.1f%% win rate)\nBalance: $%.2f\nBot running: %v",
		len(trades), s.stats.TotalWins, s.stats.TotalLosses, s.stats.WinRate*100, s.balance, s.running,
	)
	r.bot.clients.Notifier.SendMessage(msg)

	r.logger.Info("daily report sent",
		zap.Int("trades24h", len(trades)),
		zap.Float64("winRate", s.stats.WinRate),
	)
}

type summary struct {
	stats   TradeStats
	balance float64
	running bool
}
