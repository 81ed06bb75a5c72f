package app

import (
	"context"
	"fmt"
	"time"

	"optobot/clients"
	"optobot/clients/broker"
	"optobot/clients/notifier"
	"optobot/config"
	"optobot/internal/store"

	"go.uber.org/zap"
)

// TournamentScheduler joins the daily free tournament at most once per join
// window and handles manual joins from the control API. It is only touched
// from the bot's dispatch queue.
type TournamentScheduler struct {
	logger  *zap.Logger
	clients *clients.Clients
	window  time.Duration

	lastJoin time.Time
}

func NewTournamentScheduler(logger *zap.Logger, cfg *config.Config, cl *clients.Clients) *TournamentScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TournamentScheduler{
		logger:  logger.Named("tournament"),
		clients: cl,
		window:  cfg.Bot.DailyJoinWindow,
	}
}

// FreeActive returns all active tournaments with no entry fee. A fetch
// failure degrades to an empty list; the broker being unreachable must not
// break callers.
func (s *TournamentScheduler) FreeActive(ctx context.Context) []broker.Tournament {
	free := make([]broker.Tournament, 0)
	all, err := s.clients.Broker.Tournaments(ctx)
	if err != nil {
		s.logger.Error("tournament list fetch failed", zap.Error(err))
		return free
	}

	for _, t := range all {
		if t.EntryFee == 0 && t.Status == broker.TournamentActive {
			free = append(free, t)
		}
	}
	return free
}

// JoinDailyFree joins the first active free tournament, unless one was
// already joined within the daily-join window. Returns whether a join
// happened.
func (s *TournamentScheduler) JoinDailyFree(ctx context.Context, now time.Time) (bool, error) {
	if !s.lastJoin.IsZero() && now.Sub(s.lastJoin) < s.window {
		return false, nil
	}

	free := s.FreeActive(ctx)
	if len(free) == 0 {
		s.logger.Info("no free tournaments available")
		return false, nil
	}

	target := free[0]
	if err := s.join(ctx, target, now); err != nil {
		return false, err
	}
	s.lastJoin = now
	return true, nil
}

// JoinByID joins a specific tournament regardless of entry fee. Only active
// tournaments are joinable.
func (s *TournamentScheduler) JoinByID(ctx context.Context, id string, now time.Time) error {
	all, err := s.clients.Broker.Tournaments(ctx)
	if err != nil {
		return fmt.Errorf("list tournaments: %w", err)
	}

	for _, t := range all {
		if t.ID != id {
			continue
		}
		if t.Status != broker.TournamentActive {
			return fmt.Errorf("tournament %q is not active", id)
		}
		return s.join(ctx, t, now)
	}
	return fmt.Errorf("tournament %q not found", id)
}

func (s *TournamentScheduler) join(ctx context.Context, t broker.Tournament, now time.Time) error {
	if err := s.clients.Broker.JoinTournament(ctx, t.ID); err != nil {
		return fmt.Errorf("join tournament %q: %w", t.ID, err)
	}

	s.logger.Info("joined tournament",
		zap.String("tournament", t.ID),
		zap.String("name", t.Name),
		zap.Float64("prizePool", t.PrizePool),
	)

	s.clients.Notifier.SendTournamentNotice(notifier.TournamentNotice{
		TournamentID: t.ID,
		Name:         t.Name,
		PrizePool:    t.PrizePool,
		Participants: t.Participants,
		Timestamp:    now,
	})

	if err := s.clients.Store.RecordTournament(&store.TournamentEvent{
		TournamentID: t.ID,
		Name:         t.Name,
		PrizePool:    t.PrizePool,
		JoinedAt:     now,
	}); err != nil {
		s.logger.Error("failed to record tournament", zap.Error(err))
	}
	return nil
}

// LastJoin returns when the scheduler last joined a daily free tournament.
func (s *TournamentScheduler) LastJoin() time.Time { return s.lastJoin }
