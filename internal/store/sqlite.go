package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists bot history to a SQLite database.
type SQLiteStore struct {
	logger *zap.Logger
	db     *sql.DB
	mu     sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(logger *zap.Logger, dbPath string) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the daily reporter can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{logger: logger.Named("store"), db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s.logger.Info("sqlite store opened", zap.String("path", dbPath))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			trade_id    TEXT NOT NULL UNIQUE,
			asset       TEXT NOT NULL,
			direction   TEXT NOT NULL,
			amount      REAL NOT NULL,
			confidence  REAL NOT NULL,
			outcome     TEXT NOT NULL DEFAULT '',
			profit      REAL NOT NULL DEFAULT 0,
			simulated   INTEGER NOT NULL DEFAULT 0,
			placed_at   INTEGER NOT NULL,
			resolved_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_placed ON trades(placed_at)`,

		`CREATE TABLE IF NOT EXISTS tournaments (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			tournament_id TEXT NOT NULL,
			name          TEXT NOT NULL,
			prize_pool    REAL NOT NULL,
			joined_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tournaments_joined ON tournaments(joined_at)`,

		`CREATE TABLE IF NOT EXISTS learning_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			trades_seen INTEGER NOT NULL,
			wins        INTEGER NOT NULL,
			losses      INTEGER NOT NULL,
			win_rate    REAL NOT NULL,
			threshold   REAL NOT NULL,
			ran_at      INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_learning_ran ON learning_runs(ran_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) RecordTrade(evt *TradeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sim := 0
	if evt.Simulated {
		sim = 1
	}
	_, err := s.db.Exec(`INSERT INTO trades
		(trade_id, asset, direction, amount, confidence, outcome, profit, simulated, placed_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		evt.TradeID, evt.Asset, evt.Direction, evt.Amount, evt.Confidence,
		evt.Outcome, evt.Profit, sim, evt.PlacedAt.Unix(),
	)
	return err
}

func (s *SQLiteStore) RecordTradeOutcome(tradeID, outcome string, profit float64, resolvedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE trades SET outcome = ?, profit = ?, resolved_at = ? WHERE trade_id = ?`,
		outcome, profit, resolvedAt.Unix(), tradeID,
	)
	return err
}

func (s *SQLiteStore) RecordTournament(evt *TournamentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO tournaments
		(tournament_id, name, prize_pool, joined_at)
		VALUES (?,?,?,?)`,
		evt.TournamentID, evt.Name, evt.PrizePool, evt.JoinedAt.Unix(),
	)
	return err
}

func (s *SQLiteStore) RecordLearningRun(run *LearningRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO learning_runs
		(trades_seen, wins, losses, win_rate, threshold, ran_at)
		VALUES (?,?,?,?,?,?)`,
		run.TradesSeen, run.Wins, run.Losses, run.WinRate, run.Threshold, run.RanAt.Unix(),
	)
	return err
}

func (s *SQLiteStore) TradesSince(since time.Time) ([]TradeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT trade_id, asset, direction, amount, confidence, outcome, profit, simulated, placed_at, resolved_at
		FROM trades WHERE placed_at >= ? ORDER BY placed_at DESC`, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeEvent
	for rows.Next() {
		var evt TradeEvent
		var sim int
		var placed, resolved int64
		if err := rows.Scan(&evt.TradeID, &evt.Asset, &evt.Direction, &evt.Amount,
			&evt.Confidence, &evt.Outcome, &evt.Profit, &sim, &placed, &resolved); err != nil {
			return nil, err
		}
		evt.Simulated = sim != 0
		evt.PlacedAt = time.Unix(placed, 0)
		if resolved > 0 {
			evt.ResolvedAt = time.Unix(resolved, 0)
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.logger.Info("closing sqlite store")
	return s.db.Close()
}
