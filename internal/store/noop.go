package store

import "time"

// NoopStore discards everything. Used when persistence is disabled.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (*NoopStore) RecordTrade(*TradeEvent) error { return nil }

func (*NoopStore) RecordTradeOutcome(string, string, float64, time.Time) error { return nil }

func (*NoopStore) RecordTournament(*TournamentEvent) error { return nil }

func (*NoopStore) RecordLearningRun(*LearningRun) error { return nil }

func (*NoopStore) TradesSince(time.Time) ([]TradeEvent, error) { return nil, nil }

func (*NoopStore) Close() error { return nil }
