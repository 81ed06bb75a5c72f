package app

import (
	"context"
	"fmt"

	"optobot/clients/broker"

	"go.uber.org/zap"
)

// ConnectionManager owns the broker session lifecycle: one connect at
// startup, periodic liveness checks, and a cached balance refreshed on each
// heartbeat. It is only touched from the bot's dispatch queue.
type ConnectionManager struct {
	logger *zap.Logger
	broker broker.Broker

	connected bool
	balance   float64
}

func NewConnectionManager(logger *zap.Logger, b broker.Broker) *ConnectionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionManager{
		logger: logger.Named("connection"),
		broker: b,
	}
}

// Connect establishes the broker session and primes the balance cache.
func (m *ConnectionManager) Connect(ctx context.Context) error {
	if err := m.broker.Connect(ctx); err != nil {
		return fmt.Errorf("broker connect: %w", err)
	}
	m.connected = true

	balance, err := m.broker.Balance(ctx)
	if err != nil {
		m.logger.Warn("initial balance fetch failed", zap.Error(err))
	} else {
		m.balance = balance
	}

	m.logger.Info("broker session established",
		zap.Bool("simulated", m.broker.Simulated()),
		zap.Float64("balance", m.balance),
	)
	return nil
}

// Heartbeat checks session liveness and refreshes the cached balance. A dead
// session is logged but not acted on here.
func (m *ConnectionManager) Heartbeat(ctx context.Context) {
	m.connected = m.broker.IsConnected()
	if !m.connected {
		m.logger.Warn("broker session is down")
		return
	}

	balance, err := m.broker.Balance(ctx)
	if err != nil {
		m.logger.Warn("balance refresh failed", zap.Error(err))
		return
	}
	m.balance = balance
}

func (m *ConnectionManager) IsConnected() bool { return m.connected }

func (m *ConnectionManager) Balance() float64 { return m.balance }

func (m *ConnectionManager) Simulated() bool { return m.broker.Simulated() }

// Close tears down the session.
func (m *ConnectionManager) Close() error {
	m.connected = false
	return m.broker.Close()
}
