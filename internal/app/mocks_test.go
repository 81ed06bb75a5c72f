package app

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"optobot/clients"
	"optobot/clients/broker"
	"optobot/clients/notifier"
	"optobot/config"
	"optobot/internal/store"

	"go.uber.org/zap"
)

// mockBroker is a scriptable broker for tests.
type mockBroker struct {
	mu sync.Mutex

	connected      bool
	connectErr     error
	simulated      bool
	balance        float64
	tournaments    []broker.Tournament
	tournamentsErr error
	joined         []string
	joinErr        error
	candles        []broker.Candle
	candlesErr     error
	placed         []string
	placeErr       error
	outcomes       map[string]string
	nextID         int
}

func newMockBroker() *mockBroker {
	return &mockBroker{outcomes: make(map[string]string)}
}

func (m *mockBroker) Connect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}

func (m *mockBroker) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockBroker) Simulated() bool { return m.simulated }

func (m *mockBroker) Balance(context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance, nil
}

func (m *mockBroker) Tournaments(context.Context) ([]broker.Tournament, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tournamentsErr != nil {
		return nil, m.tournamentsErr
	}
	return append([]broker.Tournament(nil), m.tournaments...), nil
}

func (m *mockBroker) JoinTournament(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.joinErr != nil {
		return m.joinErr
	}
	m.joined = append(m.joined, id)
	return nil
}

func (m *mockBroker) PlaceTrade(_ context.Context, _ string, _ float64, _ string, _ int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.placeErr != nil {
		return "", m.placeErr
	}
	m.nextID++
	id := fmt.Sprintf("trade-%d", m.nextID)
	m.placed = append(m.placed, id)
	return id, nil
}

func (m *mockBroker) TradeOutcome(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	outcome, ok := m.outcomes[id]
	if !ok {
		return "", fmt.Errorf("unknown trade %q", id)
	}
	return outcome, nil
}

func (m *mockBroker) Candles(context.Context, string, int, int) ([]broker.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.candlesErr != nil {
		return nil, m.candlesErr
	}
	return append([]broker.Candle(nil), m.candles...), nil
}

func (m *mockBroker) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

func (m *mockBroker) joinedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.joined...)
}

// mockNotifier records every notice.
type mockNotifier struct {
	mu          sync.Mutex
	trades      []notifier.TradeNotice
	tournaments []notifier.TournamentNotice
	messages    []string
}

func (m *mockNotifier) SendTradeNotice(n notifier.TradeNotice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, n)
}

func (m *mockNotifier) SendTournamentNotice(n notifier.TournamentNotice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tournaments = append(m.tournaments, n)
}

func (m *mockNotifier) SendMessage(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockNotifier) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Broker: config.BrokerConfig{
			DefaultAsset:     "EURUSD_otc",
			DefaultTimeframe: 60,
			TradeAmount:      10.0,
		},
		Bot: config.BotConfig{
			HeartbeatInterval:  10 * time.Millisecond,
			ExecutorInterval:   10 * time.Millisecond,
			LearnInterval:      time.Hour,
			TournamentGrace:    time.Millisecond,
			TournamentInterval: 20 * time.Millisecond,
			DailyJoinWindow:    4 * time.Hour,
			BridgeBudget:       time.Second,
			MinConfidence:      0.75,
			MaxTradesPerHour:   10,
		},
	}
}

func testClients(b broker.Broker) *clients.Clients {
	return &clients.Clients{
		Logger:   zap.NewNop(),
		Broker:   b,
		Notifier: &mockNotifier{},
		Store:    store.NewNoopStore(),
	}
}

// newTestBot builds a bot with fast loop cadences and a running dispatcher.
func newTestBot(cfg *config.Config, cl *clients.Clients) (*Bot, context.CancelFunc) {
	if cfg == nil {
		cfg = testConfig()
	}
	bot := NewBot(zap.NewNop(), cfg, cl)
	ctx, cancel := context.WithCancel(context.Background())
	go bot.Run(ctx)
	return bot, cancel
}

// snapshot runs fn on the dispatch queue and returns its value.
func snapshot[T any](b *Bot, fn func() T) T {
	v, _ := b.Bridge().Submit(func() (any, error) {
		return fn(), nil
	})
	return v.(T)
}

// testCandles returns a gently oscillating series ending in a gap-down bar
// engulfed by a strong bullish bar. The shape yields a call signal with
// confidence 0.8: bullish engulfing plus bullish trend, RSI in the middle
// band.
func testCandles(n int) []broker.Candle {
	if n < 30 {
		n = 30
	}
	candles := make([]broker.Candle, 0, n)
	base := int64(1_700_000_000)
	prevClose := 0.999
	for i := 0; i < n-2; i++ {
		close := 0.999
		if i%2 == 1 {
			close = 1.001
		}
		candles = append(candles, broker.Candle{
			Time:   base + int64(i)*60,
			Open:   prevClose,
			High:   math.Max(prevClose, close) + 0.0005,
			Low:    math.Min(prevClose, close) - 0.0005,
			Close:  close,
			Volume: 100,
		})
		prevClose = close
	}
	candles = append(candles, broker.Candle{
		Time: base + int64(n-2)*60, Open: 0.9995, High: 1.0, Low: 0.989, Close: 0.99, Volume: 100,
	})
	candles = append(candles, broker.Candle{
		Time: base + int64(n-1)*60, Open: 0.985, High: 1.025, Low: 0.984, Close: 1.02, Volume: 100,
	})
	return candles
}
