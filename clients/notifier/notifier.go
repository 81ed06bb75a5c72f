package notifier

import "time"

// TradeNotice contains the data for a trade resolution notification.
type TradeNotice struct {
	TradeID    string
	Asset      string
	Direction  string // call or put
	Amount     float64
	Confidence float64
	Outcome    string // empty while the trade is still open
	Balance    float64
	Simulated  bool
	Timestamp  time.Time
}

// TournamentNotice contains the data for a tournament join notification.
type TournamentNotice struct {
	TournamentID string
	Name         string
	PrizePool    float64
	Participants int
	Timestamp    time.Time
}

// Notifier is the interface for pushing bot events to external channels.
type Notifier interface {
	// SendTradeNotice announces a placed or resolved trade.
	SendTradeNotice(notice TradeNotice)

	// SendTournamentNotice announces a tournament entry.
	SendTournamentNotice(notice TournamentNotice)

	// SendMessage sends a plain text message.
	SendMessage(message string)

	// Close cleans up any resources.
	Close() error
}

// MultiNotifier broadcasts events to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a new MultiNotifier with the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	// Filter out nil notifiers
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &MultiNotifier{notifiers: active}
}

func (m *MultiNotifier) SendTradeNotice(notice TradeNotice) {
	for _, n := range m.notifiers {
		n.SendTradeNotice(notice)
	}
}

func (m *MultiNotifier) SendTournamentNotice(notice TournamentNotice) {
	for _, n := range m.notifiers {
		n.SendTournamentNotice(notice)
	}
}

func (m *MultiNotifier) SendMessage(message string) {
	for _, n := range m.notifiers {
		n.SendMessage(message)
	}
}

// Close closes all registered notifiers.
func (m *MultiNotifier) Close() error {
	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Count returns the number of active notifiers.
func (m *MultiNotifier) Count() int {
	return len(m.notifiers)
}
