package clients

import (
	"optobot/clients/broker"
	"optobot/clients/discord"
	"optobot/clients/notifier"
	"optobot/config"
	"optobot/internal/store"

	"go.uber.org/zap"
)

// Clients holds every external dependency of the bot: the broker session,
// the notification channels, and the persistent store.
type Clients struct {
	Logger   *zap.Logger
	Broker   broker.Broker
	Notifier notifier.Notifier
	Store    store.Store
}

// NewClients builds the client set from configuration. An absent session
// credential selects the simulated broker; an absent SQLite path selects the
// no-op store.
func NewClients(logger *zap.Logger, cfg *config.Config) *Clients {
	if logger == nil {
		logger = zap.NewNop()
	}

	var b broker.Broker
	if cfg.Broker.SSID == "" {
		logger.Warn("BROKER_SSID not set, using simulated broker in demo mode")
		b = broker.NewSimClient(logger, cfg.Broker.Demo)
	} else {
		b = broker.NewLiveClient(logger, cfg.Broker.WSURL, cfg.Broker.SSID, cfg.Broker.Demo)
	}

	var st store.Store
	if cfg.Store.SQLitePath == "" {
		logger.Warn("SQLITE_PATH not set, history will not be persisted")
		st = store.NewNoopStore()
	} else {
		sqlStore, err := store.NewSQLiteStore(logger, cfg.Store.SQLitePath)
		if err != nil {
			logger.Error("failed to open sqlite store, history will not be persisted", zap.Error(err))
			st = store.NewNoopStore()
		} else {
			st = sqlStore
		}
	}

	n := notifier.NewMultiNotifier(discord.NewDiscordClient(logger, cfg))

	return &Clients{
		Logger:   logger,
		Broker:   b,
		Notifier: n,
		Store:    st,
	}
}

// Close tears down all clients.
func (c *Clients) Close() {
	if err := c.Notifier.Close(); err != nil {
		c.Logger.Error("failed to close notifier", zap.Error(err))
	}
	if err := c.Store.Close(); err != nil {
		c.Logger.Error("failed to close store", zap.Error(err))
	}
	if err := c.Broker.Close(); err != nil {
		c.Logger.Error("failed to close broker", zap.Error(err))
	}
}
