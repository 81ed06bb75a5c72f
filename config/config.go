package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. It is read once at startup;
// there is no hot reload.
type Config struct {
	// Broker session
	Broker BrokerConfig

	// Discord notifications
	Discord DiscordConfig

	// Persistent store
	Store StoreConfig

	// Supervisor loops and bridge
	Bot BotConfig

	// Control API
	Server ServerConfig
}

// BrokerConfig holds broker session configuration.
type BrokerConfig struct {
	SSID  string // session credential; empty forces simulation mode
	Demo  bool   // demo account (forced true when SSID is empty)
	WSURL string // live session websocket endpoint

	DefaultAsset     string
	DefaultTimeframe int     // seconds, one of 60/300/900/3600
	TradeAmount      float64 // stake per placed trade
}

// DiscordConfig holds Discord-related configuration.
type DiscordConfig struct {
	BotToken  string
	ChannelID string
}

// StoreConfig holds persistent store configuration.
type StoreConfig struct {
	SQLitePath string // empty disables persistence (no-op store)
}

// BotConfig holds supervisor loop cadences, the daily-join window, and the
// bridge wait budget. Tests shrink these; production values match the
// defaults below.
type BotConfig struct {
	HeartbeatInterval  time.Duration // connection loop liveness check
	ExecutorInterval   time.Duration // trade executor tick
	LearnInterval      time.Duration // knowledge learner pass
	TournamentGrace    time.Duration // startup grace before first join attempt
	TournamentInterval time.Duration // join attempt cadence
	DailyJoinWindow    time.Duration // minimum gap between real daily joins

	BridgeBudget     time.Duration // max caller wait on bridged work
	MinConfidence    float64       // initial agent confidence threshold
	MaxTradesPerHour int           // executor rate limit

	ReportCron string // daily summary schedule (cron spec with seconds)
}

// ServerConfig holds control API configuration.
type ServerConfig struct {
	Port int
}

// Load loads configuration from environment variables with defaults.
// An absent session credential forces demo mode regardless of BROKER_DEMO.
func Load() *Config {
	ssid := envString("BROKER_SSID", "")
	demo := envBoolDefault("BROKER_DEMO", true)
	if ssid == "" {
		demo = true
	}

	return &Config{
		Broker: BrokerConfig{
			SSID:  ssid,
			Demo:  demo,
			WSURL: envString("BROKER_WS_URL", "wss://api.broker.example/ws"),

			DefaultAsset:     envString("DEFAULT_ASSET", "EURUSD_otc"),
			DefaultTimeframe: validTimeframe(envInt("DEFAULT_TIMEFRAME", 60)),
			TradeAmount:      envFloat("TRADE_AMOUNT", 10.0),
		},

		Discord: DiscordConfig{
			BotToken:  envString("DISCORD_BOT_TOKEN", ""),
			ChannelID: envString("DISCORD_CHANNEL_ID", ""),
		},

		Store: StoreConfig{
			SQLitePath: envString("SQLITE_PATH", "data/optobot.db"),
		},

		Bot: BotConfig{
			HeartbeatInterval:  envDuration("HEARTBEAT_INTERVAL", 5*time.Second),
			ExecutorInterval:   envDuration("EXECUTOR_INTERVAL", 1*time.Second),
			LearnInterval:      envDuration("LEARN_INTERVAL", 1*time.Hour),
			TournamentGrace:    envDuration("TOURNAMENT_GRACE", 30*time.Second),
			TournamentInterval: envDuration("TOURNAMENT_INTERVAL", 1*time.Hour),
			DailyJoinWindow:    envDuration("DAILY_JOIN_WINDOW", 4*time.Hour),

			BridgeBudget:     envDuration("BRIDGE_BUDGET", 10*time.Second),
			MinConfidence:    envFloat("MIN_CONFIDENCE", 0.75),
			MaxTradesPerHour: envInt("MAX_TRADES_PER_HOUR", 10),

			ReportCron: envString("REPORT_CRON", "0 0 0 * * *"),
		},

		Server: ServerConfig{
			Port: envInt("PORT", 5000),
		},
	}
}

// validTimeframe restricts the bar size to the broker-supported values,
// falling back to 60 seconds.
func validTimeframe(tf int) int {
	switch tf {
	case 60, 300, 900, 3600:
		return tf
	}
	return 60
}

// Helper functions for parsing environment variables

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}
