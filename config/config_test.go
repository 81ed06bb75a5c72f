package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Broker.SSID != "" {
		t.Errorf("expected empty SSID by default, got %q", cfg.Broker.SSID)
	}
	if !cfg.Broker.Demo {
		t.Error("expected demo mode by default")
	}
	if cfg.Broker.DefaultAsset != "EURUSD_otc" {
		t.Errorf("unexpected default asset %q", cfg.Broker.DefaultAsset)
	}
	if cfg.Bot.HeartbeatInterval != 5*time.Second {
		t.Errorf("unexpected heartbeat interval %v", cfg.Bot.HeartbeatInterval)
	}
	if cfg.Bot.BridgeBudget != 10*time.Second {
		t.Errorf("unexpected bridge budget %v", cfg.Bot.BridgeBudget)
	}
	if cfg.Bot.MinConfidence != 0.75 {
		t.Errorf("unexpected min confidence %v", cfg.Bot.MinConfidence)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("unexpected port %d", cfg.Server.Port)
	}
}

func TestLoadForcesDemoWithoutSSID(t *testing.T) {
	t.Setenv("BROKER_SSID", "")
	t.Setenv("BROKER_DEMO", "false")

	cfg := Load()
	if !cfg.Broker.Demo {
		t.Error("missing SSID must force demo mode")
	}
}

func TestLoadRespectsDemoFlagWithSSID(t *testing.T) {
	t.Setenv("BROKER_SSID", "session-token")
	t.Setenv("BROKER_DEMO", "false")

	cfg := Load()
	if cfg.Broker.Demo {
		t.Error("demo=false should hold when an SSID is set")
	}
	if cfg.Broker.SSID != "session-token" {
		t.Errorf("unexpected SSID %q", cfg.Broker.SSID)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HEARTBEAT_INTERVAL", "250ms")
	t.Setenv("MAX_TRADES_PER_HOUR", "3")
	t.Setenv("TRADE_AMOUNT", "2.5")

	cfg := Load()
	if cfg.Bot.HeartbeatInterval != 250*time.Millisecond {
		t.Errorf("duration override ignored: %v", cfg.Bot.HeartbeatInterval)
	}
	if cfg.Bot.MaxTradesPerHour != 3 {
		t.Errorf("int override ignored: %d", cfg.Bot.MaxTradesPerHour)
	}
	if cfg.Broker.TradeAmount != 2.5 {
		t.Errorf("float override ignored: %v", cfg.Broker.TradeAmount)
	}
}

func TestTimeframeValidation(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"60", 60},
		{"300", 300},
		{"900", 900},
		{"3600", 3600},
		{"45", 60},
		{"-60", 60},
		{"7200", 60},
	}
	for _, c := range cases {
		t.Setenv("DEFAULT_TIMEFRAME", c.in)
		if got := Load().Broker.DefaultTimeframe; got != c.want {
			t.Errorf("DEFAULT_TIMEFRAME=%s: got %d, want %d", c.in, got, c.want)
		}
	}
}

func TestEnvParseFailuresFallBack(t *testing.T) {
	t.Setenv("HEARTBEAT_INTERVAL", "soon")
	t.Setenv("PORT", "eighty")

	cfg := Load()
	if cfg.Bot.HeartbeatInterval != 5*time.Second {
		t.Errorf("bad duration should fall back to default, got %v", cfg.Bot.HeartbeatInterval)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("bad int should fall back to default, got %d", cfg.Server.Port)
	}
}
