package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Server is the HTTP control surface. Read endpoints take snapshots through
// the bridge so they never race the dispatcher; control actions drive the
// bot's lifecycle.
type Server struct {
	logger *zap.Logger
	bot    *Bot
	srv    *http.Server
}

func NewServer(logger *zap.Logger, bot *Bot, port int) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger: logger.Named("server"),
		bot:    bot,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/market/analysis", s.handleAnalysis)
	mux.HandleFunc("/api/trades/history", s.handleTrades)
	mux.HandleFunc("/api/tournaments/free", s.handleFreeTournaments)
	mux.HandleFunc("/api/control", s.handleControl)

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(dashboardHTML))
	})

	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return s
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("control server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("control server error", zap.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	v, err := s.bot.Bridge().Submit(func() (any, error) {
		return s.bot.statusLocked(), nil
	})
	s.respond(w, v, err)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	v, err := s.bot.Bridge().Submit(func() (any, error) {
		return s.bot.analysisLocked(), nil
	})
	s.respond(w, v, err)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	v, err := s.bot.Bridge().Submit(func() (any, error) {
		return s.bot.executor.Stats(), nil
	})
	s.respond(w, v, err)
}

func (s *Server) handleFreeTournaments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	v, err := s.bot.Bridge().Submit(func() (any, error) {
		return s.bot.scheduler.FreeActive(ctx), nil
	})
	s.respond(w, v, err)
}

type controlRequest struct {
	Action       string  `json:"action"`
	TournamentID string  `json:"id,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	switch req.Action {
	case "start":
		if err := s.bot.Start(); err != nil {
			s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"message": "Bot started."})

	case "stop":
		if err := s.bot.Stop(); err != nil {
			s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"message": "Bot stopped."})

	case "join_tournament":
		ctx := r.Context()
		_, err := s.bot.Bridge().Submit(func() (any, error) {
			return nil, s.bot.scheduler.JoinByID(ctx, req.TournamentID, s.bot.now())
		})
		if errors.Is(err, ErrBridgeTimeout) {
			s.writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": err.Error()})
			return
		}
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{
				"message": fmt.Sprintf("Failed to join tournament ID: %s", req.TournamentID),
				"error":   err.Error(),
			})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Successfully joined tournament ID: %s", req.TournamentID),
		})

	case "set_confidence":
		_, err := s.bot.Bridge().Submit(func() (any, error) {
			s.bot.agent.SetMinConfidence(req.Confidence)
			return s.bot.agent.MinConfidence(), nil
		})
		if err != nil {
			s.respond(w, nil, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"message": "Confidence updated."})

	default:
		s.writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": fmt.Sprintf("Unknown action: %s", req.Action),
		})
	}
}

// respond maps bridged results onto HTTP: timeout to 504, other errors to
// 500, everything else to 200 JSON.
func (s *Server) respond(w http.ResponseWriter, v any, err error) {
	if errors.Is(err, ErrBridgeTimeout) {
		s.writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Optobot Dashboard</title>
    <style>
        :root {
            --bg-primary: #0d1117;
            --bg-secondary: #161b22;
            --border-color: #30363d;
            --text-primary: #c9d1d9;
            --text-secondary: #8b949e;
            --accent-blue: #58a6ff;
            --accent-green: #3fb950;
            --accent-red: #f85149;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, monospace;
            background: var(--bg-primary);
            color: var(--text-primary);
            padding: 20px;
            line-height: 1.5;
        }
        h1 { color: var(--accent-blue); margin-bottom: 20px; font-size: 24px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(300px, 1fr)); gap: 20px; }
        .card {
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 16px;
        }
        .card h3 { color: var(--accent-blue); font-size: 16px; margin-bottom: 12px; }
        .stat-row { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid var(--border-color); }
        .stat-row:last-child { border-bottom: none; }
        .stat-label { color: var(--text-secondary); }
        .stat-value { font-weight: 600; }
        .green { color: var(--accent-green); }
        .red { color: var(--accent-red); }
        .controls { margin-bottom: 20px; display: flex; gap: 10px; }
        button {
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            border-radius: 6px;
            padding: 8px 16px;
            color: var(--text-primary);
            cursor: pointer;
        }
        button:hover { border-color: var(--accent-blue); }
        .trade-item { padding: 8px 0; border-bottom: 1px solid var(--border-color); font-size: 13px; }
        .trade-item:last-child { border-bottom: none; }
    </style>
</head>
<body>
    <h1>🤖 Optobot Dashboard</h1>
    <div class="controls">
        <button onclick="control('start')">▶ Start</button>
        <button onclick="control('stop')">⏹ Stop</button>
    </div>
    <div class="grid">
        <div class="card">
            <h3>Status</h3>
            <div class="stat-row"><span class="stat-label">Running</span><span id="running" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Connected</span><span id="connected" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Mode</span><span id="mode" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Balance</span><span id="balance" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Asset</span><span id="asset" class="stat-value">-</span></div>
        </div>
        <div class="card">
            <h3>Trading</h3>
            <div class="stat-row"><span class="stat-label">Trades This Hour</span><span id="tradesHour" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Pending</span><span id="pending" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Total Trades</span><span id="totalTrades" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Win Rate</span><span id="winRate" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Min Confidence</span><span id="minConf" class="stat-value">-</span></div>
        </div>
        <div class="card">
            <h3>Recent Trades</h3>
            <div id="recentTrades"><span class="stat-label">No trades yet</span></div>
        </div>
    </div>
    <script>
        function control(action) {
            fetch('/api/control', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({action: action})
            }).then(refresh);
        }
        function refresh() {
            fetch('/api/status').then(r => r.json()).then(s => {
                document.getElementById('running').textContent = s.is_running ? 'Yes' : 'No';
                document.getElementById('running').className = 'stat-value ' + (s.is_running ? 'green' : 'red');
                document.getElementById('connected').textContent = s.connected ? 'Yes' : 'No';
                document.getElementById('connected').className = 'stat-value ' + (s.connected ? 'green' : 'red');
                document.getElementById('mode').textContent = s.simulation_mode ? 'Simulation' : 'Live';
                document.getElementById('balance').textContent = '$' + s.balance.toFixed(2);
                document.getElementById('asset').textContent = s.current_asset;
                document.getElementById('tradesHour').textContent = s.trades_this_hour;
                document.getElementById('pending').textContent = s.pending_trades;
                document.getElementById('totalTrades').textContent = s.total_trades;
                document.getElementById('winRate').textContent = (s.agent_stats.win_rate * 100).toFixed(1) + '%';
                document.getElementById('minConf').textContent = (s.agent_stats.min_confidence * 100).toFixed(0) + '%';
            }).catch(() => {});
            fetch('/api/trades/history').then(r => r.json()).then(t => {
                const el = document.getElementById('recentTrades');
                if (t.recent_trades && t.recent_trades.length > 0) {
                    el.innerHTML = t.recent_trades.slice().reverse().map(tr =>
                        '<div class="trade-item"><span class="' + (tr.outcome === 'win' ? 'green' : 'red') + '">' +
                        tr.outcome.toUpperCase() + '</span> ' + tr.asset + ' ' + tr.direction +
                        ' $' + tr.amount.toFixed(2) + '</div>'
                    ).join('');
                }
            }).catch(() => {});
        }
        refresh();
        setInterval(refresh, 2000);
    </script>
</body>
</html>
`
