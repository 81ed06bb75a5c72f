package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	livePingInterval = 10 * time.Second
	liveCallTimeout  = 10 * time.Second
)

// LiveClient is the real broker session: a websocket connection carrying
// request/response frames, authorized by the session credential.
type LiveClient struct {
	logger *zap.Logger
	url    string
	ssid   string
	demo   bool
	dialer *websocket.Dialer

	connMu  sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	closeCh chan struct{}

	nextID    uint64
	pendingMu sync.Mutex
	pending   map[uint64]chan rpcFrame
}

type rpcFrame struct {
	ID     uint64          `json:"id"`
	Action string          `json:"action,omitempty"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func NewLiveClient(logger *zap.Logger, url, ssid string, demo bool) *LiveClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveClient{
		logger:  logger.Named("live-broker"),
		url:     url,
		ssid:    ssid,
		demo:    demo,
		dialer:  websocket.DefaultDialer,
		closeCh: make(chan struct{}),
		pending: make(map[uint64]chan rpcFrame),
	}
}

func (c *LiveClient) Connect(ctx context.Context) error {
	c.connMu.Lock()
	alreadyConnected := c.conn != nil
	c.connMu.Unlock()
	if alreadyConnected {
		return fmt.Errorf("already connected")
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial broker ws: %w", err)
	}

	conn.SetCloseHandler(func(code int, text string) error {
		c.logger.Warn("broker ws close frame received",
			zap.Int("code", code),
			zap.String("reason", text),
		)
		return nil
	})

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	go c.readLoop()
	go c.pingLoop()

	auth := map[string]any{
		"action": "auth",
		"ssid":   c.ssid,
		"demo":   c.demo,
	}
	var ack struct {
		Authorized bool `json:"authorized"`
	}
	if err := c.call(ctx, "auth", auth, &ack); err != nil {
		_ = c.Close()
		return fmt.Errorf("session auth: %w", err)
	}
	if !ack.Authorized {
		_ = c.Close()
		return fmt.Errorf("session credential rejected")
	}

	c.logger.Info("broker session connected", zap.Bool("demo", c.demo))
	return nil
}

func (c *LiveClient) IsConnected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn != nil
}

func (c *LiveClient) Simulated() bool { return false }

func (c *LiveClient) Balance(ctx context.Context) (float64, error) {
	var out struct {
		Balance float64 `json:"balance"`
	}
	if err := c.call(ctx, "balance", nil, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

func (c *LiveClient) Tournaments(ctx context.Context) ([]Tournament, error) {
	var out struct {
		Tournaments []Tournament `json:"tournaments"`
	}
	if err := c.call(ctx, "tournaments", nil, &out); err != nil {
		return nil, err
	}
	return out.Tournaments, nil
}

func (c *LiveClient) JoinTournament(ctx context.Context, id string) error {
	var out struct {
		Joined bool `json:"joined"`
	}
	if err := c.call(ctx, "join_tournament", map[string]any{"tournament_id": id}, &out); err != nil {
		return err
	}
	if !out.Joined {
		return fmt.Errorf("broker refused join for tournament %q", id)
	}
	return nil
}

func (c *LiveClient) PlaceTrade(ctx context.Context, asset string, amount float64, direction string, expiration int64) (string, error) {
	req := map[string]any{
		"asset":      asset,
		"amount":     amount,
		"direction":  direction,
		"expiration": expiration,
	}
	var out struct {
		TradeID string `json:"trade_id"`
	}
	if err := c.call(ctx, "place_trade", req, &out); err != nil {
		return "", err
	}
	if out.TradeID == "" {
		return "", fmt.Errorf("broker returned empty trade id")
	}
	return out.TradeID, nil
}

func (c *LiveClient) TradeOutcome(ctx context.Context, id string) (string, error) {
	var out struct {
		Outcome string `json:"outcome"`
	}
	if err := c.call(ctx, "trade_outcome", map[string]any{"trade_id": id}, &out); err != nil {
		return "", err
	}
	return out.Outcome, nil
}

func (c *LiveClient) Candles(ctx context.Context, asset string, timeframe, count int) ([]Candle, error) {
	req := map[string]any{
		"asset":     asset,
		"timeframe": timeframe,
		"count":     count,
	}
	var out struct {
		Candles []Candle `json:"candles"`
	}
	if err := c.call(ctx, "candles", req, &out); err != nil {
		return nil, err
	}
	return out.Candles, nil
}

func (c *LiveClient) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	select {
	case <-c.closeCh:
	default:
		close(c.closeCh)
	}

	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}

	c.failPending(fmt.Errorf("connection closed"))
	return err
}

// call sends one request frame and waits for the matching response.
func (c *LiveClient) call(ctx context.Context, action string, payload any, out any) error {
	id := atomic.AddUint64(&c.nextID, 1)
	respCh := make(chan rpcFrame, 1)

	c.pendingMu.Lock()
	c.pending[id] = respCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", action, err)
	}
	if err := c.writeJSON(rpcFrame{ID: id, Action: action, Data: data}); err != nil {
		return fmt.Errorf("send %s: %w", action, err)
	}

	timer := time.NewTimer(liveCallTimeout)
	defer timer.Stop()

	select {
	case resp := <-respCh:
		if resp.Error != "" {
			return fmt.Errorf("%s failed: %s", action, resp.Error)
		}
		if out == nil || len(resp.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("decode %s response: %w", action, err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%s timed out", action)
	case <-c.closeCh:
		return fmt.Errorf("connection closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *LiveClient) writeJSON(v any) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func (c *LiveClient) readLoop() {
	for {
		select {
		case <-c.closeCh:
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			return
		}

		_, b, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("broker ws read loop exiting", zap.Error(err))
			_ = c.Close()
			return
		}

		if string(b) == "PONG" || string(b) == "PING" {
			continue
		}

		var frame rpcFrame
		if err := json.Unmarshal(b, &frame); err != nil {
			c.logger.Warn("broker ws bad frame", zap.Error(err), zap.ByteString("frame", b))
			continue
		}
		c.dispatch(frame)
	}
}

func (c *LiveClient) dispatch(frame rpcFrame) {
	c.pendingMu.Lock()
	ch, ok := c.pending[frame.ID]
	c.pendingMu.Unlock()
	if !ok {
		// Unsolicited frame (server push); nothing consumes these yet.
		return
	}
	select {
	case ch <- frame:
	default:
	}
}

func (c *LiveClient) failPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		select {
		case ch <- rpcFrame{ID: id, Error: err.Error()}:
		default:
		}
	}
}

func (c *LiveClient) pingLoop() {
	t := time.NewTicker(livePingInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			c.connMu.Lock()
			conn := c.conn
			c.connMu.Unlock()
			if conn != nil {
				c.writeMu.Lock()
				_ = conn.WriteMessage(websocket.TextMessage, []byte("PING"))
				c.writeMu.Unlock()
			}
		case <-c.closeCh:
			return
		}
	}
}
