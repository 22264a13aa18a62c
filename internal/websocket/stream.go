package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/StatArbTrader/pairs-bot/internal/cache"
	"github.com/StatArbTrader/pairs-bot/internal/config"
	"github.com/StatArbTrader/pairs-bot/internal/models"
)

// StreamClient keeps a trade stream open for the two pair legs and feeds the
// latest prints into the price cache. The engine runs fine without it; the
// stream only sharpens the prices used for order sizing.
type StreamClient struct {
	cfg         *config.Config
	cache       *cache.Cache
	logger      *zap.Logger
	conn        *websocket.Conn
	mu          sync.RWMutex
	symbols     []string
	ctx         context.Context
	cancel      context.CancelFunc
	isConnected bool
	isAuthed    bool
	attempts    int
	maxAttempts int
}

type messageEnvelope struct {
	MessageType string `json:"T"`
}

type tradeMessage struct {
	T     string          `json:"T"`
	S     string          `json:"S"`
	Price decimal.Decimal `json:"p"`
	Size  int32           `json:"s"`
	Time  time.Time       `json:"t"`
}

type successMessage struct {
	T   string `json:"T"`
	Msg string `json:"msg"`
}

type errorMessage struct {
	T    string `json:"T"`
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// NewStreamClient creates a stream client subscribed to the configured pair.
func NewStreamClient(cfg *config.Config, priceCache *cache.Cache, logger *zap.Logger) *StreamClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &StreamClient{
		cfg:         cfg,
		cache:       priceCache,
		logger:      logger,
		symbols:     []string{cfg.SymbolA, cfg.SymbolB},
		ctx:         ctx,
		cancel:      cancel,
		maxAttempts: 5,
	}
}

// Connect establishes the websocket connection and authenticates
func (c *StreamClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.isConnected = false
		c.isAuthed = false
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.Dial(c.cfg.AlpacaStreamURL, nil)
	if err != nil {
		c.attempts++
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	c.isConnected = true
	c.isAuthed = false
	c.attempts = 0

	auth := struct {
		Action string `json:"action"`
		Key    string `json:"key"`
		Secret string `json:"secret"`
	}{
		Action: "auth",
		Key:    c.cfg.AlpacaKeyID,
		Secret: c.cfg.AlpacaSecretKey,
	}

	if err := c.conn.WriteJSON(auth); err != nil {
		c.conn.Close()
		c.conn = nil
		c.isConnected = false
		return fmt.Errorf("auth write: %w", err)
	}

	go c.handleMessages()

	c.logger.Info("websocket connected",
		zap.String("url", c.cfg.AlpacaStreamURL),
		zap.Strings("symbols", c.symbols),
	)
	return nil
}

// subscribePair requests trade messages for both legs. Called after the
// stream acknowledges authentication.
func (c *StreamClient) subscribePair() error {
	msg := struct {
		Action string   `json:"action"`
		Trades []string `json:"trades"`
	}{
		Action: "subscribe",
		Trades: c.symbols,
	}
	return c.conn.WriteJSON(msg)
}

// handleMessages processes incoming websocket messages
func (c *StreamClient) handleMessages() {
	defer func() {
		c.mu.Lock()
		c.isConnected = false
		c.isAuthed = false
		c.mu.Unlock()

		if c.attempts < c.maxAttempts {
			c.reconnect()
		} else {
			c.logger.Error("max connection attempts reached, stream stays down")
		}
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			var rawMsgs []json.RawMessage

			c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if err := c.conn.ReadJSON(&rawMsgs); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					c.logger.Error("websocket read error", zap.Error(err))
				}
				return
			}

			for _, raw := range rawMsgs {
				c.processMessage(raw)
			}
		}
	}
}

// processMessage handles one stream message
func (c *StreamClient) processMessage(raw json.RawMessage) {
	var env messageEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Error("failed to parse message envelope", zap.Error(err))
		return
	}

	switch env.MessageType {
	case "t":
		var tm tradeMessage
		if err := json.Unmarshal(raw, &tm); err != nil {
			c.logger.Error("failed to parse trade message", zap.Error(err))
			return
		}
		c.cache.SetTrade(&models.Trade{
			Symbol:    tm.S,
			Price:     tm.Price,
			Size:      tm.Size,
			Timestamp: tm.Time,
		})

	case "success":
		var sm successMessage
		if err := json.Unmarshal(raw, &sm); err != nil {
			c.logger.Error("failed to parse success message", zap.Error(err))
			return
		}
		c.logger.Info("stream message", zap.String("msg", sm.Msg))

		if sm.Msg == "authenticated" {
			c.mu.Lock()
			c.isAuthed = true
			c.mu.Unlock()
			if err := c.subscribePair(); err != nil {
				c.logger.Error("failed to subscribe after authentication", zap.Error(err))
			}
		}

	case "error":
		var em errorMessage
		if err := json.Unmarshal(raw, &em); err != nil {
			c.logger.Error("failed to parse error message", zap.Error(err))
			return
		}
		c.logger.Error("stream error",
			zap.Int("code", em.Code),
			zap.String("message", em.Msg),
		)
		if em.Code == 401 {
			c.mu.Lock()
			c.isAuthed = false
			c.mu.Unlock()
		}
	}
}

// reconnect retries with exponential backoff
func (c *StreamClient) reconnect() {
	backoff := 2 * time.Second
	maxBackoff := 60 * time.Second

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(backoff):
			if c.attempts >= c.maxAttempts {
				c.logger.Error("max connection attempts reached, stopping reconnection",
					zap.Int("attempts", c.attempts))
				return
			}

			c.logger.Info("attempting to reconnect",
				zap.Duration("backoff", backoff),
				zap.Int("attempt", c.attempts+1))

			if err := c.Connect(); err != nil {
				c.logger.Error("reconnect failed", zap.Error(err))
				backoff = backoff * 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			} else {
				return
			}
		}
	}
}

// Close gracefully shuts down the stream client
func (c *StreamClient) Close() error {
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		err := c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			c.logger.Error("error sending close message", zap.Error(err))
		}

		closeErr := c.conn.Close()
		c.conn = nil
		c.isConnected = false
		c.isAuthed = false
		return closeErr
	}

	return nil
}
