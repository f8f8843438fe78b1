package feed

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultBinanceWSURL = "wss://fstream.binance.com/ws"

	wsReconnectMinDelay = 1 * time.Second
	wsReconnectMaxDelay = 15 * time.Second
	wsReconnectFactor   = 2.0
	wsMaxReconnects     = 10
	wsPingInterval      = 2 * time.Minute
)

type subscribeFrame struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// BinanceFeed streams miniTicker close prices for one symbol over the
// Binance futures websocket. It is single-consumer: the tick loop is the
// only caller of NextPrice.
type BinanceFeed struct {
	symbol   string
	wsURL    string
	conn     *websocket.Conn
	stopPing chan struct{}
	rng      *rand.Rand
}

func NewBinanceFeed(symbol, wsURL string) *BinanceFeed {
	if strings.TrimSpace(wsURL) == "" {
		wsURL = defaultBinanceWSURL
	}

	return &BinanceFeed{
		symbol: strings.ToLower(strings.TrimSpace(symbol)),
		wsURL:  wsURL,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Subscribe dials the stream and performs the miniTicker subscribe
// handshake. The first frame after SUBSCRIBE is the acknowledgement and
// is consumed here.
func (f *BinanceFeed) Subscribe(ctx context.Context) error {
	logrus.Infof("connecting to %s", f.wsURL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial binance ws: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		return nil
	})

	if err := conn.WriteJSON(subscribeFrame{
		Method: "SUBSCRIBE",
		Params: []string{f.streamName()},
		ID:     1,
	}); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe %s: %w", f.streamName(), err)
	}

	// subscribe acknowledgement
	if _, _, err := conn.ReadMessage(); err != nil {
		conn.Close()
		return fmt.Errorf("read subscribe ack: %w", err)
	}

	f.conn = conn
	f.startPingLoop(ctx)

	logrus.WithField("stream", f.streamName()).Info("binance feed subscribed")

	return nil
}

// NextPrice blocks until the next tick arrives. Malformed frames are
// skipped. A broken connection is redialed with capped exponential
// backoff; the error is returned only once reconnection is exhausted.
func (f *BinanceFeed) NextPrice(ctx context.Context) (decimal.Decimal, error) {
	for {
		if err := ctx.Err(); err != nil {
			return decimal.Zero, err
		}

		_, message, err := f.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return decimal.Zero, ctx.Err()
			}

			logrus.Errorf("binance ws read failed: %v", err)
			if err := f.reconnect(ctx); err != nil {
				return decimal.Zero, err
			}
			continue
		}

		price, ok := parseMiniTickerPrice(message)
		if !ok {
			continue
		}

		return price, nil
	}
}

// Unsubscribe sends the unsubscribe frame without closing the connection.
func (f *BinanceFeed) Unsubscribe() error {
	if f.conn == nil {
		return nil
	}

	return f.conn.WriteJSON(subscribeFrame{
		Method: "UNSUBSCRIBE",
		Params: []string{f.streamName()},
		ID:     1,
	})
}

func (f *BinanceFeed) Close() error {
	if f.stopPing != nil {
		close(f.stopPing)
		f.stopPing = nil
	}
	if f.conn == nil {
		return nil
	}

	_ = f.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	return f.conn.Close()
}

func (f *BinanceFeed) reconnect(ctx context.Context) error {
	if f.stopPing != nil {
		close(f.stopPing)
		f.stopPing = nil
	}
	if f.conn != nil {
		_ = f.conn.Close()
		f.conn = nil
	}

	var lastErr error
	for attempt := 0; attempt < wsMaxReconnects; attempt++ {
		wait := reconnectDelay(attempt, f.rng)
		logrus.WithFields(logrus.Fields{
			"attempt":  attempt + 1,
			"retry_in": wait.String(),
		}).Warn("reconnecting binance ws")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := f.Subscribe(ctx); err != nil {
			lastErr = err
			continue
		}

		return nil
	}

	return fmt.Errorf("reconnect binance ws after %d attempts: %w", wsMaxReconnects, lastErr)
}

func (f *BinanceFeed) startPingLoop(ctx context.Context) {
	stop := make(chan struct{})
	f.stopPing = stop

	go func(conn *websocket.Conn) {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					logrus.Error(err)
					return
				}
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}(f.conn)
}

func (f *BinanceFeed) streamName() string {
	return fmt.Sprintf("%s@miniTicker", f.symbol)
}

func parseMiniTickerPrice(message []byte) (decimal.Decimal, bool) {
	var payload struct {
		Event string `json:"e"`
		Close string `json:"c"`
	}

	if err := json.Unmarshal(message, &payload); err != nil {
		return decimal.Zero, false
	}

	if payload.Close == "" {
		return decimal.Zero, false
	}

	price, err := decimal.NewFromString(payload.Close)
	if err != nil || price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, false
	}

	return price, true
}

func reconnectDelay(attempt int, rng *rand.Rand) time.Duration {
	backoff := float64(wsReconnectMinDelay) * math.Pow(wsReconnectFactor, float64(attempt))
	if backoff > float64(wsReconnectMaxDelay) {
		backoff = float64(wsReconnectMaxDelay)
	}

	base := time.Duration(backoff)
	jitterWindow := wsReconnectMaxDelay - wsReconnectMinDelay
	if jitterWindow <= 0 {
		return base
	}

	jitter := time.Duration(rng.Int63n(int64(jitterWindow) + 1))
	result := base + jitter
	if result > wsReconnectMaxDelay {
		return wsReconnectMaxDelay
	}

	return result
}
