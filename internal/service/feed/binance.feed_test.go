package feed

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMiniTickerPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		want    string
		ok      bool
	}{
		{
			"mini ticker frame",
			`{"e":"24hrMiniTicker","E":1700000000000,"s":"BTCUSDT","c":"42150.70","o":"41800.00","h":"42500.00","l":"41500.00","v":"1000","q":"42000000"}`,
			"42150.70",
			true,
		},
		{"subscribe ack", `{"result":null,"id":1}`, "", false},
		{"missing close", `{"e":"24hrMiniTicker","s":"BTCUSDT"}`, "", false},
		{"zero price", `{"e":"24hrMiniTicker","c":"0"}`, "", false},
		{"negative price", `{"e":"24hrMiniTicker","c":"-1"}`, "", false},
		{"non numeric price", `{"e":"24hrMiniTicker","c":"abc"}`, "", false},
		{"not json", `ping`, "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			price, ok := parseMiniTickerPrice([]byte(tt.message))
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, price.Equal(decimal.RequireFromString(tt.want)), "got %s", price)
			}
		})
	}
}

func TestStreamName(t *testing.T) {
	t.Parallel()

	feed := NewBinanceFeed(" BTCUSDT ", "")
	assert.Equal(t, "btcusdt@miniTicker", feed.streamName())
}

func TestReconnectDelayBounds(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	for attempt := 0; attempt < 20; attempt++ {
		delay := reconnectDelay(attempt, rng)
		assert.GreaterOrEqual(t, delay, 1*time.Second, "attempt %d", attempt)
		assert.LessOrEqual(t, delay, 15*time.Second, "attempt %d", attempt)
	}
}
