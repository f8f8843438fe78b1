package simulator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/perpsim/perpsim/internal/entity"
	"github.com/perpsim/perpsim/internal/service/engine"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeed struct {
	prices    []decimal.Decimal
	err       error
	onDrained func()
}

func (f *stubFeed) Subscribe(context.Context) error { return nil }
func (f *stubFeed) Unsubscribe() error              { return nil }
func (f *stubFeed) Close() error                    { return nil }

func (f *stubFeed) NextPrice(ctx context.Context) (decimal.Decimal, error) {
	if len(f.prices) == 0 {
		if f.err != nil {
			return decimal.Zero, f.err
		}
		if f.onDrained != nil {
			f.onDrained()
		}
		<-ctx.Done()
		return decimal.Zero, ctx.Err()
	}

	price := f.prices[0]
	f.prices = f.prices[1:]

	return price, nil
}

type stubCommandStore struct {
	orders    []entity.OrderRequest
	leverages []entity.LeverageRequest
	cancels   []entity.CancelRequest
	takeErr   error

	// deferCancels holds cancels back until the order slot is drained,
	// so a cancel can target an order submitted on an earlier tick.
	deferCancels bool
}

func (s *stubCommandStore) SubmitOrder(_ context.Context, req entity.OrderRequest) error {
	s.orders = append(s.orders, req)
	return nil
}

func (s *stubCommandStore) RequestLeverage(_ context.Context, req entity.LeverageRequest) error {
	s.leverages = append(s.leverages, req)
	return nil
}

func (s *stubCommandStore) RequestCancel(_ context.Context, req entity.CancelRequest) error {
	s.cancels = append(s.cancels, req)
	return nil
}

func (s *stubCommandStore) TakeOrder(context.Context) (*entity.OrderRequest, error) {
	if s.takeErr != nil {
		return nil, s.takeErr
	}
	if len(s.orders) == 0 {
		return nil, nil
	}

	req := s.orders[0]
	s.orders = s.orders[1:]

	return &req, nil
}

func (s *stubCommandStore) TakeLeverage(context.Context) (*entity.LeverageRequest, error) {
	if len(s.leverages) == 0 {
		return nil, nil
	}

	req := s.leverages[0]
	s.leverages = s.leverages[1:]

	return &req, nil
}

func (s *stubCommandStore) TakeCancel(context.Context) (*entity.CancelRequest, error) {
	if len(s.cancels) == 0 {
		return nil, nil
	}
	if s.deferCancels && len(s.orders) > 0 {
		return nil, nil
	}

	req := s.cancels[0]
	s.cancels = s.cancels[1:]

	return &req, nil
}

type stubSnapshotStore struct {
	saved   []entity.Snapshot
	saveErr error
}

func (s *stubSnapshotStore) Save(_ context.Context, snapshot entity.Snapshot) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, snapshot)

	return nil
}

func (s *stubSnapshotStore) Load(context.Context) (entity.Snapshot, bool, error) {
	if len(s.saved) == 0 {
		return entity.Snapshot{}, false, nil
	}

	return s.saved[len(s.saved)-1], true, nil
}

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func newTestSimulator(t *testing.T, feed *stubFeed, commands *stubCommandStore, snapshots *stubSnapshotStore) *Simulator {
	t.Helper()

	eng, err := engine.New(engine.Config{Symbol: "BTCUSDT", StartingBalance: 1000}, nil)
	require.NoError(t, err)

	return New(eng, feed, commands, snapshots)
}

func runUntilFeedDrained(t *testing.T, sim *Simulator, feed *stubFeed) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	feed.onDrained = cancel

	err := sim.Run(ctx)
	require.NoError(t, err)
}

func TestRunPublishesSnapshotPerTick(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{prices: []decimal.Decimal{d("100"), d("105")}}
	snapshots := &stubSnapshotStore{}
	sim := newTestSimulator(t, feed, &stubCommandStore{}, snapshots)

	runUntilFeedDrained(t, sim, feed)

	require.Len(t, snapshots.saved, 2)
	assert.True(t, snapshots.saved[0].Price.Equal(d("100")))
	assert.True(t, snapshots.saved[1].Price.Equal(d("105")))
	assert.Equal(t, "BTCUSDT", snapshots.saved[0].Symbol)
}

func TestRunIngestsCommands(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{prices: []decimal.Decimal{d("100"), d("100")}}
	commands := &stubCommandStore{}
	snapshots := &stubSnapshotStore{}
	sim := newTestSimulator(t, feed, commands, snapshots)

	require.NoError(t, commands.RequestLeverage(context.Background(), entity.LeverageRequest{Leverage: 5}))
	require.NoError(t, commands.SubmitOrder(context.Background(), entity.OrderRequest{
		RequestID: "req-1",
		Side:      entity.OrderSideBuy,
		Quantity:  d("1"),
	}))

	runUntilFeedDrained(t, sim, feed)

	require.Len(t, snapshots.saved, 2)
	last := snapshots.saved[len(snapshots.saved)-1]
	assert.Equal(t, "LONG", last.Position.Side)
	assert.Equal(t, int64(5), last.Leverage)
	assert.True(t, last.Balance.Equal(d("980")), "got %s", last.Balance)
}

func TestRunAppliesCancelBeforeMatching(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{prices: []decimal.Decimal{d("100"), d("100")}}
	commands := &stubCommandStore{deferCancels: true}
	snapshots := &stubSnapshotStore{}

	limit := d("90")
	require.NoError(t, commands.SubmitOrder(context.Background(), entity.OrderRequest{
		RequestID:  "req-1",
		Side:       entity.OrderSideBuy,
		Quantity:   d("1"),
		LimitPrice: &limit,
	}))

	sim := newTestSimulator(t, feed, commands, snapshots)

	// First tick enqueues order 1, second tick cancels it before matching.
	require.NoError(t, commands.RequestCancel(context.Background(), entity.CancelRequest{OrderID: 1}))

	runUntilFeedDrained(t, sim, feed)

	require.Len(t, snapshots.saved, 2)
	assert.Empty(t, snapshots.saved[1].OpenOrders)
}

func TestRunContinuesOnSnapshotSaveFailure(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{prices: []decimal.Decimal{d("100"), d("105")}}
	snapshots := &stubSnapshotStore{saveErr: errors.New("redis down")}
	sim := newTestSimulator(t, feed, &stubCommandStore{}, snapshots)

	runUntilFeedDrained(t, sim, feed)

	assert.Empty(t, snapshots.saved)
}

func TestRunReturnsFeedError(t *testing.T) {
	t.Parallel()

	feedErr := errors.New("stream gone")
	feed := &stubFeed{err: feedErr}
	sim := newTestSimulator(t, feed, &stubCommandStore{}, &stubSnapshotStore{})

	err := sim.Run(context.Background())
	assert.ErrorIs(t, err, feedErr)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{}
	sim := newTestSimulator(t, feed, &stubCommandStore{}, &stubSnapshotStore{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sim.Run(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("simulator did not stop after cancellation")
	}
}
