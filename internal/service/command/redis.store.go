package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/perpsim/perpsim/internal/constant"
	"github.com/perpsim/perpsim/internal/entity"
	"github.com/redis/go-redis/v9"
)

func NewRedisClient(cacheDSN string) (*redis.Client, error) {
	if cacheDSN == "" {
		return nil, fmt.Errorf("redis cache_dsn is required")
	}

	options, err := redis.ParseURL(cacheDSN)
	if err != nil {
		return nil, fmt.Errorf("parse redis cache_dsn: %w", err)
	}

	return redis.NewClient(options), nil
}

// RedisCommandStore keeps one single-slot key per command kind. A new
// submission overwrites an unconsumed one; the engine consumes each slot
// with GETDEL once per tick, so a command is delivered at most once.
type RedisCommandStore struct {
	client *redis.Client
	symbol string
}

func NewRedisCommandStore(client *redis.Client, symbol string) *RedisCommandStore {
	return &RedisCommandStore{client: client, symbol: symbol}
}

func (s *RedisCommandStore) SubmitOrder(ctx context.Context, req entity.OrderRequest) error {
	return s.setSlot(ctx, constant.CommandOrderKey(s.symbol), req)
}

func (s *RedisCommandStore) RequestLeverage(ctx context.Context, req entity.LeverageRequest) error {
	return s.setSlot(ctx, constant.CommandLeverageKey(s.symbol), req)
}

func (s *RedisCommandStore) RequestCancel(ctx context.Context, req entity.CancelRequest) error {
	return s.setSlot(ctx, constant.CommandCancelKey(s.symbol), req)
}

func (s *RedisCommandStore) TakeOrder(ctx context.Context) (*entity.OrderRequest, error) {
	var req entity.OrderRequest
	found, err := s.takeSlot(ctx, constant.CommandOrderKey(s.symbol), &req)
	if err != nil || !found {
		return nil, err
	}

	return &req, nil
}

func (s *RedisCommandStore) TakeLeverage(ctx context.Context) (*entity.LeverageRequest, error) {
	var req entity.LeverageRequest
	found, err := s.takeSlot(ctx, constant.CommandLeverageKey(s.symbol), &req)
	if err != nil || !found {
		return nil, err
	}

	return &req, nil
}

func (s *RedisCommandStore) TakeCancel(ctx context.Context) (*entity.CancelRequest, error) {
	var req entity.CancelRequest
	found, err := s.takeSlot(ctx, constant.CommandCancelKey(s.symbol), &req)
	if err != nil || !found {
		return nil, err
	}

	return &req, nil
}

func (s *RedisCommandStore) setSlot(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, key, payload, 0).Err()
}

func (s *RedisCommandStore) takeSlot(ctx context.Context, key string, out any) (bool, error) {
	raw, err := s.client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, err
	}

	return true, nil
}

// RedisSnapshotStore holds the latest engine snapshot under a single key,
// overwritten in full every tick.
type RedisSnapshotStore struct {
	client *redis.Client
	symbol string
}

func NewRedisSnapshotStore(client *redis.Client, symbol string) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, symbol: symbol}
}

func (s *RedisSnapshotStore) Save(ctx context.Context, snapshot entity.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, constant.SnapshotKey(s.symbol), payload, 0).Err()
}

func (s *RedisSnapshotStore) Load(ctx context.Context) (entity.Snapshot, bool, error) {
	raw, err := s.client.Get(ctx, constant.SnapshotKey(s.symbol)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entity.Snapshot{}, false, nil
		}
		return entity.Snapshot{}, false, err
	}

	var snapshot entity.Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return entity.Snapshot{}, false, err
	}

	return snapshot, true, nil
}
