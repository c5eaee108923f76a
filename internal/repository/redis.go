package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/config"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/risk"
	"github.com/redis/go-redis/v9"
)

func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// addPosition stores the body and appends the id to the open order in one
// step, so a failed write never leaves a body that List cannot see.
var addPosition = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 0 then
	return 0
end
local seq = redis.call('INCR', KEYS[3])
redis.call('ZADD', KEYS[2], seq, ARGV[1])
return 1
`)

var removePosition = redis.NewScript(`
local body = redis.call('HGET', KEYS[1], ARGV[1])
if not body then
	return false
end
redis.call('HDEL', KEYS[1], ARGV[1])
redis.call('ZREM', KEYS[2], ARGV[1])
return body
`)

// RedisPositionRepo stores positions as JSON in a hash, with a sorted set
// ordering ids by a per-book sequence. All keys share the {key} hash tag so
// the scripts also run on a cluster.
type RedisPositionRepo struct {
	client   redis.UniversalClient
	hashKey  string
	orderKey string
	seqKey   string
}

func NewRedisPositionRepo(client redis.UniversalClient, key string) *RedisPositionRepo {
	if key == "" {
		key = "polystrat:positions"
	}
	tag := "{" + key + "}"
	return &RedisPositionRepo{
		client:   client,
		hashKey:  tag,
		orderKey: tag + ":order",
		seqKey:   tag + ":seq",
	}
}

func (r *RedisPositionRepo) List(ctx context.Context) ([]risk.Position, error) {
	ids, err := r.client.ZRange(ctx, r.orderKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []risk.Position{}, nil
	}
	vals, err := r.client.HMGet(ctx, r.hashKey, ids...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]risk.Position, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// Removed between the two reads.
			continue
		}
		p, err := decodePosition(s)
		if err != nil {
			return nil, fmt.Errorf("position %s: %w", ids[i], err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *RedisPositionRepo) Add(ctx context.Context, p risk.Position) error {
	body, err := encodePosition(p)
	if err != nil {
		return err
	}
	keys := []string{r.hashKey, r.orderKey, r.seqKey}
	added, err := addPosition.Run(ctx, r.client, keys, p.ID, body).Int()
	if err != nil {
		return err
	}
	if added == 0 {
		return apperrors.NewInvalidRequest(fmt.Sprintf("position %s already exists", p.ID))
	}
	return nil
}

func (r *RedisPositionRepo) Remove(ctx context.Context, id string) (risk.Position, error) {
	body, err := removePosition.Run(ctx, r.client, []string{r.hashKey, r.orderKey}, id).Text()
	if errors.Is(err, redis.Nil) {
		return risk.Position{}, apperrors.NewNotFound(fmt.Sprintf("position %s not found", id))
	}
	if err != nil {
		return risk.Position{}, err
	}
	return decodePosition(body)
}

func encodePosition(p risk.Position) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodePosition(s string) (risk.Position, error) {
	var p risk.Position
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return risk.Position{}, err
	}
	return p, nil
}
