package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/chess-duel-bot/internal/domain"
)

const (
	redisRecordPrefix = "duel:record:"
	redisIndexPrefix  = "duel:index:user:"
	// per-player index is trimmed to this many entries
	redisIndexCap = 200
)

// Redis keeps each record as a JSON string plus a per-player sorted set
// scored by end time.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects using a redis:// or rediss:// URL. ttl <= 0 keeps records forever.
func NewRedis(redisURL string, ttl time.Duration) (*Redis, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

func (r *Redis) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

func (r *Redis) Save(ctx context.Context, rec *domain.GameRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	created, err := r.rdb.SetNX(ctx, redisRecordPrefix+rec.Key, raw, ttl).Result()
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	score := float64(rec.EndedAt.UnixMilli())
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range []string{rec.WhiteID, rec.BlackID} {
			if id = strings.TrimSpace(id); id == "" {
				continue
			}
			idx := redisIndexPrefix + id
			p.ZAdd(ctx, idx, redis.Z{Score: score, Member: rec.Key})
			p.ZRemRangeByRank(ctx, idx, 0, -redisIndexCap-1)
		}
		return nil
	})
	return err
}

func (r *Redis) Get(ctx context.Context, key string) (*domain.GameRecord, error) {
	raw, err := r.rdb.Get(ctx, redisRecordPrefix+strings.TrimSpace(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec domain.GameRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Recent skips index entries whose record has expired.
func (r *Redis) Recent(ctx context.Context, playerID string, limit int) ([]*domain.GameRecord, error) {
	keys, err := r.rdb.ZRevRange(ctx, redisIndexPrefix+strings.TrimSpace(playerID), 0, int64(normalizeLimit(limit)-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.GameRecord, 0, len(keys))
	for _, k := range keys {
		rec, err := r.Get(ctx, k)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ParseRedisURL turns a redis:// or rediss:// URL into client options.
// rediss enables TLS; user, password, db and query options are honoured.
func ParseRedisURL(raw string) (*redis.Options, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}
