package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"chara-quiz-service/internal/domain"
)

const poolKey = "quiz:pool"

// PoolBuilder produces the generated question pool from the dataset.
type PoolBuilder interface {
	Build(ctx context.Context) (domain.Pool, error)
}

// PoolRepository caches the generated pool in redis so every service instance
// hands out the same question identities until the TTL rolls the pool over.
// Concurrent rebuilds collapse through singleflight.
type PoolRepository struct {
	client  *redis.Client
	builder PoolBuilder
	ttl     time.Duration
	sf      singleflight.Group
	rnd     *rand.Rand
}

func NewPoolRepository(client *redis.Client, builder PoolBuilder, ttl time.Duration) *PoolRepository {
	return &PoolRepository{
		client:  client,
		builder: builder,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PoolRepository) GetPool(ctx context.Context) (domain.Pool, error) {
	pool, ok, err := r.cached(ctx)
	if err != nil {
		return domain.Pool{}, err
	}
	if ok {
		return pool, nil
	}

	result, err, _ := r.sf.Do(poolKey, func() (interface{}, error) {
		pool, ok, err := r.cached(ctx)
		if err != nil {
			return domain.Pool{}, err
		}
		if ok {
			return pool, nil
		}

		pool, err = r.builder.Build(ctx)
		if err != nil {
			return domain.Pool{}, err
		}

		data, err := json.Marshal(pool)
		if err != nil {
			return domain.Pool{}, fmt.Errorf("marshal pool: %w", err)
		}
		if err := r.client.Set(ctx, poolKey, data, r.ttlWithJitter()).Err(); err != nil {
			return domain.Pool{}, fmt.Errorf("cache pool: %w", err)
		}
		return pool, nil
	})
	if err != nil {
		return domain.Pool{}, err
	}
	return result.(domain.Pool), nil
}

func (r *PoolRepository) cached(ctx context.Context) (domain.Pool, bool, error) {
	data, err := r.client.Get(ctx, poolKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Pool{}, false, nil
		}
		return domain.Pool{}, false, fmt.Errorf("load pool: %w", err)
	}
	var pool domain.Pool
	if err := json.Unmarshal(data, &pool); err != nil {
		return domain.Pool{}, false, fmt.Errorf("unmarshal pool: %w", err)
	}
	return pool, true, nil
}

func (r *PoolRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread rebuilds
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
