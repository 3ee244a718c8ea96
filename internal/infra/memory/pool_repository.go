package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"chara-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// PoolBuilder produces the generated question pool from the dataset.
type PoolBuilder interface {
	Build(ctx context.Context) (domain.Pool, error)
}

// PoolRepository caches the generated pool with a TTL so question identities
// stay stable between sessions while still picking up dataset changes.
type PoolRepository struct {
	builder PoolBuilder
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group
	rnd     *rand.Rand

	mu        sync.RWMutex
	pool      domain.Pool
	expiresAt time.Time
}

func NewPoolRepository(builder PoolBuilder, ttl time.Duration) *PoolRepository {
	return &PoolRepository{
		builder: builder,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PoolRepository) GetPool(ctx context.Context) (domain.Pool, error) {
	now := r.clock()

	r.mu.RLock()
	if r.expiresAt.After(now) {
		pool := r.pool
		r.mu.RUnlock()
		return pool, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("pool", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.expiresAt.After(now) {
			pool := r.pool
			r.mu.RUnlock()
			return pool, nil
		}
		r.mu.RUnlock()

		pool, err := r.builder.Build(ctx)
		if err != nil {
			return domain.Pool{}, err
		}

		r.mu.Lock()
		r.pool = pool
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return pool, nil
	})
	if err != nil {
		return domain.Pool{}, err
	}
	return result.(domain.Pool), nil
}

func (r *PoolRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread rebuilds
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
