package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"chara-quiz-service/internal/domain"
)

type countingBuilder struct {
	calls int32
	pool  domain.Pool
}

func (b *countingBuilder) Build(context.Context) (domain.Pool, error) {
	atomic.AddInt32(&b.calls, 1)
	return b.pool, nil
}

func TestPoolRepositoryCachesBuild(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	builder := &countingBuilder{pool: domain.Pool{
		Questions:  []domain.Question{{ID: "c1:image_to_name", Type: domain.QuestionImageToName, CorrectAnswer: "Aya"}},
		Characters: []domain.CharacterSummary{{ID: "c1", Name: "Aya"}},
	}}
	repo := NewPoolRepository(client, builder, time.Minute)
	ctx := context.Background()

	first, err := repo.GetPool(ctx)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	second, err := repo.GetPool(ctx)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}

	if calls := atomic.LoadInt32(&builder.calls); calls != 1 {
		t.Fatalf("expected 1 build, got %d", calls)
	}
	if len(first.Questions) != 1 || len(second.Questions) != 1 {
		t.Fatalf("pool lost questions: %d / %d", len(first.Questions), len(second.Questions))
	}
	if second.Questions[0].ID != first.Questions[0].ID {
		t.Errorf("cached pool diverged: %s vs %s", second.Questions[0].ID, first.Questions[0].ID)
	}
}

func TestPoolRepositoryRebuildsAfterExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	builder := &countingBuilder{pool: domain.Pool{Questions: []domain.Question{{ID: "q"}}}}
	repo := NewPoolRepository(client, builder, time.Minute)
	ctx := context.Background()

	if _, err := repo.GetPool(ctx); err != nil {
		t.Fatalf("first get: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := repo.GetPool(ctx); err != nil {
		t.Fatalf("second get: %v", err)
	}

	if calls := atomic.LoadInt32(&builder.calls); calls != 2 {
		t.Fatalf("expected rebuild after expiry, got %d builds", calls)
	}
}

func TestPoolRepositoryCorruptCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := NewPoolRepository(client, &countingBuilder{}, time.Minute)
	mr.Set(poolKey, "{broken")

	if _, err := repo.GetPool(context.Background()); err == nil {
		t.Fatal("expected error for corrupt cached pool")
	}
}
