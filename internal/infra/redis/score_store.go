package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"chara-quiz-service/internal/domain"
)

const scoreKeyPrefix = "quiz:scores:"

// ScoreStore persists per-category top-score lists as JSON blobs. Entries are
// kept without a TTL; leaderboards outlive sessions.
type ScoreStore struct {
	client *redis.Client
}

func NewScoreStore(client *redis.Client) *ScoreStore {
	return &ScoreStore{client: client}
}

func (s *ScoreStore) Load(ctx context.Context, categoryKey string) ([]domain.ScoreEntry, error) {
	data, err := s.client.Get(ctx, scoreKeyPrefix+categoryKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load scores %s: %w", categoryKey, err)
	}
	var entries []domain.ScoreEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal scores %s: %w", categoryKey, err)
	}
	return entries, nil
}

func (s *ScoreStore) Save(ctx context.Context, categoryKey string, entries []domain.ScoreEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal scores %s: %w", categoryKey, err)
	}
	if err := s.client.Set(ctx, scoreKeyPrefix+categoryKey, data, 0).Err(); err != nil {
		return fmt.Errorf("save scores %s: %w", categoryKey, err)
	}
	return nil
}
