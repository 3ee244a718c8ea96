package memory

import (
	"context"
	"sync"

	"chara-quiz-service/internal/domain"
)

// ScoreStore is an in-memory implementation of app.ScoreStore, used for
// tests and redis-less runs.
type ScoreStore struct {
	mu     sync.RWMutex
	scores map[string][]domain.ScoreEntry
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{scores: make(map[string][]domain.ScoreEntry)}
}

func (s *ScoreStore) Load(_ context.Context, categoryKey string) ([]domain.ScoreEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ScoreEntry(nil), s.scores[categoryKey]...), nil
}

func (s *ScoreStore) Save(_ context.Context, categoryKey string, entries []domain.ScoreEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[categoryKey] = append([]domain.ScoreEntry(nil), entries...)
	return nil
}
