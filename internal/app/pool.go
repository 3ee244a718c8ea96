package app

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"chara-quiz-service/internal/domain"
)

// CharacterLoader fetches the character dataset from a backing store
// (Postgres, a JSON file, or a static sample set).
type CharacterLoader interface {
	LoadCharacters(ctx context.Context) ([]domain.Character, error)
}

// PoolRepository hands out the generated pool, typically through a cache so
// question identities stay stable across sessions.
type PoolRepository interface {
	GetPool(ctx context.Context) (domain.Pool, error)
}

// PoolBuilder loads the dataset and generates the full question pool, plus
// the character index sorted by lexicographic id (stable for mixed-format
// ids).
type PoolBuilder struct {
	loader CharacterLoader
	gen    *Generator
}

func NewPoolBuilder(loader CharacterLoader, gen *Generator) *PoolBuilder {
	if gen == nil {
		gen = NewGenerator(nil)
	}
	return &PoolBuilder{loader: loader, gen: gen}
}

func (b *PoolBuilder) Build(ctx context.Context) (domain.Pool, error) {
	records, err := b.loader.LoadCharacters(ctx)
	if err != nil {
		return domain.Pool{}, err
	}

	characters := make([]domain.CharacterSummary, 0, len(records))
	for _, c := range records {
		if c.ID == "" || c.Name == "" {
			continue
		}
		characters = append(characters, domain.CharacterSummary{ID: c.ID, Name: c.Name})
	}
	sort.Slice(characters, func(i, j int) bool { return characters[i].ID < characters[j].ID })

	return domain.Pool{
		Questions:  b.gen.Generate(records),
		Characters: characters,
	}, nil
}

// PoolService selects each session's ordered question list from the shared
// pool according to the start parameters.
type PoolService struct {
	repo PoolRepository

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPoolService builds the service; rnd nil selects a time-seeded RNG. The
// RNG is guarded because one service serves concurrent connections.
func NewPoolService(repo PoolRepository, rnd *rand.Rand) *PoolService {
	if rnd == nil {
		rnd = newRand()
	}
	return &PoolService{repo: repo, rnd: rnd}
}

// SelectQuestions returns the session's ordered subset:
//
//	practice            full pool, sequential or shuffled
//	practice_character  pool filtered by subject name
//	fixed               uniform random subset of the requested size, clamped
//	time_attack         full pool shuffled (it loops, order still matters)
func (s *PoolService) SelectQuestions(ctx context.Context, opts domain.StartOptions) ([]domain.Question, error) {
	pool, err := s.repo.GetPool(ctx)
	if err != nil {
		return nil, err
	}
	if len(pool.Questions) == 0 {
		return nil, domain.ErrEmptyPool
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch opts.Mode {
	case domain.ModePractice:
		if opts.Shuffle {
			return Shuffled(s.rnd, pool.Questions), nil
		}
		return append([]domain.Question(nil), pool.Questions...), nil

	case domain.ModePracticeCharacter:
		var filtered []domain.Question
		for _, q := range pool.Questions {
			if q.SubjectName == opts.Subject {
				filtered = append(filtered, q)
			}
		}
		if len(filtered) == 0 {
			return nil, domain.ErrNoQuestionsForCharacter
		}
		if opts.Shuffle {
			Shuffle(s.rnd, filtered)
		}
		return filtered, nil

	case domain.ModeFixed:
		count := opts.Count
		if count <= 0 || count > len(pool.Questions) {
			count = len(pool.Questions)
		}
		return PickN(s.rnd, pool.Questions, count), nil

	case domain.ModeTimeAttack:
		return Shuffled(s.rnd, pool.Questions), nil

	default:
		return nil, domain.ErrUnknownMode
	}
}

// Characters lists the picker entries, id-sorted.
func (s *PoolService) Characters(ctx context.Context) ([]domain.CharacterSummary, error) {
	pool, err := s.repo.GetPool(ctx)
	if err != nil {
		return nil, err
	}
	return pool.Characters, nil
}
