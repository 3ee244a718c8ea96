package app

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"chara-quiz-service/internal/domain"
)

const (
	// TopScoreCount caps every category at a top-3 list.
	TopScoreCount = 3
	// MaxPlayerNameLen bounds leaderboard names, in runes.
	MaxPlayerNameLen = 10
	// DefaultPlayerName replaces an empty name.
	DefaultPlayerName = "anonymous"
)

// ScoreStore is the durable local key/value store for top-score lists.
type ScoreStore interface {
	Load(ctx context.Context, categoryKey string) ([]domain.ScoreEntry, error)
	Save(ctx context.Context, categoryKey string, entries []domain.ScoreEntry) error
}

// RemoteScoreStore is the optional best-effort remote score backend.
type RemoteScoreStore interface {
	Submit(ctx context.Context, entry domain.ScoreEntry) error
	TopScores(ctx context.Context, mode domain.Mode, modeValue, limit int) ([]domain.ScoreEntry, error)
}

// CategoryKey derives the leaderboard partition for a ranked mode. Practice
// modes have none and are never persisted.
func CategoryKey(mode domain.Mode, modeValue int) (string, bool) {
	switch mode {
	case domain.ModeFixed:
		return fmt.Sprintf("fixed:%d", modeValue), true
	case domain.ModeTimeAttack:
		return fmt.Sprintf("timeattack:%d", modeValue), true
	default:
		return "", false
	}
}

// LeaderboardManager owns the per-category top-3 lists. Reads and writes are
// serialized with a mutex; the load-append-sort-truncate-save sequence
// assumes a single active writer process (no cross-process locking).
type LeaderboardManager struct {
	mu     sync.Mutex
	store  ScoreStore
	remote RemoteScoreStore
	now    func() time.Time
}

// NewLeaderboardManager builds a manager over the local store. remote may be
// nil for local-only leaderboards.
func NewLeaderboardManager(store ScoreStore, remote RemoteScoreStore) *LeaderboardManager {
	return &LeaderboardManager{store: store, remote: remote, now: time.Now}
}

// Qualifies reports whether a finished run earns a slot in the category.
// Fewer than three entries always qualifies. Against a full list the
// candidate must strictly beat the lowest score; on a score tie, fixed-mode
// candidates need a strictly lower time, while time-attack ties qualify
// outright.
func (m *LeaderboardManager) Qualifies(ctx context.Context, categoryKey string, mode domain.Mode, score, timeTaken int) bool {
	entries := m.TopScores(ctx, categoryKey)
	if len(entries) < TopScoreCount {
		return true
	}
	lowest := entries[len(entries)-1]
	if score > lowest.Score {
		return true
	}
	if score == lowest.Score {
		if mode == domain.ModeFixed {
			return timeTaken < lowest.TimeTakenSeconds
		}
		return mode == domain.ModeTimeAttack
	}
	return false
}

// Record inserts the entry, re-ranks the category, truncates to the top 3
// and persists. The stored list is returned. A write failure is logged and
// the update dropped; it never propagates to the caller.
func (m *LeaderboardManager) Record(ctx context.Context, categoryKey string, entry domain.ScoreEntry) []domain.ScoreEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.PlayerName = NormalizePlayerName(entry.PlayerName)
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = m.now()
	}

	entries := append(m.loadOrEmpty(ctx, categoryKey), entry)
	SortEntries(entry.Mode, entries)
	if len(entries) > TopScoreCount {
		entries = entries[:TopScoreCount]
	}
	if err := m.store.Save(ctx, categoryKey, entries); err != nil {
		log.Printf("leaderboard: save %s failed, dropping update: %v", categoryKey, err)
	}
	return entries
}

// TopScores returns the local list for a category, degrading to empty on a
// read failure.
func (m *LeaderboardManager) TopScores(ctx context.Context, categoryKey string) []domain.ScoreEntry {
	entries, err := m.store.Load(ctx, categoryKey)
	if err != nil {
		log.Printf("leaderboard: load %s failed, treating as empty: %v", categoryKey, err)
		return nil
	}
	return entries
}

// RemoteTopScores fetches the remote ranking, best-effort. Callers fall back
// to the local list on error or when no remote store is configured.
func (m *LeaderboardManager) RemoteTopScores(ctx context.Context, mode domain.Mode, modeValue, limit int) ([]domain.ScoreEntry, error) {
	if m.remote == nil {
		return nil, nil
	}
	return m.remote.TopScores(ctx, mode, modeValue, limit)
}

// SubmitRemote ships the entry to the remote store, logging failures.
func (m *LeaderboardManager) SubmitRemote(ctx context.Context, entry domain.ScoreEntry) {
	if m.remote == nil {
		return
	}
	if err := m.remote.Submit(ctx, entry); err != nil {
		log.Printf("leaderboard: remote submit failed: %v", err)
	}
}

func (m *LeaderboardManager) loadOrEmpty(ctx context.Context, categoryKey string) []domain.ScoreEntry {
	entries, err := m.store.Load(ctx, categoryKey)
	if err != nil {
		log.Printf("leaderboard: load %s failed, treating as empty: %v", categoryKey, err)
		return nil
	}
	return entries
}

// SortEntries ranks descending by score. Fixed-mode ties order ascending by
// time; time-attack ties keep insertion order (stable sort), an explicit
// policy choice since no recorded field breaks them.
func SortEntries(mode domain.Mode, entries []domain.ScoreEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if mode == domain.ModeFixed {
			return entries[i].TimeTakenSeconds < entries[j].TimeTakenSeconds
		}
		return false
	})
}

// NormalizePlayerName trims, truncates to MaxPlayerNameLen runes and
// substitutes the placeholder for empty input.
func NormalizePlayerName(name string) string {
	name = strings.TrimSpace(name)
	if runes := []rune(name); len(runes) > MaxPlayerNameLen {
		name = strings.TrimSpace(string(runes[:MaxPlayerNameLen]))
	}
	if name == "" {
		return DefaultPlayerName
	}
	return name
}

// PromptingRecorder is the engine's qualification collaborator: on a
// qualifying ranked run it prompts for a player name through the presenter,
// records locally and ships the entry to the remote store.
type PromptingRecorder struct {
	Board     *LeaderboardManager
	Presenter Presenter
}

// MaybeRecord implements HighScoreRecorder. Runs fire-and-forget from session
// completion; a cancelled prompt drops the entry.
func (r *PromptingRecorder) MaybeRecord(ctx context.Context, mode domain.Mode, modeValue, score, timeTaken, totalQuestions int) {
	key, ok := CategoryKey(mode, modeValue)
	if !ok {
		return
	}
	if !r.Board.Qualifies(ctx, key, mode, score, timeTaken) {
		return
	}
	name, ok := r.Presenter.PromptPlayerName(DefaultPlayerName)
	if !ok {
		return
	}

	entry := domain.ScoreEntry{
		PlayerName: name,
		Score:      score,
		Mode:       mode,
		ModeValue:  modeValue,
	}
	switch mode {
	case domain.ModeFixed:
		entry.TimeTakenSeconds = timeTaken
		entry.TotalQuestions = totalQuestions
	case domain.ModeTimeAttack:
		entry.TimeLimitSeconds = modeValue
	}
	r.Board.Record(ctx, key, entry)
	r.Board.SubmitRemote(ctx, entry)
}
