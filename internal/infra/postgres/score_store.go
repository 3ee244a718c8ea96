package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"chara-quiz-service/internal/domain"
)

// ScoreStore is the shared remote leaderboard backend. Local top-3 lists stay
// authoritative for the session flow; this store is written best-effort and
// read for the global ranking view.
type ScoreStore struct {
	pool *pgxpool.Pool
}

func NewScoreStore(pool *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

func (s *ScoreStore) Submit(ctx context.Context, entry domain.ScoreEntry) error {
	// time taken only means something for fixed runs; store NULL otherwise
	var timeTaken sql.NullInt32
	if entry.Mode == domain.ModeFixed {
		timeTaken = sql.NullInt32{Int32: int32(entry.TimeTakenSeconds), Valid: true}
	}
	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO scores (player_name, score, quiz_mode, mode_value, time_taken_seconds, total_questions, time_limit_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.PlayerName, entry.Score, string(entry.Mode), entry.ModeValue,
		timeTaken, entry.TotalQuestions, entry.TimeLimitSeconds, recordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

func (s *ScoreStore) TopScores(ctx context.Context, mode domain.Mode, modeValue, limit int) ([]domain.ScoreEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT player_name, score, quiz_mode, mode_value, time_taken_seconds, total_questions, time_limit_seconds, created_at
		FROM scores
		WHERE quiz_mode = $1 AND mode_value = $2
		ORDER BY score DESC, time_taken_seconds ASC NULLS LAST, created_at DESC
		LIMIT $3`,
		string(mode), modeValue, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var entries []domain.ScoreEntry
	for rows.Next() {
		var (
			entry     domain.ScoreEntry
			quizMode  string
			timeTaken sql.NullInt32
		)
		if err := rows.Scan(&entry.PlayerName, &entry.Score, &quizMode, &entry.ModeValue,
			&timeTaken, &entry.TotalQuestions, &entry.TimeLimitSeconds, &entry.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		entry.Mode = domain.Mode(quizMode)
		if timeTaken.Valid {
			entry.TimeTakenSeconds = int(timeTaken.Int32)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return entries, nil
}
