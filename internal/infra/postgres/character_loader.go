package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"chara-quiz-service/internal/domain"
)

// CharacterLoader reads the character dataset from the characters table,
// where each row holds one record as a JSONB document.
type CharacterLoader struct {
	pool *pgxpool.Pool
}

func NewCharacterLoader(pool *pgxpool.Pool) *CharacterLoader {
	return &CharacterLoader{pool: pool}
}

func (l *CharacterLoader) LoadCharacters(ctx context.Context) ([]domain.Character, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM characters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	defer rows.Close()

	var records []domain.Character
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		var c domain.Character
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("unmarshal character: %w", err)
		}
		records = append(records, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate characters: %w", err)
	}
	if len(records) == 0 {
		return nil, domain.ErrDatasetNotFound
	}
	return records, nil
}
