package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"chara-quiz-service/internal/domain"
)

// StaticCharacterLoader serves a fixed dataset (useful for tests/demos).
type StaticCharacterLoader struct {
	records []domain.Character
}

func NewStaticCharacterLoader(records []domain.Character) *StaticCharacterLoader {
	return &StaticCharacterLoader{records: records}
}

func (l *StaticCharacterLoader) LoadCharacters(_ context.Context) ([]domain.Character, error) {
	if len(l.records) == 0 {
		return nil, domain.ErrDatasetNotFound
	}
	return append([]domain.Character(nil), l.records...), nil
}

// FileCharacterLoader reads a JSON array of characters from disk.
type FileCharacterLoader struct {
	path string
}

func NewFileCharacterLoader(path string) *FileCharacterLoader {
	return &FileCharacterLoader{path: path}
}

func (l *FileCharacterLoader) LoadCharacters(_ context.Context) ([]domain.Character, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrDatasetNotFound
		}
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var records []domain.Character
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("unmarshal dataset: %w", err)
	}
	return records, nil
}
