package domain

import "errors"

var (
	// ErrEmptyPool is returned when the dataset yields no questions at all.
	ErrEmptyPool = errors.New("question pool is empty")
	// ErrNoQuestionsForCharacter is returned when a character filter matches nothing.
	ErrNoQuestionsForCharacter = errors.New("no questions for the selected character")
	// ErrUnknownMode is returned for a session mode the engine does not know.
	ErrUnknownMode = errors.New("unknown session mode")
	// ErrDatasetNotFound indicates the character dataset could not be loaded.
	ErrDatasetNotFound = errors.New("character dataset not found")
)
