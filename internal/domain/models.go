package domain

import "time"

// Character is one record of the source dataset. ID and Name are unique
// across the dataset; every other field is optional and only suppresses the
// question templates that depend on it.
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Owner1      string `json:"owner1,omitempty"`
	Owner2      string `json:"owner2,omitempty"`
	Hobby       string `json:"hobby,omitempty"`
	Skill       string `json:"skill,omitempty"`
	Sweets      string `json:"sweets,omitempty"`
	Personality string `json:"personality,omitempty"`
	Item        string `json:"item,omitempty"`
	Profile     string `json:"profile,omitempty"`
	ImageQuiz   string `json:"image_quiz,omitempty"`
	ImageInfo   string `json:"image_info,omitempty"`
}

// QuestionType tags the template a question was generated from.
type QuestionType string

const (
	QuestionImageToName  QuestionType = "image_to_name"
	QuestionNameToOwner1 QuestionType = "name_to_owner1"
	QuestionNameToOwner2 QuestionType = "name_to_owner2"
	QuestionNameToID     QuestionType = "name_to_id"
	QuestionIDToName     QuestionType = "id_to_name"
	QuestionProfileBlank QuestionType = "profile_fill_blank"
	// Trait templates use "name_to_<trait>" and "<trait>_to_name" where
	// <trait> is one of hobby, skill, sweets, personality, item.
)

// Question is immutable once generated. Choices always contain CorrectAnswer
// and never exceed four entries.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Image         string       `json:"image,omitempty"`
	RevealImage   string       `json:"reveal_image,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	Choices       []string     `json:"choices"`
	InfoImage     string       `json:"info_image,omitempty"`
	SubjectName   string       `json:"subject_name"`
	CharacterID   string       `json:"character_id"`
}

// AnswerRecord snapshots one answered question. Appended in index order and
// never mutated afterwards.
type AnswerRecord struct {
	QuestionText  string `json:"question_text"`
	Answer        string `json:"answer"`
	CorrectAnswer string `json:"correct_answer"`
	Correct       bool   `json:"correct"`
	InfoImage     string `json:"info_image,omitempty"`
	SubjectName   string `json:"subject_name"`
}

// Mode enumerates the session kinds.
type Mode string

const (
	ModePractice          Mode = "practice"
	ModePracticeCharacter Mode = "practice_character"
	ModeFixed             Mode = "fixed"
	ModeTimeAttack        Mode = "time_attack"
)

// Timed reports whether the mode runs against a countdown.
func (m Mode) Timed() bool { return m == ModeTimeAttack }

// Ranked reports whether finished sessions of this mode feed leaderboards.
func (m Mode) Ranked() bool { return m == ModeFixed || m == ModeTimeAttack }

// StartOptions carries the session-start parameters for every mode.
type StartOptions struct {
	Mode Mode `json:"mode"`
	// Subject filters the pool to one character (practice_character only).
	Subject string `json:"subject,omitempty"`
	// Count is the requested question count (fixed only), clamped to the pool.
	Count int `json:"count,omitempty"`
	// TimeLimitSeconds is the countdown length (time_attack only).
	TimeLimitSeconds int `json:"time_limit_seconds,omitempty"`
	// Shuffle randomizes question order in the practice modes.
	Shuffle bool `json:"shuffle,omitempty"`
}

// Results is the final payload emitted to the presentation layer.
type Results struct {
	Score            int            `json:"score"`
	Attempted        int            `json:"attempted"`
	Mode             Mode           `json:"mode"`
	TimeTakenSeconds int            `json:"time_taken_seconds"`
	TimeLimitSeconds int            `json:"time_limit_seconds"`
	Answers          []AnswerRecord `json:"answers"`
}

// ScoreEntry is one leaderboard row. Mode and ModeValue identify the
// category (question count for fixed, time limit for time attack).
type ScoreEntry struct {
	PlayerName       string    `json:"player_name"`
	Score            int       `json:"score"`
	Mode             Mode      `json:"mode"`
	ModeValue        int       `json:"mode_value"`
	TimeTakenSeconds int       `json:"time_taken_seconds,omitempty"`
	TotalQuestions   int       `json:"total_questions,omitempty"`
	TimeLimitSeconds int       `json:"time_limit_seconds,omitempty"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// CharacterSummary is the picker view of a character.
type CharacterSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Pool bundles the generated question pool with the character index it was
// built from. Questions are owned by the pool and referenced by sessions.
type Pool struct {
	Questions  []Question         `json:"questions"`
	Characters []CharacterSummary `json:"characters"`
}
