package app

import (
	"context"
	"sync"
	"time"

	"chara-quiz-service/internal/domain"
)

// Presenter is the presentation collaborator consumed by the engine. All
// methods are called with the session lock held and must only hand the data
// off (enqueue, render) without calling back into the session.
type Presenter interface {
	ShowQuestion(q domain.Question, index, total int, mode domain.Mode)
	ShowFeedback(correct bool, correctAnswer, infoImage string, q domain.Question)
	ShowResults(res domain.Results)
	UpdateTimer(secondsRemaining int, running bool)
	// PromptPlayerName asks for a leaderboard name; ok=false means cancelled.
	// Called outside the session lock, only from the high-score path.
	PromptPlayerName(defaultName string) (name string, ok bool)
}

// HighScoreRecorder receives the leaderboard-qualification signal when a
// ranked session completes. Invoked fire-and-forget; it must never block
// session completion.
type HighScoreRecorder interface {
	MaybeRecord(ctx context.Context, mode domain.Mode, modeValue, score, timeTaken, totalQuestions int)
}

// SessionState tracks the session lifecycle.
type SessionState int

const (
	StateIdle SessionState = iota
	StateActive
	StateCompleted
)

// Session drives one quiz run: sequencing, scoring, the countdown, and the
// completion hand-off. One instance per run; no process-wide singleton.
type Session struct {
	presenter Presenter
	recorder  HighScoreRecorder
	clock     Clock

	mu            sync.Mutex
	state         SessionState
	mode          domain.Mode
	questions     []domain.Question
	index         int
	score         int
	answers       []domain.AnswerRecord
	timeLimit     int
	timeRemaining int
	// modeValue is the category parameter: question count for fixed,
	// time limit for time attack.
	modeValue int

	timerGen  int
	timerStop chan struct{}
}

// NewSession wires a session to its collaborators. recorder may be nil for
// practice-only surfaces; clock nil selects the system clock.
func NewSession(presenter Presenter, recorder HighScoreRecorder, clock Clock) *Session {
	if clock == nil {
		clock = SystemClock()
	}
	return &Session{presenter: presenter, recorder: recorder, clock: clock}
}

// Start activates the session over an ordered question list. Ordering is the
// caller's choice (sequential, shuffled, or a random subset). A countdown is
// started only for time attack.
func (s *Session) Start(questions []domain.Question, opts domain.StartOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(questions) == 0 {
		return domain.ErrEmptyPool
	}

	s.stopTimerLocked()
	s.state = StateActive
	s.mode = opts.Mode
	s.questions = questions
	s.index = 0
	s.score = 0
	s.answers = nil

	s.timeLimit = 0
	s.timeRemaining = 0
	switch opts.Mode {
	case domain.ModeTimeAttack:
		s.timeLimit = opts.TimeLimitSeconds
		s.modeValue = opts.TimeLimitSeconds
	case domain.ModeFixed:
		s.modeValue = len(questions)
	default:
		s.modeValue = 0
	}

	if s.timeLimit > 0 {
		s.startTimerLocked()
	}
	s.showQuestionLocked()
	return nil
}

// CurrentQuestion returns the question at the cursor, if any.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentQuestionLocked()
}

// SubmitAnswer scores the choice against the current question. With no
// current question it is a silent no-op, guarding against duplicate or late
// UI events. The returned flag reports, for the practice modes, whether the
// answered question was the last one (so the surface can switch its
// continuation control to "show results").
func (s *Session) SubmitAnswer(choice string) (last bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return false
	}
	q, ok := s.currentQuestionLocked()
	if !ok {
		return false
	}

	correct := choice == q.CorrectAnswer
	s.answers = append(s.answers, domain.AnswerRecord{
		QuestionText:  q.Text,
		Answer:        choice,
		CorrectAnswer: q.CorrectAnswer,
		Correct:       correct,
		InfoImage:     q.InfoImage,
		SubjectName:   q.SubjectName,
	})
	if correct {
		s.score++
	}

	switch s.mode {
	case domain.ModePractice, domain.ModePracticeCharacter:
		s.presenter.ShowFeedback(correct, q.CorrectAnswer, q.InfoImage, q)
		return s.index == len(s.questions)-1
	default:
		s.advanceLocked()
		return false
	}
}

// Advance moves the cursor forward. Time attack wraps to the first question
// and only ends on timer expiry; every other mode completes when the list is
// exhausted. Advancing an already completed session is a no-op.
func (s *Session) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
}

// End completes the session. Idempotent; also invoked internally on list
// exhaustion and timer expiry.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked()
}

// Reset cancels the timer and returns every field to its initial value. Safe
// to call from any state; calling it twice equals calling it once.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.state = StateIdle
	s.mode = ""
	s.questions = nil
	s.index = 0
	s.score = 0
	s.answers = nil
	s.timeLimit = 0
	s.timeRemaining = 0
	s.modeValue = 0
	s.presenter.UpdateTimer(0, false)
}

// Tick advances the countdown by one second, the same step the internal
// timer goroutine takes on every ticker fire. Surfaces with their own
// scheduler call it directly. Returns false once the countdown (or the
// session) is over.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickLocked(s.timerGen)
}

// State reports the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Score reports the number of correct answers so far.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// CurrentIndex reports the cursor position.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// TimeRemaining reports the countdown seconds left (0 when untimed).
func (s *Session) TimeRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeRemaining
}

func (s *Session) currentQuestionLocked() (domain.Question, bool) {
	if s.state != StateActive || s.index < 0 || s.index >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[s.index], true
}

func (s *Session) showQuestionLocked() {
	if q, ok := s.currentQuestionLocked(); ok {
		s.presenter.ShowQuestion(q, s.index+1, len(s.questions), s.mode)
	}
}

func (s *Session) advanceLocked() {
	if s.state != StateActive {
		return
	}
	s.index++
	if s.mode == domain.ModeTimeAttack {
		if s.index >= len(s.questions) {
			s.index = 0
		}
		s.showQuestionLocked()
		return
	}
	if s.index >= len(s.questions) {
		s.endLocked()
		return
	}
	s.showQuestionLocked()
}

func (s *Session) endLocked() {
	if s.state != StateActive {
		return
	}
	s.state = StateCompleted
	s.stopTimerLocked()

	timeTaken := 0
	if s.timeLimit > 0 {
		timeTaken = s.timeLimit - s.timeRemaining
	}
	res := domain.Results{
		Score:            s.score,
		Attempted:        len(s.answers),
		Mode:             s.mode,
		TimeTakenSeconds: timeTaken,
		TimeLimitSeconds: s.timeLimit,
		Answers:          append([]domain.AnswerRecord(nil), s.answers...),
	}
	s.presenter.ShowResults(res)

	if s.mode.Ranked() && s.recorder != nil {
		mode, value, score, total := s.mode, s.modeValue, s.score, len(s.questions)
		go s.recorder.MaybeRecord(context.Background(), mode, value, score, timeTaken, total)
	}
}

// startTimerLocked cancels any running countdown before arming a new one, so
// two tickers can never run for the same session.
func (s *Session) startTimerLocked() {
	s.stopTimerLocked()
	if s.timeLimit <= 0 {
		return
	}
	s.timeRemaining = s.timeLimit
	s.presenter.UpdateTimer(s.timeRemaining, true)

	stop := make(chan struct{})
	s.timerStop = stop
	s.timerGen++
	gen := s.timerGen

	ticker := s.clock.NewTicker(time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				s.mu.Lock()
				ok := s.tickLocked(gen)
				s.mu.Unlock()
				if !ok {
					return
				}
			case <-stop:
				return
			}
		}
	}()
}

func (s *Session) stopTimerLocked() {
	if s.timerStop != nil {
		close(s.timerStop)
		s.timerStop = nil
	}
	// Invalidate in-flight ticks from the goroutine being stopped.
	s.timerGen++
}

// tickLocked rejects stale ticks by generation, so a tick that raced with
// Reset or End cannot touch the next session's countdown.
func (s *Session) tickLocked(gen int) bool {
	if gen != s.timerGen || s.state != StateActive || s.timeLimit <= 0 {
		return false
	}
	s.timeRemaining--
	s.presenter.UpdateTimer(s.timeRemaining, true)
	if s.timeRemaining <= 0 {
		s.endLocked()
		return false
	}
	return true
}
