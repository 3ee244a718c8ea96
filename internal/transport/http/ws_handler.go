package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"chara-quiz-service/internal/app"
	"chara-quiz-service/internal/domain"
)

const (
	sendBuffer        = 32
	namePromptTimeout = 60 * time.Second
	defaultTimeLimit  = 60
	scoresLimit       = 10
)

type WSHandler struct {
	pool     *app.PoolService
	board    *app.LeaderboardManager
	clock    app.Clock
	upgrader websocket.Upgrader
}

// NewWSHandler wires one websocket endpoint over the shared pool and
// leaderboard. clock may be nil for the system clock.
func NewWSHandler(pool *app.PoolService, board *app.LeaderboardManager, clock app.Clock) *WSHandler {
	if clock == nil {
		clock = app.SystemClock()
	}
	return &WSHandler{
		pool:  pool,
		board: board,
		clock: clock,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type startPayload struct {
	Mode             string `json:"mode"`
	Subject          string `json:"subject"`
	Count            int    `json:"count"`
	TimeLimitSeconds int    `json:"timeLimitSeconds"`
	Shuffle          bool   `json:"shuffle"`
}

type answerPayload struct {
	Choice string `json:"choice"`
}

type namePayload struct {
	Name      string `json:"name"`
	Cancelled bool   `json:"cancelled"`
}

type scoresRequestPayload struct {
	Mode      string `json:"mode"`
	ModeValue int    `json:"modeValue"`
	Remote    bool   `json:"remote"`
}

type questionView struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Text        string   `json:"text"`
	Image       string   `json:"image,omitempty"`
	Choices     []string `json:"choices"`
	SubjectName string   `json:"subjectName,omitempty"`
}

type questionPayload struct {
	Index    int          `json:"index"`
	Total    int          `json:"total"`
	Mode     string       `json:"mode"`
	Question questionView `json:"question"`
}

type feedbackPayload struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	RevealImage   string `json:"revealImage,omitempty"`
	InfoImage     string `json:"infoImage,omitempty"`
}

type nextControlPayload struct {
	Last bool `json:"last"`
}

type timerPayload struct {
	Remaining int  `json:"remaining"`
	Running   bool `json:"running"`
}

type resultsPayload struct {
	Score            int                   `json:"score"`
	Attempted        int                   `json:"attempted"`
	Mode             string                `json:"mode"`
	TimeTakenSeconds int                   `json:"timeTakenSeconds"`
	TimeLimitSeconds int                   `json:"timeLimitSeconds"`
	Answers          []domain.AnswerRecord `json:"answers"`
}

type namePromptPayload struct {
	Default string `json:"default"`
}

type charactersPayload struct {
	Characters []domain.CharacterSummary `json:"characters"`
}

type scoresPayload struct {
	Entries []domain.ScoreEntry `json:"entries"`
	Source  string              `json:"source"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type nameReply struct {
	name      string
	cancelled bool
}

// wsPresenter bridges session callbacks onto the connection's send channel.
// All methods only enqueue; the writer goroutine owns the socket.
type wsPresenter struct {
	send   chan outboundMessage[any]
	closed chan struct{}
	nameCh chan nameReply
}

func newWSPresenter() *wsPresenter {
	return &wsPresenter{
		send:   make(chan outboundMessage[any], sendBuffer),
		closed: make(chan struct{}),
		nameCh: make(chan nameReply, 1),
	}
}

func (p *wsPresenter) enqueue(msg outboundMessage[any]) {
	select {
	case <-p.closed:
		log.Printf("ws send dropped, connection closed: %s", msg.Type)
		return
	default:
	}
	select {
	case p.send <- msg:
	case <-p.closed:
	}
}

func (p *wsPresenter) ShowQuestion(q domain.Question, index, total int, mode domain.Mode) {
	p.enqueue(outboundMessage[any]{Type: "question", Payload: questionPayload{
		Index: index,
		Total: total,
		Mode:  string(mode),
		Question: questionView{
			ID:          q.ID,
			Type:        string(q.Type),
			Text:        q.Text,
			Image:       q.Image,
			Choices:     q.Choices,
			SubjectName: q.SubjectName,
		},
	}})
}

func (p *wsPresenter) ShowFeedback(correct bool, correctAnswer, infoImage string, q domain.Question) {
	p.enqueue(outboundMessage[any]{Type: "feedback", Payload: feedbackPayload{
		Correct:       correct,
		CorrectAnswer: correctAnswer,
		RevealImage:   q.RevealImage,
		InfoImage:     infoImage,
	}})
}

func (p *wsPresenter) ShowResults(res domain.Results) {
	p.enqueue(outboundMessage[any]{Type: "results", Payload: resultsPayload{
		Score:            res.Score,
		Attempted:        res.Attempted,
		Mode:             string(res.Mode),
		TimeTakenSeconds: res.TimeTakenSeconds,
		TimeLimitSeconds: res.TimeLimitSeconds,
		Answers:          res.Answers,
	}})
}

func (p *wsPresenter) UpdateTimer(seconds int, running bool) {
	p.enqueue(outboundMessage[any]{Type: "timer", Payload: timerPayload{Remaining: seconds, Running: running}})
}

func (p *wsPresenter) PromptPlayerName(defaultName string) (string, bool) {
	p.enqueue(outboundMessage[any]{Type: "namePrompt", Payload: namePromptPayload{Default: defaultName}})
	select {
	case reply := <-p.nameCh:
		if reply.cancelled {
			return "", false
		}
		return reply.name, true
	case <-p.closed:
		return "", false
	case <-time.After(namePromptTimeout):
		return "", false
	}
}

// ServeWS upgrades the request and runs one quiz session per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	presenter := newWSPresenter()
	recorder := &app.PromptingRecorder{Board: h.board, Presenter: presenter}
	session := app.NewSession(presenter, recorder, h.clock)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-presenter.send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-presenter.closed:
				return
			}
		}
	}()

	var currentMode domain.Mode

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "characters":
			characters, err := h.pool.Characters(r.Context())
			if err != nil {
				presenter.enqueue(errorMessage(err))
				continue
			}
			presenter.enqueue(outboundMessage[any]{Type: "characters", Payload: charactersPayload{Characters: characters}})

		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				presenter.enqueue(errorMessage(errors.New("invalid start payload")))
				continue
			}
			opts := domain.StartOptions{
				Mode:             domain.Mode(payload.Mode),
				Subject:          payload.Subject,
				Count:            payload.Count,
				TimeLimitSeconds: payload.TimeLimitSeconds,
				Shuffle:          payload.Shuffle,
			}
			if opts.Mode == domain.ModeTimeAttack && opts.TimeLimitSeconds <= 0 {
				opts.TimeLimitSeconds = defaultTimeLimit
			}
			questions, err := h.pool.SelectQuestions(r.Context(), opts)
			if err != nil {
				presenter.enqueue(errorMessage(err))
				continue
			}
			session.Reset()
			if err := session.Start(questions, opts); err != nil {
				presenter.enqueue(errorMessage(err))
				continue
			}
			currentMode = opts.Mode

		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				presenter.enqueue(errorMessage(errors.New("invalid answer payload")))
				continue
			}
			last := session.SubmitAnswer(payload.Choice)
			if currentMode == domain.ModePractice || currentMode == domain.ModePracticeCharacter {
				presenter.enqueue(outboundMessage[any]{Type: "nextControl", Payload: nextControlPayload{Last: last}})
			}

		case "next":
			session.Advance()

		case "finish":
			session.End()

		case "reset":
			session.Reset()

		case "name":
			var payload namePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				presenter.enqueue(errorMessage(errors.New("invalid name payload")))
				continue
			}
			select {
			case presenter.nameCh <- nameReply{name: payload.Name, cancelled: payload.Cancelled}:
			default:
			}

		case "scores":
			var payload scoresRequestPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				presenter.enqueue(errorMessage(errors.New("invalid scores payload")))
				continue
			}
			h.sendScores(r, presenter, payload)

		default:
			presenter.enqueue(errorMessage(errors.New("unsupported message type")))
		}
	}

	session.Reset()
	close(presenter.closed)
	<-writerDone
}

func (h *WSHandler) sendScores(r *http.Request, presenter *wsPresenter, payload scoresRequestPayload) {
	mode := domain.Mode(payload.Mode)
	key, ok := app.CategoryKey(mode, payload.ModeValue)
	if !ok {
		presenter.enqueue(errorMessage(domain.ErrUnknownMode))
		return
	}

	if payload.Remote {
		entries, err := h.board.RemoteTopScores(r.Context(), mode, payload.ModeValue, scoresLimit)
		if err == nil && entries != nil {
			presenter.enqueue(outboundMessage[any]{Type: "scores", Payload: scoresPayload{Entries: entries, Source: "remote"}})
			return
		}
		if err != nil {
			log.Printf("remote scores unavailable, falling back to local: %v", err)
		}
	}
	entries := h.board.TopScores(r.Context(), key)
	presenter.enqueue(outboundMessage[any]{Type: "scores", Payload: scoresPayload{Entries: entries, Source: "local"}})
}

func errorMessage(err error) outboundMessage[any] {
	msg := err.Error()
	if errors.Is(err, domain.ErrEmptyPool) {
		msg = "question pool is unavailable"
	}
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
