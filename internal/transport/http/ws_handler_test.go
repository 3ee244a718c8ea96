package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"chara-quiz-service/internal/app"
	"chara-quiz-service/internal/domain"
	"chara-quiz-service/internal/infra/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	builder := app.NewPoolBuilder(memory.NewStaticCharacterLoader(sampleCharacters()), nil)
	repo := memory.NewPoolRepository(builder, time.Minute)
	pool := app.NewPoolService(repo, nil)
	board := app.NewLeaderboardManager(memory.NewScoreStore(), nil)
	handler := NewWSHandler(pool, board, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil skips messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg.Payload
		}
		if msg.Type == "error" {
			t.Fatalf("unexpected error waiting for %s: %v", want, msg.Payload["message"])
		}
	}
	t.Fatalf("never received %s", want)
	return nil
}

func TestPracticeFlow(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server)

	start := map[string]any{
		"type":    "start",
		"payload": map[string]any{"mode": "practice"},
	}
	if err := conn.WriteJSON(start); err != nil {
		t.Fatalf("write start: %v", err)
	}

	question := readUntil(t, conn, "question")
	if question["index"].(float64) != 1 {
		t.Fatalf("expected question 1 first, got %v", question["index"])
	}
	total := int(question["total"].(float64))
	if total < 2 {
		t.Fatalf("expected a multi-question pool, got %d", total)
	}

	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"choice": "definitely wrong"},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	feedback := readUntil(t, conn, "feedback")
	if feedback["correct"].(bool) {
		t.Fatal("a bogus choice should not be correct")
	}
	if feedback["correctAnswer"].(string) == "" {
		t.Fatal("feedback should reveal the correct answer")
	}

	control := readUntil(t, conn, "nextControl")
	if control["last"].(bool) {
		t.Fatal("first question of a multi-question run should not be last")
	}

	if err := conn.WriteJSON(map[string]any{"type": "next"}); err != nil {
		t.Fatalf("write next: %v", err)
	}
	second := readUntil(t, conn, "question")
	if second["index"].(float64) != 2 {
		t.Fatalf("expected question 2 after next, got %v", second["index"])
	}
}

func TestFixedRunRecordsScore(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server)

	start := map[string]any{
		"type":    "start",
		"payload": map[string]any{"mode": "fixed", "count": 1},
	}
	if err := conn.WriteJSON(start); err != nil {
		t.Fatalf("write start: %v", err)
	}
	readUntil(t, conn, "question")

	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"choice": "definitely wrong"},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	results := readUntil(t, conn, "results")
	if results["attempted"].(float64) != 1 {
		t.Fatalf("expected 1 attempted, got %v", results["attempted"])
	}

	// an empty board always qualifies, even at score 0
	readUntil(t, conn, "namePrompt")
	name := map[string]any{
		"type":    "name",
		"payload": map[string]any{"name": "Alice"},
	}
	if err := conn.WriteJSON(name); err != nil {
		t.Fatalf("write name: %v", err)
	}

	// recording runs async off session completion; poll until it lands
	deadline := time.Now().Add(5 * time.Second)
	for {
		req := map[string]any{
			"type":    "scores",
			"payload": map[string]any{"mode": "fixed", "modeValue": 1},
		}
		if err := conn.WriteJSON(req); err != nil {
			t.Fatalf("write scores request: %v", err)
		}
		scores := readUntil(t, conn, "scores")
		entries, _ := scores["entries"].([]any)
		if len(entries) == 1 {
			entry := entries[0].(map[string]any)
			if entry["player_name"].(string) != "Alice" {
				t.Fatalf("expected Alice on the board, got %v", entry["player_name"])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("score never recorded")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestUnknownModeRejected(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server)

	start := map[string]any{
		"type":    "start",
		"payload": map[string]any{"mode": "speedrun"},
	}
	if err := conn.WriteJSON(start); err != nil {
		t.Fatalf("write start: %v", err)
	}

	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "error" {
		t.Fatalf("expected error, got %s", msg.Type)
	}
}

func TestCharacterList(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server)

	if err := conn.WriteJSON(map[string]any{"type": "characters"}); err != nil {
		t.Fatalf("write characters request: %v", err)
	}
	payload := readUntil(t, conn, "characters")
	characters, _ := payload["characters"].([]any)
	if len(characters) != len(sampleCharacters()) {
		t.Fatalf("expected %d characters, got %d", len(sampleCharacters()), len(characters))
	}
}

func sampleCharacters() []domain.Character {
	return []domain.Character{
		{
			ID: "c1", Name: "Aya", Owner1: "Mika", Hobby: "chess",
			Profile: "Likes {[tea]} and books.", ImageQuiz: "aya.png", ImageInfo: "aya_info.png",
		},
		{
			ID: "c2", Name: "Ben", Owner1: "Rin", Skill: "juggling",
			ImageQuiz: "ben.png",
		},
		{
			ID: "c3", Name: "Coco", Owner1: "Mika", Owner2: "Rin", Sweets: "pudding",
			ImageQuiz: "coco.png",
		},
	}
}
