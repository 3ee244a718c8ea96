package app_test

import (
	"math/rand"
	"strings"
	"testing"

	"chara-quiz-service/internal/app"
	"chara-quiz-service/internal/domain"
)

func testRecords() []domain.Character {
	return []domain.Character{
		{
			ID: "c1", Name: "Aya", Owner1: "Mika", Hobby: "chess", Sweets: "pudding",
			Profile:   "Likes {[tea]} and {[books]}.",
			ImageQuiz: "aya.png", ImageInfo: "aya_info.png",
		},
		{ID: "c2", Name: "Ben", Owner1: "Rin", Hobby: "chess", ImageQuiz: "ben.png"},
		{
			ID: "c3", Name: "Coco", Owner1: "Mika", Owner2: "Rin",
			Hobby: "running", Skill: "singing", ImageQuiz: "coco.png",
		},
		{ID: "c4", Name: "Dan", Owner1: "Sora", Sweets: "cake", ImageQuiz: "dan.png"},
	}
}

func generate(t *testing.T, records []domain.Character) []domain.Question {
	t.Helper()
	gen := app.NewGenerator(rand.New(rand.NewSource(1)))
	return gen.Generate(records)
}

func findQuestion(t *testing.T, questions []domain.Question, id string) domain.Question {
	t.Helper()
	for _, q := range questions {
		if q.ID == id {
			return q
		}
	}
	t.Fatalf("question %s not generated", id)
	return domain.Question{}
}

func TestGenerateChoiceSets(t *testing.T) {
	questions := generate(t, testRecords())
	if len(questions) == 0 {
		t.Fatal("expected questions from the test dataset")
	}
	for _, q := range questions {
		if len(q.Choices) == 0 || len(q.Choices) > 4 {
			t.Errorf("%s: %d choices", q.ID, len(q.Choices))
		}
		seen := make(map[string]int)
		for _, c := range q.Choices {
			seen[c]++
		}
		if seen[q.CorrectAnswer] != 1 {
			t.Errorf("%s: correct answer appears %d times", q.ID, seen[q.CorrectAnswer])
		}
		for c, n := range seen {
			if n > 1 {
				t.Errorf("%s: duplicate choice %q", q.ID, c)
			}
		}
	}
}

func TestTraitInverseExcludesSharedNames(t *testing.T) {
	questions := generate(t, testRecords())

	// Aya and Ben both have chess as their hobby; neither may appear as a
	// distractor on the other's question.
	q := findQuestion(t, questions, "c1:hobby_to_name")
	for _, c := range q.Choices {
		if c == "Ben" {
			t.Fatal("Ben shares the hobby and must not be a distractor for Aya")
		}
	}
	if q.Image != "question-mark.png" {
		t.Errorf("inverse trait question should hide the artwork, got %q", q.Image)
	}
	if q.RevealImage != "aya.png" {
		t.Errorf("expected reveal image aya.png, got %q", q.RevealImage)
	}

	q = findQuestion(t, questions, "c2:hobby_to_name")
	for _, c := range q.Choices {
		if c == "Aya" {
			t.Fatal("Aya shares the hobby and must not be a distractor for Ben")
		}
	}
}

func TestProfileBlankQuestions(t *testing.T) {
	questions := generate(t, testRecords())

	first := findQuestion(t, questions, "c1:profile_fill_blank:0")
	if first.Text != "Likes [___] and books." {
		t.Errorf("unexpected first blank text: %q", first.Text)
	}
	if first.CorrectAnswer != "tea" {
		t.Errorf("expected answer tea, got %q", first.CorrectAnswer)
	}

	second := findQuestion(t, questions, "c1:profile_fill_blank:1")
	if second.Text != "Likes tea and [___]." {
		t.Errorf("unexpected second blank text: %q", second.Text)
	}
	if second.CorrectAnswer != "books" {
		t.Errorf("expected answer books, got %q", second.CorrectAnswer)
	}
}

func TestSingleRecordPadsWithFallbacks(t *testing.T) {
	questions := generate(t, []domain.Character{
		{ID: "c1", Name: "Aya", Hobby: "chess", ImageQuiz: "aya.png"},
	})

	q := findQuestion(t, questions, "c1:name_to_hobby")
	if len(q.Choices) != 4 {
		t.Fatalf("expected 4 padded choices, got %d: %v", len(q.Choices), q.Choices)
	}
	padded := 0
	for _, c := range q.Choices {
		for _, fb := range []string{"unknown", "n/a", "no data", "secret"} {
			if c == fb {
				padded++
			}
		}
	}
	if padded != 3 {
		t.Errorf("expected 3 fallback placeholders, got %d: %v", padded, q.Choices)
	}
}

func TestMissingFieldSkipsOnlyDependentTemplates(t *testing.T) {
	questions := generate(t, testRecords())
	for _, q := range questions {
		if q.ID == "c2:name_to_owner2" {
			t.Fatal("Ben has no second owner, template must be skipped")
		}
		if q.ID == "c4:name_to_hobby" {
			t.Fatal("Dan has no hobby, template must be skipped")
		}
	}
	// the record itself still contributes its other templates
	findQuestion(t, questions, "c2:image_to_name")
	findQuestion(t, questions, "c4:name_to_sweets")
}

func TestQuestionIdentityIndependentOfSeed(t *testing.T) {
	a := app.NewGenerator(rand.New(rand.NewSource(1))).Generate(testRecords())
	b := app.NewGenerator(rand.New(rand.NewSource(99))).Generate(testRecords())

	if len(a) != len(b) {
		t.Fatalf("pool size depends on seed: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("question identity depends on seed at %d: %s vs %s", i, a[i].ID, b[i].ID)
		}
		if a[i].CorrectAnswer != b[i].CorrectAnswer {
			t.Fatalf("%s: answer depends on seed", a[i].ID)
		}
	}
}

func TestGenerateEmptyDataset(t *testing.T) {
	if got := generate(t, nil); len(got) != 0 {
		t.Fatalf("expected no questions, got %d", len(got))
	}
}

func TestChoicesNeverContainBlankStrings(t *testing.T) {
	records := testRecords()
	records = append(records, domain.Character{ID: "c5", Name: " ", ImageQuiz: "x.png"})
	for _, q := range generate(t, records) {
		for _, c := range q.Choices {
			if strings.TrimSpace(c) == "" {
				t.Fatalf("%s: blank choice", q.ID)
			}
		}
	}
}
