package app

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"chara-quiz-service/internal/domain"
)

const (
	maxChoices = 4

	// unknownImage replaces the prompt image on trait->name questions so the
	// artwork does not give the answer away; the real image is carried in
	// RevealImage and shown only after answering.
	unknownImage = "question-mark.png"

	// blankToken is what the targeted profile marker renders as.
	blankToken = "[___]"
)

// profileBlankPattern matches one {[...]} marker, non-greedy, case-sensitive.
var profileBlankPattern = regexp.MustCompile(`\{\[(.*?)\]\}`)

// fallbackChoices pad a choice set when the dataset holds fewer than three
// usable distractors.
var fallbackChoices = []string{"unknown", "n/a", "no data", "secret"}

// traitKey names a categorical field used for paired forward/inverse questions.
type traitKey struct {
	key   string
	label string
	value func(domain.Character) string
}

var traitKeys = []traitKey{
	{"hobby", "hobby", func(c domain.Character) string { return c.Hobby }},
	{"skill", "special skill", func(c domain.Character) string { return c.Skill }},
	{"sweets", "favorite sweet", func(c domain.Character) string { return c.Sweets }},
	{"personality", "personality", func(c domain.Character) string { return c.Personality }},
	{"item", "belonging", func(c domain.Character) string { return c.Item }},
}

// Generator derives the full candidate question pool from character records.
// Question identities are deterministic for a given dataset; only choice
// membership and ordering depend on the RNG.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator returns a generator over the given RNG; nil selects a
// time-seeded one.
func NewGenerator(rnd *rand.Rand) *Generator {
	if rnd == nil {
		rnd = newRand()
	}
	return &Generator{rnd: rnd}
}

// Generate scans the whole dataset once for the field pools, then emits every
// question instance whose required fields are present. A missing field skips
// only the dependent template, never the record.
func (g *Generator) Generate(records []domain.Character) []domain.Question {
	var questions []domain.Question
	if len(records) == 0 {
		return questions
	}

	names := collect(records, func(c domain.Character) string { return c.Name })
	owner1s := collect(records, func(c domain.Character) string { return c.Owner1 })
	owner2s := collect(records, func(c domain.Character) string { return c.Owner2 })
	ids := collect(records, func(c domain.Character) string { return c.ID })

	traitPools := make(map[string][]string, len(traitKeys))
	for _, tr := range traitKeys {
		traitPools[tr.key] = collect(records, tr.value)
	}
	profileAnswers := collectProfileAnswers(records)

	for _, c := range records {
		base := domain.Question{
			InfoImage:   c.ImageInfo,
			SubjectName: c.Name,
			CharacterID: c.ID,
		}

		if c.ImageQuiz != "" && c.Name != "" {
			q := base
			q.ID = c.ID + ":" + string(domain.QuestionImageToName)
			q.Type = domain.QuestionImageToName
			q.Text = "What is this character's name?"
			q.Image = c.ImageQuiz
			q.CorrectAnswer = c.Name
			q.Choices = g.buildChoices(c.Name, names)
			questions = append(questions, q)
		}
		if c.Name != "" && c.Owner1 != "" {
			q := base
			q.ID = c.ID + ":" + string(domain.QuestionNameToOwner1)
			q.Type = domain.QuestionNameToOwner1
			q.Text = fmt.Sprintf("Who is the 1st owner of %q?", c.Name)
			q.Image = c.ImageQuiz
			q.CorrectAnswer = c.Owner1
			q.Choices = g.buildChoices(c.Owner1, owner1s)
			questions = append(questions, q)
		}
		if c.Name != "" && c.Owner2 != "" {
			q := base
			q.ID = c.ID + ":" + string(domain.QuestionNameToOwner2)
			q.Type = domain.QuestionNameToOwner2
			q.Text = fmt.Sprintf("Who is the 2nd owner of %q?", c.Name)
			q.Image = c.ImageQuiz
			q.CorrectAnswer = c.Owner2
			q.Choices = g.buildChoices(c.Owner2, owner2s)
			questions = append(questions, q)
		}
		if c.Name != "" && c.ID != "" {
			q := base
			q.ID = c.ID + ":" + string(domain.QuestionNameToID)
			q.Type = domain.QuestionNameToID
			q.Text = fmt.Sprintf("What is the ID (No.) of %q?", c.Name)
			q.Image = c.ImageQuiz
			q.CorrectAnswer = c.ID
			q.Choices = g.buildChoices(c.ID, ids)
			questions = append(questions, q)

			inv := base
			inv.ID = c.ID + ":" + string(domain.QuestionIDToName)
			inv.Type = domain.QuestionIDToName
			inv.Text = fmt.Sprintf("What is the name of character #%s?", c.ID)
			inv.Image = c.ImageQuiz
			inv.CorrectAnswer = c.Name
			inv.Choices = g.buildChoices(c.Name, names)
			questions = append(questions, inv)
		}

		for _, tr := range traitKeys {
			value := tr.value(c)
			if c.Name == "" || value == "" {
				continue
			}

			q := base
			q.ID = c.ID + ":name_to_" + tr.key
			q.Type = domain.QuestionType("name_to_" + tr.key)
			q.Text = fmt.Sprintf("What is the %s of %q?", tr.label, c.Name)
			q.Image = c.ImageQuiz
			q.CorrectAnswer = value
			q.Choices = g.buildChoices(value, traitPools[tr.key])
			questions = append(questions, q)

			// Inverse direction: names of other records sharing this trait
			// value are dropped from the distractor pool, otherwise the
			// question would have more than one defensible answer.
			namePool := names
			if shared := sharedTraitNames(records, c, tr, value); len(shared) > 0 {
				namePool = excluding(names, shared)
			}
			inv := base
			inv.ID = c.ID + ":" + tr.key + "_to_name"
			inv.Type = domain.QuestionType(tr.key + "_to_name")
			inv.Text = fmt.Sprintf("Whose %s is %q?", tr.label, value)
			inv.Image = unknownImage
			inv.RevealImage = c.ImageQuiz
			inv.CorrectAnswer = c.Name
			inv.Choices = g.buildChoices(c.Name, namePool)
			questions = append(questions, inv)
		}

		questions = append(questions, g.profileQuestions(c, profileAnswers)...)
	}
	return questions
}

// profileQuestions emits one fill-in-blank question per {[...]} marker. The
// targeted marker becomes the blank token; every sibling marker in the same
// text is unwrapped to its inner content.
func (g *Generator) profileQuestions(c domain.Character, pool []string) []domain.Question {
	if c.Profile == "" {
		return nil
	}
	matches := profileBlankPattern.FindAllStringSubmatchIndex(c.Profile, -1)
	var questions []domain.Question
	for qi, m := range matches {
		answer := strings.TrimSpace(c.Profile[m[2]:m[3]])
		if answer == "" {
			continue
		}

		var b strings.Builder
		last := 0
		for mi, mm := range matches {
			b.WriteString(c.Profile[last:mm[0]])
			if mi == qi {
				b.WriteString(blankToken)
			} else {
				b.WriteString(c.Profile[mm[2]:mm[3]])
			}
			last = mm[1]
		}
		b.WriteString(c.Profile[last:])

		questions = append(questions, domain.Question{
			ID:            fmt.Sprintf("%s:%s:%d", c.ID, domain.QuestionProfileBlank, qi),
			Type:          domain.QuestionProfileBlank,
			Text:          b.String(),
			Image:         c.ImageQuiz,
			CorrectAnswer: answer,
			Choices:       g.buildChoices(answer, pool),
			InfoImage:     c.ImageInfo,
			SubjectName:   c.Name,
			CharacterID:   c.ID,
		})
	}
	return questions
}

// buildChoices assembles an ordered choice set of at most maxChoices entries:
// the correct answer, then uniform draws without replacement from the
// deduplicated pool, then fallback placeholders if the pool runs dry, finally
// shuffled.
func (g *Generator) buildChoices(correct string, pool []string) []string {
	choices := make([]string, 0, maxChoices)
	seen := make(map[string]struct{}, maxChoices)
	if strings.TrimSpace(correct) != "" {
		choices = append(choices, correct)
		seen[correct] = struct{}{}
	}

	candidates := make([]string, 0, len(pool))
	dup := make(map[string]struct{}, len(pool))
	for _, opt := range pool {
		if _, ok := dup[opt]; ok {
			continue
		}
		dup[opt] = struct{}{}
		if strings.TrimSpace(opt) == "" || opt == correct {
			continue
		}
		candidates = append(candidates, opt)
	}

	for len(choices) < maxChoices && len(candidates) > 0 {
		i := g.rnd.Intn(len(candidates))
		choices = append(choices, candidates[i])
		seen[candidates[i]] = struct{}{}
		candidates[i] = candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]
	}

	for _, fb := range fallbackChoices {
		if len(choices) >= maxChoices {
			break
		}
		if _, ok := seen[fb]; ok {
			continue
		}
		choices = append(choices, fb)
		seen[fb] = struct{}{}
	}

	Shuffle(g.rnd, choices)
	return choices
}

// collect gathers the non-empty values of one field across the dataset.
func collect(records []domain.Character, value func(domain.Character) string) []string {
	out := make([]string, 0, len(records))
	for _, c := range records {
		if v := value(c); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// collectProfileAnswers builds the global deduplicated pool of trimmed
// {[...]} inner texts across every profile.
func collectProfileAnswers(records []domain.Character) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range records {
		if c.Profile == "" {
			continue
		}
		for _, m := range profileBlankPattern.FindAllStringSubmatch(c.Profile, -1) {
			answer := strings.TrimSpace(m[1])
			if answer == "" {
				continue
			}
			if _, ok := seen[answer]; ok {
				continue
			}
			seen[answer] = struct{}{}
			out = append(out, answer)
		}
	}
	return out
}

// sharedTraitNames lists names of records other than c holding the same
// value for the given trait.
func sharedTraitNames(records []domain.Character, c domain.Character, tr traitKey, value string) map[string]struct{} {
	shared := make(map[string]struct{})
	for _, other := range records {
		if other.Name == c.Name {
			continue
		}
		if tr.value(other) == value {
			shared[other.Name] = struct{}{}
		}
	}
	return shared
}

func excluding(pool []string, drop map[string]struct{}) []string {
	out := make([]string, 0, len(pool))
	for _, v := range pool {
		if _, ok := drop[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
