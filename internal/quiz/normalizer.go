package quiz

import (
	"fmt"
	"slices"
)

const (
	defaultTitle    = "Quiz"
	defaultLevel    = 5
	defaultMaxChars = 500

	defaultRubric = "Award full credit when the answer is accurate, addresses every part of the question and is supported by the cited material. Award partial credit for answers that are correct but incomplete."
)

var trueFalseOptions = []string{"True", "False"}

// normalizeQuiz enforces the per-type invariants on a decoded generator
// response. Questions whose type is unknown or not in allowed are dropped,
// and at most limit questions are kept when limit > 0.
func normalizeQuiz(data map[string]any, allowed []QuestionType, limit int) Quiz {
	quiz := Quiz{Title: asString(data["title"]), Questions: []Question{}}
	if quiz.Title == "" {
		quiz.Title = defaultTitle
	}
	items, _ := data["questions"].([]any)
	for i, it := range items {
		if limit > 0 && len(quiz.Questions) >= limit {
			break
		}
		raw, ok := it.(map[string]any)
		if !ok {
			continue
		}
		q, ok := normalizeQuestion(i+1, raw)
		if ok && slices.Contains(allowed, q.Type) {
			quiz.Questions = append(quiz.Questions, q)
		}
	}
	return quiz
}

func normalizeQuestion(pos int, raw map[string]any) (Question, bool) {
	qtype := QuestionType(asString(raw["type"]))
	if !qtype.Valid() {
		return Question{}, false
	}
	q := Question{
		ID:          asString(raw["id"]),
		Type:        qtype,
		Level:       defaultLevel,
		Question:    asString(raw["question"]),
		Explanation: asString(raw["explanation"]),
		Citations:   parseCitations(raw["citations"]),
	}
	if q.ID == "" {
		q.ID = fmt.Sprintf("q%d", pos)
	}
	if lvl, ok := asInt(raw["level"]); ok {
		q.Level = min(max(lvl, 1), 10)
	}
	q.Difficulty = DifficultyForLevel(q.Level)

	candidate, present := raw["correctAnswers"]
	if !present || candidate == nil {
		candidate = raw["answer"]
	}
	shape := parseAnswerShape(candidate)
	options := asStrings(raw["options"])

	switch qtype {
	case TypeMCQSingle:
		q.Options = padOptions(options, 4, 4)
		answers := shape.optionTexts(qtype, q.Options)
		if len(answers) == 0 {
			answers = q.Options[:1]
		}
		q.CorrectAnswers = []string{answers[0]}
	case TypeMCQMulti:
		q.Options = padOptions(options, 3, 7)
		q.CorrectAnswers = multiAnswers(q.Options, shape.optionTexts(qtype, q.Options))
	case TypeTrueFalse:
		q.Options = slices.Clone(trueFalseOptions)
		answers := shape.optionTexts(qtype, q.Options)
		if len(answers) == 1 {
			q.CorrectAnswers = answers
		} else {
			q.CorrectAnswers = []string{"False"}
		}
	case TypeShortAnswer:
		q.Options = []string{}
		q.CorrectAnswers = []string{}
		q.Grading = normalizeGrading(raw)
	}
	return q, true
}

// padOptions brings options into [lo, hi], padding with "Option n" labels
// that are not already in use.
func padOptions(options []string, lo, hi int) []string {
	out := slices.Clone(options)
	if len(out) > hi {
		out = out[:hi]
	}
	for n := 1; len(out) < lo; n++ {
		label := fmt.Sprintf("Option %d", n)
		if !slices.Contains(out, label) {
			out = append(out, label)
		}
	}
	return out
}

// multiAnswers returns 2 to 4 distinct answers in option order, padding with
// the earliest options not already chosen.
func multiAnswers(options, answers []string) []string {
	chosen := map[string]bool{}
	for _, opt := range options {
		if slices.Contains(answers, opt) {
			chosen[opt] = true
		}
	}
	for _, opt := range options {
		if len(chosen) >= 2 {
			break
		}
		chosen[opt] = true
	}
	out := make([]string, 0, 4)
	for _, opt := range options {
		if chosen[opt] && len(out) < 4 {
			out = append(out, opt)
		}
	}
	return out
}

// normalizeGrading reads grading from its object, falling back to
// top-level rubric and keywords fields.
func normalizeGrading(raw map[string]any) *Grading {
	src, _ := raw["grading"].(map[string]any)
	if src == nil {
		src = raw
	}
	g := &Grading{
		Rubric:   asString(src["rubric"]),
		Keywords: asStrings(src["keywords"]),
		MaxChars: defaultMaxChars,
	}
	if g.Rubric == "" {
		g.Rubric = defaultRubric
	}
	if n, ok := asInt(src["maxChars"]); ok && n > 0 {
		g.MaxChars = n
	}
	return g
}
