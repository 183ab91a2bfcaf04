package quiz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	obj, ok := parseObject(raw)
	require.True(t, ok, raw)
	return obj
}

func normalizeOne(t *testing.T, question string) Question {
	t.Helper()
	quiz := normalizeQuiz(decode(t, `{"title":"T","questions":[`+question+`]}`), AllTypes, 0)
	require.Len(t, quiz.Questions, 1)
	return quiz.Questions[0]
}

func assertInvariants(t *testing.T, q Question) {
	t.Helper()
	assert.GreaterOrEqual(t, q.Level, 1)
	assert.LessOrEqual(t, q.Level, 10)
	assert.Equal(t, DifficultyForLevel(q.Level), q.Difficulty)
	switch q.Type {
	case TypeMCQSingle:
		assert.Len(t, q.Options, 4)
		require.Len(t, q.CorrectAnswers, 1)
		assert.Contains(t, q.Options, q.CorrectAnswers[0])
	case TypeMCQMulti:
		assert.GreaterOrEqual(t, len(q.Options), 3)
		assert.LessOrEqual(t, len(q.Options), 7)
		assert.GreaterOrEqual(t, len(q.CorrectAnswers), 2)
		assert.LessOrEqual(t, len(q.CorrectAnswers), 4)
		assert.Subset(t, q.Options, q.CorrectAnswers)
	case TypeTrueFalse:
		assert.Equal(t, []string{"True", "False"}, q.Options)
		require.Len(t, q.CorrectAnswers, 1)
		assert.Contains(t, q.Options, q.CorrectAnswers[0])
	case TypeShortAnswer:
		assert.Empty(t, q.Options)
		assert.Empty(t, q.CorrectAnswers)
		require.NotNil(t, q.Grading)
		assert.NotEmpty(t, q.Grading.Rubric)
		assert.NotNil(t, q.Grading.Keywords)
	}
}

func TestMCQMultiIndicesMapToOptionTexts(t *testing.T) {
	q := normalizeOne(t, `{"type":"mcq_multi","question":"Pick","options":["a","b","c","d"],"correctAnswers":[0,2]}`)
	assertInvariants(t, q)
	assert.Equal(t, []string{"a", "c"}, q.CorrectAnswers)
}

func TestMCQMultiPadsAndTrims(t *testing.T) {
	q := normalizeOne(t, `{"type":"mcq_multi","options":["a","b"],"correctAnswers":["b"]}`)
	assertInvariants(t, q)
	assert.Equal(t, []string{"a", "b", "Option 1"}, q.Options)
	assert.Equal(t, []string{"a", "b"}, q.CorrectAnswers)

	q = normalizeOne(t, `{"type":"mcq_multi","options":["1","2","3","4","5","6","7","8","9"],"correctAnswers":["9","6","5","4","3","2"]}`)
	assertInvariants(t, q)
	assert.Len(t, q.Options, 7)
	assert.Equal(t, []string{"2", "3", "4", "5"}, q.CorrectAnswers)
}

func TestMCQSingleShaping(t *testing.T) {
	q := normalizeOne(t, `{"type":"mcq_single","options":["Paris","Rome"],"correctAnswers":["Rome","Paris"]}`)
	assertInvariants(t, q)
	assert.Equal(t, []string{"Paris", "Rome", "Option 1", "Option 2"}, q.Options)
	assert.Equal(t, []string{"Paris"}, q.CorrectAnswers)

	q = normalizeOne(t, `{"type":"mcq_single","options":["a","b","c","d","e"],"correctAnswers":"e"}`)
	assertInvariants(t, q)
	assert.Equal(t, []string{"a"}, q.CorrectAnswers)

	q = normalizeOne(t, `{"type":"mcq_single","options":["a","b","c","d"],"answer":[3]}`)
	assert.Equal(t, []string{"d"}, q.CorrectAnswers)

	q = normalizeOne(t, `{"type":"mcq_single","options":["Option 1"," ","Option 1"],"correctAnswers":{"x":1}}`)
	assertInvariants(t, q)
	assert.Equal(t, []string{"Option 1", "Option 2", "Option 3", "Option 4"}, q.Options)
}

func TestTrueFalseShaping(t *testing.T) {
	cases := map[string]string{
		`true`:             "True",
		`false`:            "False",
		`"true"`:           "True",
		`["TRUE"]`:         "True",
		`["True","False"]`: "False",
		`[0]`:              "True",
		`null`:             "False",
		`42`:               "False",
	}
	for answer, want := range cases {
		q := normalizeOne(t, `{"type":"true_false","options":["Yes","No","Maybe"],"correctAnswers":`+answer+`}`)
		assertInvariants(t, q)
		assert.Equal(t, []string{want}, q.CorrectAnswers, answer)
	}
}

func TestBooleanIgnoredOutsideTrueFalse(t *testing.T) {
	q := normalizeOne(t, `{"type":"mcq_single","options":["x","y","z","w"],"correctAnswers":true}`)
	assert.Equal(t, []string{"x"}, q.CorrectAnswers)
}

func TestShortAnswerShaping(t *testing.T) {
	q := normalizeOne(t, `{"type":"answer_short_question","options":["a"],"correctAnswers":["a"],"grading":{"keywords":["cell"," ",3,"cell"]}}`)
	assertInvariants(t, q)
	assert.Equal(t, defaultRubric, q.Grading.Rubric)
	assert.Equal(t, []string{"cell"}, q.Grading.Keywords)
	assert.Equal(t, 500, q.Grading.MaxChars)

	q = normalizeOne(t, `{"type":"answer_short_question","rubric":"Mention ATP","grading":null}`)
	assert.Equal(t, "Mention ATP", q.Grading.Rubric)

	q = normalizeOne(t, `{"type":"answer_short_question","grading":{"rubric":"r","maxChars":"120"}}`)
	assert.Equal(t, 120, q.Grading.MaxChars)

	b, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"options":[]`)
	assert.Contains(t, string(b), `"correctAnswers":[]`)
	assert.Contains(t, string(b), `"keywords":[]`)
}

func TestLevelAndDifficulty(t *testing.T) {
	cases := []struct {
		level string
		want  int
		diff  string
	}{
		{`0`, 1, DifficultyEasy},
		{`5`, 5, DifficultyEasy},
		{`6`, 6, DifficultyMedium},
		{`"7"`, 7, DifficultyMedium},
		{`8.9`, 8, DifficultyHard},
		{`99`, 10, DifficultyHard},
		{`"high"`, 5, DifficultyEasy},
	}
	for _, c := range cases {
		q := normalizeOne(t, `{"type":"true_false","level":`+c.level+`,"difficulty":"hard"}`)
		assert.Equal(t, c.want, q.Level, c.level)
		assert.Equal(t, c.diff, q.Difficulty, c.level)
	}
	q := normalizeOne(t, `{"type":"true_false"}`)
	assert.Equal(t, 5, q.Level)
}

func TestCitationsFiltered(t *testing.T) {
	q := normalizeOne(t, `{"type":"true_false","citations":[
		{"source":"a.txt","chunk":3},
		{"source":"b.txt"},
		{"source":"c.txt","chunk":"x"},
		{"source":"","chunk":1},
		{"chunk":1},
		"a.txt",
		{"source":"d.txt","chunk":"4"}
	]}`)
	assert.Equal(t, []Citation{{Source: "a.txt", Chunk: 3}, {Source: "b.txt"}, {Source: "d.txt", Chunk: 4}}, q.Citations)

	q = normalizeOne(t, `{"type":"true_false","citations":"a.txt"}`)
	assert.NotNil(t, q.Citations)
	assert.Empty(t, q.Citations)
}

func TestUnknownTypesDroppedAndIDsDefaulted(t *testing.T) {
	quiz := normalizeQuiz(decode(t, `{"questions":[
		{"type":"essay","question":"?"},
		{"type":"true_false","question":" Is water wet? "},
		"junk",
		{"id":"custom","type":"mcq_single"}
	]}`), AllTypes, 0)
	assert.Equal(t, "Quiz", quiz.Title)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, "q2", quiz.Questions[0].ID)
	assert.Equal(t, "Is water wet?", quiz.Questions[0].Question)
	assert.Equal(t, "custom", quiz.Questions[1].ID)
}

func TestDisallowedTypesDroppedAndCountCapped(t *testing.T) {
	data := decode(t, `{"questions":[
		{"id":"a","type":"true_false"},
		{"id":"b","type":"answer_short_question"},
		{"id":"c","type":"true_false"},
		{"id":"d","type":"true_false"}
	]}`)

	quiz := normalizeQuiz(data, []QuestionType{TypeTrueFalse}, 2)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, "a", quiz.Questions[0].ID)
	assert.Equal(t, "c", quiz.Questions[1].ID)

	quiz = normalizeQuiz(data, []QuestionType{TypeShortAnswer}, 0)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, "b", quiz.Questions[0].ID)
}

func TestParseObjectTolerance(t *testing.T) {
	obj, ok := parseObject("```json\n{\"title\":\"x\"}\n```")
	require.True(t, ok)
	assert.Equal(t, "x", obj["title"])

	obj, ok = parseObject(`Here you go: {"title":"y"} hope it helps`)
	require.True(t, ok)
	assert.Equal(t, "y", obj["title"])

	for _, bad := range []string{"", "not json", "[1,2]", "{broken", "null"} {
		_, ok := parseObject(bad)
		assert.False(t, ok, bad)
	}
}
