// Package quiz turns indexed chunks into validated quizzes and grades
// short answers, using an external generator for both.
package quiz

type QuestionType string

const (
	TypeTrueFalse   QuestionType = "true_false"
	TypeMCQSingle   QuestionType = "mcq_single"
	TypeMCQMulti    QuestionType = "mcq_multi"
	TypeShortAnswer QuestionType = "answer_short_question"
)

// AllTypes is the default set of allowed question types.
var AllTypes = []QuestionType{TypeMCQSingle, TypeMCQMulti, TypeTrueFalse, TypeShortAnswer}

func (t QuestionType) Valid() bool {
	switch t {
	case TypeTrueFalse, TypeMCQSingle, TypeMCQMulti, TypeShortAnswer:
		return true
	default:
		return false
	}
}

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"

	ResultCorrect   = "correct"
	ResultIncorrect = "incorrect"
)

type Citation struct {
	Source string `json:"source"`
	Chunk  int    `json:"chunk"`
}

type Grading struct {
	Rubric   string   `json:"rubric"`
	Keywords []string `json:"keywords"`
	MaxChars int      `json:"maxChars"`
}

// Question is one normalized quiz item. CorrectAnswers always holds option
// texts, never indices, and is empty for short-answer questions.
type Question struct {
	ID             string       `json:"id"`
	Type           QuestionType `json:"type"`
	Level          int          `json:"level"`
	Difficulty     string       `json:"difficulty"`
	Question       string       `json:"question"`
	Options        []string     `json:"options"`
	CorrectAnswers []string     `json:"correctAnswers"`
	Explanation    string       `json:"explanation"`
	Citations      []Citation   `json:"citations"`
	Grading        *Grading     `json:"grading,omitempty"`
}

type Quiz struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

func emptyQuiz() Quiz {
	return Quiz{Title: defaultTitle, Questions: []Question{}}
}

// Request configures one generation. A nil Seed shuffles nondeterministically.
type Request struct {
	NumQuestions int
	Types        []QuestionType
	TopicHint    string
	Seed         *uint64
}

type Evaluation struct {
	Result    string     `json:"result"`
	Score     float64    `json:"score"`
	Answer    string     `json:"answer"`
	Feedback  string     `json:"feedback"`
	Citations []Citation `json:"citations"`
}

func DifficultyForLevel(level int) string {
	switch {
	case level <= 5:
		return DifficultyEasy
	case level <= 7:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}
