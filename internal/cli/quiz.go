package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"quizforge/internal/quiz"
	"quizforge/internal/util"
)

var (
	quizNum    int
	quizTypes  []string
	quizTopic  string
	quizSeed   uint64
	quizOutput string

	evalQuestionFile string
	evalQuestionID   string
	evalAnswer       string
)

var quizCmd = &cobra.Command{
	Use:   "quiz <docset>",
	Short: "Generate a quiz from an indexed docset",
	Long: `Generate a quiz from the chunks indexed under <docset>.

Examples:
  quizctl quiz biology -n 5
  quizctl quiz biology --types mcq_single,true_false --topic mitosis --seed 7 -o quiz.json`,
	Args: cobra.ExactArgs(1),
	RunE: runQuiz,
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Grade an answer to a short-answer question",
	Long: `Grade a learner's answer to one answer_short_question question.

--question points at a JSON file holding either a single question or a whole
quiz; with a quiz, --id picks the question.`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	quizCmd.Flags().IntVarP(&quizNum, "num", "n", quiz.DefaultNumQuestions, "number of questions")
	quizCmd.Flags().StringSliceVarP(&quizTypes, "types", "t", nil, "allowed question types (default all)")
	quizCmd.Flags().StringVar(&quizTopic, "topic", "", "focus the questions on a topic")
	quizCmd.Flags().Uint64Var(&quizSeed, "seed", 0, "shuffle seed for reproducible context packing")
	quizCmd.Flags().StringVarP(&quizOutput, "output", "o", "", "write quiz to file")

	evaluateCmd.Flags().StringVarP(&evalQuestionFile, "question", "q", "", "question or quiz JSON file")
	evaluateCmd.Flags().StringVar(&evalQuestionID, "id", "", "question id when the file holds a quiz")
	evaluateCmd.Flags().StringVarP(&evalAnswer, "answer", "a", "", "the learner's answer")
	_ = evaluateCmd.MarkFlagRequired("question")
}

func runQuiz(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ix, err := a.Collections.Index(args[0])
	if err != nil {
		return err
	}
	req := quiz.Request{NumQuestions: quizNum, TopicHint: quizTopic}
	for _, t := range quizTypes {
		req.Types = append(req.Types, quiz.QuestionType(strings.TrimSpace(t)))
	}
	if cmd.Flags().Changed("seed") {
		seed := quizSeed
		req.Seed = &seed
	}
	q, err := a.Generator.GenerateForDocset(ctx, ix, req)
	if err != nil {
		return err
	}
	if quizOutput != "" {
		if err := util.WriteJSONAtomic(quizOutput, q); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d questions to %s\n", len(q.Questions), quizOutput)
		return nil
	}
	return printJSON(cmd.OutOrStdout(), q)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	q, err := loadQuestion(evalQuestionFile, evalQuestionID)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ev, err := a.Evaluator.Evaluate(ctx, evalAnswer, q)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), ev)
}

func loadQuestion(path, id string) (quiz.Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return quiz.Question{}, err
	}
	var whole quiz.Quiz
	if err := json.Unmarshal(raw, &whole); err == nil && len(whole.Questions) > 0 {
		for _, q := range whole.Questions {
			if q.ID == id || (id == "" && q.Type == quiz.TypeShortAnswer) {
				return q, nil
			}
		}
		return quiz.Question{}, fmt.Errorf("%w: no question %q in %s", util.ErrNotFound, id, path)
	}
	var q quiz.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return quiz.Question{}, fmt.Errorf("decode question %s: %w", path, err)
	}
	return q, nil
}
