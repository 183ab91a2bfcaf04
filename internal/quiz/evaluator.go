package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"

	"quizforge/internal/providers"
	"quizforge/internal/util"
)

const evaluationErrorFeedback = "Error evaluating answer."

type Evaluator struct {
	caller
	parseFailures atomic.Int64
}

func NewEvaluator(llm providers.LLMProvider, opts Options) *Evaluator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Evaluator{caller: caller{llm: llm, timeout: opts.Timeout}}
}

func (e *Evaluator) ParseFailures() int64 { return e.parseFailures.Load() }

// Evaluate grades userAnswer against a short-answer question. Other question
// types are util.ErrInvalidArgument. Undecodable verdicts become a fixed
// incorrect result carrying the question's own citations.
func (e *Evaluator) Evaluate(ctx context.Context, userAnswer string, q Question) (Evaluation, error) {
	if q.Type != TypeShortAnswer {
		return Evaluation{}, fmt.Errorf("%w: only %s questions can be evaluated, got %q", util.ErrInvalidArgument, TypeShortAnswer, q.Type)
	}
	original := slices.Clone(q.Citations)
	if original == nil {
		original = []Citation{}
	}
	if q.Grading == nil || strings.TrimSpace(q.Grading.Rubric) == "" {
		q.Grading = normalizeGrading(map[string]any{})
	}

	raw, err := e.complete(ctx, providers.GenerateRequest{
		Operation:   "evaluate_answer",
		System:      EvaluationSystemPrompt,
		Prompt:      buildEvaluationPrompt(userAnswer, q),
		JSON:        true,
		Temperature: providers.Temperature(0),
	})
	if err != nil {
		return Evaluation{}, err
	}
	data, ok := parseObject(raw)
	if !ok {
		e.parseFailures.Add(1)
		slog.Warn("evaluation output unparseable", "question_id", q.ID, "bytes", len(raw))
		return Evaluation{Result: ResultIncorrect, Score: 0, Feedback: evaluationErrorFeedback, Citations: original}, nil
	}
	return normalizeEvaluation(data, original), nil
}

func normalizeEvaluation(data map[string]any, original []Citation) Evaluation {
	ev := Evaluation{
		Result:   ResultIncorrect,
		Answer:   asString(data["answer"]),
		Feedback: asString(data["feedback"]),
	}
	if strings.EqualFold(asString(data["result"]), ResultCorrect) {
		ev.Result = ResultCorrect
	}
	if s, ok := asFloat(data["score"]); ok {
		ev.Score = min(max(s, 0), 1)
	}
	ev.Citations = parseCitations(data["citations"])
	if len(ev.Citations) == 0 {
		ev.Citations = original
	}
	return ev
}
