package quiz

import (
	"fmt"
	"strings"
)

const QuizSystemPrompt = `You write quizzes grounded only in the context you are given.
Read every chunk, including examples and code snippets, and draw questions from all sources.
Follow the output schema exactly. Add no extra fields and do not invent facts.`

const QuizSchemaPrompt = `Return STRICT JSON with this schema:
{
  "title": "string",
  "questions": [
    {
      "id": "string",
      "type": "true_false|mcq_single|mcq_multi|answer_short_question",
      "level": 1,
      "difficulty": "easy|medium|hard",
      "question": "string",
      "options": ["string"],
      "correctAnswers": ["option text"],
      "explanation": "string",
      "citations": [{"source": "string", "chunk": 0}],
      "grading": {"rubric": "string", "keywords": ["string"], "maxChars": 500}
    }
  ]
}

Rules:
- ids are unique per question: "q1", "q2", ...
- level is an integer from 1 (easiest) to 10 (hardest); difficulty is easy for 1-5, medium for 6-7, hard for 8-10.
- correctAnswers holds option TEXTS copied from options, never indices.
- mcq_single: exactly 4 options and exactly 1 correct answer.
- mcq_multi: 3 to 7 options (prefer 5 or 6) and 2 to 4 correct answers.
- true_false: options are exactly ["True","False"]; correctAnswers is ["True"] or ["False"].
- answer_short_question: options and correctAnswers are empty lists; grading.rubric says how to award credit, grading.keywords lists terms a good answer mentions.
- grading is only present for answer_short_question.
- Every question cites at least one chunk using the [source | chunk] tags from the context.`

func buildQuizPrompt(packed []packedChunk, req Request) string {
	types := make([]string, 0, len(req.Types))
	for _, t := range req.Types {
		types = append(types, string(t))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d questions. Allowed types: %s.", req.NumQuestions, strings.Join(types, ", "))
	if hint := strings.TrimSpace(req.TopicHint); hint != "" {
		fmt.Fprintf(&b, " Focus on: %s.", hint)
	}
	b.WriteString("\n\nContext chunks (with citations):\n")
	for i, c := range packed {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[source: %s | chunk: %d]\n%s\n", c.Source, c.Chunk, c.Text)
	}
	b.WriteString("\nOutput format:\n")
	b.WriteString(QuizSchemaPrompt)
	return b.String()
}

const EvaluationSystemPrompt = `You grade a learner's short answer against a rubric.
Judge only against the rubric, the keywords and the cited material. Be strict but fair.`

const evaluationSchemaPrompt = `Return STRICT JSON:
{
  "result": "correct|incorrect",
  "score": 0.0,
  "answer": "a concise model answer",
  "feedback": "one or two sentences for the learner",
  "citations": [{"source": "string", "chunk": 0}]
}
score is between 0 and 1. Use "correct" only when the answer satisfies the rubric.`

func buildEvaluationPrompt(userAnswer string, q Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", q.Question)
	if q.Grading != nil {
		fmt.Fprintf(&b, "Rubric: %s\n", q.Grading.Rubric)
		if len(q.Grading.Keywords) > 0 {
			fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(q.Grading.Keywords, ", "))
		}
		if q.Grading.MaxChars > 0 {
			fmt.Fprintf(&b, "Expected length: at most %d characters\n", q.Grading.MaxChars)
		}
	}
	if len(q.Citations) > 0 {
		b.WriteString("Citations:\n")
		for _, c := range q.Citations {
			fmt.Fprintf(&b, "- [source: %s | chunk: %d]\n", c.Source, c.Chunk)
		}
	}
	fmt.Fprintf(&b, "\nLearner answer:\n%s\n\n", userAnswer)
	b.WriteString(evaluationSchemaPrompt)
	return b.String()
}
