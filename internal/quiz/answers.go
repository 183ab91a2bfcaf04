package quiz

import (
	"math"
	"strings"
)

type answerKind int

const (
	answerNone answerKind = iota
	answerTexts
	answerIndices
	answerSingleText
	answerBool
)

// answerShape is the decoded form of a generator's correctAnswers field.
// Generators encode answers as option texts, option indices, a single text
// or a boolean; anything else is answerNone.
type answerShape struct {
	kind    answerKind
	texts   []string
	indices []int
	text    string
	boolean bool
}

func parseAnswerShape(v any) answerShape {
	switch x := v.(type) {
	case string:
		return answerShape{kind: answerSingleText, text: strings.TrimSpace(x)}
	case bool:
		return answerShape{kind: answerBool, boolean: x}
	case []any:
		if texts, ok := allStrings(x); ok {
			return answerShape{kind: answerTexts, texts: texts}
		}
		if idx, ok := allIndices(x); ok {
			return answerShape{kind: answerIndices, indices: idx}
		}
	}
	return answerShape{kind: answerNone}
}

func allStrings(items []any) ([]string, bool) {
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, false
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out, true
}

func allIndices(items []any) ([]int, bool) {
	out := make([]int, 0, len(items))
	for _, it := range items {
		f, ok := it.(float64)
		if !ok || f != math.Trunc(f) {
			return nil, false
		}
		out = append(out, int(f))
	}
	return out, true
}

// optionTexts maps the shape onto existing option texts. Text matches are
// exact except for true_false, which ignores case.
func (a answerShape) optionTexts(qtype QuestionType, options []string) []string {
	match := func(s string) (string, bool) {
		for _, opt := range options {
			if opt == s || (qtype == TypeTrueFalse && strings.EqualFold(opt, s)) {
				return opt, true
			}
		}
		return "", false
	}

	switch a.kind {
	case answerTexts:
		wanted := map[string]struct{}{}
		for _, t := range a.texts {
			if opt, ok := match(t); ok {
				wanted[opt] = struct{}{}
			}
		}
		out := make([]string, 0, len(wanted))
		for _, opt := range options {
			if _, ok := wanted[opt]; ok {
				out = append(out, opt)
			}
		}
		return out
	case answerIndices:
		out := make([]string, 0, len(a.indices))
		for _, i := range a.indices {
			if i >= 0 && i < len(options) {
				out = append(out, options[i])
			}
		}
		return out
	case answerSingleText:
		if opt, ok := match(a.text); ok {
			return []string{opt}
		}
	case answerBool:
		if qtype == TypeTrueFalse {
			if a.boolean {
				return []string{"True"}
			}
			return []string{"False"}
		}
	}
	return nil
}
