package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"quizforge/internal/providers"
	"quizforge/internal/util"
	"quizforge/internal/vector"
)

const (
	DefaultNumQuestions = 12
	MaxNumQuestions     = 50
	DefaultTemperature  = 0.9
	DefaultTimeout      = 60 * time.Second
)

type Options struct {
	ContextBudget int
	Temperature   float64
	Timeout       time.Duration
}

// caller bounds every generator call and classifies its failures.
type caller struct {
	llm     providers.LLMProvider
	timeout time.Duration
}

func (c caller) complete(ctx context.Context, req providers.GenerateRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	started := time.Now()
	resp, info, err := c.llm.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %v", util.ErrGeneratorTimeout, c.timeout, err)
		}
		return "", fmt.Errorf("%w: %v", util.ErrGeneratorUnavailable, err)
	}
	slog.Debug("generator call", "operation", req.Operation, "provider", info.Name, "model", info.Model, "duration_ms", time.Since(started).Milliseconds())
	return resp.Text, nil
}

type Generator struct {
	caller
	budget        int
	temperature   float64
	parseFailures atomic.Int64
}

func NewGenerator(llm providers.LLMProvider, opts Options) *Generator {
	if opts.ContextBudget <= 0 {
		opts.ContextBudget = DefaultContextBudget
	}
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Generator{
		caller:      caller{llm: llm, timeout: opts.Timeout},
		budget:      opts.ContextBudget,
		temperature: opts.Temperature,
	}
}

// ParseFailures counts generator responses that could not be decoded.
func (g *Generator) ParseFailures() int64 { return g.parseFailures.Load() }

func normalizeRequest(req Request) (Request, error) {
	if req.NumQuestions <= 0 {
		req.NumQuestions = DefaultNumQuestions
	}
	if req.NumQuestions > MaxNumQuestions {
		return req, fmt.Errorf("%w: numQuestions must be at most %d", util.ErrInvalidArgument, MaxNumQuestions)
	}
	if len(req.Types) == 0 {
		req.Types = AllTypes
	}
	for _, t := range req.Types {
		if !t.Valid() {
			return req, fmt.Errorf("%w: unknown question type %q", util.ErrInvalidArgument, t)
		}
	}
	return req, nil
}

// Generate packs docs into the context budget, prompts the generator and
// normalizes whatever comes back. Undecodable output yields an empty quiz.
func (g *Generator) Generate(ctx context.Context, docs []string, metas []vector.Metadata, req Request) (Quiz, error) {
	req, err := normalizeRequest(req)
	if err != nil {
		return Quiz{}, err
	}
	packed := packContext(docs, metas, g.budget, req.Seed)
	if len(packed) == 0 {
		return emptyQuiz(), nil
	}

	raw, err := g.complete(ctx, providers.GenerateRequest{
		Operation:   "generate_quiz",
		System:      QuizSystemPrompt,
		Prompt:      buildQuizPrompt(packed, req),
		JSON:        true,
		Temperature: providers.Temperature(g.temperature),
	})
	if err != nil {
		return Quiz{}, err
	}
	data, ok := parseObject(raw)
	if !ok {
		g.parseFailures.Add(1)
		slog.Warn("quiz output unparseable", "bytes", len(raw), "chunks", len(packed))
		return emptyQuiz(), nil
	}
	quiz := normalizeQuiz(data, req.Types, req.NumQuestions)
	slog.Info("quiz generated", "questions", len(quiz.Questions), "chunks", len(packed))
	return quiz, nil
}

// GenerateForDocset reads every chunk of the docset and generates from
// them. A docset without chunks is util.ErrNotFound and the generator is
// not called.
func (g *Generator) GenerateForDocset(ctx context.Context, ix *vector.Index, req Request) (Quiz, error) {
	texts, metas, err := ix.GetAll(ctx, 0)
	if err != nil {
		return Quiz{}, err
	}
	if len(texts) == 0 {
		return Quiz{}, fmt.Errorf("%w: no indexed documents for %s", util.ErrNotFound, ix.DocsetID())
	}
	return g.Generate(ctx, texts, metas, req)
}
