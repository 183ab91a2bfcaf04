package quiz

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"quizforge/internal/providers"
	"quizforge/internal/util"
	"quizforge/internal/vector"
)

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(providers.GenerateResponse), providers.ProviderInfo{Name: "test"}, args.Error(1)
}

type slowLLM struct{}

func (slowLLM) Generate(ctx context.Context, _ providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	<-ctx.Done()
	return providers.GenerateResponse{}, providers.ProviderInfo{}, ctx.Err()
}

var sampleDocs = []string{"Paris is the capital of France.", "The Seine flows through Paris."}
var sampleMetas = []vector.Metadata{{DocsetID: "j", Source: "geo.txt", Chunk: 0}, {DocsetID: "j", Source: "river.txt", Chunk: 0}}

func TestGenerateBuildsPromptAndNormalizes(t *testing.T) {
	llm := &mockLLM{}
	llm.On("Generate", mock.Anything, mock.MatchedBy(func(req providers.GenerateRequest) bool {
		return req.JSON &&
			req.System == QuizSystemPrompt &&
			req.Temperature != nil && *req.Temperature == DefaultTemperature &&
			strings.Contains(req.Prompt, "Generate 3 questions. Allowed types: mcq_multi.") &&
			strings.Contains(req.Prompt, "Focus on: rivers.") &&
			strings.Contains(req.Prompt, "[source: geo.txt | chunk: 0]\nParis is the capital of France.") &&
			strings.Contains(req.Prompt, "[source: river.txt | chunk: 0]")
	})).Return(providers.GenerateResponse{Text: `{"title":"Geo","questions":[{"type":"mcq_multi","options":["Paris","Lyon","Nice","Seine"],"correctAnswers":[0,2],"citations":[{"source":"geo.txt","chunk":0}]}]}`}, nil).Once()

	g := NewGenerator(llm, Options{})
	quiz, err := g.Generate(context.Background(), sampleDocs, sampleMetas, Request{
		NumQuestions: 3,
		Types:        []QuestionType{TypeMCQMulti},
		TopicHint:    "rivers",
		Seed:         seed(7),
	})
	require.NoError(t, err)
	assert.Equal(t, "Geo", quiz.Title)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, []string{"Paris", "Nice"}, quiz.Questions[0].CorrectAnswers)
	assert.Zero(t, g.ParseFailures())
	llm.AssertExpectations(t)
}

func TestGenerateDefaultsRequest(t *testing.T) {
	llm := &mockLLM{}
	llm.On("Generate", mock.Anything, mock.MatchedBy(func(req providers.GenerateRequest) bool {
		return strings.Contains(req.Prompt, "Generate 12 questions. Allowed types: mcq_single, mcq_multi, true_false, answer_short_question.")
	})).Return(providers.GenerateResponse{Text: `{"questions":[]}`}, nil).Once()

	quiz, err := NewGenerator(llm, Options{}).Generate(context.Background(), sampleDocs, sampleMetas, Request{})
	require.NoError(t, err)
	assert.Equal(t, "Quiz", quiz.Title)
	llm.AssertExpectations(t)
}

func TestGenerateRejectsBadRequest(t *testing.T) {
	llm := &mockLLM{}
	g := NewGenerator(llm, Options{})
	_, err := g.Generate(context.Background(), sampleDocs, sampleMetas, Request{Types: []QuestionType{"essay"}})
	require.ErrorIs(t, err, util.ErrInvalidArgument)
	_, err = g.Generate(context.Background(), sampleDocs, sampleMetas, Request{NumQuestions: MaxNumQuestions + 1})
	require.ErrorIs(t, err, util.ErrInvalidArgument)
	llm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestGenerateUnparseableOutputIsEmptyQuiz(t *testing.T) {
	llm := &mockLLM{}
	llm.On("Generate", mock.Anything, mock.Anything).Return(providers.GenerateResponse{Text: "Sorry, I cannot help with that."}, nil)

	g := NewGenerator(llm, Options{})
	quiz, err := g.Generate(context.Background(), sampleDocs, sampleMetas, Request{})
	require.NoError(t, err)
	assert.Equal(t, Quiz{Title: "Quiz", Questions: []Question{}}, quiz)
	assert.Equal(t, int64(1), g.ParseFailures())
}

func TestGenerateEmptyContextSkipsGenerator(t *testing.T) {
	llm := &mockLLM{}
	quiz, err := NewGenerator(llm, Options{}).Generate(context.Background(), []string{" ", ""}, nil, Request{})
	require.NoError(t, err)
	assert.Empty(t, quiz.Questions)
	llm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestGenerateTimeout(t *testing.T) {
	g := NewGenerator(slowLLM{}, Options{Timeout: 20 * time.Millisecond})
	_, err := g.Generate(context.Background(), sampleDocs, sampleMetas, Request{})
	require.ErrorIs(t, err, util.ErrGeneratorTimeout)
	assert.NotErrorIs(t, err, util.ErrGeneratorUnavailable)
}

func TestGenerateUnavailable(t *testing.T) {
	llm := &mockLLM{}
	llm.On("Generate", mock.Anything, mock.Anything).Return(providers.GenerateResponse{}, errors.New("connection refused"))
	_, err := NewGenerator(llm, Options{}).Generate(context.Background(), sampleDocs, sampleMetas, Request{})
	require.ErrorIs(t, err, util.ErrGeneratorUnavailable)
}

func TestGenerateForDocsetWithoutChunksIsNotFound(t *testing.T) {
	llm := &mockLLM{}
	collections := vector.NewCollections(vector.NewMemoryStore(), providers.NewMockProvider(8), vector.Options{})
	ix, err := collections.Index("empty-job")
	require.NoError(t, err)

	_, err = NewGenerator(llm, Options{}).GenerateForDocset(context.Background(), ix, Request{})
	require.ErrorIs(t, err, util.ErrNotFound)
	llm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestGenerateForDocsetWithMockProvider(t *testing.T) {
	ctx := context.Background()
	mockProvider := providers.NewMockProvider(8)
	collections := vector.NewCollections(vector.NewMemoryStore(), mockProvider, vector.Options{})
	ix, err := collections.Index("job")
	require.NoError(t, err)
	_, err = ix.AddDocument(ctx, "notes.txt", "Paris is the capital of France.")
	require.NoError(t, err)

	quiz, err := NewGenerator(mockProvider, Options{}).GenerateForDocset(ctx, ix, Request{})
	require.NoError(t, err)
	require.NotEmpty(t, quiz.Questions)
	for _, q := range quiz.Questions {
		assertInvariants(t, q)
		assert.Equal(t, []Citation{{Source: "notes.txt", Chunk: 0}}, q.Citations)
	}
}
