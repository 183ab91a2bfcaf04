package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MockProvider is a deterministic offline backend. Embeddings are hashed
// unit vectors; generations are fixed, schema-shaped JSON.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 1536
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(_ context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, deterministicVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim), Key: "mock"}, nil
}

var contextTag = regexp.MustCompile(`\[source: ([^|\]]+) \| chunk: (\d+)\]`)

func (m *MockProvider) Generate(_ context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}
	op := strings.ToLower(req.Operation)
	var payload any
	switch {
	case strings.Contains(op, "quiz"):
		payload = mockQuiz(req.Prompt)
	case strings.Contains(op, "evaluat"):
		payload = map[string]any{
			"result":   "incorrect",
			"score":    0.5,
			"answer":   "Deterministic mock verdict.",
			"feedback": "Mock evaluation only; configure a real provider for grading.",
		}
	default:
		return GenerateResponse{Text: "Mock response."}, info, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return GenerateResponse{}, info, err
	}
	return GenerateResponse{Text: string(b)}, info, nil
}

func mockQuiz(prompt string) map[string]any {
	citations := []map[string]any{}
	if m := contextTag.FindStringSubmatch(prompt); m != nil {
		n, _ := strconv.Atoi(m[2])
		citations = append(citations, map[string]any{"source": strings.TrimSpace(m[1]), "chunk": n})
	}
	return map[string]any{
		"title": "Mock Quiz",
		"questions": []map[string]any{
			{
				"id": "q1", "type": "true_false", "level": 2,
				"question":       "The provided material was indexed before this quiz was generated.",
				"options":        []string{"True", "False"},
				"correctAnswers": []string{"True"},
				"explanation":    "Quizzes are only generated from indexed chunks.",
				"citations":      citations,
			},
			{
				"id": "q2", "type": "mcq_single", "level": 5,
				"question":       "Which component produced this quiz?",
				"options":        []string{"The mock provider", "A human author", "A search engine", "A spreadsheet"},
				"correctAnswers": []int{0},
				"explanation":    "Offline runs use the deterministic mock provider.",
				"citations":      citations,
			},
			{
				"id": "q3", "type": "answer_short_question", "level": 7,
				"question":    "Summarize the main idea of the source material in one sentence.",
				"explanation": "Any faithful one-sentence summary is acceptable.",
				"grading":     map[string]any{"rubric": "Full credit for a faithful summary.", "keywords": []string{}, "maxChars": 300},
				"citations":   citations,
			},
		},
	}
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251), byte(i/251)))
		u := binary.BigEndian.Uint32(h[:4])
		vec[i] = float32(u%2000)/1000.0 - 1.0
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}
