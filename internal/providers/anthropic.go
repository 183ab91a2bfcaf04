package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/llms/anthropic"
)

// AnthropicProvider is generation-only. The client is built on first use so
// a missing key surfaces as a call error, like the other providers.
type AnthropicProvider struct {
	keyName string
	apiKey  string
	model   string

	once sync.Once
	llm  *anthropic.LLM
	err  error
}

func NewAnthropicProvider(keyName string) *AnthropicProvider {
	return &AnthropicProvider{
		keyName: keyName,
		apiKey:  resolveKey("ANTHROPIC", keyName, "ANTHROPIC_API_KEY"),
		model:   envOr("QUIZFORGE_ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
	}
}

func (a *AnthropicProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "anthropic", Model: a.model, Key: a.keyName}
	if a.apiKey == "" {
		return GenerateResponse{}, info, fmt.Errorf("anthropic key missing for alias %q", a.keyName)
	}
	a.once.Do(func() {
		a.llm, a.err = anthropic.New(anthropic.WithToken(a.apiKey), anthropic.WithModel(a.model))
	})
	if a.err != nil {
		return GenerateResponse{}, info, fmt.Errorf("anthropic client: %w", a.err)
	}
	// Anthropic has no JSON mode; the prompt carries the schema.
	req.JSON = false
	text, err := generateContent(ctx, a.llm, req)
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("anthropic messages: %w", err)
	}
	return GenerateResponse{Text: text}, info, nil
}
