package providers

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqProvider supports LLM generation via Groq's OpenAI-compatible API.
// Groq has no embeddings endpoint, so it only implements LLMProvider.
type GroqProvider struct {
	chat *OpenAIProvider
}

func NewGroqProvider(keyName string) *GroqProvider {
	apiKey := resolveKey("GROQ", keyName, "GROQ_API_KEY")
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = envOr("QUIZFORGE_GROQ_BASE_URL", groqBaseURL)
	return &GroqProvider{chat: &OpenAIProvider{
		name:    "groq",
		keyName: keyName,
		apiKey:  apiKey,
		model:   envOr("QUIZFORGE_GROQ_MODEL", "llama-3.1-8b-instant"),
		client:  openai.NewClientWithConfig(cfg),
	}}
}

func (g *GroqProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	return g.chat.Generate(ctx, req)
}
