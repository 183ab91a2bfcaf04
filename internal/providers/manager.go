package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"quizforge/internal/config"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

type NamedEmbedProvider struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

type Manager struct {
	llmProviders   []NamedLLMProvider
	embedProviders []NamedEmbedProvider
	embedDim       int
}

func NewManager(cfg config.Config) (*Manager, error) {
	m := &Manager{embedDim: cfg.EmbedDim}
	for _, ref := range ParseProviderList(cfg.LLMProviders) {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		llm, ok := p.(LLMProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support llm", ref.Raw)
		}
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ref, Provider: llm})
	}
	for _, ref := range ParseProviderList(cfg.EmbedProviders) {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		embed, ok := p.(EmbeddingProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support embeddings", ref.Raw)
		}
		m.embedProviders = append(m.embedProviders, NamedEmbedProvider{Ref: ref, Provider: embed})
	}
	return m, nil
}

// Embedder returns the first configured embedding provider. Vectors from
// different models are not comparable, so embeddings never fall over.
func (m *Manager) Embedder() EmbeddingProvider {
	return m.embedProviders[0].Provider
}

func (m *Manager) EmbedDim() int { return m.embedDim }

// LLM returns a provider that tries every configured LLM in preference
// order, moving on only for retryable failures.
func (m *Manager) LLM() LLMProvider {
	order := m.PreferredLLMOrder()
	chain := make([]NamedLLMProvider, 0, len(order))
	for _, i := range order {
		chain = append(chain, m.llmProviders[i])
	}
	return &fallbackLLM{chain: chain}
}

func (m *Manager) LLMNames() []string {
	out := make([]string, 0, len(m.llmProviders))
	for _, p := range m.llmProviders {
		out = append(out, p.Ref.Raw)
	}
	return out
}

// PreferredLLMOrder puts real providers ahead of mock.
func (m *Manager) PreferredLLMOrder() []int {
	n := len(m.llmProviders)
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !strings.EqualFold(m.llmProviders[i].Ref.Name, "mock") {
			out = append(out, i)
		}
	}
	for i := 0; i < n; i++ {
		if strings.EqualFold(m.llmProviders[i].Ref.Name, "mock") {
			out = append(out, i)
		}
	}
	return out
}

type fallbackLLM struct {
	chain []NamedLLMProvider
}

func (f *fallbackLLM) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	var (
		lastInfo ProviderInfo
		errs     []error
	)
	for i, p := range f.chain {
		resp, info, err := p.Provider.Generate(ctx, req)
		if err == nil {
			return resp, info, nil
		}
		lastInfo = info
		errs = append(errs, err)
		kind := ClassifyError(err)
		slog.Warn("llm call failed", "provider", p.Ref.Raw, "operation", req.Operation, "error_type", string(kind), "error", err)
		if ctx.Err() != nil || !kind.Retryable() || i == len(f.chain)-1 {
			break
		}
	}
	return GenerateResponse{}, lastInfo, errors.Join(errs...)
}

func buildProvider(ref ProviderRef, dim int) (any, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(dim), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "groq":
		return NewGroqProvider(ref.KeyAlias), nil
	case "ollama":
		return NewOllamaProvider(ref.KeyAlias), nil
	case "anthropic":
		return NewAnthropicProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
