package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaProvider serves local generation and embeddings through langchaingo.
// The alias picks the embedding model, e.g. "ollama:nomic" or "ollama:bge-m3".
type OllamaProvider struct {
	alias      string
	baseURL    string
	model      string
	embedModel string
}

func NewOllamaProvider(alias string) *OllamaProvider {
	return &OllamaProvider{
		alias:      alias,
		baseURL:    strings.TrimRight(envOr("QUIZFORGE_OLLAMA_BASE_URL", "http://localhost:11434"), "/"),
		model:      envOr("QUIZFORGE_OLLAMA_MODEL", "llama3.1"),
		embedModel: resolveOllamaEmbedModel(alias),
	}
}

func (o *OllamaProvider) client(model string, jsonMode bool) (*ollama.LLM, error) {
	opts := []ollama.Option{ollama.WithModel(model), ollama.WithServerURL(o.baseURL)}
	if jsonMode {
		opts = append(opts, ollama.WithFormat("json"))
	}
	return ollama.New(opts...)
}

func (o *OllamaProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "ollama", Model: o.model, Key: o.alias}
	llm, err := o.client(o.model, req.JSON)
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("ollama client: %w", err)
	}
	text, err := generateContent(ctx, llm, req)
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("ollama chat: %w", err)
	}
	return GenerateResponse{Text: text}, info, nil
}

func (o *OllamaProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "ollama", Model: o.embedModel, Key: o.alias}
	if len(req.Inputs) == 0 {
		return nil, info, errors.New("no embedding inputs")
	}
	llm, err := o.client(o.embedModel, false)
	if err != nil {
		return nil, info, fmt.Errorf("ollama client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, info, fmt.Errorf("ollama embedder: %w", err)
	}
	vecs, err := embedder.EmbedDocuments(ctx, req.Inputs)
	if err != nil {
		return nil, info, fmt.Errorf("ollama embeddings: %w", err)
	}
	out := make([][]float32, 0, len(vecs))
	for _, v := range vecs {
		if len(v) == 0 {
			return nil, info, errors.New("ollama returned empty embedding")
		}
		out = append(out, matchDimension(v, req.Dimension))
	}
	return out, info, nil
}

// generateContent sends an optional system message plus the prompt.
func generateContent(ctx context.Context, model llms.Model, req GenerateRequest) (string, error) {
	msgs := make([]llms.MessageContent, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	var opts []llms.CallOption
	if req.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*req.Temperature))
	}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}
	resp, err := model.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response")
	}
	return resp.Choices[0].Content, nil
}

func resolveOllamaEmbedModel(alias string) string {
	alias = strings.TrimSpace(alias)
	if alias != "" {
		if v := strings.TrimSpace(os.Getenv("QUIZFORGE_OLLAMA_EMBED_MODEL_" + sanitizeEnvToken(alias))); v != "" {
			return v
		}
		switch strings.ToLower(alias) {
		case "nomic":
			return "nomic-embed-text"
		case "bge":
			return "bge-small-en-v1.5"
		}
		// a literal model name, e.g. ollama:mxbai-embed-large
		if strings.ContainsAny(alias, "-/.") {
			return alias
		}
	}
	return envOr("QUIZFORGE_OLLAMA_EMBED_MODEL", "nomic-embed-text")
}
