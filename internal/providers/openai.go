package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultOpenAIEmbedModel = "text-embedding-3-small"
)

// OpenAIProvider serves chat completions and embeddings through go-openai.
// Groq reuses it against its OpenAI-compatible endpoint.
type OpenAIProvider struct {
	name       string
	keyName    string
	apiKey     string
	model      string
	embedModel string
	client     *openai.Client
}

func NewOpenAIProvider(keyName string) *OpenAIProvider {
	apiKey := resolveKey("OPENAI", keyName, "OPENAI_API_KEY")
	return &OpenAIProvider{
		name:       "openai",
		keyName:    keyName,
		apiKey:     apiKey,
		model:      envOr("OPENAI_MODEL", defaultOpenAIModel),
		embedModel: envOr("OPENAI_EMBED_MODEL", defaultOpenAIEmbedModel),
		client:     openai.NewClient(apiKey),
	}
}

func (o *OpenAIProvider) info(model string) ProviderInfo {
	return ProviderInfo{Name: o.name, Model: model, Key: o.keyName}
}

func (o *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := o.info(o.model)
	if o.apiKey == "" {
		return GenerateResponse{}, info, fmt.Errorf("%s key missing for alias %q", o.name, o.keyName)
	}
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	creq := openai.ChatCompletionRequest{Model: o.model, Messages: msgs}
	if req.Temperature != nil {
		creq.Temperature = float32(*req.Temperature)
	}
	if req.JSON {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	resp, err := o.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("%s chat completion: %w", o.name, err)
	}
	if len(resp.Choices) == 0 {
		return GenerateResponse{}, info, fmt.Errorf("%s returned empty choices", o.name)
	}
	return GenerateResponse{Text: resp.Choices[0].Message.Content}, info, nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := o.info(o.embedModel)
	if o.apiKey == "" {
		return nil, info, fmt.Errorf("%s key missing for alias %q", o.name, o.keyName)
	}
	if len(req.Inputs) == 0 {
		return nil, info, errors.New("no embedding inputs")
	}
	ereq := openai.EmbeddingRequest{Input: req.Inputs, Model: openai.EmbeddingModel(o.embedModel)}
	if req.Dimension > 0 && strings.HasPrefix(o.embedModel, "text-embedding-3") {
		ereq.Dimensions = req.Dimension
	}
	resp, err := o.client.CreateEmbeddings(ctx, ereq)
	if err != nil {
		return nil, info, fmt.Errorf("%s embeddings: %w", o.name, err)
	}
	if len(resp.Data) != len(req.Inputs) {
		return nil, info, fmt.Errorf("%s returned %d embeddings for %d inputs", o.name, len(resp.Data), len(req.Inputs))
	}
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	out := make([][]float32, 0, len(resp.Data))
	for _, d := range resp.Data {
		out = append(out, matchDimension(d.Embedding, req.Dimension))
	}
	return out, info, nil
}

// resolveKey prefers QUIZFORGE_<VENDOR>_KEY_<ALIAS> and falls back to the
// vendor's conventional variable.
func resolveKey(vendor, alias, fallbackVar string) string {
	if alias != "" {
		if k := os.Getenv("QUIZFORGE_" + vendor + "_KEY_" + sanitizeEnvToken(alias)); k != "" {
			return k
		}
	}
	return os.Getenv(fallbackVar)
}

func envOr(k, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return fallback
}

func sanitizeEnvToken(s string) string {
	return strings.NewReplacer("-", "_", ".", "_", "/", "_", ":", "_").Replace(strings.ToUpper(s))
}

func matchDimension(v []float32, target int) []float32 {
	if target <= 0 || len(v) == target {
		return v
	}
	if len(v) > target {
		return v[:target]
	}
	out := make([]float32, target)
	copy(out, v)
	return out
}
