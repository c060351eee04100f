package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainClient adapts a langchaingo model to the Client interface.
type LangChainClient struct {
	model llms.Model
}

// NewLangChainClient wraps an existing model.
func NewLangChainClient(model llms.Model) *LangChainClient {
	return &LangChainClient{model: model}
}

// NewLangChainFromEnv builds a langchaingo-backed client. LLM_PROVIDER
// selects the vendor: "googleai" (GOOGLE_API_KEY/GEMINI_API_KEY) or
// "openai" (OPENAI_API_KEY).
func NewLangChainFromEnv(ctx context.Context) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))
	switch provider {
	case "googleai", "gemini":
		key := firstNonEmpty(os.Getenv("GOOGLE_API_KEY"), os.Getenv("GEMINI_API_KEY"))
		if key == "" {
			return nil, ErrLLMDisabled
		}
		model := firstNonEmpty(os.Getenv("LLM_MODEL"), "gemini-1.5-flash")
		m, err := googleai.New(ctx, googleai.WithAPIKey(key), googleai.WithDefaultModel(model))
		if err != nil {
			return nil, fmt.Errorf("init googleai model: %w", err)
		}
		return NewLangChainClient(m), nil
	case "openai":
		if os.Getenv("OPENAI_API_KEY") == "" {
			return nil, ErrLLMDisabled
		}
		opts := []openai.Option{}
		if m := os.Getenv("LLM_MODEL"); m != "" {
			opts = append(opts, openai.WithModel(m))
		}
		m, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("init openai model: %w", err)
		}
		return NewLangChainClient(m), nil
	default:
		// No provider selected: fall back to the plain HTTP client.
		return NewFromEnv()
	}
}

// Chat implements Client via a single system+human exchange.
func (c *LangChainClient) Chat(ctx context.Context, system, user string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
