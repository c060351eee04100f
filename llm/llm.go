// Package llm is the reasoning backend boundary: a small pluggable chat
// client with sane env defaults, plus the planner that turns backend output
// into validated ACL replies. Backend output is untrusted input; nothing it
// produces reaches the wire without schema and transition validation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrLLMDisabled means no usable key/base URL was configured.
var ErrLLMDisabled = errors.New("llm client disabled (missing key or base url)")

// Client is the minimal interface the planner and router need.
type Client interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// OpenAIClient is an OpenAI-compatible HTTP chat client.
type OpenAIClient struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client
}

type chatReq struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResp struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewFromEnv creates a client from the environment.
// Base URL precedence: LLM_BASE_URL > LLM_URL > api.openai.com.
// Key precedence: LLM_API_KEY > OPENAI_API_KEY > GEMINI_API_KEY > GOOGLE_API_KEY.
// Local hosts (localhost/127.0.0.1) allow an empty key, as does
// LLM_ALLOW_NO_KEY=true.
func NewFromEnv() (Client, error) {
	base := firstNonEmpty(os.Getenv("LLM_BASE_URL"), os.Getenv("LLM_URL"))
	if base == "" {
		base = "https://api.openai.com/v1"
	}

	key := firstNonEmpty(
		os.Getenv("LLM_API_KEY"),
		os.Getenv("OPENAI_API_KEY"),
		os.Getenv("GEMINI_API_KEY"),
		os.Getenv("GOOGLE_API_KEY"),
	)

	model := firstNonEmpty(os.Getenv("LLM_MODEL"), os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = "gpt-4o-mini"
	}

	timeout := 12 * time.Second
	if v := strings.TrimSpace(os.Getenv("LLM_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			timeout = d
		}
	}

	allowNoKey := strings.EqualFold(os.Getenv("LLM_ALLOW_NO_KEY"), "true") ||
		strings.Contains(base, "localhost") || strings.Contains(base, "127.0.0.1")
	if key == "" && !allowNoKey {
		return nil, ErrLLMDisabled
	}

	return &OpenAIClient{
		BaseURL: strings.TrimRight(base, "/"),
		APIKey:  key,
		Model:   model,
		HTTP:    &http.Client{Timeout: timeout},
	}, nil
}

// Chat sends a synchronous chat.completions request.
func (c *OpenAIClient) Chat(ctx context.Context, system, user string) (string, error) {
	reqBody := chatReq{
		Model:       c.Model,
		Messages:    []chatMessage{{Role: "system", Content: system}, {Role: "user", Content: user}},
		MaxTokens:   700,
		Temperature: 0.1,
	}
	b, _ := json.Marshal(reqBody)

	endpoint := c.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.APIKey) != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	var out chatResp
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("llm decode failed: %w; raw=%s", err, strings.TrimSpace(string(body)))
	}
	if out.Error != nil {
		return "", errors.New(strings.TrimSpace(out.Error.Message))
	}
	if len(out.Choices) == 0 {
		return "", errors.New("llm: empty choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
