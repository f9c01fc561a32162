package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	commonhttp "deal-tracker/internal/common/http"
)

type AnthropicConfig struct {
	BaseURL    string
	APIKey     string
	Version    string
	Model      string
	MaxTokens  int
	MaxRetries int
}

// AnthropicCompleter calls the Messages API.
type AnthropicCompleter struct {
	cfg    AnthropicConfig
	client *commonhttp.Client
}

func NewAnthropicCompleter(cfg AnthropicConfig, timeout time.Duration) *AnthropicCompleter {
	client := commonhttp.NewClient(timeout, commonhttp.WithRetry(cfg.MaxRetries, 2*time.Second, 30*time.Second))
	return NewAnthropicCompleterWithClient(cfg, client)
}

func NewAnthropicCompleterWithClient(cfg AnthropicConfig, client *commonhttp.Client) *AnthropicCompleter {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &AnthropicCompleter{cfg: cfg, client: client}
}

func (a *AnthropicCompleter) Provider() string { return "anthropic" }
func (a *AnthropicCompleter) Model() string    { return a.cfg.Model }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete returns the concatenated text blocks of the answer.
func (a *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     a.cfg.Model,
		MaxTokens: a.cfg.MaxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.cfg.APIKey)
	req.Header.Set("anthropic-version", a.cfg.Version)

	resp, err := a.client.DoWithRetry(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var out anthropicResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil {
			return "", fmt.Errorf("messages API %d %s: %s", resp.StatusCode, out.Error.Type, out.Error.Message)
		}
		return "", fmt.Errorf("messages API status %d", resp.StatusCode)
	}

	var b strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
