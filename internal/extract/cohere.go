package extract

import (
	"context"
	"fmt"
	"net/http"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

type CohereConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// CohereCompleter calls the Cohere chat endpoint.
type CohereCompleter struct {
	client *cohereclient.Client
	cfg    CohereConfig
}

func NewCohereCompleter(cfg CohereConfig, httpClient *http.Client) *CohereCompleter {
	client := cohereclient.NewClient(
		cohereclient.WithToken(cfg.APIKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereCompleter{client: client, cfg: cfg}
}

func (c *CohereCompleter) Provider() string { return "cohere" }
func (c *CohereCompleter) Model() string    { return c.cfg.Model }

func (c *CohereCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	req := &cohere.ChatRequest{
		Message:     prompt,
		Model:       cohere.String(c.cfg.Model),
		Temperature: cohere.Float64(0),
	}
	if c.cfg.MaxTokens > 0 {
		req.MaxTokens = cohere.Int(c.cfg.MaxTokens)
	}

	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("cohere chat returned empty response")
	}
	return resp.Text, nil
}
