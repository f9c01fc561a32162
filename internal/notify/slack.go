// internal/notify/slack.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	commonhttp "deal-tracker/internal/common/http"
	"deal-tracker/internal/models"
)

// SlackNotifier posts to an incoming webhook.
type SlackNotifier struct {
	webhookURL   string
	dashboardURL string
	client       *commonhttp.Client
}

func NewSlackNotifier(webhookURL, dashboardURL string, client *commonhttp.Client) *SlackNotifier {
	return &SlackNotifier{webhookURL: webhookURL, dashboardURL: dashboardURL, client: client}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, records []models.DealRecord) error {
	payload, err := json.Marshal(map[string]string{"text": SlackText(records, s.dashboardURL)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	// One POST per run; a resend would post the digest twice.
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// SlackText renders the message in Slack mrkdwn.
func SlackText(records []models.DealRecord, dashboardURL string) string {
	lines := []string{"\U0001F4CA *" + Headline(len(records)) + "*", ""}
	for _, r := range records {
		line := fmt.Sprintf("• *%s* — %s — %s — %s",
			r.CompanyName, r.Investor, models.FormatAmount(r.AmountRaised), r.EndMarket)
		if r.SourceURL != "" {
			line += fmt.Sprintf(" (<%s|source>)", r.SourceURL)
		}
		lines = append(lines, line)
		if r.Description != "" {
			lines = append(lines, "   _"+r.Description+"_")
		}
	}
	if dashboardURL != "" {
		lines = append(lines, "", fmt.Sprintf("<%s|View all deals →>", dashboardURL))
	}
	return strings.Join(lines, "\n")
}
