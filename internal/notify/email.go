// internal/notify/email.go
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"deal-tracker/internal/models"
)

// EmailSender is satisfied by the SES client in internal/common/aws.
type EmailSender interface {
	SendText(ctx context.Context, from string, to []string, subject, text, html string) (string, error)
}

type EmailNotifier struct {
	sender EmailSender
	from   string
	to     []string
}

func NewEmailNotifier(sender EmailSender, from string, to []string) *EmailNotifier {
	return &EmailNotifier{sender: sender, from: from, to: to}
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Send(ctx context.Context, records []models.DealRecord) error {
	if len(e.to) == 0 {
		return fmt.Errorf("no recipients configured")
	}
	subject := "Deal tracker: " + Headline(len(records))
	_, err := e.sender.SendText(ctx, e.from, e.to, subject, emailText(records), emailHTML(records))
	return err
}

func emailText(records []models.DealRecord) string {
	var b strings.Builder
	b.WriteString(Headline(len(records)) + "\n\n")
	for _, r := range records {
		fmt.Fprintf(&b, "- %s: %s (%s, %s)\n", r.CompanyName, r.Investor, models.FormatAmount(r.AmountRaised), r.EndMarket)
		if r.Description != "" {
			b.WriteString("  " + r.Description + "\n")
		}
		if r.SourceURL != "" {
			b.WriteString("  " + r.SourceURL + "\n")
		}
	}
	return b.String()
}

func emailHTML(records []models.DealRecord) string {
	var b strings.Builder
	b.WriteString("<h2>" + html.EscapeString(Headline(len(records))) + "</h2>\n<table>\n")
	b.WriteString("<tr><th>Company</th><th>Investor</th><th>Amount</th><th>End market</th><th>Date</th></tr>\n")
	for _, r := range records {
		company := html.EscapeString(r.CompanyName)
		if r.SourceURL != "" {
			company = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(r.SourceURL), company)
		}
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			company,
			html.EscapeString(r.Investor),
			html.EscapeString(models.FormatAmount(r.AmountRaised)),
			html.EscapeString(r.EndMarket),
			html.EscapeString(r.Date))
	}
	b.WriteString("</table>\n")
	return b.String()
}
