// Package notify announces newly inserted deals on the configured channels.
package notify

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"deal-tracker/internal/common/errors"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/models"
)

// Channel delivers one announcement for a batch of inserted deals.
type Channel interface {
	Name() string
	Send(ctx context.Context, records []models.DealRecord) error
}

// Fanout sends to every channel. A failing channel does not stop the others.
type Fanout struct {
	channels []Channel
	logger   logger.Logger
}

func NewFanout(log logger.Logger, channels ...Channel) *Fanout {
	return &Fanout{
		channels: channels,
		logger:   log.With(map[string]interface{}{"component": "notify"}),
	}
}

func (f *Fanout) Len() int { return len(f.channels) }

// Notify returns every channel failure joined into one error.
func (f *Fanout) Notify(ctx context.Context, records []models.DealRecord) error {
	if len(records) == 0 {
		return nil
	}
	var errs []error
	for _, ch := range f.channels {
		if err := ch.Send(ctx, records); err != nil {
			f.logger.Warn("notification failed", map[string]interface{}{"channel": ch.Name(), "error": err.Error()})
			errs = append(errs, errors.NewNotificationSendFailedError(ch.Name(), err))
			continue
		}
		f.logger.Info("notification sent", map[string]interface{}{"channel": ch.Name(), "deals": len(records)})
	}
	return stderrors.Join(errs...)
}

// Headline is the one-line count used as title or subject.
func Headline(n int) string {
	if n == 1 {
		return "1 new deal found"
	}
	return fmt.Sprintf("%d new deals found", n)
}

// PlainLines renders one line per deal without markup.
func PlainLines(records []models.DealRecord) []string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, strings.Join([]string{
			r.CompanyName, r.Investor, models.FormatAmount(r.AmountRaised), r.EndMarket, r.Date,
		}, " | "))
	}
	return lines
}
