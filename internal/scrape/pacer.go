package scrape

import (
	"context"
	"time"

	"deal-tracker/internal/models"
)

// TypePacer pauses between sources for a duration chosen by the type of the
// source just fetched.
type TypePacer struct {
	delays map[models.SourceType]time.Duration
}

func NewTypePacer(news, firm, feed time.Duration) *TypePacer {
	return &TypePacer{delays: map[models.SourceType]time.Duration{
		models.SourceTypeNews: news,
		models.SourceTypeFirm: firm,
		models.SourceTypeFeed: feed,
	}}
}

func (p *TypePacer) Delay(src models.Source) time.Duration {
	return p.delays[src.Type]
}

// Wait blocks for the delay of src or until ctx is done.
func (p *TypePacer) Wait(ctx context.Context, src models.Source) error {
	d := p.Delay(src)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
