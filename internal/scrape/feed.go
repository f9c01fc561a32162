package scrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	commonhttp "deal-tracker/internal/common/http"
	"deal-tracker/internal/models"
)

// FeedReader renders an RSS/Atom/JSON feed as plain text so it can be
// extracted like any other page.
type FeedReader struct {
	parser   *gofeed.Parser
	maxItems int
}

func NewFeedReader(client *commonhttp.Client, userAgent string, maxItems int) *FeedReader {
	parser := gofeed.NewParser()
	parser.Client = client.HTTPClient()
	parser.UserAgent = userAgent
	return &FeedReader{parser: parser, maxItems: maxItems}
}

// Read fetches src.URL and returns one block of lines per item, newest first
// as published by the feed.
func (r *FeedReader) Read(ctx context.Context, src models.Source) (string, error) {
	feed, err := r.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch feed: %w", err)
	}
	return r.render(feed), nil
}

func (r *FeedReader) render(feed *gofeed.Feed) string {
	var b strings.Builder
	if feed.Title != "" {
		b.WriteString(feed.Title)
		b.WriteString("\n")
	}

	count := len(feed.Items)
	if r.maxItems > 0 {
		count = min(count, r.maxItems)
	}
	for _, item := range feed.Items[:count] {
		b.WriteString("\n")
		b.WriteString(item.Title)
		b.WriteString("\n")
		if item.PublishedParsed != nil {
			b.WriteString("Published: " + item.PublishedParsed.UTC().Format(models.DateLayout) + "\n")
		} else if item.UpdatedParsed != nil {
			b.WriteString("Published: " + item.UpdatedParsed.UTC().Format(models.DateLayout) + "\n")
		}
		if item.Link != "" {
			b.WriteString("Link: " + item.Link + "\n")
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		if text, err := ExtractText(strings.NewReader(summary), 0); err == nil && text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
	return CollapseLines(b.String())
}
