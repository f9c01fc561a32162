// internal/scrape/fetcher.go
package scrape

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"

	commonhttp "deal-tracker/internal/common/http"
	"deal-tracker/internal/common/errors"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/models"
)

// maxBodyBytes caps how much of a page is read before text extraction.
const maxBodyBytes = 5 << 20

type Options struct {
	UserAgent     string
	Timeout       time.Duration
	MaxTextChars  int
	MinTextChars  int
	RespectRobots bool
	FeedMaxItems  int
}

// HTTPSource fetches news pages, firm news pages and feeds and reduces them
// to plain text.
type HTTPSource struct {
	client *commonhttp.Client
	robots *RobotsPolicy
	feeds  *FeedReader
	opts   Options
	logger logger.Logger
}

func NewHTTPSource(opts Options, log logger.Logger) *HTTPSource {
	client := commonhttp.NewClient(opts.Timeout, commonhttp.WithUserAgent(opts.UserAgent))
	return NewHTTPSourceWithClient(client, opts, log)
}

func NewHTTPSourceWithClient(client *commonhttp.Client, opts Options, log logger.Logger) *HTTPSource {
	s := &HTTPSource{
		client: client,
		feeds:  NewFeedReader(client, opts.UserAgent, opts.FeedMaxItems),
		opts:   opts,
		logger: log.With(map[string]interface{}{"component": "scraper"}),
	}
	if opts.RespectRobots {
		s.robots = NewRobotsPolicy(client, opts.UserAgent, s.logger)
	}
	return s
}

// Fetch returns the cleaned text of src. Text shorter than MinTextChars is
// treated as a failed fetch.
func (s *HTTPSource) Fetch(ctx context.Context, src models.Source) (*models.SourceDocument, error) {
	if s.robots != nil && !s.robots.Allowed(ctx, src.URL) {
		return nil, errors.NewRobotsDisallowedError(src.URL)
	}

	var (
		text string
		err  error
	)
	if src.Type == models.SourceTypeFeed {
		text, err = s.feeds.Read(ctx, src)
		text = Truncate(text, s.opts.MaxTextChars)
	} else {
		text, err = s.page(ctx, src)
	}
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return nil, errors.NewCollectionTimeoutError(src.Name, err)
		}
		return nil, errors.NewCollectionFailedError(src.Name, err)
	}

	if len([]rune(text)) < s.opts.MinTextChars {
		return nil, errors.NewCollectionFailedError(src.Name,
			fmt.Errorf("only %d characters of text", len([]rune(text))))
	}
	return &models.SourceDocument{Name: src.Name, URL: src.URL, Text: text}, nil
}

func (s *HTTPSource) page(ctx context.Context, src models.Source) (string, error) {
	body, err := s.download(ctx, src.URL)
	if err != nil {
		return "", err
	}

	text, err := ExtractText(bytes.NewReader(body), s.opts.MaxTextChars)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	if len([]rune(text)) >= s.opts.MinTextChars {
		return text, nil
	}

	// Script-heavy pages often keep their article in markup that readability can still find.
	if fallback := s.readable(body, src.URL); len([]rune(fallback)) > len([]rune(text)) {
		s.logger.Debug("using readability fallback", map[string]interface{}{"source": src.Name})
		return fallback, nil
	}
	return text, nil
}

func (s *HTTPSource) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	utf8Reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		utf8Reader = resp.Body
	}
	return io.ReadAll(io.LimitReader(utf8Reader, maxBodyBytes))
}

func (s *HTTPSource) readable(body []byte, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return ""
	}
	return Truncate(CollapseLines(article.TextContent), s.opts.MaxTextChars)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return stderrors.As(err, &t) && t.Timeout()
}
