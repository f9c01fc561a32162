package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"

	commonhttp "deal-tracker/internal/common/http"
	"deal-tracker/internal/common/logger"
)

// RobotsPolicy answers whether a URL may be fetched. robots.txt is fetched
// once per host and cached for the lifetime of the policy.
type RobotsPolicy struct {
	client    *commonhttp.Client
	userAgent string
	logger    logger.Logger

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

func NewRobotsPolicy(client *commonhttp.Client, userAgent string, log logger.Logger) *RobotsPolicy {
	return &RobotsPolicy{
		client:    client,
		userAgent: userAgent,
		logger:    log,
		groups:    make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether rawURL may be fetched. An unreachable robots.txt allows everything.
func (p *RobotsPolicy) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}

	group := p.group(ctx, u)
	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (p *RobotsPolicy) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	p.mu.Lock()
	g, ok := p.groups[key]
	p.mu.Unlock()
	if ok {
		return g
	}

	g, err := p.load(ctx, key)
	if err != nil {
		p.logger.Debug("robots.txt unavailable, allowing", map[string]interface{}{"host": u.Host, "error": err.Error()})
	}

	p.mu.Lock()
	p.groups[key] = g
	p.mu.Unlock()
	return g
}

func (p *RobotsPolicy) load(ctx context.Context, origin string) (*robotstxt.Group, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data.FindGroup(p.userAgent), nil
}
