package scrape

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deal-tracker/internal/common/errors"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/models"
)

const newsPage = `<!DOCTYPE html>
<html><head><title>Deals</title><style>.x{color:red}</style></head>
<body>
<header>Site header menu</header>
<nav><a href="/">Home</a></nav>
<script>var tracking = "do not extract";</script>
<main>
  <h1>Latest announcements</h1>
  <p>February 20, 2026 - Summit Partners announces a $50 million growth equity investment in Acme Corp.</p>
  <p>Acme Corp   provides   payment software for mid-market banks.</p>
</main>
<footer>Copyright footer</footer>
</body></html>`

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>PE Wire</title>
<item>
  <title>Highline Growth invests in Zylo</title>
  <link>https://wire.example.com/zylo</link>
  <pubDate>Mon, 02 Mar 2026 10:00:00 GMT</pubDate>
  <description>&lt;p&gt;Zylo raised $20M from Highline Growth to expand its SaaS platform.&lt;/p&gt;</description>
</item>
<item>
  <title>Second item</title>
  <link>https://wire.example.com/second</link>
  <description>Another announcement with enough words.</description>
</item>
</channel></rss>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	mux.HandleFunc("/news", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(newsPage))
	})
	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(newsPage))
	})
	mux.HandleFunc("/tiny", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>Hi</p></body></html>"))
	})
	mux.HandleFunc("/latin1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<html><body><p>Caf\xe9 Holdings closes a growth round led by Lead Edge Capital this week.</p></body></html>"))
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFeed))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestSource(t *testing.T, robots bool) *HTTPSource {
	return NewHTTPSource(Options{
		UserAgent:     "deal-tracker-test",
		Timeout:       5 * time.Second,
		MaxTextChars:  15000,
		MinTextChars:  50,
		RespectRobots: robots,
		FeedMaxItems:  1,
	}, logger.NewTestLogger(t))
}

func TestExtractText(t *testing.T) {
	text, err := ExtractText(strings.NewReader(newsPage), 0)
	require.NoError(t, err)

	assert.Contains(t, text, "Summit Partners announces a $50 million growth equity investment in Acme Corp.")
	assert.Contains(t, text, "Acme Corp provides payment software for mid-market banks.")
	assert.NotContains(t, text, "do not extract")
	assert.NotContains(t, text, "Site header menu")
	assert.NotContains(t, text, "Copyright footer")
	assert.NotContains(t, text, "color:red")
	for _, line := range strings.Split(text, "\n") {
		assert.NotEmpty(t, line)
		assert.Equal(t, strings.TrimSpace(line), line)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "héllo", Truncate("héllo", 10))
	assert.Equal(t, "héllo", Truncate("héllo", 0))
}

func TestCollapseLines(t *testing.T) {
	assert.Equal(t, "a b\nc", CollapseLines("  a   b \n\n\t\n c "))
}

func TestHTTPSource_FetchPage(t *testing.T) {
	srv := newTestServer(t)
	s := newTestSource(t, true)

	doc, err := s.Fetch(context.Background(), models.Source{Name: "Wire", URL: srv.URL + "/news", Type: models.SourceTypeNews})
	require.NoError(t, err)
	assert.Equal(t, "Wire", doc.Name)
	assert.Equal(t, srv.URL+"/news", doc.URL)
	assert.Contains(t, doc.Text, "Acme Corp")
}

func TestHTTPSource_DecodesCharset(t *testing.T) {
	srv := newTestServer(t)
	doc, err := newTestSource(t, false).Fetch(context.Background(), models.Source{Name: "Latin", URL: srv.URL + "/latin1"})
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Café Holdings")
}

func TestHTTPSource_Failures(t *testing.T) {
	srv := newTestServer(t)
	s := newTestSource(t, true)

	tests := []struct {
		name string
		path string
		code errors.ErrorCode
	}{
		{"robots disallowed", "/private", errors.ErrCodeRobotsDisallowed},
		{"not found", "/missing", errors.ErrCodeCollectionFailed},
		{"too little text", "/tiny", errors.ErrCodeCollectionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := s.Fetch(context.Background(), models.Source{Name: tt.name, URL: srv.URL + tt.path, Type: models.SourceTypeFirm})
			assert.Nil(t, doc)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestHTTPSource_RobotsIgnoredWhenDisabled(t *testing.T) {
	srv := newTestServer(t)
	doc, err := newTestSource(t, false).Fetch(context.Background(), models.Source{Name: "Private", URL: srv.URL + "/private"})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Text)
}

func TestHTTPSource_FetchFeed(t *testing.T) {
	srv := newTestServer(t)
	doc, err := newTestSource(t, false).Fetch(context.Background(), models.Source{Name: "Feed", URL: srv.URL + "/feed.xml", Type: models.SourceTypeFeed})
	require.NoError(t, err)

	assert.Contains(t, doc.Text, "PE Wire")
	assert.Contains(t, doc.Text, "Highline Growth invests in Zylo")
	assert.Contains(t, doc.Text, "Published: 2026-03-02")
	assert.Contains(t, doc.Text, "Link: https://wire.example.com/zylo")
	assert.Contains(t, doc.Text, "Zylo raised $20M")
	assert.NotContains(t, doc.Text, "<p>")
	assert.NotContains(t, doc.Text, "Second item", "feed items are capped")
}

func TestHTTPSource_CancelledContext(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestSource(t, false).Fetch(ctx, models.Source{Name: "Wire", URL: srv.URL + "/news"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeCollectionTimeout))
}

func TestRobotsPolicy_CachesPerHost(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits++
			w.Write([]byte("User-agent: *\nDisallow: /admin\n"))
		}
	}))
	defer srv.Close()

	s := newTestSource(t, true)
	assert.True(t, s.robots.Allowed(context.Background(), srv.URL+"/news"))
	assert.False(t, s.robots.Allowed(context.Background(), srv.URL+"/admin/x"))
	assert.True(t, s.robots.Allowed(context.Background(), srv.URL))
	assert.Equal(t, 1, hits)
	assert.False(t, s.robots.Allowed(context.Background(), "not a url"))
}

func TestTypePacer(t *testing.T) {
	p := NewTypePacer(time.Second, 20*time.Millisecond, 0)
	assert.Equal(t, time.Second, p.Delay(models.Source{Type: models.SourceTypeNews}))

	start := time.Now()
	require.NoError(t, p.Wait(context.Background(), models.Source{Type: models.SourceTypeFirm}))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	require.NoError(t, p.Wait(context.Background(), models.Source{Type: models.SourceTypeFeed}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Wait(ctx, models.Source{Type: models.SourceTypeNews}), context.Canceled)
}

type timeoutErr struct{ timeout bool }

func (e timeoutErr) Error() string { return "i/o" }
func (e timeoutErr) Timeout() bool { return e.timeout }

func TestIsTimeout(t *testing.T) {
	wrapped := &url.Error{Op: "Get", URL: "https://example.com", Err: &net.OpError{Op: "dial", Err: timeoutErr{timeout: true}}}
	assert.True(t, isTimeout(wrapped))
	assert.True(t, isTimeout(fmt.Errorf("fetch: %w", wrapped)))
	assert.False(t, isTimeout(fmt.Errorf("fetch: %w", timeoutErr{timeout: false})))
	assert.False(t, isTimeout(stderrors.New("connection refused")))
	assert.False(t, isTimeout(nil))
}
