package scrape

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelector lists elements that never carry deal announcements.
const noiseSelector = "script, style, noscript, nav, footer, header, aside, iframe, svg, form"

const blockSelector = "p, div, li, br, tr, h1, h2, h3, h4, h5, h6, article, section, time"

// ExtractText returns the visible text of an HTML document, one non-empty
// trimmed line per block, truncated to maxChars runes when maxChars > 0.
func ExtractText(r io.Reader, maxChars int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}
	doc.Find(noiseSelector).Remove()
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml("\n")
	})
	return Truncate(CollapseLines(doc.Text()), maxChars), nil
}

// CollapseLines trims every line, squeezes inner runs of spaces and drops empty lines.
func CollapseLines(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// Truncate cuts s to at most n runes. n <= 0 disables truncation.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
