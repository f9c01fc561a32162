// internal/models/source.go
package models

// SourceType controls how a source is fetched and how long to pause after it.
type SourceType string

const (
	SourceTypeNews SourceType = "news"
	SourceTypeFirm SourceType = "firm"
	SourceTypeFeed SourceType = "feed"
)

type Source struct {
	Name string     `json:"name" mapstructure:"name"`
	URL  string     `json:"url" mapstructure:"url"`
	Type SourceType `json:"type" mapstructure:"type"`
}

// SourceDocument is the cleaned text of one fetched source. It lives for a single run.
type SourceDocument struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Text string `json:"text"`
}
