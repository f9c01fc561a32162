// internal/models/extraction.go
package models

// ExtractionRequest is everything a structured extractor needs for one source.
type ExtractionRequest struct {
	SourceName string   `json:"sourceName"`
	SourceURL  string   `json:"sourceUrl"`
	Text       string   `json:"text"`
	Today      string   `json:"today"`
	EndMarkets []string `json:"endMarkets"`
}
