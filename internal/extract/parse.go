package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"deal-tracker/internal/common/errors"
	"deal-tracker/internal/common/validation"
	"deal-tracker/internal/models"
)

// dealSchema describes the object the prompt asks for. Objects that deviate
// are still returned; the normalizer coerces them.
var dealSchema = validation.MustCompile(`{
	"type": "object",
	"properties": {
		"company_name":  {"type": ["string", "null"]},
		"investor":      {"type": ["string", "null"]},
		"amount_raised": {"type": ["number", "string", "null"]},
		"end_market":    {"type": ["string", "null"]},
		"description":   {"type": ["string", "null"]},
		"date":          {"type": ["string", "null"]},
		"source_url":    {"type": ["string", "null"]}
	},
	"required": ["company_name", "investor"]
}`)

// ParseResult is a decoded extractor answer.
type ParseResult struct {
	Deals []models.RawDeal
	// Warnings lists dropped items and schema deviations, one line each.
	Warnings []string
}

// ParseResponse decodes a model answer into raw deal objects. A markdown code
// fence, with or without a language tag, is stripped first. Anything that is
// not a JSON array is a parse failure; non-object array items are dropped.
func ParseResponse(content string) (*ParseResult, error) {
	cleaned := StripFences(content)
	if cleaned == "" {
		return &ParseResult{Deals: []models.RawDeal{}}, nil
	}

	var items []interface{}
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		// Valid JSON of another shape, such as {"deals": [...]}, is rejected as is.
		if json.Valid([]byte(cleaned)) {
			return nil, errors.NewExtractionParseFailedError(fmt.Errorf("response is not a JSON array: %w", err))
		}
		// Some answers wrap the array in prose; retry on the outermost brackets.
		start, end := strings.Index(cleaned, "["), strings.LastIndex(cleaned, "]")
		if start < 0 || end <= start {
			return nil, errors.NewExtractionParseFailedError(fmt.Errorf("response is not a JSON array: %w", err))
		}
		if err2 := json.Unmarshal([]byte(cleaned[start:end+1]), &items); err2 != nil {
			return nil, errors.NewExtractionParseFailedError(fmt.Errorf("response is not a JSON array: %w", err))
		}
	}

	res := &ParseResult{Deals: make([]models.RawDeal, 0, len(items))}
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("item %d: expected object, got %T", i, item))
			continue
		}
		if v := dealSchema.Validate(obj); !v.Valid {
			for _, msg := range v.GetErrorMessages() {
				res.Warnings = append(res.Warnings, fmt.Sprintf("item %d: %s", i, msg))
			}
		}
		res.Deals = append(res.Deals, models.RawDeal(obj))
	}
	return res, nil
}

// StripFences removes a surrounding ``` or ```json fence.
func StripFences(content string) string {
	cleaned := strings.TrimSpace(content)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, "```")
	if nl := strings.IndexByte(cleaned, '\n'); nl >= 0 {
		// Language tag such as "json" on the opening fence line.
		if tag := strings.TrimSpace(cleaned[:nl]); !strings.ContainsAny(tag, "[{") {
			cleaned = cleaned[nl+1:]
		}
	} else {
		cleaned = strings.TrimPrefix(cleaned, "json")
	}
	if end := strings.LastIndex(cleaned, "```"); end >= 0 {
		cleaned = cleaned[:end]
	}
	return strings.TrimSpace(cleaned)
}
