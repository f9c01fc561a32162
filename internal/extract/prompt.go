package extract

import (
	"strings"

	"deal-tracker/internal/models"
)

const promptTemplate = `You extract growth equity deal announcements from scraped web pages. Read the text below and return ONLY deals that are clearly NEW investment announcements, meaning the text uses language such as "announces investment in", "closes funding round", "raises Series X" or "secures growth equity investment".

For each new deal announcement return an object with:
- company_name: the portfolio company receiving the investment
- investor: the private equity or growth equity firm investing
- amount_raised: the amount in USD as a plain number without formatting, or null when undisclosed
- end_market: exactly one of: {{END_MARKETS}}
- description: one or two sentences on what the company does
- date: the announcement or closing date as YYYY-MM-DD, taken from the text itself (press release date, "announced January 15", article date). Never substitute today's date; skip the deal when the text has no date.
- source_url: the URL the text was scraped from (given below)

Rules:
- Only extract deals with announcement language and a date that can be verified in the text.
- Do not extract companies that merely appear on a portfolio page, team page, case study or list of investments.
- Only growth equity or private equity deals. Skip venture and seed rounds, M&A and acquisitions, and debt financings.
- The investor must be a private equity or growth equity firm, not a strategic acquirer.
- Skip deals announced more than 3 days before today's date.
- Report each deal once even when the text mentions it several times.
- If there are no new deal announcements, return an empty array.

Source name: {{SOURCE_NAME}}
Source URL: {{SOURCE_URL}}
Today's date: {{TODAY}}

Respond with ONLY a JSON array of deal objects, with no markdown and no explanation.
Example: [{"company_name": "Acme Corp", "investor": "Summit Partners", "amount_raised": 50000000, "end_market": "FinTech", "description": "Acme Corp provides...", "date": "2026-02-20", "source_url": "https://..."}]

If no deals are found, respond with: []

--- SCRAPED TEXT ---
{{TEXT}}`

// BuildPrompt renders the extraction prompt for one source.
func BuildPrompt(req models.ExtractionRequest) string {
	endMarkets := req.EndMarkets
	if len(endMarkets) == 0 {
		endMarkets = models.DefaultEndMarkets
	}
	r := strings.NewReplacer(
		"{{END_MARKETS}}", strings.Join(endMarkets, ", "),
		"{{SOURCE_NAME}}", req.SourceName,
		"{{SOURCE_URL}}", req.SourceURL,
		"{{TODAY}}", req.Today,
		"{{TEXT}}", req.Text,
	)
	return r.Replace(promptTemplate)
}
