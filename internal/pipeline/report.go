package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"deal-tracker/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	dealStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)
)

// ConsoleReporter prints dry-run results and run summaries to a terminal.
type ConsoleReporter struct {
	out io.Writer
}

func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// Report lists the deals a live run would have inserted.
func (c *ConsoleReporter) Report(summary *Summary) {
	fmt.Fprintln(c.out, titleStyle.Render(fmt.Sprintf("[DRY RUN] Would insert %d deals:", len(summary.New))))
	for _, d := range summary.New {
		fmt.Fprintln(c.out, "  "+dealStyle.Render("+ "+FormatDealLine(d)))
		if d.Description != "" {
			fmt.Fprintln(c.out, "    "+mutedStyle.Render(d.Description))
		}
	}
	if len(summary.Duplicates) > 0 {
		fmt.Fprintln(c.out, mutedStyle.Render(fmt.Sprintf("Skipped %d duplicates:", len(summary.Duplicates))))
		for _, dup := range summary.Duplicates {
			fmt.Fprintln(c.out, "  "+mutedStyle.Render(fmt.Sprintf("- %s (%s) ~ %s (%s)",
				dup.Candidate.CompanyName, dup.Candidate.Investor,
				dup.MatchedWith.CompanyName, dup.MatchedWith.Investor)))
		}
	}
}

// PrintSummary writes the end-of-run counts box.
func (c *ConsoleReporter) PrintSummary(summary *Summary) {
	lines := []string{
		titleStyle.Render("Run summary (" + string(summary.Mode) + ")"),
		fmt.Sprintf("Sources scraped:     %d/%d", summary.SourcesScraped, summary.SourcesAttempted),
		fmt.Sprintf("Deals extracted:     %d", summary.CandidatesExtracted),
		fmt.Sprintf("Invalid skipped:     %d", summary.InvalidSkipped),
		fmt.Sprintf("Duplicates skipped:  %d", summary.DuplicatesSkipped),
		fmt.Sprintf("New deals:           %d", len(summary.New)),
	}
	if summary.Mode == ModeLive {
		lines = append(lines, fmt.Sprintf("Inserted:            %d", summary.Inserted))
	}
	lines = append(lines, fmt.Sprintf("Duration:            %s", summary.Duration.Round(1e6)))
	if len(summary.Errors) > 0 {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("Errors:              %d", len(summary.Errors))))
	}
	fmt.Fprintln(c.out, boxStyle.Render(strings.Join(lines, "\n")))
}

// FormatDealLine renders "Company <- Investor ($50M) [FinTech] 2026-02-20".
func FormatDealLine(d models.DealCandidate) string {
	return fmt.Sprintf("%s <- %s (%s) [%s] %s",
		d.CompanyName, d.Investor, models.FormatAmount(d.AmountRaised), d.EndMarket, d.Date)
}
