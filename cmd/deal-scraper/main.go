// cmd/deal-scraper/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"deal-tracker/internal/app"
	"deal-tracker/internal/common/config"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/pipeline"
)

var bannerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	Padding(0, 2)

func main() {
	dryRun := flag.Bool("dry-run", false, "extract and deduplicate without writing to the store")
	configPath := flag.String("config", "", "path to a config file (default: configs/config.yaml)")
	flag.Parse()

	os.Exit(run(*configPath, *dryRun))
}

// run returns the process exit code. Only configuration and startup
// failures are non-zero; a run with per-source errors still exits 0.
func run(configPath string, dryRun bool) int {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		return 1
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)

	mode := "live"
	if dryRun {
		mode = "dry run"
	}
	fmt.Println(bannerStyle.Render(fmt.Sprintf("Growth Equity Deal Tracker (%s)", mode)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := pipeline.NewConsoleReporter(os.Stdout)
	a, err := app.New(ctx, cfg, log, app.Options{Reporter: reporter})
	if err != nil {
		log.Error("startup failed", map[string]interface{}{"error": err.Error()})
		return 1
	}
	defer a.Close(context.Background())

	summary, err := a.Coordinator.Run(ctx, "cli", dryRun)
	if err != nil {
		log.Error("run finished with error", map[string]interface{}{"error": err.Error()})
	}
	if summary != nil {
		reporter.PrintSummary(summary)
	}
	return 0
}
