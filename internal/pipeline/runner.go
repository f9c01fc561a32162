package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/common/metrics"
	"deal-tracker/internal/models"
)

// TextSource fetches the cleaned text of one source. A nil document or an
// error means the source contributes nothing to the run.
type TextSource interface {
	Fetch(ctx context.Context, src models.Source) (*models.SourceDocument, error)
}

// StructuredExtractor turns source text into raw deal objects.
type StructuredExtractor interface {
	Extract(ctx context.Context, req models.ExtractionRequest) ([]models.RawDeal, error)
}

// DealStore is the external deal repository.
type DealStore interface {
	FetchRecent(ctx context.Context, windowDays int) ([]models.Identity, error)
	Insert(ctx context.Context, records []models.DealRecord) (int, error)
}

// ScanRecorder is implemented by stores that keep a per-run scan log.
type ScanRecorder interface {
	RecordScan(ctx context.Context, scan models.ScanLog) error
}

// Pacer waits after fetching src before the next source is fetched.
type Pacer interface {
	Wait(ctx context.Context, src models.Source) error
}

type Notifier interface {
	Notify(ctx context.Context, records []models.DealRecord) error
}

type Archiver interface {
	Archive(ctx context.Context, summary *Summary) error
}

// Reporter prints what a dry run would have inserted.
type Reporter interface {
	Report(summary *Summary)
}

type RunnerConfig struct {
	Sources         []models.Source
	LookbackDays    int
	Match           MatchConfig
	RejectSelfDeals bool
	RecordScans     bool
	Vocabulary      *models.Vocabulary
}

// Dependencies are the collaborators of a Runner. Fetcher, Extractor, Store
// and Logger are required.
type Dependencies struct {
	Fetcher   TextSource
	Extractor StructuredExtractor
	Store     DealStore
	Logger    logger.Logger

	Pacer    Pacer
	Notifier Notifier
	Archiver Archiver
	Reporter Reporter
	Clock    func() time.Time
	NewID    func() string
}

// Runner executes collect, extract, deduplicate and persist (or report).
type Runner struct {
	cfg        RunnerConfig
	deps       Dependencies
	normalizer *Normalizer
	validator  *Validator
	dedup      *Deduplicator
	tracer     trace.Tracer
	logger     logger.Logger
}

func NewRunner(cfg RunnerConfig, deps Dependencies) (*Runner, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, errors.New("pipeline: fetcher is required")
	case deps.Extractor == nil:
		return nil, errors.New("pipeline: extractor is required")
	case deps.Store == nil:
		return nil, errors.New("pipeline: store is required")
	case deps.Logger == nil:
		return nil, errors.New("pipeline: logger is required")
	}

	if cfg.Vocabulary == nil {
		cfg.Vocabulary = models.NewVocabulary(models.DefaultEndMarkets)
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 30
	}
	if cfg.Match.Threshold == 0 {
		cfg.Match.Threshold = DefaultMatchThreshold
	}
	if cfg.Match.DateWindowDays == 0 {
		cfg.Match.DateWindowDays = DefaultDateWindowDays
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return uuid.New().String() }
	}

	log := deps.Logger.With(map[string]interface{}{"component": "pipeline"})
	return &Runner{
		cfg:        cfg,
		deps:       deps,
		normalizer: NewNormalizer(cfg.Vocabulary, deps.Clock),
		validator:  NewValidator(cfg.Match.Threshold, cfg.RejectSelfDeals),
		dedup:      NewDeduplicator(NewMatcher(cfg.Match), log),
		tracer:     otel.Tracer("deal-tracker/pipeline"),
		logger:     log,
	}, nil
}

// Run executes one pass. Per-source, reference and persistence failures are
// recorded in the summary and never abort the run. The returned error is only
// set when ctx was cancelled; the summary is always non-nil.
func (r *Runner) Run(ctx context.Context, dryRun bool) (*Summary, error) {
	started := r.deps.Clock()
	summary := &Summary{
		RunID:     r.deps.NewID(),
		Mode:      ModeLive,
		StartedAt: started,
		New:       []models.DealCandidate{},
		Errors:    []string{},
	}
	if dryRun {
		summary.Mode = ModeDry
	}
	summary.enter(StageInit)

	metrics.RunsActive.Inc()
	defer metrics.RunsActive.Dec()

	ctx, span := r.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", summary.RunID),
		attribute.Bool("run.dry", dryRun),
	))
	defer span.End()

	log := r.logger.With(map[string]interface{}{"runId": summary.RunID, "mode": string(summary.Mode)})
	log.Info("run started", map[string]interface{}{"sources": len(r.cfg.Sources)})

	summary.enter(StageCollecting)
	docs := r.collect(ctx, log, summary)

	summary.enter(StageExtracting)
	candidates := r.extract(ctx, log, docs, summary)

	summary.enter(StageDeduplicating)
	history := r.reference(ctx, log, summary)
	part := r.dedup.Partition(candidates, history)
	summary.New = part.New
	summary.Duplicates = part.Duplicates
	summary.DuplicatesSkipped = len(part.Duplicates)
	metrics.CandidatesSkipped.WithLabelValues("duplicate").Add(float64(len(part.Duplicates)))

	if dryRun {
		summary.enter(StageReporting)
		r.finish(summary, started)
		if r.deps.Reporter != nil {
			r.deps.Reporter.Report(summary)
		}
	} else {
		summary.enter(StagePersisting)
		r.persist(ctx, log, summary)
		r.finish(summary, started)
		r.afterPersist(ctx, log, summary)
	}

	summary.enter(StageDone)
	metrics.RunDuration.WithLabelValues(string(summary.Mode)).Observe(summary.Duration.Seconds())
	span.SetAttributes(
		attribute.Int("run.new", len(summary.New)),
		attribute.Int("run.inserted", summary.Inserted),
	)

	log.Info("run finished", map[string]interface{}{
		"sourcesScraped":      summary.SourcesScraped,
		"candidatesExtracted": summary.CandidatesExtracted,
		"invalidSkipped":      summary.InvalidSkipped,
		"duplicatesSkipped":   summary.DuplicatesSkipped,
		"newDeals":            len(summary.New),
		"inserted":            summary.Inserted,
		"errors":              len(summary.Errors),
		"durationMs":          summary.DurationMS(),
	})

	return summary, ctx.Err()
}

func (r *Runner) finish(summary *Summary, started time.Time) {
	summary.Duration = r.deps.Clock().Sub(started)
}

func (r *Runner) collect(ctx context.Context, log logger.Logger, summary *Summary) []models.SourceDocument {
	ctx, span := r.tracer.Start(ctx, "pipeline.collect")
	defer span.End()

	docs := make([]models.SourceDocument, 0, len(r.cfg.Sources))
	for i, src := range r.cfg.Sources {
		if ctx.Err() != nil {
			summary.fail(fmt.Sprintf("collection interrupted: %v", ctx.Err()))
			break
		}
		if i > 0 && r.deps.Pacer != nil {
			if err := r.deps.Pacer.Wait(ctx, r.cfg.Sources[i-1]); err != nil {
				summary.fail(fmt.Sprintf("collection interrupted: %v", err))
				break
			}
		}

		summary.SourcesAttempted++
		doc, err := r.deps.Fetcher.Fetch(ctx, src)
		if err != nil || doc == nil {
			msg := fmt.Sprintf("%s: no content", src.Name)
			if err != nil {
				msg = fmt.Sprintf("%s: %v", src.Name, err)
			}
			summary.fail(msg)
			metrics.SourcesProcessed.WithLabelValues("collect", "failed").Inc()
			log.Warn("source skipped", map[string]interface{}{"source": src.Name, "url": src.URL, "error": errString(err)})
			continue
		}

		summary.SourcesScraped++
		metrics.SourcesProcessed.WithLabelValues("collect", "ok").Inc()
		log.Info("source scraped", map[string]interface{}{"source": src.Name, "chars": len(doc.Text)})
		docs = append(docs, *doc)
	}
	return docs
}

func (r *Runner) extract(ctx context.Context, log logger.Logger, docs []models.SourceDocument, summary *Summary) []models.DealCandidate {
	ctx, span := r.tracer.Start(ctx, "pipeline.extract")
	defer span.End()

	var candidates []models.DealCandidate
	for _, doc := range docs {
		if ctx.Err() != nil {
			summary.fail(fmt.Sprintf("extraction interrupted: %v", ctx.Err()))
			break
		}

		raws, err := r.deps.Extractor.Extract(ctx, models.ExtractionRequest{
			SourceName: doc.Name,
			SourceURL:  doc.URL,
			Text:       doc.Text,
			Today:      r.normalizer.Today(),
			EndMarkets: r.cfg.Vocabulary.Labels(),
		})
		if err != nil {
			summary.fail(fmt.Sprintf("%s: extraction failed: %v", doc.Name, err))
			metrics.SourcesProcessed.WithLabelValues("extract", "failed").Inc()
			log.Warn("extraction failed", map[string]interface{}{"source": doc.Name, "error": err.Error()})
			continue
		}
		metrics.SourcesProcessed.WithLabelValues("extract", "ok").Inc()

		summary.CandidatesExtracted += len(raws)
		metrics.CandidatesExtracted.Add(float64(len(raws)))

		for _, c := range r.normalizer.NormalizeAll(raws) {
			if reason := r.validator.Check(c); reason != "" {
				summary.InvalidSkipped++
				metrics.CandidatesSkipped.WithLabelValues("invalid").Inc()
				log.Debug("candidate rejected", map[string]interface{}{
					"source": doc.Name, "company": c.CompanyName, "investor": c.Investor, "reason": reason,
				})
				continue
			}
			candidates = append(candidates, c)
		}
		log.Info("deals extracted", map[string]interface{}{"source": doc.Name, "count": len(raws)})
	}
	return candidates
}

func (r *Runner) reference(ctx context.Context, log logger.Logger, summary *Summary) []models.Identity {
	history, err := r.deps.Store.FetchRecent(ctx, r.cfg.LookbackDays)
	if err != nil {
		summary.fail(fmt.Sprintf("fetch recent deals: %v", err))
		log.Warn("reference fetch failed, deduplicating within batch only", map[string]interface{}{"error": err.Error()})
		return nil
	}
	summary.ReferenceSize = len(history)
	return history
}

func (r *Runner) persist(ctx context.Context, log logger.Logger, summary *Summary) {
	if len(summary.New) == 0 {
		return
	}
	ctx, span := r.tracer.Start(ctx, "pipeline.persist")
	defer span.End()

	summary.Records = Promote(summary.New, r.deps.Clock(), r.deps.NewID)
	inserted, err := r.deps.Store.Insert(ctx, summary.Records)
	if err != nil {
		summary.fail(fmt.Sprintf("insert deals: %v", err))
		log.Error("insert failed", map[string]interface{}{"error": err.Error(), "records": len(summary.Records)})
		inserted = 0
	}
	summary.Inserted = inserted
	metrics.DealsInserted.Add(float64(inserted))
}

// afterPersist runs the live-mode side channels. Their failures are logged only.
func (r *Runner) afterPersist(ctx context.Context, log logger.Logger, summary *Summary) {
	if r.deps.Notifier != nil && summary.Inserted > 0 {
		if err := r.deps.Notifier.Notify(ctx, summary.Records[:min(summary.Inserted, len(summary.Records))]); err != nil {
			log.Warn("notification failed", map[string]interface{}{"error": err.Error()})
		}
	}

	if rec, ok := r.deps.Store.(ScanRecorder); ok && r.cfg.RecordScans {
		scan := models.ScanLog{
			ID:         r.deps.NewID(),
			DealsFound: summary.Inserted,
			DurationMS: summary.DurationMS(),
			CreatedAt:  r.deps.Clock(),
		}
		if err := rec.RecordScan(ctx, scan); err != nil {
			log.Warn("scan log write failed", map[string]interface{}{"error": err.Error()})
		}
	}

	if r.deps.Archiver != nil {
		if err := r.deps.Archiver.Archive(ctx, summary); err != nil {
			log.Warn("archive failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
