package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/models"
)

type fakeFetcher struct {
	docs   map[string]string
	errs   map[string]error
	called []string
}

func (f *fakeFetcher) Fetch(_ context.Context, src models.Source) (*models.SourceDocument, error) {
	f.called = append(f.called, src.Name)
	if err, ok := f.errs[src.Name]; ok {
		return nil, err
	}
	text, ok := f.docs[src.Name]
	if !ok {
		return nil, nil
	}
	return &models.SourceDocument{Name: src.Name, URL: src.URL, Text: text}, nil
}

type fakeExtractor struct {
	deals    map[string][]models.RawDeal
	errs     map[string]error
	requests []models.ExtractionRequest
}

func (f *fakeExtractor) Extract(_ context.Context, req models.ExtractionRequest) ([]models.RawDeal, error) {
	f.requests = append(f.requests, req)
	if err, ok := f.errs[req.SourceName]; ok {
		return nil, err
	}
	return f.deals[req.SourceName], nil
}

type fakeStore struct {
	mu        sync.Mutex
	history   []models.Identity
	fetchErr  error
	insertErr error
	inserted  []models.DealRecord
	scans     []models.ScanLog
	lookback  int
}

func (s *fakeStore) FetchRecent(_ context.Context, windowDays int) ([]models.Identity, error) {
	s.lookback = windowDays
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.history, nil
}

func (s *fakeStore) Insert(_ context.Context, records []models.DealRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	s.inserted = append(s.inserted, records...)
	return len(records), nil
}

func (s *fakeStore) RecordScan(_ context.Context, scan models.ScanLog) error {
	s.scans = append(s.scans, scan)
	return nil
}

type recordingPacer struct {
	after []string
}

func (p *recordingPacer) Wait(ctx context.Context, src models.Source) error {
	p.after = append(p.after, src.Name)
	return ctx.Err()
}

type recordingNotifier struct {
	records []models.DealRecord
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, records []models.DealRecord) error {
	n.records = append(n.records, records...)
	return n.err
}

type recordingArchiver struct {
	summaries []*Summary
}

func (a *recordingArchiver) Archive(_ context.Context, s *Summary) error {
	a.summaries = append(a.summaries, s)
	return errors.New("bucket unavailable")
}

type recordingReporter struct {
	reported *Summary
}

func (r *recordingReporter) Report(s *Summary) { r.reported = s }

func raw(company, investor, date string) models.RawDeal {
	return models.RawDeal{
		"company_name":  company,
		"investor":      investor,
		"amount_raised": "$25M",
		"end_market":    "FinTech",
		"date":          date,
	}
}

var testSources = []models.Source{
	{Name: "Wire", URL: "https://news.example.com/pe", Type: models.SourceTypeNews},
	{Name: "Summit", URL: "https://summit.example.com/news", Type: models.SourceTypeFirm},
	{Name: "Broken", URL: "https://broken.example.com", Type: models.SourceTypeFirm},
}

type runnerFixture struct {
	fetcher   *fakeFetcher
	extractor *fakeExtractor
	store     *fakeStore
	pacer     *recordingPacer
	notifier  *recordingNotifier
	archiver  *recordingArchiver
	reporter  *recordingReporter
	runner    *Runner
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()
	f := &runnerFixture{
		fetcher: &fakeFetcher{
			docs: map[string]string{"Wire": "wire text", "Summit": "summit text"},
			errs: map[string]error{"Broken": errors.New("status 503")},
		},
		extractor: &fakeExtractor{deals: map[string][]models.RawDeal{
			"Wire": {
				raw("Acme", "Summit Partners", "2026-03-01"),
				raw("Zylo", "Highline Growth", "2026-03-02"),
				{"company_name": "", "investor": "Nobody"},
			},
			"Summit": {
				raw("Acme Inc", "Summit Partners", "2026-03-03"),
				raw("Beta LLC", "X Capital", "2026-03-01"),
			},
		}},
		store: &fakeStore{history: []models.Identity{
			{CompanyName: "Zylo Inc", Investor: "Highline Growth", Date: "2026-02-28"},
		}},
		pacer:    &recordingPacer{},
		notifier: &recordingNotifier{},
		archiver: &recordingArchiver{},
		reporter: &recordingReporter{},
	}
	f.build(t, RunnerConfig{Sources: testSources, RecordScans: true})
	return f
}

func (f *runnerFixture) build(t *testing.T, cfg RunnerConfig) {
	t.Helper()
	seq := 0
	runner, err := NewRunner(cfg, Dependencies{
		Fetcher:   f.fetcher,
		Extractor: f.extractor,
		Store:     f.store,
		Logger:    logger.NewTestLogger(t),
		Pacer:     f.pacer,
		Notifier:  f.notifier,
		Archiver:  f.archiver,
		Reporter:  f.reporter,
		Clock:     func() time.Time { return fixedNow },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	})
	require.NoError(t, err)
	f.runner = runner
}

func companies(cs []models.DealCandidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.CompanyName)
	}
	return out
}

func TestNewRunner_RequiresCollaborators(t *testing.T) {
	_, err := NewRunner(RunnerConfig{}, Dependencies{Logger: logger.NewNoOpLogger()})
	assert.Error(t, err)
}

func TestRun_LivePipeline(t *testing.T) {
	f := newRunnerFixture(t)

	summary, err := f.runner.Run(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, ModeLive, summary.Mode)
	assert.Equal(t, []Stage{StageInit, StageCollecting, StageExtracting, StageDeduplicating, StagePersisting, StageDone}, summary.Stages)
	assert.Equal(t, 3, summary.SourcesAttempted)
	assert.Equal(t, 2, summary.SourcesScraped)
	assert.Equal(t, 5, summary.CandidatesExtracted)
	assert.Equal(t, 1, summary.InvalidSkipped)
	assert.Equal(t, 2, summary.DuplicatesSkipped)
	assert.Equal(t, 1, summary.ReferenceSize)
	assert.Equal(t, []string{"Acme", "Beta LLC"}, companies(summary.New))
	assert.Equal(t, 2, summary.Inserted)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "Broken")

	assert.Equal(t, []string{"Wire", "Summit", "Broken"}, f.fetcher.called)
	assert.Equal(t, []string{"Wire", "Summit"}, f.pacer.after)
	assert.Equal(t, 30, f.store.lookback)

	require.Len(t, f.store.inserted, 2)
	assert.Equal(t, "Acme", f.store.inserted[0].CompanyName)
	assert.NotEmpty(t, f.store.inserted[0].ID)
	assert.Equal(t, fixedNow, f.store.inserted[0].UpdatedAt)
	assert.Nil(t, f.store.inserted[0].Status)

	assert.Len(t, f.notifier.records, 2)
	require.Len(t, f.store.scans, 1)
	assert.Equal(t, 2, f.store.scans[0].DealsFound)
	assert.Len(t, f.archiver.summaries, 1)
	assert.Nil(t, f.reporter.reported)
}

func TestRun_ExtractionRequestCarriesContext(t *testing.T) {
	f := newRunnerFixture(t)

	_, err := f.runner.Run(context.Background(), true)
	require.NoError(t, err)

	require.Len(t, f.extractor.requests, 2)
	req := f.extractor.requests[0]
	assert.Equal(t, "Wire", req.SourceName)
	assert.Equal(t, "https://news.example.com/pe", req.SourceURL)
	assert.Equal(t, "wire text", req.Text)
	assert.Equal(t, "2026-03-04", req.Today)
	assert.Contains(t, req.EndMarkets, models.CatchAllEndMarket)
}

func TestRun_DryRunMatchesLiveSelection(t *testing.T) {
	dry := newRunnerFixture(t)
	live := newRunnerFixture(t)

	drySummary, err := dry.runner.Run(context.Background(), true)
	require.NoError(t, err)
	liveSummary, err := live.runner.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, liveSummary.New, drySummary.New)
	assert.Equal(t, ModeDry, drySummary.Mode)
	assert.Equal(t, []Stage{StageInit, StageCollecting, StageExtracting, StageDeduplicating, StageReporting, StageDone}, drySummary.Stages)

	assert.Empty(t, dry.store.inserted)
	assert.Empty(t, dry.store.scans)
	assert.Empty(t, dry.notifier.records)
	assert.Empty(t, dry.archiver.summaries)
	assert.Same(t, drySummary, dry.reporter.reported)
	assert.Zero(t, drySummary.Inserted)
}

func TestRun_ReferenceFailureDeduplicatesWithinBatch(t *testing.T) {
	f := newRunnerFixture(t)
	f.store.fetchErr = errors.New("connection refused")

	summary, err := f.runner.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Acme", "Zylo", "Beta LLC"}, companies(summary.New))
	assert.Equal(t, 1, summary.DuplicatesSkipped)
	assert.Zero(t, summary.ReferenceSize)
	assert.Equal(t, 3, summary.Inserted)
	assert.Len(t, summary.Errors, 2)
}

func TestRun_InsertFailureReportsZero(t *testing.T) {
	f := newRunnerFixture(t)
	f.store.insertErr = errors.New("permission denied")

	summary, err := f.runner.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Len(t, summary.New, 2)
	assert.Zero(t, summary.Inserted)
	assert.Empty(t, f.notifier.records)
	require.Len(t, f.store.scans, 1)
	assert.Zero(t, f.store.scans[0].DealsFound)
	assert.Equal(t, StageDone, summary.Stages[len(summary.Stages)-1])
}

func TestRun_AllSourcesFailStillSummarizes(t *testing.T) {
	f := newRunnerFixture(t)
	f.fetcher.docs = nil

	summary, err := f.runner.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Zero(t, summary.SourcesScraped)
	assert.Empty(t, summary.New)
	assert.Zero(t, summary.Inserted)
	assert.Len(t, summary.Errors, 3)
	assert.Empty(t, f.extractor.requests)
	assert.Empty(t, f.store.inserted)
}

func TestRun_ExtractionFailureSkipsSource(t *testing.T) {
	f := newRunnerFixture(t)
	f.extractor.errs = map[string]error{"Wire": errors.New("rate limited")}

	summary, err := f.runner.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.CandidatesExtracted)
	assert.Equal(t, []string{"Acme Inc", "Beta LLC"}, companies(summary.New))
	assert.Len(t, summary.Errors, 2)
}

func TestRun_SelfDealRejectionIsOptional(t *testing.T) {
	f := newRunnerFixture(t)
	f.extractor.deals = map[string][]models.RawDeal{
		"Wire": {raw("Summit Partners", "Summit Partners LP", "2026-03-01")},
	}

	summary, err := f.runner.Run(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, summary.New, 1)

	f.build(t, RunnerConfig{Sources: testSources, RejectSelfDeals: true})
	summary, err = f.runner.Run(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, summary.New)
	assert.Equal(t, 1, summary.InvalidSkipped)
}

func TestRun_CancelledContext(t *testing.T) {
	f := newRunnerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.runner.Run(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Zero(t, summary.SourcesAttempted)
	assert.Equal(t, StageDone, summary.Stages[len(summary.Stages)-1])
}
