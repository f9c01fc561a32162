//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"deal-tracker/internal/common/camunda"
	"deal-tracker/internal/common/config"
	"deal-tracker/internal/common/database"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/models"
	"deal-tracker/internal/pipeline"
	"deal-tracker/internal/store"
	refreshdeals "deal-tracker/internal/workers/deals/refresh-deals"
)

// Run with: go test -tags e2e ./test/e2e/... against the docker-compose stack
// (Postgres, Redis, Elasticsearch, Zeebe on localhost).

var (
	zeebeClient zbc.Client
	zapLog      *zap.Logger
)

const dealsDDL = `
CREATE TABLE IF NOT EXISTS e2e_deals (
	id            TEXT PRIMARY KEY,
	company_name  TEXT NOT NULL,
	investor      TEXT NOT NULL,
	amount_raised DOUBLE PRECISION,
	end_market    TEXT,
	description   TEXT,
	date          DATE,
	source_url    TEXT,
	status        TEXT,
	comments      TEXT,
	updated_at    TIMESTAMPTZ,
	deleted_at    TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS e2e_scan_logs (
	id          BIGSERIAL PRIMARY KEY,
	deals_found INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`

func TestMain(m *testing.M) {
	var err error

	zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         envOr("ZEEBE_ADDRESS", "localhost:26500"),
		UsePlaintextConnection: true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect to Zeebe: %v", err))
	}

	zapLog, _ = zap.NewProduction()

	code := m.Run()

	zeebeClient.Close()
	os.Exit(code)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Database.Postgres = config.PostgresConfig{
		Host:           "localhost",
		Port:           5432,
		Database:       envOr("DB_NAME", "deals"),
		User:           envOr("DB_USER", "postgres"),
		Password:       envOr("DB_PASSWORD", "postgres"),
		MaxConnections: 5,
		MaxIdle:        1,
		SSLMode:        "disable",
	}
	cfg.Database.Redis = config.RedisConfig{Address: "localhost:6379"}
	cfg.Database.Elasticsearch = config.ElasticsearchConfig{
		Addresses: []string{"http://localhost:9200"},
		Index:     "e2e-deals",
	}
	return cfg
}

func sampleRecords() []models.DealRecord {
	amount := 50000000.0
	now := time.Now().UTC()
	today := now.Format(models.DateLayout)
	return []models.DealRecord{
		{
			ID:           uuid.NewString(),
			CompanyName:  "Acme Payments " + uuid.NewString()[:8],
			Investor:     "Summit Partners",
			AmountRaised: &amount,
			EndMarket:    "FinTech",
			Description:  "Acme Payments provides B2B payment rails.",
			Date:         today,
			SourceURL:    "https://www.summitpartners.com/news/",
			UpdatedAt:    now,
		},
	}
}

func TestFullE2E(t *testing.T) {
	cfg := testConfig()
	log := logger.NewZapAdapter(zapLog)

	t.Log("Starting E2E test with real services...")

	assertAllServicesConnectivity(t, cfg)
	testPostgresStore(t, cfg, log)
	testElasticStore(t, cfg, log)
	testRefreshDealsWorker(t, log)

	t.Log("E2E workflow successful")
}

func assertAllServicesConnectivity(t *testing.T, cfg *config.Config) {
	ctx := context.Background()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	assert.NoError(t, pg.Ping(ctx), "PostgreSQL ping failed")
	pg.Close()

	rdb := database.NewRedis(cfg.Database.Redis)
	assert.NoError(t, rdb.Ping(ctx), "Redis ping failed")
	rdb.Close()

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err, "Elasticsearch client creation failed")
	assert.NoError(t, es.Ping(ctx), "Elasticsearch ping failed")

	_, err = zeebeClient.NewTopologyCommand().Send(ctx)
	assert.NoError(t, err, "Zeebe topology request failed")
}

func testPostgresStore(t *testing.T, cfg *config.Config, log logger.Logger) {
	ctx := context.Background()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer pg.Close()

	_, err = pg.GetDB().ExecContext(ctx, dealsDDL)
	require.NoError(t, err)

	st := store.NewPostgresStore(pg, "e2e_deals", "e2e_scan_logs", log)
	records := sampleRecords()

	n, err := st.Insert(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, len(records), n)

	recent, err := st.FetchRecent(ctx, 30)
	require.NoError(t, err)
	assert.Contains(t, recent, models.Identity{
		CompanyName: records[0].CompanyName,
		Investor:    records[0].Investor,
		Date:        records[0].Date,
	})

	assert.NoError(t, st.RecordScan(ctx, models.ScanLog{DealsFound: n, DurationMS: 1200}))

	updated, err := st.Update(ctx, records[0].ID, models.DealPatch{"status": string(models.StatusDidNotSee), "comments": "e2e"})
	require.NoError(t, err)
	assert.Equal(t, "e2e", updated.Comments)

	require.NoError(t, st.SoftDelete(ctx, records[0].ID))
	active, err := st.List(ctx)
	require.NoError(t, err)
	for _, d := range active {
		assert.NotEqual(t, records[0].ID, d.ID)
	}
}

func testElasticStore(t *testing.T, cfg *config.Config, log logger.Logger) {
	ctx := context.Background()

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err)

	st := store.NewElasticStore(es, cfg.Database.Elasticsearch.Index, log)
	require.NoError(t, st.EnsureIndices(ctx))

	records := sampleRecords()
	n, err := st.Insert(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recent, err := st.FetchRecent(ctx, 30)
	require.NoError(t, err)
	found := false
	for _, id := range recent {
		if id.CompanyName == records[0].CompanyName {
			found = true
		}
	}
	assert.True(t, found, "inserted deal not returned by FetchRecent")
}

type stubRunner struct{}

func (stubRunner) Run(_ context.Context, _ string, dryRun bool) (*pipeline.Summary, error) {
	summary := &pipeline.Summary{
		RunID:               uuid.NewString(),
		SourcesScraped:      3,
		CandidatesExtracted: 2,
		Errors:              []string{},
	}
	if !dryRun {
		summary.Inserted = 2
	}
	return summary, nil
}

func testRefreshDealsWorker(t *testing.T, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	_, err := zeebeClient.NewDeployResourceCommand().
		AddResourceFile("testdata/refresh-deals.bpmn").
		Send(ctx)
	require.NoError(t, err, "deploy refresh-deals process")

	handler := refreshdeals.NewHandler(&refreshdeals.Config{Timeout: time.Minute}, stubRunner{}, nil, log)
	w := camunda.NewWorker(zeebeClient, camunda.WorkerOptions{
		TaskType:      refreshdeals.TaskType,
		MaxJobsActive: 1,
		Timeout:       time.Minute,
	}, handler, zapLog)
	w.Start()
	defer w.Stop()

	cmd, err := zeebeClient.NewCreateInstanceCommand().
		BPMNProcessId("refresh-deals-process").
		LatestVersion().
		VariablesFromMap(map[string]interface{}{"dryRun": false})
	require.NoError(t, err)

	result, err := cmd.WithResult().Send(ctx)
	require.NoError(t, err, "process instance did not complete")

	var out refreshdeals.Output
	require.NoError(t, json.Unmarshal([]byte(result.GetVariables()), &out))
	assert.Equal(t, 3, out.SourcesScraped)
	assert.Equal(t, 2, out.DealsExtracted)
	assert.Equal(t, 2, out.DealsInserted)
}
