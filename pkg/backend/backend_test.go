package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gowso/bizsites/pkg/config"
	"github.com/gowso/bizsites/pkg/db"
	"github.com/gowso/bizsites/pkg/lookup"
	"github.com/gowso/bizsites/pkg/model"
	"github.com/gowso/bizsites/pkg/recordstore"
	"github.com/gowso/bizsites/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	runs    int
}

func (r *blockingRunner) Run(ctx context.Context) (model.RunSummary, error) {
	r.runs++
	if r.started != nil {
		close(r.started)
		<-r.release
	}
	return model.RunSummary{RunID: "run-1", Message: "Processing complete"}, nil
}

func testConfig() *config.Config {
	return &config.Config{Domain: "gowso.online", Environment: config.EnvProduction}
}

func testLookup() *lookup.Service {
	return lookup.NewService(recordstore.NewExport([]model.BusinessRecord{
		{ID: "row-2", Name: "Acme Drains", Phone: "555-0101", Subdomain: "acme-drains.gowso.online"},
	}), nil)
}

func TestProvisionRejectsOverlappingRuns(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	b := NewBackend(testConfig(), Components{Runner: runner})

	done := make(chan error)
	go func() {
		_, err := b.Provision(context.Background())
		done <- err
	}()
	<-runner.started

	_, err := b.Provision(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(runner.release)
	require.NoError(t, <-done)

	runner.started = nil
	summary, err := b.Provision(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, 2, runner.runs)
}

func TestProvisionReportsConfigurationError(t *testing.T) {
	cfgErr := &model.ConfigurationError{Missing: []string{"CLOUDFLARE_ZONE_ID"}}
	b := NewBackend(testConfig(), Components{ProvisionErr: cfgErr})

	_, err := b.Provision(context.Background())
	assert.Same(t, cfgErr, err)

	_, err = NewBackend(testConfig(), Components{}).Provision(context.Background())
	assert.EqualError(t, err, "provisioning is not configured")
}

func TestRenderHost(t *testing.T) {
	page, err := render.LoadPage("")
	require.NoError(t, err)
	b := NewBackend(testConfig(), Components{Lookup: testLookup(), Page: page})

	assert.True(t, b.IsSiteHost("acme-drains.gowso.online:8080"))
	assert.False(t, b.IsSiteHost("gowso.online"))
	assert.False(t, b.IsSiteHost("a.b.gowso.online"))

	html, err := b.RenderHost(context.Background(), "Acme-Drains.gowso.online")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Acme Drains</h1>")
	assert.Contains(t, html, "tel:555-0101")

	_, err = b.RenderHost(context.Background(), "nobody.gowso.online")
	assert.ErrorIs(t, err, lookup.ErrNotFound)

	_, err = b.RenderHost(context.Background(), "example.com")
	assert.ErrorIs(t, err, lookup.ErrNotFound)
}

func TestLookupAndSitesDisabled(t *testing.T) {
	lookupErr := &model.ConfigurationError{Missing: []string{"BUSINESS_EXPORT"}}
	b := NewBackend(testConfig(), Components{LookupErr: lookupErr})

	_, _, err := b.Lookup(context.Background(), "acme", "")
	assert.Same(t, lookupErr, err)

	_, err = b.Sites(context.Background())
	assert.ErrorIs(t, err, ErrLedgerDisabled)
	_, err = b.Site(context.Background(), "acme-drains")
	assert.ErrorIs(t, err, ErrLedgerDisabled)
	assert.Equal(t, "gowso.online", b.GetRootDomain())
	assert.False(t, b.IsDevelopment())
}

func TestStartProvisionDaemonRunsUntilStopped(t *testing.T) {
	cfg := testConfig()
	cfg.ProvisionInterval = 10 * time.Millisecond
	runner := &countingRunner{ran: make(chan struct{}, 10)}
	b := NewBackend(cfg, Components{Runner: runner})

	stopCh := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		b.StartProvisionDaemon(stopCh)
		close(finished)
	}()

	<-runner.ran
	<-runner.ran
	close(stopCh)

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

type countingRunner struct {
	ran chan struct{}
}

func (r *countingRunner) Run(context.Context) (model.RunSummary, error) {
	select {
	case r.ran <- struct{}{}:
	default:
	}
	return model.RunSummary{}, errors.New("record store error during list pending: HTTP 503")
}

func TestStartProvisionDaemonDisabled(t *testing.T) {
	// returns immediately without an interval
	NewBackend(testConfig(), Components{Runner: &countingRunner{ran: make(chan struct{}, 1)}}).StartProvisionDaemon(make(chan struct{}))
}

func TestBuildWithExportLookupOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "businesses.csv")
	require.NoError(t, os.WriteFile(path, []byte("business_name,address,phone,maps_url,subdomain\nAcme Drains,,555,,acme-drains\n"), 0o600))

	cfg := testConfig()
	cfg.RecordStore.Backend = config.RecordStoreAirtable
	cfg.Lookup.Source = config.LookupSourceExport
	cfg.Lookup.ExportPath = path

	b, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)

	resp, key, err := b.Lookup(context.Background(), "", "acme-drains")
	require.NoError(t, err)
	assert.Equal(t, "acme-drains", key)
	assert.Equal(t, "Acme Drains", resp.BusinessName)

	_, err = b.Provision(context.Background())
	var cerr *model.ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, cerr.Missing, "CLOUDFLARE_API_TOKEN")
}

func TestBuildWithSQLStore(t *testing.T) {
	cfg := testConfig()
	cfg.HostingTarget = "plumbingservicesusa.netlify.app"
	cfg.Cloudflare = config.CloudflareConfig{APIToken: "cf-token", ZoneID: "zone-1"}
	cfg.Netlify = config.NetlifyConfig{AccessToken: "nf-token", SiteID: "site-1", BaseURL: "http://127.0.0.1:1"}
	cfg.RecordStore.Backend = config.RecordStoreSQL
	cfg.SQL = config.SQLConfig{Dialect: "sqlite", DSN: "file:TestBuildWithSQLStore?mode=memory&cache=shared"}
	cfg.Lookup.Source = config.LookupSourceStore
	cfg.Ledger = true

	b, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)

	sites, err := b.Sites(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sites)

	_, err = b.Site(context.Background(), "acme-drains.gowso.online")
	assert.ErrorIs(t, err, db.ErrSiteNotFound)

	_, _, err = b.Lookup(context.Background(), "nobody", "")
	assert.ErrorIs(t, err, lookup.ErrNotFound)
}
