package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gowso/bizsites/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func load(t *testing.T, args ...string) *Config {
	t.Helper()

	var cfg *Config
	app := &cli.App{
		Name:  "bizsites",
		Flags: Flags(),
		Action: func(c *cli.Context) error {
			var err error
			cfg, err = FromCLI(c)
			return err
		},
	}
	require.NoError(t, app.Run(append([]string{"bizsites"}, args...)))
	return cfg
}

func completeArgs() []string {
	return []string{
		"--domain", "gowso.online.",
		"--hosting-target", "plumbingservicesusa.netlify.app",
		"--cloudflare-api-token", "cf-token",
		"--cloudflare-zone-id", "zone-1",
		"--netlify-access-token", "nf-token",
		"--netlify-site-id", "site-1",
		"--airtable-api-key", "at-key",
		"--airtable-base-id", "app123",
	}
}

func TestFromCLIDefaults(t *testing.T) {
	cfg := load(t)

	assert.Equal(t, EnvProduction, cfg.Environment)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, RecordStoreAirtable, cfg.RecordStore.Backend)
	assert.Equal(t, "Businesses", cfg.RecordStore.AirtableTable)
	assert.Equal(t, LookupSourceStore, cfg.Lookup.Source)
	assert.Equal(t, 5*time.Minute, cfg.Lookup.CacheTTL)
	assert.Equal(t, "*", cfg.AllowedOrigins)
	assert.Zero(t, cfg.ProvisionInterval)
}

func TestValidateProvisioningComplete(t *testing.T) {
	cfg := load(t, completeArgs()...)

	require.NoError(t, cfg.ValidateProvisioning())
	assert.Equal(t, "gowso.online", cfg.Domain)
}

func TestValidateProvisioningNamesMissing(t *testing.T) {
	cfg := load(t,
		"--domain", "gowso.online",
		"--hosting-target", "plumbingservicesusa.netlify.app",
		"--cloudflare-api-token", "cf-token",
		"--netlify-access-token", "nf-token",
		"--airtable-api-key", "at-key",
		"--airtable-base-id", "app123",
	)

	err := cfg.ValidateProvisioning()
	var cerr *model.ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{"CLOUDFLARE_ZONE_ID", "NETLIFY_SITE_ID"}, cerr.Missing)

	status := cfg.EnvStatus()
	assert.False(t, status["CLOUDFLARE_ZONE_ID"])
	assert.True(t, status["CLOUDFLARE_API_TOKEN"])
}

func TestValidateProvisioningSQLBackend(t *testing.T) {
	args := append(completeArgs()[:12], "--record-store", "sql", "--sql-dsn", "")
	cfg := load(t, args...)

	err := cfg.ValidateProvisioning()
	var cerr *model.ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{"SQL_DSN"}, cerr.Missing)
}

func TestValidateUnknownBackend(t *testing.T) {
	cfg := load(t, append(completeArgs(), "--record-store", "sheets")...)
	assert.EqualError(t, cfg.ValidateProvisioning(), "unsupported record store: sheets")
}

func TestValidateLookup(t *testing.T) {
	cfg := load(t, "--lookup-source", "export")
	err := cfg.ValidateLookup()
	var cerr *model.ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{"BUSINESS_EXPORT"}, cerr.Missing)

	cfg = load(t, "--lookup-source", "export", "--lookup-export", "s3://exports/businesses.csv")
	assert.NoError(t, cfg.ValidateLookup())
}

func TestINIFillsUnsetFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bizsites.ini")
	require.NoError(t, os.WriteFile(path, []byte(`
[app]
domain = from-ini.example
environment = development

[cloudflare]
api_token = ini-token
zone_id = ini-zone

[provision]
interval = 15m
`), 0o600))

	cfg := load(t, "--config", path, "--cloudflare-api-token", "flag-token")

	assert.Equal(t, "flag-token", cfg.Cloudflare.APIToken)
	assert.Equal(t, "ini-zone", cfg.Cloudflare.ZoneID)
	assert.Equal(t, "from-ini.example", cfg.Domain)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 15*time.Minute, cfg.ProvisionInterval)
}

func TestINIEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bizsites.ini")
	require.NoError(t, os.WriteFile(path, []byte("[netlify]\nsite_id = ini-site\n"), 0o600))
	t.Setenv("NETLIFY_SITE_ID", "env-site")

	cfg := load(t, "--config", path)
	assert.Equal(t, "env-site", cfg.Netlify.SiteID)
}

func TestMissingINIFile(t *testing.T) {
	app := &cli.App{
		Flags: Flags(),
		Action: func(c *cli.Context) error {
			_, err := FromCLI(c)
			return err
		},
	}
	err := app.Run([]string{"bizsites", "--config", filepath.Join(t.TempDir(), "nope.ini")})
	assert.ErrorContains(t, err, "failed to load config file")
}
