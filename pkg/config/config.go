// Package config collects the process configuration from flags, environment variables and an
// optional INI file, and validates it once before any provider is contacted.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gowso/bizsites/pkg/model"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/ini.v1"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	RecordStoreAirtable = "airtable"
	RecordStoreSQL      = "sql"

	LookupSourceStore  = "store"
	LookupSourceExport = "export"
)

type Config struct {
	Environment string
	Port        int

	// Domain is the zone apex every business label is created under.
	Domain string
	// HostingTarget is the static-site host name every business CNAME points at.
	HostingTarget string

	Cloudflare  CloudflareConfig
	Netlify     NetlifyConfig
	RecordStore RecordStoreConfig
	SQL         SQLConfig
	Lookup      LookupConfig
	Redis       RedisConfig

	AllowedOrigins     string
	TemplatePath       string
	ProvisionTokenHash string
	ProvisionInterval  time.Duration
	Ledger             bool
}

type CloudflareConfig struct {
	APIToken string
	ZoneID   string
}

type NetlifyConfig struct {
	AccessToken string
	SiteID      string
	BaseURL     string
}

type RecordStoreConfig struct {
	Backend        string
	AirtableAPIKey string
	AirtableBaseID string
	AirtableTable  string
	AirtableURL    string
}

type SQLConfig struct {
	Dialect string
	DSN     string
}

type LookupConfig struct {
	Source     string
	ExportPath string
	CacheTTL   time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// iniKeys maps a flag onto its [section] key in the optional INI file.
var iniKeys = map[string][2]string{
	"environment":          {"app", "environment"},
	"domain":               {"app", "domain"},
	"hosting-target":       {"app", "hosting_target"},
	"allowed-origins":      {"http", "allowed_origins"},
	"template":             {"http", "template"},
	"provision-token-hash": {"http", "provision_token_hash"},
	"provision-interval":   {"provision", "interval"},
	"ledger":               {"provision", "ledger"},
	"cloudflare-api-token": {"cloudflare", "api_token"},
	"cloudflare-zone-id":   {"cloudflare", "zone_id"},
	"netlify-access-token": {"netlify", "access_token"},
	"netlify-site-id":      {"netlify", "site_id"},
	"netlify-url":          {"netlify", "url"},
	"record-store":         {"record_store", "backend"},
	"airtable-api-key":     {"airtable", "api_key"},
	"airtable-base-id":     {"airtable", "base_id"},
	"airtable-table":       {"airtable", "table"},
	"airtable-url":         {"airtable", "url"},
	"sql-dialect":          {"sql", "dialect"},
	"sql-dsn":              {"sql", "dsn"},
	"lookup-source":        {"lookup", "source"},
	"lookup-export":        {"lookup", "export"},
	"lookup-cache-ttl":     {"lookup", "cache_ttl"},
	"redis-addr":           {"redis", "addr"},
	"redis-password":       {"redis", "password"},
	"redis-db":             {"redis", "db"},
}

// Flags are shared by every command that talks to a provider.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Optional INI file; flags and environment variables take precedence over it",
			EnvVars: []string{"BIZSITES_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "environment",
			Usage:   "production or development; development adds error details to responses",
			EnvVars: []string{"BIZSITES_ENV", "NODE_ENV"},
			Value:   EnvProduction,
		},
		&cli.StringFlag{
			Name:    "domain",
			Usage:   "Base domain the business subdomains are created under",
			EnvVars: []string{"DOMAIN"},
		},
		&cli.StringFlag{
			Name:    "hosting-target",
			Usage:   "Host name of the static site every subdomain CNAME points at",
			EnvVars: []string{"HOSTING_TARGET", "NETLIFY_SITE_URL"},
		},
		&cli.StringFlag{
			Name:    "cloudflare-api-token",
			EnvVars: []string{"CLOUDFLARE_API_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "cloudflare-zone-id",
			EnvVars: []string{"CLOUDFLARE_ZONE_ID"},
		},
		&cli.StringFlag{
			Name:    "netlify-access-token",
			EnvVars: []string{"NETLIFY_ACCESS_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "netlify-site-id",
			EnvVars: []string{"NETLIFY_SITE_ID"},
		},
		&cli.StringFlag{
			Name:    "netlify-url",
			EnvVars: []string{"NETLIFY_API_URL"},
			Value:   "https://api.netlify.com",
		},
		&cli.StringFlag{
			Name:    "record-store",
			Usage:   "Where business rows live: airtable or sql",
			EnvVars: []string{"RECORD_STORE"},
			Value:   RecordStoreAirtable,
		},
		&cli.StringFlag{
			Name:    "airtable-api-key",
			EnvVars: []string{"AIRTABLE_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "airtable-base-id",
			EnvVars: []string{"AIRTABLE_BASE_ID"},
		},
		&cli.StringFlag{
			Name:    "airtable-table",
			EnvVars: []string{"AIRTABLE_TABLE"},
			Value:   "Businesses",
		},
		&cli.StringFlag{
			Name:    "airtable-url",
			EnvVars: []string{"AIRTABLE_API_URL"},
			Value:   "https://api.airtable.com",
		},
		&cli.StringFlag{
			Name:    "sql-dialect",
			Usage:   "The type of sql to use, sqlite or mysql",
			EnvVars: []string{"SQL_DIALECT"},
			Value:   "sqlite",
		},
		&cli.StringFlag{
			Name:    "sql-dsn",
			Usage:   "The DSN to use to connect to",
			EnvVars: []string{"SQL_DSN"},
			Value:   "file:bizsites.sqlite?_pragma=foreign_keys(1)",
		},
		&cli.BoolFlag{
			Name:    "ledger",
			Usage:   "Record provisioned sites in the sql database even when rows come from airtable",
			EnvVars: []string{"LEDGER_ENABLED"},
		},
		&cli.StringFlag{
			Name:    "lookup-source",
			Usage:   "Where lookups read businesses from: store or export",
			EnvVars: []string{"LOOKUP_SOURCE"},
			Value:   LookupSourceStore,
		},
		&cli.StringFlag{
			Name:    "lookup-export",
			Usage:   "CSV export used when lookup-source=export; a local path or s3://bucket/key",
			EnvVars: []string{"BUSINESS_EXPORT"},
		},
		&cli.DurationFlag{
			Name:    "lookup-cache-ttl",
			EnvVars: []string{"LOOKUP_CACHE_TTL"},
			Value:   5 * time.Minute,
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Redis address for the lookup cache; empty disables caching",
			EnvVars: []string{"REDIS_ADDR"},
		},
		&cli.StringFlag{
			Name:    "redis-password",
			EnvVars: []string{"REDIS_PASSWORD"},
		},
		&cli.IntFlag{
			Name:    "redis-db",
			EnvVars: []string{"REDIS_DB"},
		},
		&cli.StringFlag{
			Name:    "allowed-origins",
			EnvVars: []string{"ALLOWED_ORIGINS"},
			Value:   "*",
		},
		&cli.StringFlag{
			Name:    "template",
			Usage:   "HTML template served on business subdomains",
			EnvVars: []string{"PAGE_TEMPLATE"},
		},
		&cli.StringFlag{
			Name:    "provision-token-hash",
			Usage:   "bcrypt hash of the bearer token required by the provisioning trigger",
			EnvVars: []string{"PROVISION_TOKEN_HASH"},
		},
		&cli.DurationFlag{
			Name:    "provision-interval",
			Usage:   "Run provisioning on a timer; 0 disables the timer",
			EnvVars: []string{"PROVISION_INTERVAL"},
		},
	}
}

// FromCLI builds a Config from the parsed flags, filling flags that were neither passed nor
// found in the environment from the INI file named by --config.
func FromCLI(c *cli.Context) (*Config, error) {
	if path := c.String("config"); path != "" {
		if err := applyINI(c, path); err != nil {
			return nil, err
		}
	}

	return &Config{
		Environment:   c.String("environment"),
		Port:          c.Int("port"),
		Domain:        strings.TrimSuffix(strings.TrimSpace(c.String("domain")), "."),
		HostingTarget: strings.TrimSpace(c.String("hosting-target")),
		Cloudflare: CloudflareConfig{
			APIToken: c.String("cloudflare-api-token"),
			ZoneID:   c.String("cloudflare-zone-id"),
		},
		Netlify: NetlifyConfig{
			AccessToken: c.String("netlify-access-token"),
			SiteID:      c.String("netlify-site-id"),
			BaseURL:     c.String("netlify-url"),
		},
		RecordStore: RecordStoreConfig{
			Backend:        c.String("record-store"),
			AirtableAPIKey: c.String("airtable-api-key"),
			AirtableBaseID: c.String("airtable-base-id"),
			AirtableTable:  c.String("airtable-table"),
			AirtableURL:    c.String("airtable-url"),
		},
		SQL: SQLConfig{
			Dialect: c.String("sql-dialect"),
			DSN:     c.String("sql-dsn"),
		},
		Lookup: LookupConfig{
			Source:     c.String("lookup-source"),
			ExportPath: c.String("lookup-export"),
			CacheTTL:   c.Duration("lookup-cache-ttl"),
		},
		Redis: RedisConfig{
			Addr:     c.String("redis-addr"),
			Password: c.String("redis-password"),
			DB:       c.Int("redis-db"),
		},
		AllowedOrigins:     c.String("allowed-origins"),
		TemplatePath:       c.String("template"),
		ProvisionTokenHash: c.String("provision-token-hash"),
		ProvisionInterval:  c.Duration("provision-interval"),
		Ledger:             c.Bool("ledger"),
	}, nil
}

func applyINI(c *cli.Context, path string) error {
	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	for flag, loc := range iniKeys {
		if c.IsSet(flag) {
			continue
		}
		key := file.Section(loc[0]).Key(loc[1])
		if key.String() == "" {
			continue
		}
		if err := c.Set(flag, key.String()); err != nil {
			return fmt.Errorf("invalid value for [%s] %s in %s: %w", loc[0], loc[1], path, err)
		}
	}
	return nil
}

// IsDevelopment reports whether error responses may carry internal details.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, EnvDevelopment)
}

// EnvStatus reports, per required setting, whether it is present.
func (c *Config) EnvStatus() map[string]bool {
	status := map[string]bool{
		"DOMAIN":               c.Domain != "",
		"HOSTING_TARGET":       c.HostingTarget != "",
		"CLOUDFLARE_API_TOKEN": c.Cloudflare.APIToken != "",
		"CLOUDFLARE_ZONE_ID":   c.Cloudflare.ZoneID != "",
		"NETLIFY_SITE_ID":      c.Netlify.SiteID != "",
		"NETLIFY_ACCESS_TOKEN": c.Netlify.AccessToken != "",
	}
	for k, v := range c.recordStoreStatus() {
		status[k] = v
	}
	return status
}

func (c *Config) recordStoreStatus() map[string]bool {
	if c.RecordStore.Backend == RecordStoreSQL {
		return map[string]bool{"SQL_DSN": c.SQL.DSN != ""}
	}
	return map[string]bool{
		"AIRTABLE_API_KEY": c.RecordStore.AirtableAPIKey != "",
		"AIRTABLE_BASE_ID": c.RecordStore.AirtableBaseID != "",
	}
}

// ValidateProvisioning fails with a ConfigurationError naming every missing setting.
func (c *Config) ValidateProvisioning() error {
	if err := c.validateBackends(); err != nil {
		return err
	}
	return missing(c.EnvStatus())
}

// ValidateLookup checks only what serving lookups and pages needs.
func (c *Config) ValidateLookup() error {
	if err := c.validateBackends(); err != nil {
		return err
	}
	if c.Lookup.Source == LookupSourceExport {
		return missing(map[string]bool{"BUSINESS_EXPORT": c.Lookup.ExportPath != ""})
	}
	return missing(c.recordStoreStatus())
}

func (c *Config) validateBackends() error {
	switch c.RecordStore.Backend {
	case RecordStoreAirtable, RecordStoreSQL:
	default:
		return fmt.Errorf("unsupported record store: %s", c.RecordStore.Backend)
	}
	switch c.Lookup.Source {
	case LookupSourceStore, LookupSourceExport:
	default:
		return fmt.Errorf("unsupported lookup source: %s", c.Lookup.Source)
	}
	return nil
}

func missing(status map[string]bool) error {
	var names []string
	for _, name := range maps.Keys(status) {
		if !status[name] {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	slices.Sort(names)
	return &model.ConfigurationError{Missing: names}
}
