package backend

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gowso/bizsites/pkg/cdn"
	"github.com/gowso/bizsites/pkg/config"
	"github.com/gowso/bizsites/pkg/db"
	"github.com/gowso/bizsites/pkg/lookup"
	"github.com/gowso/bizsites/pkg/provision"
	"github.com/gowso/bizsites/pkg/recordstore"
	"github.com/gowso/bizsites/pkg/render"
	"github.com/gowso/bizsites/pkg/siteconfig"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Build wires providers from cfg. Incomplete provisioning or lookup settings do not fail the build; the matching
// Backend calls report them instead, so a server can still answer lookups without provider credentials.
func Build(ctx context.Context, cfg *config.Config, gormConfig *gorm.Config) (Backend, error) {
	page, err := render.LoadPage(cfg.TemplatePath)
	if err != nil {
		return nil, err
	}

	database, err := openDatabase(ctx, cfg, gormConfig)
	if err != nil {
		return nil, err
	}

	components := Components{
		Page: page,
	}
	if cfg.Ledger {
		components.Ledger = database
	}

	if err := cfg.ValidateProvisioning(); err != nil {
		logrus.Warnf("provisioning disabled: %v", err)
		components.ProvisionErr = err
	} else {
		runner, err := buildWorkflow(cfg, database)
		if err != nil {
			return nil, err
		}
		components.Runner = runner
	}

	if err := cfg.ValidateLookup(); err != nil {
		logrus.Warnf("lookup disabled: %v", err)
		components.LookupErr = err
	} else {
		svc, err := buildLookup(ctx, cfg, database)
		if err != nil {
			return nil, err
		}
		components.Lookup = svc
	}

	return NewBackend(cfg, components), nil
}

// BuildWorkflow wires only what a single provisioning run needs.
func BuildWorkflow(ctx context.Context, cfg *config.Config, gormConfig *gorm.Config) (*provision.Workflow, error) {
	if err := cfg.ValidateProvisioning(); err != nil {
		return nil, err
	}

	database, err := openDatabase(ctx, cfg, gormConfig)
	if err != nil {
		return nil, err
	}
	return buildWorkflow(cfg, database)
}

// OpenExport loads a CSV export from a local path or an s3://bucket/key location.
func OpenExport(ctx context.Context, location string) (*recordstore.Export, error) {
	var objects recordstore.ObjectGetter
	if strings.HasPrefix(location, "s3://") {
		s, err := session.NewSession()
		if err != nil {
			return nil, err
		}
		objects = s3.New(s, &aws.Config{
			MaxRetries: aws.Int(3),
		})
	}
	return recordstore.OpenExport(ctx, location, objects)
}

func openDatabase(ctx context.Context, cfg *config.Config, gormConfig *gorm.Config) (db.Database, error) {
	if cfg.RecordStore.Backend != config.RecordStoreSQL && !cfg.Ledger {
		return nil, nil
	}
	return db.New(ctx, cfg.SQL.Dialect, cfg.SQL.DSN, gormConfig)
}

func buildStore(cfg *config.Config, database db.Database) (recordstore.Store, error) {
	if cfg.RecordStore.Backend == config.RecordStoreSQL {
		return database, nil
	}
	return recordstore.NewAirtable(cfg.RecordStore.AirtableURL, cfg.RecordStore.AirtableAPIKey,
		cfg.RecordStore.AirtableBaseID, cfg.RecordStore.AirtableTable)
}

func buildWorkflow(cfg *config.Config, database db.Database) (*provision.Workflow, error) {
	provider, err := cdn.NewCloudflare(cfg.Cloudflare.APIToken)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(cfg, database)
	if err != nil {
		return nil, err
	}

	var ledger provision.Ledger
	if cfg.Ledger {
		ledger = database
	}

	return provision.New(
		store,
		provider,
		siteconfig.NewNetlify(cfg.Netlify.BaseURL, cfg.Netlify.AccessToken),
		ledger,
		provision.Config{
			Zone:          cfg.Cloudflare.ZoneID,
			Domain:        cfg.Domain,
			SiteID:        cfg.Netlify.SiteID,
			HostingTarget: cfg.HostingTarget,
		},
	), nil
}

func buildLookup(ctx context.Context, cfg *config.Config, database db.Database) (*lookup.Service, error) {
	var finder recordstore.Finder
	if cfg.Lookup.Source == config.LookupSourceExport {
		export, err := OpenExport(ctx, cfg.Lookup.ExportPath)
		if err != nil {
			return nil, err
		}
		finder = export
	} else {
		store, err := buildStore(cfg, database)
		if err != nil {
			return nil, err
		}
		finder = store
	}

	var cache lookup.Cache
	if cfg.Redis.Addr != "" {
		client, err := lookup.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logrus.Warnf("lookup cache disabled: %v", err)
		} else {
			cache = lookup.NewRedisCache(client, cfg.Lookup.CacheTTL)
		}
	}

	return lookup.NewService(finder, cache), nil
}
