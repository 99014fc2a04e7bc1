package db

import (
	"context"

	"github.com/gowso/bizsites/pkg/model"
)

type Database interface {
	ListPending(ctx context.Context) ([]model.BusinessRecord, error)
	MarkProvisioned(ctx context.Context, id, subdomain string) error
	FindByKey(ctx context.Context, key string) (model.BusinessRecord, error)
	AddBusinesses(ctx context.Context, records []model.BusinessRecord) (int64, error)
	RecordSite(ctx context.Context, site Site) error
	GetSite(ctx context.Context, label string) (Site, error)
	ListSites(ctx context.Context) ([]Site, error)
}
