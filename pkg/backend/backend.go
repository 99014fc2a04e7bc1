package backend

import (
	"context"

	"github.com/gowso/bizsites/pkg/db"
	"github.com/gowso/bizsites/pkg/model"
)

type Backend interface {
	// Provision runs the workflow once. It fails with ErrRunInProgress while another run holds the lock.
	Provision(ctx context.Context) (model.RunSummary, error)
	Lookup(ctx context.Context, business, subdomain string) (model.LookupResponse, string, error)
	// RenderHost renders the page of the business served on host.
	RenderHost(ctx context.Context, host string) (string, error)
	IsSiteHost(host string) bool
	Sites(ctx context.Context) ([]db.Site, error)
	// Site returns the ledger entry of one label, or db.ErrSiteNotFound.
	Site(ctx context.Context, label string) (db.Site, error)
	GetRootDomain() string
	EnvStatus() map[string]bool
	IsDevelopment() bool
	StartProvisionDaemon(stopCh <-chan struct{})
}
