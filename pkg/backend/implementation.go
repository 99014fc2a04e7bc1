package backend

import (
	"context"
	"errors"
	"sync"

	"github.com/gowso/bizsites/pkg/config"
	"github.com/gowso/bizsites/pkg/db"
	"github.com/gowso/bizsites/pkg/lookup"
	"github.com/gowso/bizsites/pkg/model"
	"github.com/gowso/bizsites/pkg/render"
	"github.com/gowso/bizsites/pkg/subdomain"
)

var (
	ErrRunInProgress  = errors.New("a provisioning run is already in progress")
	ErrLedgerDisabled = errors.New("site ledger is not enabled")
)

// Runner is one provisioning run; *provision.Workflow satisfies it.
type Runner interface {
	Run(ctx context.Context) (model.RunSummary, error)
}

type backend struct {
	cfg *config.Config

	runner       Runner
	provisionErr error
	lookup       *lookup.Service
	lookupErr    error
	page         *render.Page
	ledger       db.Database

	// running is held for the duration of a run so scheduled and triggered runs never overlap.
	running sync.Mutex
}

// Components are the parts a Backend serves. A nil Runner or Lookup is replaced by the matching error, which is
// returned on every call that needs it.
type Components struct {
	Runner       Runner
	ProvisionErr error
	Lookup       *lookup.Service
	LookupErr    error
	Page         *render.Page
	Ledger       db.Database
}

func NewBackend(cfg *config.Config, c Components) Backend {
	b := &backend{
		cfg:          cfg,
		runner:       c.Runner,
		provisionErr: c.ProvisionErr,
		lookup:       c.Lookup,
		lookupErr:    c.LookupErr,
		page:         c.Page,
		ledger:       c.Ledger,
	}
	if b.runner == nil && b.provisionErr == nil {
		b.provisionErr = errors.New("provisioning is not configured")
	}
	if b.lookup == nil && b.lookupErr == nil {
		b.lookupErr = errors.New("lookup is not configured")
	}
	return b
}

func (b *backend) Provision(ctx context.Context) (model.RunSummary, error) {
	if b.runner == nil {
		return model.RunSummary{}, b.provisionErr
	}
	if !b.running.TryLock() {
		return model.RunSummary{}, ErrRunInProgress
	}
	defer b.running.Unlock()

	return b.runner.Run(ctx)
}

func (b *backend) Lookup(ctx context.Context, business, sub string) (model.LookupResponse, string, error) {
	if b.lookup == nil {
		return model.LookupResponse{}, "", b.lookupErr
	}
	return b.lookup.ResolveQuery(ctx, business, sub)
}

func (b *backend) IsSiteHost(host string) bool {
	_, ok := subdomain.LabelFromHost(host, b.cfg.Domain)
	return ok
}

func (b *backend) RenderHost(ctx context.Context, host string) (string, error) {
	label, ok := subdomain.LabelFromHost(host, b.cfg.Domain)
	if !ok {
		return "", lookup.ErrNotFound
	}
	if b.lookup == nil {
		return "", b.lookupErr
	}

	resp, err := b.lookup.Resolve(ctx, label)
	if err != nil {
		return "", err
	}
	return b.page.Render(resp), nil
}

func (b *backend) Sites(ctx context.Context) ([]db.Site, error) {
	if b.ledger == nil {
		return nil, ErrLedgerDisabled
	}
	return b.ledger.ListSites(ctx)
}

func (b *backend) Site(ctx context.Context, label string) (db.Site, error) {
	if b.ledger == nil {
		return db.Site{}, ErrLedgerDisabled
	}
	return b.ledger.GetSite(ctx, subdomain.LabelOf(label))
}

func (b *backend) GetRootDomain() string {
	return b.cfg.Domain
}

func (b *backend) EnvStatus() map[string]bool {
	return b.cfg.EnvStatus()
}

func (b *backend) IsDevelopment() bool {
	return b.cfg.IsDevelopment()
}
