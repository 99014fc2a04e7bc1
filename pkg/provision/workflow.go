// Package provision turns pending business rows into live subdomains.
package provision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gowso/bizsites/pkg/cdn"
	"github.com/gowso/bizsites/pkg/db"
	"github.com/gowso/bizsites/pkg/model"
	"github.com/gowso/bizsites/pkg/recordstore"
	"github.com/gowso/bizsites/pkg/siteconfig"
	"github.com/gowso/bizsites/pkg/subdomain"
	"github.com/sirupsen/logrus"
)

const (
	MessageComplete = "Processing complete"
	MessageNoRows   = "No businesses found that need subdomains"

	unknownBusiness = "Unknown"
	cacheRulePrio   = 1
)

var errMissingName = &model.ValidationError{Reason: "missing business name"}

// Site-config keys written for every label.
var fieldKeys = []string{"BUSINESS_NAME", "BUSINESS_ADDRESS", "BUSINESS_PHONE", "BUSINESS_MAPS"}

// Ledger records the provider ids of provisioned sites. db.Database satisfies it.
type Ledger interface {
	RecordSite(ctx context.Context, site db.Site) error
}

type Config struct {
	// Zone is the DNS/CDN zone id, Domain its name.
	Zone          string
	Domain        string
	SiteID        string
	HostingTarget string
}

// Workflow provisions rows one at a time. A failing row never stops the ones after it and nothing is rolled back;
// running again converges because every step is an upsert or a delete-then-create.
type Workflow struct {
	store    recordstore.Store
	provider cdn.Provider
	sites    siteconfig.Writer
	ledger   Ledger
	cfg      Config
}

// New creates a workflow. ledger may be nil.
func New(store recordstore.Store, provider cdn.Provider, sites siteconfig.Writer, ledger Ledger, cfg Config) *Workflow {
	return &Workflow{
		store:    store,
		provider: provider,
		sites:    sites,
		ledger:   ledger,
		cfg:      cfg,
	}
}

// Run provisions every pending row. Only preflight and listing failures are returned as errors; row failures are
// reported in the summary.
func (w *Workflow) Run(ctx context.Context) (model.RunSummary, error) {
	runID := uuid.NewString()
	log := logrus.WithField("run_id", runID)

	log.Info("Verifying site and zone")
	if err := w.preflight(ctx); err != nil {
		return model.RunSummary{}, err
	}

	rows, err := w.store.ListPending(ctx)
	if err != nil {
		return model.RunSummary{}, err
	}
	log.Infof("Found %d records to process", len(rows))

	summary := model.RunSummary{
		RunID:        runID,
		RecordsFound: len(rows),
		Results:      []model.ProvisionResult{},
		Errors:       []model.ProvisionFailure{},
	}
	if len(rows) == 0 {
		summary.Message = MessageNoRows
		return summary, nil
	}

	start := time.Now()
	for _, row := range rows {
		rowLog := log.WithField("record_id", row.ID)

		result, err := w.provisionRow(ctx, rowLog, runID, row)
		if err != nil {
			name := strings.TrimSpace(row.Name)
			if name == "" {
				name = unknownBusiness
			}
			rowLog.WithError(err).Errorf("Failed to provision %s", name)
			summary.Errors = append(summary.Errors, model.ProvisionFailure{
				RecordID: row.ID,
				Business: name,
				Error:    err.Error(),
				Status:   model.StatusFailed,
			})
			continue
		}

		rowLog.Infof("Provisioned %s", result.Subdomain)
		summary.Results = append(summary.Results, result)
	}

	summary.Message = MessageComplete
	summary.Successful = len(summary.Results)
	summary.Failed = len(summary.Errors)
	log.WithFields(logrus.Fields{
		"successful": summary.Successful,
		"failed":     summary.Failed,
		"duration":   time.Since(start).String(),
	}).Info("Provisioning run complete")

	return summary, nil
}

func (w *Workflow) preflight(ctx context.Context) error {
	if err := w.sites.VerifySite(ctx, w.cfg.SiteID); err != nil {
		return err
	}
	zoneName, err := w.provider.VerifyZone(ctx, w.cfg.Zone)
	if err != nil {
		return err
	}
	if zoneName != "" && !strings.EqualFold(zoneName, w.cfg.Domain) {
		logrus.Warnf("Zone %s is named %s, subdomains will be created under %s", w.cfg.Zone, zoneName, w.cfg.Domain)
	}
	return nil
}

func (w *Workflow) provisionRow(ctx context.Context, log logrus.FieldLogger, runID string, row model.BusinessRecord) (model.ProvisionResult, error) {
	name := strings.TrimSpace(row.Name)
	if name == "" {
		return model.ProvisionResult{}, errMissingName
	}

	label := subdomain.Normalize(name)
	if err := subdomain.Validate(label); err != nil {
		return model.ProvisionResult{}, err
	}
	fqdn := subdomain.FQDN(label, w.cfg.Domain)
	log = log.WithField("subdomain", fqdn)

	log.Debug("Resolving DNS record")
	existing, err := w.provider.FindRecord(ctx, w.cfg.Zone, fqdn)
	if err != nil {
		return model.ProvisionResult{}, err
	}
	dnsID, err := w.provider.UpsertRecord(ctx, w.cfg.Zone, existing, model.DNSRecord{
		Type:    model.RecordTypeCname,
		Name:    fqdn,
		Content: w.cfg.HostingTarget,
		Proxied: true,
		TTL:     model.AutomaticTTL,
	})
	if err != nil {
		return model.ProvisionResult{}, err
	}

	ruleID, err := w.replaceCacheRule(ctx, log, fqdn)
	if err != nil {
		return model.ProvisionResult{}, err
	}

	values := []string{name, strings.TrimSpace(row.Address), strings.TrimSpace(row.Phone), strings.TrimSpace(row.MapsURL)}
	for i, field := range fieldKeys {
		key := fmt.Sprintf("%s_%s", field, label)
		if err := w.sites.SetValue(ctx, w.cfg.SiteID, key, values[i]); err != nil {
			return model.ProvisionResult{}, err
		}
	}

	if err := w.store.MarkProvisioned(ctx, row.ID, fqdn); err != nil {
		return model.ProvisionResult{}, err
	}

	if w.ledger != nil {
		err := w.ledger.RecordSite(ctx, db.Site{
			Label:        label,
			Subdomain:    fqdn,
			BusinessName: name,
			RecordID:     row.ID,
			DNSRecordID:  dnsID,
			CacheRuleID:  ruleID,
			RunID:        runID,
		})
		if err != nil {
			log.WithError(err).Warn("Failed to update site ledger")
		}
	}

	return model.ProvisionResult{
		Business:   name,
		Subdomain:  fqdn,
		Status:     model.StatusSuccess,
		DNSID:      dnsID,
		PageRuleID: ruleID,
	}, nil
}

func (w *Workflow) replaceCacheRule(ctx context.Context, log logrus.FieldLogger, fqdn string) (string, error) {
	rules, err := w.provider.ListRules(ctx, w.cfg.Zone)
	if err != nil {
		return "", err
	}
	for _, rule := range cdn.RulesForHost(rules, fqdn) {
		log.Debugf("Deleting stale cache rule %s", rule.ID)
		if err := w.provider.DeleteRule(ctx, w.cfg.Zone, rule.ID); err != nil {
			return "", err
		}
	}

	return w.provider.CreateRule(ctx, w.cfg.Zone, model.CacheRule{
		Target:     cdn.HostTarget(fqdn),
		TTLSeconds: model.EdgeCacheTTLSeconds,
		Priority:   cacheRulePrio,
		Active:     true,
	})
}
