package cdn

import (
	"context"

	"github.com/cloudflare/cloudflare-go"
	"github.com/gowso/bizsites/pkg/model"
	"github.com/sirupsen/logrus"
)

const (
	ruleStatusActive   = "active"
	ruleStatusDisabled = "disabled"

	actionCacheLevel   = "cache_level"
	actionEdgeCacheTTL = "edge_cache_ttl"
	cacheEverything    = "cache_everything"
)

// Cloudflare manages DNS records and page rules of Cloudflare zones.
type Cloudflare struct {
	api *cloudflare.API
}

func NewCloudflare(apiToken string, opts ...cloudflare.Option) (*Cloudflare, error) {
	api, err := cloudflare.NewWithAPIToken(apiToken, opts...)
	if err != nil {
		return nil, err
	}
	return &Cloudflare{api: api}, nil
}

func providerError(op string, err error) error {
	return &model.ProviderError{Op: op, Message: err.Error()}
}

func (c *Cloudflare) VerifyZone(ctx context.Context, zone string) (string, error) {
	z, err := c.api.ZoneDetails(ctx, zone)
	if err != nil {
		return "", providerError("verify zone", err)
	}
	return z.Name, nil
}

func (c *Cloudflare) FindRecord(ctx context.Context, zone, fqdn string) (*model.DNSRecord, error) {
	records, _, err := c.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zone), cloudflare.ListDNSRecordsParams{
		Name: fqdn,
	})
	if err != nil {
		return nil, providerError("find record", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if len(records) > 1 {
		logrus.Warnf("Found %d records named %s, using %s", len(records), fqdn, records[0].ID)
	}

	r := records[0]
	return &model.DNSRecord{
		ID:      r.ID,
		Type:    r.Type,
		Name:    r.Name,
		Content: r.Content,
		Proxied: r.Proxied != nil && *r.Proxied,
		TTL:     r.TTL,
	}, nil
}

func (c *Cloudflare) UpsertRecord(ctx context.Context, zone string, existing *model.DNSRecord, record model.DNSRecord) (string, error) {
	rc := cloudflare.ZoneIdentifier(zone)

	if existing != nil {
		updated, err := c.api.UpdateDNSRecord(ctx, rc, cloudflare.UpdateDNSRecordParams{
			ID:      existing.ID,
			Type:    record.Type,
			Name:    record.Name,
			Content: record.Content,
			TTL:     record.TTL,
			Proxied: cloudflare.BoolPtr(record.Proxied),
		})
		if err != nil {
			return "", providerError("update record", err)
		}
		if updated.ID == "" {
			return existing.ID, nil
		}
		return updated.ID, nil
	}

	created, err := c.api.CreateDNSRecord(ctx, rc, cloudflare.CreateDNSRecordParams{
		Type:    record.Type,
		Name:    record.Name,
		Content: record.Content,
		TTL:     record.TTL,
		Proxied: cloudflare.BoolPtr(record.Proxied),
	})
	if err != nil {
		return "", providerError("create record", err)
	}
	return created.ID, nil
}

func (c *Cloudflare) ListRules(ctx context.Context, zone string) ([]model.CacheRule, error) {
	pageRules, err := c.api.ListPageRules(ctx, zone)
	if err != nil {
		return nil, providerError("list rules", err)
	}

	rules := make([]model.CacheRule, 0, len(pageRules))
	for _, pr := range pageRules {
		rules = append(rules, fromPageRule(pr))
	}
	return rules, nil
}

func (c *Cloudflare) DeleteRule(ctx context.Context, zone, id string) error {
	if err := c.api.DeletePageRule(ctx, zone, id); err != nil {
		return providerError("delete rule", err)
	}
	return nil
}

func (c *Cloudflare) CreateRule(ctx context.Context, zone string, rule model.CacheRule) (string, error) {
	created, err := c.api.CreatePageRule(ctx, zone, toPageRule(rule))
	if err != nil {
		return "", providerError("create rule", err)
	}
	return created.ID, nil
}

func toPageRule(rule model.CacheRule) cloudflare.PageRule {
	target := cloudflare.PageRuleTarget{Target: "url"}
	target.Constraint.Operator = "matches"
	target.Constraint.Value = rule.Target

	status := ruleStatusActive
	if !rule.Active {
		status = ruleStatusDisabled
	}

	return cloudflare.PageRule{
		Targets: []cloudflare.PageRuleTarget{target},
		Actions: []cloudflare.PageRuleAction{
			{ID: actionCacheLevel, Value: cacheEverything},
			{ID: actionEdgeCacheTTL, Value: rule.TTLSeconds},
		},
		Priority: rule.Priority,
		Status:   status,
	}
}

func fromPageRule(pr cloudflare.PageRule) model.CacheRule {
	rule := model.CacheRule{
		ID:       pr.ID,
		Priority: pr.Priority,
		Active:   pr.Status == ruleStatusActive,
	}
	if len(pr.Targets) > 0 {
		rule.Target = pr.Targets[0].Constraint.Value
	}
	for _, action := range pr.Actions {
		if action.ID != actionEdgeCacheTTL {
			continue
		}
		switch v := action.Value.(type) {
		case float64:
			rule.TTLSeconds = int(v)
		case int:
			rule.TTLSeconds = v
		}
	}
	return rule
}
