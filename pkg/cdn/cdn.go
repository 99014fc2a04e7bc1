// Package cdn manages the DNS aliases and edge cache rules of provisioned subdomains.
package cdn

import (
	"context"
	"fmt"
	"strings"

	"github.com/gowso/bizsites/pkg/model"
)

// Provider is a DNS/CDN provider. It has no native upsert, so callers look a record up with FindRecord before
// calling UpsertRecord, and delete the rules for a host before creating a new one.
type Provider interface {
	// VerifyZone returns the zone's name, or an error if the zone is not reachable with the configured credentials.
	VerifyZone(ctx context.Context, zone string) (string, error)
	// FindRecord returns nil when no record named fqdn exists.
	FindRecord(ctx context.Context, zone, fqdn string) (*model.DNSRecord, error)
	// UpsertRecord updates existing in place when it is non-nil and creates record otherwise.
	UpsertRecord(ctx context.Context, zone string, existing *model.DNSRecord, record model.DNSRecord) (string, error)
	ListRules(ctx context.Context, zone string) ([]model.CacheRule, error)
	DeleteRule(ctx context.Context, zone, id string) error
	CreateRule(ctx context.Context, zone string, rule model.CacheRule) (string, error)
}

// HostTarget is the URL pattern a cache rule for fqdn matches.
func HostTarget(fqdn string) string {
	return fmt.Sprintf("*%s/*", fqdn)
}

// RulesForHost returns the rules whose target pattern covers exactly fqdn, with or without a leading wildcard label.
func RulesForHost(rules []model.CacheRule, fqdn string) []model.CacheRule {
	fqdn = strings.ToLower(strings.TrimSuffix(fqdn, "."))

	var matched []model.CacheRule
	for _, rule := range rules {
		if targetHost(rule.Target) == fqdn {
			matched = append(matched, rule)
		}
	}
	return matched
}

func targetHost(target string) string {
	host := strings.ToLower(target)
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	host = strings.TrimPrefix(host, "*")
	host = strings.TrimPrefix(host, ".")
	return strings.TrimSuffix(host, ".")
}
