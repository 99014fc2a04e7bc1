// Package recordstore reads and updates the business rows that drive provisioning.
package recordstore

import (
	"context"
	"errors"
	"strings"

	"github.com/gowso/bizsites/pkg/model"
	"github.com/gowso/bizsites/pkg/subdomain"
)

var ErrNotFound = errors.New("business not found")

// Finder resolves a business by subdomain label or name.
type Finder interface {
	// FindByKey returns ErrNotFound when no business matches key.
	FindByKey(ctx context.Context, key string) (model.BusinessRecord, error)
}

// Store is a record store the provisioning workflow can drive.
type Store interface {
	Finder
	// ListPending returns a snapshot of the rows not provisioned yet, in store order.
	ListPending(ctx context.Context) ([]model.BusinessRecord, error)
	// MarkProvisioned flags the row as provisioned under subdomain. Calling it twice is harmless.
	MarkProvisioned(ctx context.Context, id, subdomain string) error
}

// Match picks the record for key, preferring a stored subdomain over a name match.
// Matching is case-insensitive.
func Match(records []model.BusinessRecord, key string) (model.BusinessRecord, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return model.BusinessRecord{}, false
	}

	for _, rec := range records {
		if rec.Subdomain == "" {
			continue
		}
		if subdomain.LabelOf(rec.Subdomain) == key || strings.EqualFold(rec.Subdomain, key) {
			return rec, true
		}
	}

	for _, rec := range records {
		if subdomain.Normalize(rec.Name) == key || strings.EqualFold(strings.TrimSpace(rec.Name), key) {
			return rec, true
		}
	}

	return model.BusinessRecord{}, false
}
