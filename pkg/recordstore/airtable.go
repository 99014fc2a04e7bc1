package recordstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gowso/bizsites/pkg/model"
	"github.com/gowso/bizsites/pkg/subdomain"
	"github.com/mehanizm/airtable"
	"github.com/sirupsen/logrus"
)

const (
	airtablePageSize = 100

	// pendingFormula never embeds row data, so it cannot be used for formula injection.
	pendingFormula = "NOT({subdomain_created})"

	fieldName             = "business_name"
	fieldAddress          = "address"
	fieldPhone            = "phone"
	fieldMapsURL          = "maps_url"
	fieldSubdomain        = "subdomain"
	fieldSubdomainCreated = "subdomain_created"
)

// Airtable is a Store backed by one Airtable table.
type Airtable struct {
	table *airtable.Table
}

// NewAirtable creates a store for table in base baseID. baseURL is the API root without the /v0 version prefix.
func NewAirtable(baseURL, apiKey, baseID, table string) (*Airtable, error) {
	client := airtable.NewClient(apiKey)
	if baseURL != "" {
		if err := client.SetBaseURL(strings.TrimSuffix(baseURL, "/") + "/v0"); err != nil {
			return nil, fmt.Errorf("invalid airtable url %s: %w", baseURL, err)
		}
	}

	return &Airtable{
		table: client.GetTable(baseID, table),
	}, nil
}

func recordToModel(r *airtable.Record) model.BusinessRecord {
	created, _ := r.Fields[fieldSubdomainCreated].(bool)
	return model.BusinessRecord{
		ID:          r.ID,
		Name:        fieldString(r.Fields, fieldName),
		Address:     fieldString(r.Fields, fieldAddress),
		Phone:       fieldString(r.Fields, fieldPhone),
		MapsURL:     fieldString(r.Fields, fieldMapsURL),
		Subdomain:   fieldString(r.Fields, fieldSubdomain),
		Provisioned: created,
	}
}

// fieldString reads a cell as text; phone columns may come back as numbers.
func fieldString(fields map[string]any, name string) string {
	switch v := fields[name].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (a *Airtable) ListPending(ctx context.Context) ([]model.BusinessRecord, error) {
	return a.list(ctx, "list pending", pendingFormula)
}

func (a *Airtable) MarkProvisioned(ctx context.Context, id, sub string) error {
	_, err := a.table.UpdateRecordsPartialContext(ctx, &airtable.Records{
		Records: []*airtable.Record{{
			ID: id,
			Fields: map[string]any{
				fieldSubdomain:        sub,
				fieldSubdomainCreated: true,
			},
		}},
	})
	if err != nil {
		return storeError("mark provisioned", err)
	}
	return nil
}

// FindByKey asks Airtable for rows whose stored subdomain has the key as its first label, and falls back to
// scanning every row client side for a name match. The formula is only built from keys already restricted to
// [a-z0-9-].
func (a *Airtable) FindByKey(ctx context.Context, key string) (model.BusinessRecord, error) {
	key = strings.ToLower(strings.TrimSpace(key))

	if key != "" && subdomain.SanitizeKey(key) == key {
		candidates, err := a.list(ctx, "find business", subdomainFormula(key))
		if err != nil {
			return model.BusinessRecord{}, err
		}
		if rec, ok := Match(candidates, key); ok {
			return rec, nil
		}
	}

	records, err := a.list(ctx, "find business", "")
	if err != nil {
		return model.BusinessRecord{}, err
	}

	rec, ok := Match(records, key)
	if !ok {
		return model.BusinessRecord{}, ErrNotFound
	}
	return rec, nil
}

// subdomainFormula matches a stored subdomain that is key itself or a host name starting with "key.".
func subdomainFormula(key string) string {
	return fmt.Sprintf("OR(LOWER({%s})='%s',LEFT(LOWER({%s}),%d)='%s.')",
		fieldSubdomain, key, fieldSubdomain, len(key)+1, key)
}

func (a *Airtable) list(ctx context.Context, op, formula string) ([]model.BusinessRecord, error) {
	var records []model.BusinessRecord
	offset := ""
	for {
		req := a.table.GetRecords().PageSize(airtablePageSize)
		if formula != "" {
			req = req.WithFilterFormula(formula)
		}
		if offset != "" {
			req = req.WithOffset(offset)
		}

		page, err := req.DoContext(ctx)
		if err != nil {
			return nil, storeError(op, err)
		}
		for _, r := range page.Records {
			records = append(records, recordToModel(r))
		}

		if page.Offset == "" {
			break
		}
		offset = page.Offset
	}

	logrus.Debugf("airtable %s: %d records", op, len(records))
	return records, nil
}

// storeError keeps only the status of a failed call; the client's error text embeds the whole request.
func storeError(op string, err error) error {
	var httpErr *airtable.HTTPClientError
	if errors.As(err, &httpErr) {
		return &model.RecordStoreError{Op: op, Message: fmt.Sprintf("HTTP %d", httpErr.StatusCode)}
	}
	return &model.RecordStoreError{Op: op, Message: err.Error()}
}
