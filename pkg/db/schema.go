package db

import (
	"strconv"
	"time"

	"github.com/gowso/bizsites/pkg/model"
	"gorm.io/gorm"
)

// Business is a record-store row kept in SQL.
type Business struct {
	gorm.Model
	Name        string
	Address     string
	Phone       string
	MapsURL     string
	Subdomain   string `gorm:"index"`
	Provisioned bool   `gorm:"index"`
}

// Site is the ledger entry for one provisioned label. It is informational only; the provider stays the source
// of truth for what exists.
type Site struct {
	ID              uint      `gorm:"primarykey" json:"-"`
	Label           string    `gorm:"uniqueIndex" json:"label"`
	Subdomain       string    `json:"subdomain"`
	BusinessName    string    `json:"business_name"`
	RecordID        string    `json:"record_id"`
	DNSRecordID     string    `json:"dns_id"`
	CacheRuleID     string    `json:"page_rule_id"`
	RunID           string    `json:"run_id"`
	CreatedAt       time.Time `json:"created_at"`
	LastProvisioned time.Time `json:"last_provisioned"`
}

func (b Business) toModel() model.BusinessRecord {
	return model.BusinessRecord{
		ID:          strconv.FormatUint(uint64(b.ID), 10),
		Name:        b.Name,
		Address:     b.Address,
		Phone:       b.Phone,
		MapsURL:     b.MapsURL,
		Subdomain:   b.Subdomain,
		Provisioned: b.Provisioned,
	}
}

func fromModel(r model.BusinessRecord) Business {
	return Business{
		Name:        r.Name,
		Address:     r.Address,
		Phone:       r.Phone,
		MapsURL:     r.MapsURL,
		Subdomain:   r.Subdomain,
		Provisioned: r.Provisioned,
	}
}
