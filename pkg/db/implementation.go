package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gowso/bizsites/pkg/model"
	"github.com/gowso/bizsites/pkg/recordstore"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const insertBatchSize = 100

var ErrSiteNotFound = errors.New("site not found")

type database struct {
	db *gorm.DB
}

// New creates a new database connection
func New(ctx context.Context, dialect string, dsn string, config *gorm.Config) (Database, error) {
	if config == nil {
		config = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	}

	var db *gorm.DB
	var err error

	if dialect == "sqlite" {
		db, err = gorm.Open(sqlite.Open(dsn), config)
		if err == nil {
			err = db.Exec("PRAGMA foreign_keys = ON").Error
		}
	} else if dialect == "mysql" {
		db, err = gorm.Open(mysql.Open(dsn), config)
	} else {
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}

	if err != nil {
		return nil, err
	}

	db = db.WithContext(ctx)

	if err := db.AutoMigrate(
		&Business{},
		&Site{},
	); err != nil {
		return nil, err
	}

	d := &database{
		db: db,
	}
	return d, nil
}

func storeError(op string, err error) error {
	return &model.RecordStoreError{Op: op, Message: err.Error()}
}

func (d *database) ListPending(ctx context.Context) ([]model.BusinessRecord, error) {
	var rows []Business
	sql := d.db.WithContext(ctx).Where("provisioned = ?", false).Order("id").Find(&rows)
	if sql.Error != nil {
		return nil, storeError("list pending", sql.Error)
	}

	records := make([]model.BusinessRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toModel())
	}
	return records, nil
}

func (d *database) MarkProvisioned(ctx context.Context, id, subdomain string) error {
	pk, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return storeError("mark provisioned", fmt.Errorf("invalid record id %q", id))
	}

	sql := d.db.WithContext(ctx).Model(&Business{}).Where("id = ?", pk).Updates(map[string]interface{}{
		"subdomain":   subdomain,
		"provisioned": true,
	})
	if sql.Error != nil {
		return storeError("mark provisioned", sql.Error)
	}
	if sql.RowsAffected > 0 {
		return nil
	}

	// mysql reports unchanged rows as unaffected
	var count int64
	if err := d.db.WithContext(ctx).Model(&Business{}).Where("id = ?", pk).Count(&count).Error; err != nil {
		return storeError("mark provisioned", err)
	}
	if count == 0 {
		return storeError("mark provisioned", fmt.Errorf("record %s not found", id))
	}
	return nil
}

// FindByKey matches client side so that subdomain matches beat name matches the same way for every store.
func (d *database) FindByKey(ctx context.Context, key string) (model.BusinessRecord, error) {
	var rows []Business
	sql := d.db.WithContext(ctx).Order("id").Find(&rows)
	if sql.Error != nil {
		return model.BusinessRecord{}, storeError("find business", sql.Error)
	}

	records := make([]model.BusinessRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toModel())
	}

	rec, ok := recordstore.Match(records, key)
	if !ok {
		return model.BusinessRecord{}, recordstore.ErrNotFound
	}
	return rec, nil
}

func (d *database) AddBusinesses(ctx context.Context, records []model.BusinessRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([]Business, 0, len(records))
	for _, r := range records {
		rows = append(rows, fromModel(r))
	}

	sql := d.db.WithContext(ctx).CreateInBatches(&rows, insertBatchSize)
	if sql.Error != nil {
		return 0, storeError("add businesses", sql.Error)
	}
	return sql.RowsAffected, nil
}

func (d *database) RecordSite(ctx context.Context, site Site) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing := Site{}
		sql := tx.Where("label = ?", site.Label).Limit(1).Find(&existing)
		if sql.Error != nil {
			return sql.Error
		}

		if site.LastProvisioned.IsZero() {
			site.LastProvisioned = time.Now()
		}

		if existing.ID == 0 {
			logrus.Debugf("Adding %s to the site ledger", site.Label)
			return tx.Create(&site).Error
		}

		site.ID = existing.ID
		site.CreatedAt = existing.CreatedAt
		return tx.Save(&site).Error
	})
}

func (d *database) GetSite(ctx context.Context, label string) (Site, error) {
	site := Site{}
	sql := d.db.WithContext(ctx).Where("label = ?", label).Limit(1).Find(&site)
	if sql.Error != nil {
		return site, sql.Error
	}
	if site.ID == 0 {
		return site, ErrSiteNotFound
	}
	return site, nil
}

func (d *database) ListSites(ctx context.Context) ([]Site, error) {
	var sites []Site
	sql := d.db.WithContext(ctx).Order("label").Find(&sites)
	return sites, sql.Error
}
