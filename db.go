package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tablify/models"
	"tablify/pkg/export"
	"tablify/pkg/log"
	"tablify/process/watcher"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errNoDatabase = errors.New("database not configured (set database.dsn or DB_DSN)")

// openDB connects to Postgres and, unless disabled, migrates and seeds the schema.
func openDB(cfg DatabaseConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errNoDatabase
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.AutoMigrate {
		migrateDB(db)
	}
	seedDB(db)
	return db, nil
}

// migrateDB migrates models individually so a failure on one doesn't block
// the others. Permission errors are logged and ignored.
func migrateDB(db *gorm.DB) {
	// roles first so the clients FK can be applied
	if err := db.AutoMigrate(&models.Role{}); err != nil {
		log.Warnf("migration warning (roles): %v", err)
	}
	if err := db.AutoMigrate(&models.Client{}); err != nil {
		log.Warnf("migration warning (clients): %v", err)
	}
	if err := db.AutoMigrate(&models.Extraction{}); err != nil {
		log.Warnf("migration warning (extractions): %v", err)
	}
}

// seedDB ensures the master roles exist. When TABLIFY_ADMIN_SECRET is set an
// "admin" client with that secret is created if missing.
func seedDB(db *gorm.DB) {
	roles := []models.Role{
		{Name: models.RoleAdministrator, Description: "full access"},
		{Name: models.RoleClient, Description: "submits images, sees own extractions"},
	}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			if err := db.Create(&r).Error; err != nil {
				log.Warnf("seed role %s: %v", r.Name, err)
			}
		}
	}

	secret := os.Getenv("TABLIFY_ADMIN_SECRET")
	if secret == "" {
		return
	}
	var count int64
	db.Model(&models.Client{}).Where("name = ?", "admin").Count(&count)
	if count > 0 {
		return
	}
	if _, err := createClient(db, "admin", secret, models.RoleAdministrator); err != nil {
		log.Errorf("seed admin client: %v", err)
		return
	}
	log.Infof("seeded admin client")
}

// recordWatchResult stores a watcher conversion as an extraction.
func recordWatchResult(db *gorm.DB, r watcher.Result) {
	rec := models.Extraction{
		ID:         uuid.NewString(),
		Source:     "watch",
		FileName:   filepath.Base(r.Path),
		DurationMS: r.Duration.Milliseconds(),
		Status:     models.StatusDone,
	}
	if r.Err != nil {
		rec.Status = models.StatusFailed
		rec.FailedReason = truncate(r.Err.Error(), 255)
	} else if r.Table != nil {
		rec.RowCount = r.Table.RowCount()
		rec.CellCount = r.Table.CellCount()
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, r.Table.Strings()); err == nil {
			rec.CSV = buf.String()
		}
	}
	if err := db.Create(&rec).Error; err != nil {
		log.Warnf("record extraction for %s: %v", rec.FileName, err)
	}
}
