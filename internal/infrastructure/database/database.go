package database

import (
	"strings"

	"usedplus-economy/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a GORM DB. postgres:// and postgresql:// URLs go to Postgres;
// anything else is a sqlite file path (":memory:" included).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind connection poolers such as PgBouncer.
func Open(url string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if IsPostgres(url) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  url,
			PreferSimpleProtocol: true,
		}), cfg)
	}
	db, err := gorm.Open(sqlite.Open(url), cfg)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; the session loop is the only one anyway.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func IsPostgres(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// AutoMigrate creates the ledger, search audit and save slot tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.FinanceDeal{},
		&domain.DealEvent{},
		&domain.SearchEvent{},
		&domain.SaveEntry{},
	)
}
