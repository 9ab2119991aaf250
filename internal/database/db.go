package database

import (
	"fmt"

	"billing/internal/config"
	"billing/internal/logger"
	"billing/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection opens the postgres pool and migrates the billing schema
func NewConnection(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.NewGormLogger(log, logger.GormLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every billing table
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Customer{},
		&model.CustomerAddress{},
		&model.TaxRule{},
		&model.Quote{},
		&model.QuoteItem{},
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.Payment{},
		&model.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	return nil
}
