package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/timmy/recipeclip/internal/config"
	"github.com/timmy/recipeclip/internal/domain"
	"github.com/timmy/recipeclip/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDB opens the configured database, applies pool settings and, when
// enabled, migrates the schema.
// Parameters:
//   - cfg: database configuration including driver and connection settings.
// Returns:
//   - *gorm.DB: initialized database handle.
//   - error: non-nil if connection or migration fails.
func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	}

	var db *gorm.DB
	var err error

	switch cfg.Driver {
	case "postgres":
		db, err = openPostgres(cfg, gormConfig)
	default:
		db, err = openSQLite(cfg, gormConfig)
	}
	if err != nil {
		return nil, err
	}
	logger.GetDefault().WithField("driver", cfg.Driver).Info("Database connected")

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Recipe{},
		&domain.RecipeLike{},
		&domain.Comment{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := backfillSearchColumns(db); err != nil {
		return fmt.Errorf("failed to backfill search columns: %w", err)
	}
	return nil
}

// backfillSearchColumns fills the folded search columns of rows written
// before those columns existed.
func backfillSearchColumns(db *gorm.DB) error {
	var rows []domain.Recipe
	return db.Model(&domain.Recipe{}).
		Select("id", "title", "description").
		Where("(search_title IS NULL OR search_title = '') AND title <> ''").
		FindInBatches(&rows, 200, func(tx *gorm.DB, _ int) error {
			for _, row := range rows {
				err := db.Model(&domain.Recipe{}).Where("id = ?", row.ID).UpdateColumns(map[string]any{
					"search_title":       domain.FoldForSearch(row.Title),
					"search_description": domain.FoldForSearch(row.Description),
				}).Error
				if err != nil {
					return err
				}
			}
			return nil
		}).Error
}

// openPostgres connects with PreferSimpleProtocol so transaction poolers work.
func openPostgres(cfg *config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return db, nil
}

func openSQLite(cfg *config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	if cfg.Path != "" && !strings.HasPrefix(cfg.Path, "file:") && cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA foreign_keys=ON")

	return db, nil
}

func gormLogLevel(name string) gormlogger.LogLevel {
	switch strings.ToLower(name) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
