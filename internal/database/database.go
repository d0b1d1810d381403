package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hugh/gymhub/internal/database/models"
	"github.com/hugh/gymhub/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens dialector with gorm's logger at level. Connect and the test
// helpers share it so both run with the same gorm settings.
func Open(dialector gorm.Dialector, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// Connect opens the Postgres store. SQL statements are logged only when the
// application logger runs at debug level.
func Connect(cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	level := logger.Warn
	if log.Enabled(context.Background(), slog.LevelDebug) {
		level = logger.Info
	}

	db, err := Open(postgres.Open(cfg.DSN()), level)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying db: %w", err)
	}

	// Lookups are single-row reads; a modest pool is plenty.
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("connected to database", "host", cfg.Host, "database", cfg.Name)

	return db, nil
}

// Models lists every table the application owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Tenant{},
		&models.Client{},
		&models.Attendance{},
		&models.SecurityEvent{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	return nil
}
