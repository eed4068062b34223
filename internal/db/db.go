package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"parking-billing-backend/config"
	"parking-billing-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	logLevel := logger.Info
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
		logLevel = logger.Warn
	default:
		dialector = postgres.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.EnablePostgresDDL && cfg.Driver == "postgres" {
		log.Println("Applying PostgreSQL-specific DDL...")
		if err := applyPostgresDDL(db); err != nil {
			log.Printf("Warning: failed to apply some PostgreSQL DDL: %v. Continuing without them.", err)
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	log.Println("Running database migrations...")
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

func applyPostgresDDL(db *gorm.DB) error {
	ddls := []string{
		// Ledger rows are immutable facts; reject nonsense at the storage level too.
		"ALTER TABLE session_histories " +
			"ADD CONSTRAINT session_histories_amount_paid_non_negative CHECK (amount_paid >= 0);",
		"ALTER TABLE session_histories " +
			"ADD CONSTRAINT session_histories_period_valid CHECK (entry_time <= exit_time);",
		"ALTER TABLE session_opens " +
			"ADD CONSTRAINT session_opens_spot_positive CHECK (spot >= 1);",

		// History views read newest exits first per facility.
		"CREATE INDEX IF NOT EXISTS idx_session_history_facility_exit ON session_histories (facility_id, exit_time DESC);",
		"CREATE INDEX IF NOT EXISTS idx_session_history_plate_exit ON session_histories (plate, exit_time DESC);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
