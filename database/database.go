package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lshigami/examflow/config"
)

// NewDatabase opens Postgres when it is configured and returns nil otherwise; callers fall
// back to in-memory repositories.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	if !cfg.Database.Enabled() {
		log.Warn().Msg("DATABASE_HOST is not set. Using in-memory repositories.")
		return nil, nil
	}

	dbConf := cfg.Database
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		dbConf.Host, dbConf.User, dbConf.Password, dbConf.Name, dbConf.Port)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info().Str("host", dbConf.Host).Str("db", dbConf.Name).Msg("Database connection established")
	return db, nil
}
