package database

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/config"
	logging "github.com/TraderInsightsLab/Sistem/internal/logging"
	"github.com/TraderInsightsLab/Sistem/internal/models"
)

// Open connects to PostgreSQL and brings the schema up to date.
func Open(dbConf config.DatabaseConfig, slowQuery time.Duration, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dbConf.DSN()), &gorm.Config{
		Logger:         logging.NewGormZapLogger(log, slowQuery),
		TranslateError: true,
	})
	if err != nil {
		return nil, apperr.Persistence("connect to database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperr.Persistence("connection pool", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("Database connection established successfully.", zap.String("host", dbConf.Host), zap.String("dbname", dbConf.DBName))
	if err := runMigrations(db, log); err != nil {
		return nil, err
	}
	return db, nil
}

func runMigrations(db *gorm.DB, log *zap.Logger) error {
	// GORM's AutoMigrate will create tables, columns, and foreign keys.
	// It will NOT create partial indexes, so we handle that separately.
	err := db.AutoMigrate(
		&models.Session{},
		&models.AnalyticsEvent{},
		&models.WebhookEvent{},
	)
	if err != nil {
		return apperr.Persistence("run migrations", err)
	}
	log.Info("Database migrations completed successfully.")

	indexes := []string{
		// the report retry sweep only ever looks at paid sessions still waiting for delivery
		`CREATE INDEX IF NOT EXISTS idx_sessions_report_pending ON sessions (started_at) WHERE state = 'paid' AND report_status = 'pending';`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_session_time ON analytics_events (session_id, created_at);`,
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return apperr.Persistence("create index", err)
		}
	}
	log.Info("Custom indexes ensured successfully.")
	return nil
}
