package config

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"alfredoptarigan/underwriting-intake/internal/repositories"
)

func InitDatabase(cfg *Config, log *zap.Logger) (*gorm.DB, error) {
	dsn := cfg.GetDatabaseDSN()

	logLevel := logger.Silent
	if cfg.Server.Env == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("database connected", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	if err := db.AutoMigrate(&repositories.KVRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("database migration completed")

	return db, nil
}

// InitRepositories picks the store backend named by STORE_DRIVER.
func InitRepositories(cfg *Config, log *zap.Logger) (*repositories.Registry, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		log.Info("using in-memory store", zap.Duration("ttl", cfg.Store.TTL))
		return repositories.NewMemoryRegistry(cfg.Store.TTL), nil
	case "postgres":
		db, err := InitDatabase(cfg, log)
		if err != nil {
			return nil, err
		}
		return repositories.NewGormRegistry(db, cfg.Store.TTL), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
