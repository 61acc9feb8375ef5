package main

import (
	"errors"

	"gorm.io/gorm"

	"broadcastmotion_payments/internal/config"
	"broadcastmotion_payments/internal/logging"
	"broadcastmotion_payments/internal/services"
)

var getLogger = logging.GetLogger

// openDB connects to the configured database. Callers must run the returned
// close func so buffered log entries are shipped before the process exits.
func openDB() (*gorm.DB, func(), error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL is not set")
	}

	logger, flush := getLogger(cfg.Logs)
	db, err := services.InitDB(cfg.Database.URL, logger)
	if err != nil {
		flush()
		return nil, nil, err
	}
	return db, flush, nil
}
