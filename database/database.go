// Package database manages the optional Postgres connection backing the AI
// generation ledger. All business data lives in the external backend; losing
// this database only degrades quota accounting, so connection failures are
// not fatal.
package database

import (
	"fmt"
	"log"

	"anoo/config"
	"anoo/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the ledger database and runs migrations. Returns nil when
// the ledger is disabled or unreachable.
func Connect(cfg *config.Config) *gorm.DB {
	if !cfg.DBEnabled {
		log.Println("Generation ledger disabled (DB_ENABLED=false)")
		return nil
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Printf("Ledger database warning: %v (continuing without ledger)", err)
		return nil
	}

	if err := db.AutoMigrate(&models.Generation{}); err != nil {
		log.Printf("Ledger migration warning: %v (continuing without ledger)", err)
		return nil
	}

	log.Println("Ledger database connected")
	DB = db
	return db
}
