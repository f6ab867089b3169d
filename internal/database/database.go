package database

import (
	"log"

	"github.com/temple-caravans/caravan-api/internal/config"
	"github.com/temple-caravans/caravan-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto Migrate
	err = db.AutoMigrate(
		&models.User{},
		&models.APIKey{},
		&models.Caravan{},
		&models.Bus{},
		&models.Chapel{},
		&models.Ordinance{},
		&models.Registration{},
		&models.RegistrationHistory{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate: %v", err)
	}

	return db
}
