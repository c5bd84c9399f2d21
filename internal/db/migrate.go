package db

import (
	"github.com/sirdesai22/certify-service/internal/models"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.Event{},
		&models.Quiz{},
		&models.Participant{},
		&models.Certificate{},
		&models.Outbox{},
		&models.DLQ{},
	)
}
