package db

import (
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/codes"
	"github.com/sirdesai22/certify-service/internal/models"
)

// SeedAdmin makes sure the configured administrator exists and carries the admin role.
func SeedAdmin(db *gorm.DB, email, password string, log logrus.FieldLogger) error {
	if email == "" || password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("email = ?", email).First(&user).Error
		switch {
		case err == nil:
			log.Infof("🌱 Admin %s already exists, refreshing role", user.Username)
			return tx.Model(&user).Updates(map[string]any{"is_admin": true, "password_hash": string(hash)}).Error
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		user = models.User{
			Username:     strings.Split(email, "@")[0],
			Email:        email,
			Name:         "Administrator",
			PasswordHash: string(hash),
			IsAdmin:      true,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		profile := models.UserProfile{UserID: user.ID, QRCode: codes.UserQR(user.ID)}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		log.Infof("🌱 Admin %s created", user.Username)
		return nil
	})
}

// Seed inserts a sample event when the database has none.
func Seed(db *gorm.DB, log logrus.FieldLogger) {
	var count int64
	db.Model(&models.Event{}).Count(&count)
	if count > 0 {
		log.Info("🌱 Data already exists, skipping seed.")
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		event := models.Event{
			Title:       "Faculty Orientation",
			Description: "Orientation session for incoming faculty",
			Date:        time.Now().AddDate(0, 0, 7),
			Location:    "Main Hall",
			Status:      models.EventUpcoming,
			Requirements: datatypes.JSONMap{
				"attendance": true,
				"evaluation": true,
				"quiz":       true,
			},
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		quizzes := []models.Quiz{
			{EventID: event.ID, Question: "Which office coordinates academic events?", CorrectAnswer: "VPAA", Points: 1, Order: 1},
			{EventID: event.ID, Question: "What is scanned at the entrance?", Options: datatypes.JSONSlice[string]{"Badge QR code", "Ticket stub", "ID card"}, CorrectAnswer: "Badge QR code", Points: 1, Order: 2},
		}
		return tx.Create(&quizzes).Error
	})
	if err != nil {
		log.Errorf("❌ seed failed: %v", err)
		return
	}
	log.Info("🌱 Sample data inserted successfully.")
}
