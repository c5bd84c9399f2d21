package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/codes"
	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/models"
)

type UserService struct {
	DB *gorm.DB
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"max=200"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Register creates the account and its check-in profile in one transaction.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if username == "" || !strings.Contains(email, "@") || in.Password == "" {
		return models.User{}, fmt.Errorf("%w: username, email and password are required", errs.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		Username:     username,
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: string(hash),
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.User{}).Where("username = ? OR email = ?", username, email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return fmt.Errorf("%w: username or email already registered, log in instead", errs.ErrAlreadyExists)
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		profile := models.UserProfile{UserID: user.ID, QRCode: codes.UserQR(user.ID)}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		user.Profile = &profile
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.User{}, fmt.Errorf("%w: username or email already registered, log in instead", errs.ErrAlreadyExists)
	}
	return user, err
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Preload("Profile").First(&u, "id = ?", id).Error
	return u, notFound(err, "user", id)
}

// Profile returns the user's check-in profile, creating it for accounts that predate profiles.
func (s *UserService) Profile(ctx context.Context, userID uuid.UUID) (models.UserProfile, error) {
	var p models.UserProfile
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&p, "user_id = ?", userID).Error
		if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if _, err := s.getTx(tx, userID); err != nil {
			return err
		}
		p = models.UserProfile{UserID: userID, QRCode: codes.UserQR(userID)}
		return tx.Create(&p).Error
	})
	return p, err
}

func (s *UserService) getTx(tx *gorm.DB, id uuid.UUID) (models.User, error) {
	var u models.User
	err := tx.First(&u, "id = ?", id).Error
	return u, notFound(err, "user", id)
}
