package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/models"
)

func notFound(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %v", errs.ErrNotFound, what, id)
	}
	return err
}

func findEvent(tx *gorm.DB, id uuid.UUID) (models.Event, error) {
	var e models.Event
	err := tx.First(&e, "id = ?", id).Error
	return e, notFound(err, "event", id)
}

// lockParticipant reads the participant row FOR UPDATE.
func lockParticipant(tx *gorm.DB, id uuid.UUID) (models.Participant, error) {
	var p models.Participant
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error
	return p, notFound(err, "participant", id)
}

func findParticipantByEmail(tx *gorm.DB, eventID uuid.UUID, email string) (models.Participant, error) {
	var p models.Participant
	err := tx.Where("event_id = ? AND LOWER(email) = ?", eventID, normalizeEmail(email)).
		Order("created_at").First(&p).Error
	return p, err
}

// RefreshParticipantCount stores the live participant count on the event.
func RefreshParticipantCount(tx *gorm.DB, eventID uuid.UUID) error {
	var n int64
	if err := tx.Model(&models.Participant{}).Where("event_id = ?", eventID).Count(&n).Error; err != nil {
		return err
	}
	return tx.Model(&models.Event{}).Where("id = ?", eventID).Update("participants_count", n).Error
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
