package services

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/importer"
	"github.com/sirdesai22/certify-service/internal/models"
)

var rosterEmail = validator.New()

// validEmail rejects addresses with whitespace or control characters, which would
// otherwise reach mail headers.
func validEmail(email string) bool {
	return rosterEmail.Var(email, "required,email") == nil
}

type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// ImportParticipants registers roster rows for an event. Rows without a usable email and
// emails already present in the event are skipped.
func (s *ParticipantService) ImportParticipants(ctx context.Context, eventID uuid.UUID, rows []importer.Row) (ImportResult, error) {
	var res ImportResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findEvent(tx, eventID); err != nil {
			return err
		}

		var existing []string
		if err := tx.Model(&models.Participant{}).Where("event_id = ?", eventID).
			Pluck("LOWER(email)", &existing).Error; err != nil {
			return err
		}
		seen := make(map[string]bool, len(existing)+len(rows))
		for _, e := range existing {
			seen[e] = true
		}

		var fresh []models.Participant
		for _, row := range rows {
			email := normalizeEmail(row.Email)
			if !validEmail(email) || seen[email] {
				res.Skipped++
				continue
			}
			seen[email] = true
			name := strings.TrimSpace(row.Name)
			if name == "" {
				name = anonymousName
			}
			fresh = append(fresh, models.Participant{
				EventID:        eventID,
				Name:           name,
				Email:          strings.TrimSpace(row.Email),
				Status:         models.StatusRegistered,
				AttendanceLogs: datatypes.JSONSlice[models.AttendanceEntry]{},
			})
		}
		if len(fresh) == 0 {
			return nil
		}

		if err := tx.CreateInBatches(&fresh, 100).Error; err != nil {
			return err
		}
		res.Created = len(fresh)

		ids := make([]uuid.UUID, 0, len(fresh))
		for _, p := range fresh {
			ids = append(ids, p.ID)
		}
		if err := RefreshParticipantCount(tx, eventID); err != nil {
			return err
		}
		if err := AddBatchOutboxEvents(tx, models.EntityParticipant, models.OpUpsert, ids); err != nil {
			return err
		}
		return AddOutboxEvent(tx, models.EntityEvent, eventID, models.OpUpsert, nil)
	})
	if err != nil {
		return ImportResult{}, err
	}
	if s.Log != nil {
		s.Log.WithFields(logrus.Fields{"event_id": eventID, "created": res.Created, "skipped": res.Skipped}).Info("participants imported")
	}
	return res, nil
}
