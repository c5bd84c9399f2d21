package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/codes"
	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/models"
)

type EventService struct {
	DB *gorm.DB
}

type EventInput struct {
	Title        string         `json:"title" validate:"required,max=255"`
	Description  string         `json:"description"`
	Date         time.Time      `json:"date" validate:"required"`
	TimeStart    string         `json:"time_start" validate:"omitempty,max=16"`
	TimeEnd      string         `json:"time_end" validate:"omitempty,max=16"`
	Location     string         `json:"location" validate:"max=255"`
	Status       string         `json:"status" validate:"omitempty,oneof=upcoming completed"`
	Requirements map[string]any `json:"requirements"`
}

// EventPatch carries only the fields to change.
type EventPatch struct {
	Title        *string        `json:"title" validate:"omitempty,min=1,max=255"`
	Description  *string        `json:"description"`
	Date         *time.Time     `json:"date"`
	TimeStart    *string        `json:"time_start" validate:"omitempty,max=16"`
	TimeEnd      *string        `json:"time_end" validate:"omitempty,max=16"`
	Location     *string        `json:"location" validate:"omitempty,max=255"`
	Status       *string        `json:"status" validate:"omitempty,oneof=upcoming completed"`
	Requirements map[string]any `json:"requirements"`
}

func (s *EventService) Create(ctx context.Context, in EventInput) (models.Event, error) {
	if strings.TrimSpace(in.Title) == "" {
		return models.Event{}, fmt.Errorf("%w: title is required", errs.ErrInvalidInput)
	}
	e := models.Event{
		Title:        in.Title,
		Description:  in.Description,
		Date:         in.Date,
		TimeStart:    in.TimeStart,
		TimeEnd:      in.TimeEnd,
		Location:     in.Location,
		Status:       in.Status,
		Requirements: datatypes.JSONMap(in.Requirements),
	}
	if e.Status == "" {
		e.Status = models.EventUpcoming
	}
	if e.Requirements == nil {
		e.Requirements = datatypes.JSONMap{}
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&e).Error; err != nil {
			return err
		}
		return AddOutboxEvent(tx, models.EntityEvent, e.ID, models.OpUpsert, nil)
	})
	return e, err
}

func (s *EventService) Update(ctx context.Context, id uuid.UUID, in EventPatch) (models.Event, error) {
	updates := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			updates[col] = *v
		}
	}
	set("title", in.Title)
	set("description", in.Description)
	set("time_start", in.TimeStart)
	set("time_end", in.TimeEnd)
	set("location", in.Location)
	set("status", in.Status)
	if in.Date != nil {
		updates["date"] = *in.Date
	}
	if in.Requirements != nil {
		updates["requirements"] = datatypes.JSONMap(in.Requirements)
	}

	var e models.Event
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if e, err = findEvent(tx, id); err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Event{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if e, err = findEvent(tx, id); err != nil {
			return err
		}
		return AddOutboxEvent(tx, models.EntityEvent, id, models.OpUpsert, nil)
	})
	return e, err
}

// Delete removes the event with its quizzes, participants and certificates.
func (s *EventService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findEvent(tx, id); err != nil {
			return err
		}
		var participantIDs, certIDs []uuid.UUID
		if err := tx.Model(&models.Participant{}).Where("event_id = ?", id).Pluck("id", &participantIDs).Error; err != nil {
			return err
		}
		if len(participantIDs) > 0 {
			if err := tx.Model(&models.Certificate{}).Where("participant_id IN ?", participantIDs).Pluck("id", &certIDs).Error; err != nil {
				return err
			}
			if err := tx.Where("participant_id IN ?", participantIDs).Delete(&models.Certificate{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("event_id = ?", id).Delete(&models.Participant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", id).Delete(&models.Quiz{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Event{}, "id = ?", id).Error; err != nil {
			return err
		}
		if err := AddBatchOutboxEvents(tx, models.EntityCertificate, models.OpDelete, certIDs); err != nil {
			return err
		}
		if err := AddBatchOutboxEvents(tx, models.EntityParticipant, models.OpDelete, participantIDs); err != nil {
			return err
		}
		return AddOutboxEvent(tx, models.EntityEvent, id, models.OpDelete, nil)
	})
}

// Get loads an event with its quizzes, and its participants when asked.
func (s *EventService) Get(ctx context.Context, id uuid.UUID, withParticipants bool) (models.Event, error) {
	q := s.DB.WithContext(ctx).Preload("Quizzes", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order, id") })
	if withParticipants {
		q = q.Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") })
	}
	var e models.Event
	err := q.First(&e, "id = ?", id).Error
	return e, notFound(err, "event", id)
}

func (s *EventService) List(ctx context.Context, status string) ([]models.Event, error) {
	q := s.DB.WithContext(ctx).Order("date DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Event
	return out, q.Find(&out).Error
}

// KioskCode issues a legacy EVENT- check-in code for printing at the door.
func (s *EventService) KioskCode(ctx context.Context, id uuid.UUID) (string, error) {
	if _, err := findEvent(s.DB.WithContext(ctx), id); err != nil {
		return "", err
	}
	return codes.EventQR(id), nil
}
