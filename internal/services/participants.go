package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sirdesai22/certify-service/internal/codes"
	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/metrics"
	"github.com/sirdesai22/certify-service/internal/models"
)

const anonymousName = "Anonymous"

// Identity is what a join or scan request knows about the person.
type Identity struct {
	UserID *uuid.UUID
	Email  string
	Name   string
}

type ParticipantService struct {
	DB  *gorm.DB
	Log logrus.FieldLogger
	Now func() time.Time
}

func (s *ParticipantService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ResolveParticipant finds the participant for id in the event, by user and then by email,
// creating one when neither matches.
func (s *ParticipantService) ResolveParticipant(ctx context.Context, eventID uuid.UUID, id Identity) (models.Participant, bool, error) {
	var (
		p       models.Participant
		created bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findEvent(tx, eventID); err != nil {
			return err
		}
		var err error
		p, created, err = resolveParticipant(tx, eventID, id)
		return err
	})
	return p, created, err
}

func resolveParticipant(tx *gorm.DB, eventID uuid.UUID, id Identity) (models.Participant, bool, error) {
	if id.UserID != nil {
		var p models.Participant
		err := tx.Where("event_id = ? AND user_id = ?", eventID, *id.UserID).First(&p).Error
		if err == nil {
			return p, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return p, false, err
		}
	}

	if email := strings.TrimSpace(id.Email); email != "" {
		p, err := findParticipantByEmail(tx, eventID, email)
		switch {
		case err == nil:
			if p.UserID == nil && id.UserID != nil {
				if err := tx.Model(&p).Update("user_id", *id.UserID).Error; err != nil {
					return p, false, err
				}
				p.UserID = id.UserID
				if err := AddOutboxEvent(tx, models.EntityParticipant, p.ID, models.OpUpsert, nil); err != nil {
					return p, false, err
				}
			}
			return p, false, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return p, false, err
		}
	}

	p := models.Participant{
		EventID:        eventID,
		UserID:         id.UserID,
		Name:           strings.TrimSpace(id.Name),
		Email:          strings.TrimSpace(id.Email),
		Status:         models.StatusRegistered,
		AttendanceLogs: datatypes.JSONSlice[models.AttendanceEntry]{},
	}
	if p.Name == "" {
		p.Name = anonymousName
	}

	// the (event_id, user_id) unique index decides concurrent creators
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&p)
	if res.Error != nil {
		return p, false, res.Error
	}
	if res.RowsAffected == 0 {
		var winner models.Participant
		if err := tx.Where("event_id = ? AND user_id = ?", eventID, id.UserID).First(&winner).Error; err != nil {
			return winner, false, err
		}
		return winner, false, nil
	}

	if err := RefreshParticipantCount(tx, eventID); err != nil {
		return p, false, err
	}
	if err := AddOutboxEvent(tx, models.EntityParticipant, p.ID, models.OpUpsert, nil); err != nil {
		return p, false, err
	}
	if err := AddOutboxEvent(tx, models.EntityEvent, eventID, models.OpUpsert, nil); err != nil {
		return p, false, err
	}
	return p, true, nil
}

type JoinInput struct {
	Name  string `json:"name" validate:"omitempty,max=200"`
	Email string `json:"email" validate:"omitempty,email"`
}

// Join registers the caller for an event. user may be nil for anonymous self-registration.
func (s *ParticipantService) Join(ctx context.Context, eventID uuid.UUID, user *models.User, in JoinInput) (models.Participant, bool, error) {
	id := Identity{Email: in.Email, Name: in.Name}
	if user != nil {
		uid := user.ID
		id.UserID = &uid
		if id.Email == "" {
			id.Email = user.Email
		}
		if id.Name == "" {
			id.Name = displayName(user)
		}
	}
	p, created, err := s.ResolveParticipant(ctx, eventID, id)
	if err == nil && created && s.Log != nil {
		s.Log.WithFields(logrus.Fields{"event_id": eventID, "participant_id": p.ID}).Info("participant joined")
	}
	return p, created, err
}

type ScanInput struct {
	QRData    string    `json:"qr_data" validate:"required"`
	EventID   uuid.UUID `json:"event_id" validate:"required"`
	Email     string    `json:"email" validate:"omitempty,email"`
	Session   string    `json:"session" validate:"omitempty,max=100"`
	ScannedBy string    `json:"-"`
}

type ScanResult struct {
	Participant models.Participant `json:"participant"`
	Created     bool               `json:"created"`
	Kind        string             `json:"kind"`
}

// ScanQR checks a participant in from a scanned USER- or legacy EVENT- code.
func (s *ParticipantService) ScanQR(ctx context.Context, in ScanInput) (ScanResult, error) {
	payload, err := codes.Parse(strings.TrimSpace(in.QRData))
	if err != nil {
		metrics.Scans.WithLabelValues(codes.KindUnknown.String(), "invalid").Inc()
		return ScanResult{}, fmt.Errorf("%w: %v", errs.ErrInvalidQR, err)
	}
	res := ScanResult{Kind: payload.Kind.String()}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findEvent(tx, in.EventID); err != nil {
			return err
		}

		var (
			p   models.Participant
			err error
		)
		switch payload.Kind {
		case codes.KindUser:
			var profile models.UserProfile
			if err := tx.Preload("User").First(&profile, "qr_code = ?", payload.Raw).Error; err != nil {
				return notFound(err, "user qr code", payload.Raw)
			}
			user := profile.User
			if user == nil {
				return fmt.Errorf("%w: user %s", errs.ErrNotFound, profile.UserID)
			}
			uid := user.ID
			p, res.Created, err = resolveParticipant(tx, in.EventID, Identity{
				UserID: &uid, Email: user.Email, Name: displayName(user),
			})
			if err != nil {
				return err
			}
			if p, err = lockParticipant(tx, p.ID); err != nil {
				return err
			}
			if err := fillFromUser(tx, &p, user); err != nil {
				return err
			}

		case codes.KindEvent:
			if payload.ID != in.EventID.String() {
				return fmt.Errorf("%w: code belongs to another event", errs.ErrInvalidQR)
			}
			if strings.TrimSpace(in.Email) == "" {
				return fmt.Errorf("%w: email is required for event codes", errs.ErrInvalidInput)
			}
			found, ferr := findParticipantByEmail(tx, in.EventID, in.Email)
			if ferr != nil {
				return notFound(ferr, "participant with email", in.Email)
			}
			if p, err = lockParticipant(tx, found.ID); err != nil {
				return err
			}
		}

		if err := appendAttendance(tx, &p, models.LogCheckIn, in.Session, in.ScannedBy, s.now()); err != nil {
			return err
		}
		res.Participant = p
		return nil
	})
	if err != nil {
		metrics.Scans.WithLabelValues(res.Kind, scanResultLabel(err)).Inc()
		return ScanResult{}, err
	}
	metrics.Scans.WithLabelValues(res.Kind, "checked_in").Inc()
	return res, nil
}

func scanResultLabel(err error) string {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrInvalidQR), errors.Is(err, errs.ErrInvalidInput):
		return "invalid"
	}
	return "error"
}

// fillFromUser copies name and email from the user when the participant has none.
func fillFromUser(tx *gorm.DB, p *models.Participant, u *models.User) error {
	updates := map[string]any{}
	if (p.Name == "" || p.Name == anonymousName) && displayName(u) != "" {
		p.Name = displayName(u)
		updates["name"] = p.Name
	}
	if p.Email == "" && u.Email != "" {
		p.Email = u.Email
		updates["email"] = p.Email
	}
	if len(updates) == 0 {
		return nil
	}
	return tx.Model(p).Updates(updates).Error
}

func displayName(u *models.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

func (s *ParticipantService) Get(ctx context.Context, id uuid.UUID) (models.Participant, error) {
	var p models.Participant
	err := s.DB.WithContext(ctx).Preload("Event").First(&p, "id = ?", id).Error
	return p, notFound(err, "participant", id)
}

// List returns participants, optionally filtered by event, oldest first.
func (s *ParticipantService) List(ctx context.Context, eventID *uuid.UUID) ([]models.Participant, error) {
	q := s.DB.WithContext(ctx).Order("created_at")
	if eventID != nil {
		q = q.Where("event_id = ?", *eventID)
	}
	var out []models.Participant
	return out, q.Find(&out).Error
}

// Delete removes a participant and its certificate.
func (s *ParticipantService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockParticipant(tx, id)
		if err != nil {
			return err
		}
		var certIDs []uuid.UUID
		if err := tx.Model(&models.Certificate{}).Where("participant_id = ?", id).Pluck("id", &certIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("participant_id = ?", id).Delete(&models.Certificate{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&p).Error; err != nil {
			return err
		}
		if err := RefreshParticipantCount(tx, p.EventID); err != nil {
			return err
		}
		if err := AddBatchOutboxEvents(tx, models.EntityCertificate, models.OpDelete, certIDs); err != nil {
			return err
		}
		if err := AddOutboxEvent(tx, models.EntityParticipant, id, models.OpDelete, nil); err != nil {
			return err
		}
		return AddOutboxEvent(tx, models.EntityEvent, p.EventID, models.OpUpsert, nil)
	})
}
