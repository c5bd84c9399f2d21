package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/models"
)

// Verification is the public answer for a verification code. It carries no contact,
// grading or attendance data.
type Verification struct {
	Valid       bool                 `json:"valid"`
	Certificate *VerifiedCertificate `json:"certificate,omitempty"`
	Participant *VerifiedParticipant `json:"participant,omitempty"`
	Event       *VerifiedEvent       `json:"event,omitempty"`
}

type VerifiedCertificate struct {
	CertificateNumber string     `json:"certificate_number"`
	VerificationCode  string     `json:"verification_code"`
	IssuedAt          *time.Time `json:"issued_at"`
}

type VerifiedParticipant struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type VerifiedEvent struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Location string    `json:"location"`
}

// Verify looks a certificate up by its public code. An unknown code is a valid answer,
// not an error.
func (s *CertificateService) Verify(ctx context.Context, code string) (Verification, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Verification{}, nil
	}

	var c models.Certificate
	found := false
	if s.Cache != nil {
		if id, ok, err := s.Cache.Lookup(ctx, code); err != nil {
			s.log(ctx).WithError(err).Warn("verification cache read failed")
		} else if ok {
			err := s.DB.WithContext(ctx).Preload("Participant.Event").First(&c, "id = ?", id).Error
			found = err == nil && c.VerificationCode == code
		}
	}
	if !found {
		c = models.Certificate{}
		err := s.DB.WithContext(ctx).Preload("Participant.Event").First(&c, "verification_code = ?", code).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Verification{}, nil
		}
		if err != nil {
			return Verification{}, err
		}
		s.remember(ctx, c)
	}

	v := Verification{
		Valid: true,
		Certificate: &VerifiedCertificate{
			CertificateNumber: c.CertificateNumber,
			VerificationCode:  c.VerificationCode,
			IssuedAt:          c.IssuedAt,
		},
	}
	if p := c.Participant; p != nil {
		v.Participant = &VerifiedParticipant{Name: p.Name, Status: p.Status}
		if e := p.Event; e != nil {
			v.Event = &VerifiedEvent{ID: e.ID, Title: e.Title, Date: e.Date, Location: e.Location}
		}
	}
	return v, nil
}
