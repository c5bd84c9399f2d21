package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/models"
)

type AttendanceInput struct {
	Session   string `json:"session" validate:"omitempty,max=100"`
	ScannedBy string `json:"-"`
}

func (s *ParticipantService) CheckIn(ctx context.Context, participantID uuid.UUID, in AttendanceInput) (models.Participant, error) {
	return s.mark(ctx, participantID, models.LogCheckIn, in)
}

func (s *ParticipantService) CheckOut(ctx context.Context, participantID uuid.UUID, in AttendanceInput) (models.Participant, error) {
	return s.mark(ctx, participantID, models.LogCheckOut, in)
}

func (s *ParticipantService) mark(ctx context.Context, participantID uuid.UUID, kind string, in AttendanceInput) (models.Participant, error) {
	var p models.Participant
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if p, err = lockParticipant(tx, participantID); err != nil {
			return err
		}
		return appendAttendance(tx, &p, kind, in.Session, in.ScannedBy, s.now())
	})
	return p, err
}

// appendAttendance adds one log entry to a locked participant and keeps the
// check_in_time/check_out_time columns equal to the newest entry of their type.
func appendAttendance(tx *gorm.DB, p *models.Participant, kind, session, scannedBy string, now time.Time) error {
	now = now.UTC()
	logs := make([]models.AttendanceEntry, 0, len(p.AttendanceLogs)+1)
	logs = append(logs, p.AttendanceLogs...)
	logs = append(logs, models.AttendanceEntry{Type: kind, Time: now, Session: session, ScannedBy: scannedBy})
	p.AttendanceLogs = logs

	updates := map[string]any{"attendance_logs": p.AttendanceLogs}
	switch kind {
	case models.LogCheckIn:
		p.CheckInTime = &now
		updates["check_in_time"] = p.CheckInTime
		if p.Status != models.StatusCompleted {
			p.Status = models.StatusAttended
			updates["status"] = p.Status
		}
	case models.LogCheckOut:
		p.CheckOutTime = &now
		updates["check_out_time"] = p.CheckOutTime
	}

	if err := tx.Model(&models.Participant{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
		return err
	}
	return AddOutboxEvent(tx, models.EntityParticipant, p.ID, models.OpUpsert, nil)
}
