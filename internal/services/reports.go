package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/models"
)

type ReportService struct {
	DB *gorm.DB
}

type AttendanceRow struct {
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Status       string     `json:"status"`
	CheckInTime  *time.Time `json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time"`
	CheckIns     int        `json:"check_ins"`
	Certificate  string     `json:"certificate_number"`
}

type EvaluationRow struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	HasEvaluated bool     `json:"has_evaluated"`
	Evaluation   string   `json:"evaluation_data"`
	QuizScore    *float64 `json:"quiz_score"`
	QuizPassed   bool     `json:"quiz_passed"`
}

func (s *ReportService) participants(ctx context.Context, eventID uuid.UUID) (models.Event, []models.Participant, error) {
	db := s.DB.WithContext(ctx)
	ev, err := findEvent(db, eventID)
	if err != nil {
		return ev, nil, err
	}
	var ps []models.Participant
	err = db.Where("event_id = ?", eventID).Order("name, created_at").Find(&ps).Error
	return ev, ps, err
}

func (s *ReportService) Attendance(ctx context.Context, eventID uuid.UUID) (models.Event, []AttendanceRow, error) {
	ev, ps, err := s.participants(ctx, eventID)
	if err != nil {
		return ev, nil, err
	}

	ids := make([]uuid.UUID, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	numbers := map[uuid.UUID]string{}
	if len(ids) > 0 {
		var certs []models.Certificate
		if err := s.DB.WithContext(ctx).Where("participant_id IN ?", ids).Find(&certs).Error; err != nil {
			return ev, nil, err
		}
		for _, c := range certs {
			numbers[c.ParticipantID] = c.CertificateNumber
		}
	}

	rows := make([]AttendanceRow, 0, len(ps))
	for _, p := range ps {
		checkIns := 0
		for _, l := range p.AttendanceLogs {
			if l.Type == models.LogCheckIn {
				checkIns++
			}
		}
		rows = append(rows, AttendanceRow{
			Name: p.Name, Email: p.Email, Status: p.Status,
			CheckInTime: p.CheckInTime, CheckOutTime: p.CheckOutTime,
			CheckIns: checkIns, Certificate: numbers[p.ID],
		})
	}
	return ev, rows, nil
}

func (s *ReportService) Evaluation(ctx context.Context, eventID uuid.UUID) (models.Event, []EvaluationRow, error) {
	ev, ps, err := s.participants(ctx, eventID)
	if err != nil {
		return ev, nil, err
	}
	rows := make([]EvaluationRow, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, EvaluationRow{
			Name: p.Name, Email: p.Email, HasEvaluated: p.HasEvaluated,
			Evaluation: string(p.EvaluationData), QuizScore: p.QuizScore, QuizPassed: p.QuizPassed,
		})
	}
	return ev, rows, nil
}

func WriteAttendanceCSV(w io.Writer, rows []AttendanceRow) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Name", "Email", "Status", "Check-in Time", "Check-out Time", "Check-ins", "Certificate Number"})
	for _, r := range rows {
		_ = cw.Write([]string{
			r.Name, r.Email, r.Status, formatTime(r.CheckInTime), formatTime(r.CheckOutTime),
			strconv.Itoa(r.CheckIns), r.Certificate,
		})
	}
	cw.Flush()
	return cw.Error()
}

func WriteEvaluationCSV(w io.Writer, rows []EvaluationRow) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Name", "Email", "Evaluated", "Evaluation", "Quiz Score", "Quiz Passed"})
	for _, r := range rows {
		score := ""
		if r.QuizScore != nil {
			score = fmt.Sprintf("%.1f", *r.QuizScore)
		}
		_ = cw.Write([]string{
			r.Name, r.Email, yesNo(r.HasEvaluated), r.Evaluation, score, yesNo(r.QuizPassed),
		})
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
