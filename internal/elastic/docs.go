package elastic

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/sirdesai22/certify-service/internal/models"
)

type EventDoc struct {
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Location          string    `json:"location"`
	Status            string    `json:"status"`
	Date              time.Time `json:"date"`
	ParticipantsCount int       `json:"participants_count"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func BuildEventDoc(e models.Event) ([]byte, error) {
	return sonic.Marshal(EventDoc{
		Title: e.Title, Description: e.Description, Location: e.Location, Status: e.Status,
		Date: e.Date, ParticipantsCount: e.ParticipantsCount, UpdatedAt: e.UpdatedAt,
	})
}

type ParticipantDoc struct {
	EventID      uuid.UUID  `json:"event_id"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Status       string     `json:"status"`
	HasEvaluated bool       `json:"has_evaluated"`
	QuizPassed   bool       `json:"quiz_passed"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func BuildParticipantDoc(p models.Participant) ([]byte, error) {
	return sonic.Marshal(ParticipantDoc{
		EventID: p.EventID, UserID: p.UserID, Name: p.Name, Email: p.Email, Status: p.Status,
		HasEvaluated: p.HasEvaluated, QuizPassed: p.QuizPassed, UpdatedAt: p.UpdatedAt,
	})
}

type CertificateDoc struct {
	ParticipantID     uuid.UUID  `json:"participant_id"`
	EventID           uuid.UUID  `json:"event_id"`
	ParticipantName   string     `json:"participant_name"`
	EventTitle        string     `json:"event_title"`
	CertificateNumber string     `json:"certificate_number"`
	VerificationCode  string     `json:"verification_code"`
	IssuedAt          *time.Time `json:"issued_at,omitempty"`
	Emailed           bool       `json:"emailed"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// BuildCertificateDoc expects Participant.Event to be preloaded.
func BuildCertificateDoc(c models.Certificate) ([]byte, error) {
	doc := CertificateDoc{
		ParticipantID: c.ParticipantID, CertificateNumber: c.CertificateNumber,
		VerificationCode: c.VerificationCode, IssuedAt: c.IssuedAt, Emailed: c.Emailed,
		UpdatedAt: c.UpdatedAt,
	}
	if p := c.Participant; p != nil {
		doc.EventID = p.EventID
		doc.ParticipantName = p.Name
		if p.Event != nil {
			doc.EventTitle = p.Event.Title
		}
	}
	return sonic.Marshal(doc)
}
