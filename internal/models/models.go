package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusRegistered = "registered"
	StatusAttended   = "attended"
	StatusCompleted  = "completed"

	EventUpcoming  = "upcoming"
	EventCompleted = "completed"

	LogCheckIn  = "check_in"
	LogCheckOut = "check_out"
)

// ---------------- USERS ----------------
type User struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string       `gorm:"uniqueIndex;not null" json:"username"`
	Email        string       `gorm:"uniqueIndex;not null" json:"email"`
	Name         string       `json:"name"`
	PasswordHash string       `gorm:"not null" json:"-"`
	IsAdmin      bool         `gorm:"not null" json:"is_admin"`
	Profile      *UserProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// UserProfile carries the personal check-in code printed on badges.
type UserProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User      *User     `json:"-"`
	QRCode    string    `gorm:"uniqueIndex;not null" json:"qr_code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ---------------- EVENTS ----------------
type Event struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Title             string            `gorm:"not null" json:"title"`
	Description       string            `json:"description"`
	Date              time.Time         `gorm:"index" json:"date"`
	TimeStart         string            `json:"time_start,omitempty"`
	TimeEnd           string            `json:"time_end,omitempty"`
	Location          string            `json:"location"`
	Status            string            `gorm:"not null" json:"status"`
	Requirements      datatypes.JSONMap `json:"requirements"` // attendance | evaluation | quiz
	ParticipantsCount int               `gorm:"not null" json:"participants_count"`
	Quizzes           []Quiz            `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"quizzes,omitempty"`
	Participants      []Participant     `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Quiz is a single question of an event quiz. CorrectAnswer is free text.
type Quiz struct {
	ID            uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	EventID       uuid.UUID                   `gorm:"type:uuid;not null;index" json:"event_id"`
	Question      string                      `gorm:"not null" json:"question"`
	Options       datatypes.JSONSlice[string] `json:"options"`
	CorrectAnswer string                      `gorm:"not null" json:"correct_answer,omitempty"`
	Points        int                         `gorm:"not null" json:"points"`
	Order         int                         `gorm:"column:sort_order;not null" json:"order"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// ---------------- PARTICIPANTS ----------------
type Participant struct {
	ID             uuid.UUID                            `gorm:"type:uuid;primaryKey" json:"id"`
	EventID        uuid.UUID                            `gorm:"type:uuid;not null;index;uniqueIndex:idx_participant_event_user" json:"event_id"`
	Event          *Event                               `json:"event,omitempty"`
	UserID         *uuid.UUID                           `gorm:"type:uuid;uniqueIndex:idx_participant_event_user" json:"user_id"`
	User           *User                                `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Name           string                               `gorm:"not null" json:"name"`
	Email          string                               `gorm:"index" json:"email"`
	Status         string                               `gorm:"not null" json:"status"`
	CheckInTime    *time.Time                           `json:"check_in_time"`
	CheckOutTime   *time.Time                           `json:"check_out_time"`
	HasEvaluated   bool                                 `gorm:"not null" json:"has_evaluated"`
	EvaluationData datatypes.JSON                       `json:"evaluation_data,omitempty"`
	QuizPassed     bool                                 `gorm:"not null" json:"quiz_passed"`
	QuizScore      *float64                             `json:"quiz_score"`
	QuizData       datatypes.JSON                       `json:"quiz_data,omitempty"`
	AttendanceLogs datatypes.JSONSlice[AttendanceEntry] `json:"attendance_logs"`
	CreatedAt      time.Time                            `json:"created_at"`
	UpdatedAt      time.Time                            `json:"updated_at"`
}

// AttendanceEntry is one append-only record of Participant.AttendanceLogs.
type AttendanceEntry struct {
	Type      string    `json:"type"`
	Time      time.Time `json:"time"`
	Session   string    `json:"session,omitempty"`
	ScannedBy string    `json:"scanned_by,omitempty"`
}

// ---------------- CERTIFICATES ----------------
type Certificate struct {
	ID                uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantID     uuid.UUID    `gorm:"type:uuid;uniqueIndex;not null" json:"participant_id"`
	Participant       *Participant `gorm:"constraint:OnDelete:CASCADE" json:"participant,omitempty"`
	CertificateNumber string       `gorm:"size:32;uniqueIndex;not null" json:"certificate_number"`
	VerificationCode  string       `gorm:"size:32;uniqueIndex;not null" json:"verification_code"`
	DocumentKey       string       `json:"document_key,omitempty"`
	IssuedAt          *time.Time   `json:"issued_at"`
	Emailed           bool         `gorm:"not null" json:"emailed"`
	EmailedAt         *time.Time   `json:"emailed_at"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// ---------------- OUTBOX (for search sync) ----------------
const (
	EntityEvent       = "event"
	EntityParticipant = "participant"
	EntityCertificate = "certificate"

	OpUpsert = "UPSERT"
	OpDelete = "DELETE"
)

type Outbox struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType string         `gorm:"index;not null" json:"entity_type"`
	EntityID   uuid.UUID      `gorm:"type:uuid;not null" json:"entity_id"`
	Op         string         `gorm:"not null" json:"op"` // UPSERT | DELETE
	Payload    datatypes.JSON `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	Processed  bool           `gorm:"default:false" json:"processed"`
}

func newID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error        { newID(&u.ID); return nil }
func (p *UserProfile) BeforeCreate(*gorm.DB) error { newID(&p.ID); return nil }
func (e *Event) BeforeCreate(*gorm.DB) error       { newID(&e.ID); return nil }
func (q *Quiz) BeforeCreate(*gorm.DB) error        { newID(&q.ID); return nil }
func (p *Participant) BeforeCreate(*gorm.DB) error { newID(&p.ID); return nil }
func (c *Certificate) BeforeCreate(*gorm.DB) error { newID(&c.ID); return nil }

// LastLogTime returns the time of the most recent log entry of the given type.
func (p *Participant) LastLogTime(kind string) *time.Time {
	for i := len(p.AttendanceLogs) - 1; i >= 0; i-- {
		if p.AttendanceLogs[i].Type == kind {
			t := p.AttendanceLogs[i].Time
			return &t
		}
	}
	return nil
}
