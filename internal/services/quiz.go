package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/models"
)

type QuizService struct {
	DB *gorm.DB
	// AllowResubmit overwrites an earlier attempt instead of rejecting it.
	AllowResubmit bool
}

type QuizInput struct {
	Question      string   `json:"question" validate:"required,max=1000"`
	Options       []string `json:"options" validate:"omitempty,dive,max=500"`
	CorrectAnswer string   `json:"correct_answer" validate:"required,max=500"`
	Points        int      `json:"points" validate:"omitempty,gt=0"`
	Order         int      `json:"order" validate:"gte=0"`
}

func (s *QuizService) CreateQuiz(ctx context.Context, eventID uuid.UUID, in QuizInput) (models.Quiz, error) {
	if strings.TrimSpace(in.Question) == "" || strings.TrimSpace(in.CorrectAnswer) == "" {
		return models.Quiz{}, fmt.Errorf("%w: question and correct_answer are required", errs.ErrInvalidInput)
	}
	if in.Points < 0 {
		return models.Quiz{}, fmt.Errorf("%w: points must be positive", errs.ErrInvalidInput)
	}
	if in.Points == 0 {
		in.Points = 1
	}

	q := models.Quiz{
		EventID:       eventID,
		Question:      in.Question,
		Options:       datatypes.JSONSlice[string](in.Options),
		CorrectAnswer: in.CorrectAnswer,
		Points:        in.Points,
		Order:         in.Order,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findEvent(tx, eventID); err != nil {
			return err
		}
		return tx.Create(&q).Error
	})
	return q, err
}

func (s *QuizService) ListQuizzes(ctx context.Context, eventID uuid.UUID) ([]models.Quiz, error) {
	var out []models.Quiz
	err := s.DB.WithContext(ctx).Where("event_id = ?", eventID).Order("sort_order, id").Find(&out).Error
	return out, err
}

func (s *QuizService) DeleteQuiz(ctx context.Context, quizID uuid.UUID) error {
	res := s.DB.WithContext(ctx).Delete(&models.Quiz{}, "id = ?", quizID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: quiz %s", errs.ErrNotFound, quizID)
	}
	return nil
}

type quizAttempt struct {
	Answers     map[string]string `json:"answers"`
	SubmittedAt time.Time         `json:"submitted_at"`
	QuizResult
}

// Submit grades the participant's answers and records the outcome on the participant.
func (s *QuizService) Submit(ctx context.Context, participantID uuid.UUID, answers map[string]string) (QuizResult, error) {
	var result QuizResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockParticipant(tx, participantID)
		if err != nil {
			return err
		}
		if p.QuizScore != nil && !s.AllowResubmit {
			return fmt.Errorf("%w: quiz for participant %s", errs.ErrDuplicateSubmission, participantID)
		}

		var quizzes []models.Quiz
		if err := tx.Where("event_id = ?", p.EventID).Find(&quizzes).Error; err != nil {
			return err
		}
		result = GradeQuiz(quizzes, answers)

		raw, err := sonic.Marshal(quizAttempt{Answers: answers, SubmittedAt: time.Now().UTC(), QuizResult: result})
		if err != nil {
			return err
		}
		score := result.Score
		if err := tx.Model(&models.Participant{}).Where("id = ?", p.ID).Updates(map[string]any{
			"quiz_data":   datatypes.JSON(raw),
			"quiz_score":  &score,
			"quiz_passed": result.Passed,
		}).Error; err != nil {
			return err
		}
		return AddOutboxEvent(tx, models.EntityParticipant, p.ID, models.OpUpsert, nil)
	})
	return result, err
}

// RedactQuizData strips the answer key from a stored quiz attempt. Unreadable data is dropped.
func RedactQuizData(raw datatypes.JSON) datatypes.JSON {
	if len(raw) == 0 {
		return raw
	}
	var attempt quizAttempt
	if err := sonic.Unmarshal(raw, &attempt); err != nil {
		return nil
	}
	attempt.QuizResult = attempt.QuizResult.Redacted()
	out, err := sonic.Marshal(attempt)
	if err != nil {
		return nil
	}
	return datatypes.JSON(out)
}
