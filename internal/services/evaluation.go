package services

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/models"
)

// SubmitEvaluation stores the participant's feedback form. A second submission is rejected.
func (s *ParticipantService) SubmitEvaluation(ctx context.Context, participantID uuid.UUID, data map[string]any) (models.Participant, error) {
	raw, err := sonic.Marshal(data)
	if err != nil {
		return models.Participant{}, fmt.Errorf("%w: evaluation: %v", errs.ErrInvalidInput, err)
	}

	var p models.Participant
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if p, err = lockParticipant(tx, participantID); err != nil {
			return err
		}
		if p.HasEvaluated {
			return fmt.Errorf("%w: evaluation for participant %s", errs.ErrDuplicateSubmission, participantID)
		}
		p.HasEvaluated = true
		p.EvaluationData = datatypes.JSON(raw)
		if err := tx.Model(&models.Participant{}).Where("id = ?", p.ID).Updates(map[string]any{
			"has_evaluated":   true,
			"evaluation_data": p.EvaluationData,
		}).Error; err != nil {
			return err
		}
		return AddOutboxEvent(tx, models.EntityParticipant, p.ID, models.OpUpsert, nil)
	})
	return p, err
}
