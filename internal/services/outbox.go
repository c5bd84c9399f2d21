package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/models"
)

// AddOutboxEvent queues one search-index change inside the caller's transaction.
func AddOutboxEvent(tx *gorm.DB, entityType string, entityID uuid.UUID, op string, payload any) error {
	event := models.Outbox{
		EntityType: entityType,
		EntityID:   entityID,
		Op:         op,
	}
	if payload != nil {
		data, err := sonic.Marshal(payload)
		if err != nil {
			return fmt.Errorf("outbox payload: %w", err)
		}
		event.Payload = datatypes.JSON(data)
	}
	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("create outbox event: %w", err)
	}
	return nil
}

// AddBatchOutboxEvents queues the same change for many entities.
func AddBatchOutboxEvents(tx *gorm.DB, entityType string, op string, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	events := make([]models.Outbox, 0, len(ids))
	for _, id := range ids {
		events = append(events, models.Outbox{EntityType: entityType, EntityID: id, Op: op})
	}
	if err := tx.CreateInBatches(&events, 200).Error; err != nil {
		return fmt.Errorf("create outbox batch for %s: %w", entityType, err)
	}
	return nil
}

type OutboxService struct {
	DB *gorm.DB
}

func (s *OutboxService) ListOutbox(ctx context.Context, pendingOnly bool, limit int) ([]models.Outbox, error) {
	q := s.DB.WithContext(ctx).Order("id DESC").Limit(clampLimit(limit))
	if pendingOnly {
		q = q.Where("processed = ?", false)
	}
	var out []models.Outbox
	return out, q.Find(&out).Error
}

func (s *OutboxService) ListDLQ(ctx context.Context, unresolvedOnly bool, limit int) ([]models.DLQ, error) {
	q := s.DB.WithContext(ctx).Order("id DESC").Limit(clampLimit(limit))
	if unresolvedOnly {
		q = q.Where("resolved = ?", false)
	}
	var out []models.DLQ
	return out, q.Find(&out).Error
}

// Requeue puts a dead-lettered change back on the outbox and marks the DLQ record resolved.
func (s *OutboxService) Requeue(ctx context.Context, dlqID int64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.DLQ
		if err := tx.First(&d, "id = ?", dlqID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: dlq record %d", errs.ErrNotFound, dlqID)
			}
			return err
		}
		id, err := uuid.Parse(d.EntityID)
		if err != nil {
			return fmt.Errorf("%w: dlq record %d has entity id %q", errs.ErrInvalidInput, dlqID, d.EntityID)
		}
		op := d.Op
		if op != models.OpDelete {
			op = models.OpUpsert
		}
		if err := AddOutboxEvent(tx, d.EntityType, id, op, nil); err != nil {
			return err
		}
		now := time.Now()
		return tx.Model(&models.DLQ{}).Where("id = ?", d.ID).Updates(map[string]any{
			"resolved":   true,
			"retried_at": &now,
		}).Error
	})
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return 50
	case n > 500:
		return 500
	}
	return n
}
