// Package workers keeps the search index in step with the database via the outbox.
package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/metrics"
	"github.com/sirdesai22/certify-service/internal/models"
)

type OutboxBatch struct{ Events []models.Outbox }

// FetchOutboxBatch claims up to limit unprocessed events. Postgres only.
func FetchOutboxBatch(ctx context.Context, db *gorm.DB, limit int) (OutboxBatch, error) {
	var evts []models.Outbox
	// FOR UPDATE SKIP LOCKED lets several workers share the table
	tx := db.WithContext(ctx).Raw(`
		WITH cte AS (
		  SELECT * FROM outboxes
		  WHERE processed = false
		  ORDER BY id ASC
		  LIMIT ?
		  FOR UPDATE SKIP LOCKED
		)
		UPDATE outboxes SET processed = true
		FROM cte
		WHERE outboxes.id = cte.id
		RETURNING cte.*`, limit).Scan(&evts)
	return OutboxBatch{Events: evts}, tx.Error
}

// PutDLQ records an outbox event the index rejected.
func PutDLQ(db *gorm.DB, log logrus.FieldLogger, ob models.Outbox, msg string) {
	metrics.DLQEvents.Inc()
	dlq := models.DLQ{
		OutboxID:   ob.ID,
		EntityType: ob.EntityType,
		EntityID:   ob.EntityID.String(),
		Op:         ob.Op,
		ErrorMsg:   msg,
		Payload:    ob.Payload,
		CreatedAt:  time.Now(),
		Resolved:   false,
	}
	entry := log.WithFields(logrus.Fields{"outbox_id": ob.ID, "entity": ob.EntityType, "entity_id": ob.EntityID})
	if err := db.Create(&dlq).Error; err != nil {
		entry.WithError(err).Error("❌ Failed to insert into DLQ")
		return
	}
	entry.WithField("reason", msg).Warn("💀 DLQ record created")
}
