package workers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sirdesai22/certify-service/internal/metrics"
	"github.com/sirdesai22/certify-service/internal/models"
)

func (w *SyncWorker) RetryDLQ(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 30 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.retryOnce(ctx); err != nil {
				w.Log.WithError(err).Error("DLQ retry error")
			}
		}
	}
}

func (w *SyncWorker) retryOnce(ctx context.Context) error {
	var dlqs []models.DLQ
	if err := w.DB.WithContext(ctx).Where("resolved = ?", false).Order("id").Limit(50).Find(&dlqs).Error; err != nil {
		return err
	}
	if len(dlqs) == 0 {
		return nil
	}

	bi, err := w.newBulkIndexer()
	if err != nil {
		return err
	}
	var resolved []int64
	for _, d := range dlqs {
		entry := w.Log.WithFields(logrus.Fields{"dlq_id": d.ID, "entity": d.EntityType, "op": d.Op})
		id, err := uuid.Parse(d.EntityID)
		if err != nil {
			entry.WithError(err).Warn("DLQ record has a bad entity id")
			continue
		}
		ob := models.Outbox{ID: d.OutboxID, EntityType: d.EntityType, EntityID: id, Op: d.Op, Payload: d.Payload}
		if err := w.applyEvent(ctx, bi, ob); err != nil {
			entry.WithError(err).Warn("♻️ DLQ retry failed")
			continue
		}
		resolved = append(resolved, d.ID)
	}
	if err := bi.Close(ctx); err != nil {
		return err
	}

	if len(resolved) > 0 {
		now := time.Now()
		if err := w.DB.WithContext(ctx).Model(&models.DLQ{}).Where("id IN ?", resolved).Updates(map[string]any{
			"resolved":   true,
			"retried_at": &now,
		}).Error; err != nil {
			return err
		}
		metrics.ProcessedEvents.Add(float64(len(resolved)))
		w.Log.WithField("count", len(resolved)).Info("✅ DLQ records resolved")
	}
	return nil
}
