package workers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/elastic"
	"github.com/sirdesai22/certify-service/internal/metrics"
	"github.com/sirdesai22/certify-service/internal/models"
)

type SyncWorker struct {
	DB        *gorm.DB
	ES        *es.Client
	Log       logrus.FieldLogger
	Interval  time.Duration
	BatchSize int
}

func (w *SyncWorker) Run(ctx context.Context) error {
	if err := elastic.EnsureIndexes(ctx, w.ES); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	interval := w.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.processOnce(ctx); err != nil {
				w.Log.WithError(err).Error("sync worker error")
			}
		}
	}
}

func (w *SyncWorker) newBulkIndexer() (esutil.BulkIndexer, error) {
	return esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client: w.ES, FlushBytes: 5 << 20, NumWorkers: 2,
	})
}

func (w *SyncWorker) processOnce(ctx context.Context) error {
	size := w.BatchSize
	if size <= 0 {
		size = 200
	}
	batch, err := FetchOutboxBatch(ctx, w.DB, size)
	if err != nil {
		return err
	}
	if len(batch.Events) == 0 {
		return nil
	}

	bi, err := w.newBulkIndexer()
	if err != nil {
		return err
	}
	for _, e := range batch.Events {
		if err := w.applyEvent(ctx, bi, e); err != nil {
			// already marked processed, so the DLQ is the only way back
			metrics.FailedEvents.Inc()
			PutDLQ(w.DB, w.Log, e, err.Error())
			continue
		}
		metrics.ProcessedEvents.Inc()
	}

	if err := bi.Close(ctx); err != nil {
		return err
	}
	stats := bi.Stats()
	w.Log.WithFields(logrus.Fields{"ok": stats.NumFlushed, "failed": stats.NumFailed}).Debug("bulk flushed")
	return nil
}

type docBuilder func(ctx context.Context, id uuid.UUID) ([]byte, error)

func (w *SyncWorker) target(entityType string) (string, docBuilder, bool) {
	switch entityType {
	case models.EntityEvent:
		return elastic.IdxEvents, func(ctx context.Context, id uuid.UUID) ([]byte, error) {
			var e models.Event
			if err := w.DB.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
				return nil, err
			}
			return elastic.BuildEventDoc(e)
		}, true
	case models.EntityParticipant:
		return elastic.IdxParticipants, func(ctx context.Context, id uuid.UUID) ([]byte, error) {
			var p models.Participant
			if err := w.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
				return nil, err
			}
			return elastic.BuildParticipantDoc(p)
		}, true
	case models.EntityCertificate:
		return elastic.IdxCertificates, func(ctx context.Context, id uuid.UUID) ([]byte, error) {
			var c models.Certificate
			if err := w.DB.WithContext(ctx).Preload("Participant.Event").First(&c, "id = ?", id).Error; err != nil {
				return nil, err
			}
			return elastic.BuildCertificateDoc(c)
		}, true
	}
	return "", nil, false
}

func (w *SyncWorker) applyEvent(ctx context.Context, bi esutil.BulkIndexer, e models.Outbox) error {
	index, build, ok := w.target(e.EntityType)
	if !ok {
		return fmt.Errorf("unknown entity_type=%s", e.EntityType)
	}
	if e.Op == models.OpDelete {
		return w.add(ctx, bi, index, e, "delete", nil)
	}

	doc, err := build(ctx, e.EntityID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// removed after the event was queued
		return w.add(ctx, bi, index, e, "delete", nil)
	}
	if err != nil {
		return err
	}
	return w.add(ctx, bi, index, e, "index", doc)
}

func (w *SyncWorker) add(ctx context.Context, bi esutil.BulkIndexer, index string, e models.Outbox, action string, body []byte) error {
	docID := e.EntityID.String()
	item := esutil.BulkIndexerItem{
		Action:     action,
		DocumentID: docID,
		Index:      index,
		OnSuccess: func(context.Context, esutil.BulkIndexerItem, esutil.BulkIndexerResponseItem) {
			w.Log.WithFields(logrus.Fields{"index": index, "id": docID}).Debug("✅ synced")
		},
		OnFailure: func(_ context.Context, _ esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
			var msg string
			switch {
			case err != nil:
				msg = err.Error()
			case res.Error.Reason != "":
				msg = fmt.Sprintf("%s: %s", res.Error.Type, res.Error.Reason)
			default:
				msg = fmt.Sprintf("status=%d failed to index", res.Status)
			}
			// a missing document on delete is already the desired state
			if action == "delete" && res.Status == 404 {
				return
			}
			metrics.FailedEvents.Inc()
			PutDLQ(w.DB, w.Log, e, msg)
		},
	}
	if len(body) > 0 {
		item.Body = bytes.NewReader(body)
	}
	return bi.Add(ctx, item)
}
