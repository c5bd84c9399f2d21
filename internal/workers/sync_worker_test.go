package workers

import (
	"context"
	"io"
	"testing"

	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirdesai22/certify-service/internal/db/dbtest"
	"github.com/sirdesai22/certify-service/internal/elastic"
	"github.com/sirdesai22/certify-service/internal/models"
)

type fakeBulk struct {
	items  []esutil.BulkIndexerItem
	bodies []string
}

func (f *fakeBulk) Add(_ context.Context, item esutil.BulkIndexerItem) error {
	body := ""
	if item.Body != nil {
		b, _ := io.ReadAll(item.Body)
		body = string(b)
	}
	f.items = append(f.items, item)
	f.bodies = append(f.bodies, body)
	return nil
}

func (f *fakeBulk) Close(context.Context) error       { return nil }
func (f *fakeBulk) Stats() esutil.BulkIndexerStats { return esutil.BulkIndexerStats{} }

func newWorker(t *testing.T) (*SyncWorker, *test.Hook) {
	log, hook := test.NewNullLogger()
	return &SyncWorker{DB: dbtest.New(t), Log: logrus.NewEntry(log)}, hook
}

func TestApplyEventIndexesCertificate(t *testing.T) {
	w, _ := newWorker(t)
	ev := models.Event{Title: "Research Week", Status: models.EventUpcoming}
	require.NoError(t, w.DB.Create(&ev).Error)
	p := models.Participant{EventID: ev.ID, Name: "Ana", Email: "ana@example.edu", Status: models.StatusCompleted}
	require.NoError(t, w.DB.Create(&p).Error)
	c := models.Certificate{ParticipantID: p.ID, CertificateNumber: "CERT-ABCDEF012345", VerificationCode: "VERIFY-0123456789ABCDEF"}
	require.NoError(t, w.DB.Create(&c).Error)

	bi := &fakeBulk{}
	err := w.applyEvent(context.Background(), bi, models.Outbox{ID: 1, EntityType: models.EntityCertificate, EntityID: c.ID, Op: models.OpUpsert})
	require.NoError(t, err)

	require.Len(t, bi.items, 1)
	assert.Equal(t, "index", bi.items[0].Action)
	assert.Equal(t, elastic.IdxCertificates, bi.items[0].Index)
	assert.Equal(t, c.ID.String(), bi.items[0].DocumentID)
	assert.Contains(t, bi.bodies[0], `"event_title":"Research Week"`)
}

func TestApplyEventMissingRowBecomesDelete(t *testing.T) {
	w, _ := newWorker(t)
	bi := &fakeBulk{}
	id := uuid.New()

	require.NoError(t, w.applyEvent(context.Background(), bi, models.Outbox{EntityType: models.EntityParticipant, EntityID: id, Op: models.OpUpsert}))
	require.NoError(t, w.applyEvent(context.Background(), bi, models.Outbox{EntityType: models.EntityEvent, EntityID: id, Op: models.OpDelete}))

	require.Len(t, bi.items, 2)
	assert.Equal(t, "delete", bi.items[0].Action)
	assert.Equal(t, elastic.IdxParticipants, bi.items[0].Index)
	assert.Nil(t, bi.items[0].Body)
	assert.Equal(t, elastic.IdxEvents, bi.items[1].Index)
}

func TestApplyEventUnknownEntity(t *testing.T) {
	w, _ := newWorker(t)
	err := w.applyEvent(context.Background(), &fakeBulk{}, models.Outbox{EntityType: "hackathon", EntityID: uuid.New()})
	assert.ErrorContains(t, err, "unknown entity_type")
}

func TestBulkFailureWritesDLQ(t *testing.T) {
	w, hook := newWorker(t)
	bi := &fakeBulk{}
	ob := models.Outbox{ID: 9, EntityType: models.EntityEvent, EntityID: uuid.New(), Op: models.OpDelete}
	require.NoError(t, w.applyEvent(context.Background(), bi, ob))

	res := esutil.BulkIndexerResponseItem{Status: 400}
	res.Error.Type = "mapper_parsing_exception"
	res.Error.Reason = "bad field"
	bi.items[0].OnFailure(context.Background(), bi.items[0], res, nil)

	var dlq models.DLQ
	require.NoError(t, w.DB.First(&dlq, "outbox_id = ?", 9).Error)
	assert.Equal(t, ob.EntityID.String(), dlq.EntityID)
	assert.Equal(t, "mapper_parsing_exception: bad field", dlq.ErrorMsg)
	assert.False(t, dlq.Resolved)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
