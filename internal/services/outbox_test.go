package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirdesai22/certify-service/internal/db/dbtest"
	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/models"
)

func TestRequeueDLQ(t *testing.T) {
	ctx := context.Background()
	s := &OutboxService{DB: dbtest.New(t)}
	id := uuid.New()
	d := models.DLQ{OutboxID: 3, EntityType: models.EntityCertificate, EntityID: id.String(), Op: "index", ErrorMsg: "timeout"}
	require.NoError(t, s.DB.Create(&d).Error)

	require.NoError(t, s.Requeue(ctx, d.ID))

	pending, err := s.ListOutbox(ctx, true, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].EntityID)
	assert.Equal(t, models.OpUpsert, pending[0].Op)

	open, err := s.ListDLQ(ctx, true, 10)
	require.NoError(t, err)
	assert.Empty(t, open)

	assert.ErrorIs(t, s.Requeue(ctx, 999), errs.ErrNotFound)
}
