package workers

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/models"
)

func TestFetchOutboxBatch(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	id := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "entity_type", "entity_id", "op", "payload", "created_at", "processed"}).
		AddRow(7, models.EntityCertificate, id.String(), models.OpUpsert, []byte(`{}`), time.Now(), true)

	mock.ExpectQuery(`UPDATE outboxes SET processed = true\s+FROM cte`).
		WithArgs(200).
		WillReturnRows(rows)

	batch, err := FetchOutboxBatch(context.Background(), gdb, 200)
	require.NoError(t, err)
	require.Len(t, batch.Events, 1)
	assert.Equal(t, int64(7), batch.Events[0].ID)
	assert.Equal(t, id, batch.Events[0].EntityID)
	assert.Equal(t, models.EntityCertificate, batch.Events[0].EntityType)

	require.NoError(t, mock.ExpectationsWereMet())
}
