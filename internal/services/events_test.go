package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirdesai22/certify-service/internal/codes"
	"github.com/sirdesai22/certify-service/internal/db/dbtest"
	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/models"
)

func TestEventLifecycle(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	events := &EventService{DB: db}

	ev, err := events.Create(ctx, EventInput{Title: "Research Week", Date: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, models.EventUpcoming, ev.Status)
	assert.NotNil(t, ev.Requirements)

	status := models.EventCompleted
	ev, err = events.Update(ctx, ev.ID, EventPatch{Status: &status, Requirements: map[string]any{"quiz": true}})
	require.NoError(t, err)
	assert.Equal(t, models.EventCompleted, ev.Status)
	assert.Equal(t, true, ev.Requirements["quiz"])

	code, err := events.KioskCode(ctx, ev.ID)
	require.NoError(t, err)
	payload, err := codes.Parse(code)
	require.NoError(t, err)
	assert.Equal(t, ev.ID.String(), payload.ID)

	p := createParticipant(t, db, ev, attended)
	require.NoError(t, db.Create(&models.Certificate{ParticipantID: p.ID, CertificateNumber: codes.CertificateNumber(), VerificationCode: codes.VerificationCode()}).Error)
	_, err = (&QuizService{DB: db}).CreateQuiz(ctx, ev.ID, QuizInput{Question: "Q", CorrectAnswer: "A"})
	require.NoError(t, err)

	got, err := events.Get(ctx, ev.ID, true)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 1)
	assert.Len(t, got.Quizzes, 1)

	list, err := events.List(ctx, models.EventCompleted)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, events.Delete(ctx, ev.ID))
	for _, m := range []any{&models.Event{}, &models.Participant{}, &models.Certificate{}, &models.Quiz{}} {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.Zero(t, n)
	}
	_, err = events.Get(ctx, ev.ID, false)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCreateEventRequiresTitle(t *testing.T) {
	_, err := (&EventService{DB: dbtest.New(t)}).Create(context.Background(), EventInput{Title: "  "})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}
