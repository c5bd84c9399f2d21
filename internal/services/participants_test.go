package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirdesai22/certify-service/internal/codes"
	"github.com/sirdesai22/certify-service/internal/db/dbtest"
	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/importer"
	"github.com/sirdesai22/certify-service/internal/models"
)

func newParticipantService(t *testing.T) *ParticipantService {
	return &ParticipantService{DB: dbtest.New(t), Log: nullLog()}
}

func TestScanUserQRTwiceKeepsOneParticipant(t *testing.T) {
	ctx := context.Background()
	s := newParticipantService(t)
	ev := createEvent(t, s.DB, nil)
	user := registerUser(t, s.DB, "ana")

	in := ScanInput{QRData: user.Profile.QRCode, EventID: ev.ID, Session: "morning", ScannedBy: "kiosk-1"}
	first, err := s.ScanQR(ctx, in)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "user", first.Kind)
	assert.Len(t, first.Participant.AttendanceLogs, 1)

	second, err := s.ScanQR(ctx, in)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Participant.ID, second.Participant.ID)
	assert.Len(t, second.Participant.AttendanceLogs, 2)
	assert.Equal(t, models.StatusAttended, second.Participant.Status)

	assert.Equal(t, int64(1), countParticipants(t, s.DB, ev.ID))

	stored, err := s.Get(ctx, first.Participant.ID)
	require.NoError(t, err)
	require.Len(t, stored.AttendanceLogs, 2)
	assert.Equal(t, "morning", stored.AttendanceLogs[1].Session)
	assert.Equal(t, "kiosk-1", stored.AttendanceLogs[1].ScannedBy)
	assert.Equal(t, "User ana", stored.Name)
	assert.Equal(t, "ana@example.edu", stored.Email)
	assert.Equal(t, 1, stored.Event.ParticipantsCount)
	require.NotNil(t, stored.CheckInTime)
	assert.True(t, stored.CheckInTime.Equal(*stored.LastLogTime(models.LogCheckIn)))
}

func TestScanUserQRConcurrentCreatesOneParticipant(t *testing.T) {
	ctx := context.Background()
	s := newParticipantService(t)
	ev := createEvent(t, s.DB, nil)
	user := registerUser(t, s.DB, "bea")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ScanQR(ctx, ScanInput{QRData: user.Profile.QRCode, EventID: ev.ID})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var ps []models.Participant
	require.NoError(t, s.DB.Where("event_id = ?", ev.ID).Find(&ps).Error)
	require.Len(t, ps, 1)
	assert.Len(t, ps[0].AttendanceLogs, 5)
}

func TestScanUserQRLinksPreregisteredEmail(t *testing.T) {
	ctx := context.Background()
	s := newParticipantService(t)
	ev := createEvent(t, s.DB, nil)
	user := registerUser(t, s.DB, "carl")
	pre := createParticipant(t, s.DB, ev, func(p *models.Participant) { p.Email = "CARL@example.edu"; p.Name = "Carl" })

	res, err := s.ScanQR(ctx, ScanInput{QRData: user.Profile.QRCode, EventID: ev.ID})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, pre.ID, res.Participant.ID)
	require.NotNil(t, res.Participant.UserID)
	assert.Equal(t, user.ID, *res.Participant.UserID)
	assert.Equal(t, "Carl", res.Participant.Name)
}

func TestScanRejectsBadCodes(t *testing.T) {
	ctx := context.Background()
	s := newParticipantService(t)
	ev := createEvent(t, s.DB, nil)

	_, err := s.ScanQR(ctx, ScanInput{QRData: "hello", EventID: ev.ID})
	assert.ErrorIs(t, err, errs.ErrInvalidQR)

	_, err = s.ScanQR(ctx, ScanInput{QRData: codes.UserQR(uuid.New()), EventID: ev.ID})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = s.ScanQR(ctx, ScanInput{QRData: codes.EventQR(uuid.New()), EventID: ev.ID, Email: "ana@example.edu"})
	assert.ErrorIs(t, err, errs.ErrInvalidQR)

	_, err = s.ScanQR(ctx, ScanInput{QRData: codes.EventQR(ev.ID), EventID: ev.ID})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = s.ScanQR(ctx, ScanInput{QRData: codes.EventQR(ev.ID), EventID: uuid.New(), Email: "ana@example.edu"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestScanEventQRNeverCreates(t *testing.T) {
	ctx := context.Background()
	s := newParticipantService(t)
	ev := createEvent(t, s.DB, nil)
	code := codes.EventQR(ev.ID)

	_, err := s.ScanQR(ctx, ScanInput{QRData: code, EventID: ev.ID, Email: "walkin@example.edu"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Zero(t, countParticipants(t, s.DB, ev.ID))

	p := createParticipant(t, s.DB, ev, nil)
	res, err := s.ScanQR(ctx, ScanInput{QRData: code, EventID: ev.ID, Email: "Ana@Example.edu"})
	require.NoError(t, err)
	assert.Equal(t, p.ID, res.Participant.ID)
	assert.Equal(t, "event", res.Kind)
	assert.Equal(t, models.StatusAttended, res.Participant.Status)
	assert.Len(t, res.Participant.AttendanceLogs, 1)
}

func TestJoinResolvesByUserThenEmail(t *testing.T) {
	ctx := context.Background()
	s := newParticipantService(t)
	ev := createEvent(t, s.DB, nil)
	user := registerUser(t, s.DB, "dina")

	p1, created, err := s.Join(ctx, ev.ID, &user, JoinInput{})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "dina@example.edu", p1.Email)

	p2, created, err := s.Join(ctx, ev.ID, &user, JoinInput{Email: "other@example.edu"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p1.ID, p2.ID)

	anon, created, err := s.Join(ctx, ev.ID, nil, JoinInput{})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Anonymous", anon.Name)
	assert.Equal(t, "", anon.Email)
	assert.Equal(t, models.StatusRegistered, anon.Status)

	var stored models.Event
	require.NoError(t, s.DB.First(&stored, "id = ?", ev.ID).Error)
	assert.Equal(t, 2, stored.ParticipantsCount)

	_, _, err = s.Join(ctx, uuid.New(), nil, JoinInput{})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCheckInCheckOutLog(t *testing.T) {
	ctx := context.Background()
	s := newParticipantService(t)
	clock := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { clock = clock.Add(time.Minute); return clock }
	ev := createEvent(t, s.DB, nil)
	p := createParticipant(t, s.DB, ev, func(p *models.Participant) { p.Status = models.StatusCompleted })

	_, err := s.CheckIn(ctx, p.ID, AttendanceInput{Session: "day-1"})
	require.NoError(t, err)
	_, err = s.CheckOut(ctx, p.ID, AttendanceInput{})
	require.NoError(t, err)
	got, err := s.CheckIn(ctx, p.ID, AttendanceInput{Session: "day-2"})
	require.NoError(t, err)

	stored, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored.AttendanceLogs, 3)
	assert.Equal(t, []string{models.LogCheckIn, models.LogCheckOut, models.LogCheckIn},
		[]string{stored.AttendanceLogs[0].Type, stored.AttendanceLogs[1].Type, stored.AttendanceLogs[2].Type})
	assert.Equal(t, "day-1", stored.AttendanceLogs[0].Session)
	assert.True(t, stored.CheckInTime.Equal(stored.AttendanceLogs[2].Time))
	assert.True(t, stored.CheckOutTime.Equal(stored.AttendanceLogs[1].Time))
	// completed is never downgraded
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Equal(t, models.StatusCompleted, got.Status)

	_, err = s.CheckIn(ctx, uuid.New(), AttendanceInput{})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestEvaluationResubmissionRejected(t *testing.T) {
	ctx := context.Background()
	s := newParticipantService(t)
	ev := createEvent(t, s.DB, nil)
	p := createParticipant(t, s.DB, ev, nil)

	got, err := s.SubmitEvaluation(ctx, p.ID, map[string]any{"rating": 5, "comment": "great"})
	require.NoError(t, err)
	assert.True(t, got.HasEvaluated)

	_, err = s.SubmitEvaluation(ctx, p.ID, map[string]any{"rating": 1})
	assert.ErrorIs(t, err, errs.ErrDuplicateSubmission)

	stored, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rating":5,"comment":"great"}`, string(stored.EvaluationData))
}

func TestImportSkipsInvalidAndDuplicateEmails(t *testing.T) {
	ctx := context.Background()
	s := newParticipantService(t)
	ev := createEvent(t, s.DB, nil)

	res, err := s.ImportParticipants(ctx, ev.ID, []importer.Row{
		{Name: "Ana", Email: "ana@example.edu"},
		{Name: "Bob", Email: "not-an-email"},
	})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 1, Skipped: 1}, res)
	assert.Equal(t, int64(1), countParticipants(t, s.DB, ev.ID))

	res, err = s.ImportParticipants(ctx, ev.ID, []importer.Row{
		{Name: "Ana again", Email: "ANA@example.edu"},
		{Name: "", Email: "eve@example.edu"},
		{Name: "Eve twin", Email: "eve@example.edu"},
	})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 1, Skipped: 2}, res)

	var stored models.Event
	require.NoError(t, s.DB.First(&stored, "id = ?", ev.ID).Error)
	assert.Equal(t, 2, stored.ParticipantsCount)

	var outbox int64
	require.NoError(t, s.DB.Model(&models.Outbox{}).Where("entity_type = ?", models.EntityParticipant).Count(&outbox).Error)
	assert.Equal(t, int64(2), outbox)
}

func TestImportRejectsEmailsThatBreakHeaders(t *testing.T) {
	ctx := context.Background()
	s := newParticipantService(t)
	ev := createEvent(t, s.DB, nil)

	res, err := s.ImportParticipants(ctx, ev.ID, []importer.Row{
		{Name: "Eve", Email: "eve@example.edu\r\nBcc: mallory@example.edu"},
		{Name: "Gap", Email: "a b@example.edu"},
		{Name: "Tab", Email: "tab@exa\tmple.edu"},
		{Name: "Nul", Email: "nul@example.edu\x00"},
		{Name: "Ana", Email: "  ana@example.edu  "},
	})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 1, Skipped: 4}, res)

	var p models.Participant
	require.NoError(t, s.DB.First(&p, "event_id = ?", ev.ID).Error)
	assert.Equal(t, "ana@example.edu", p.Email)
}

func TestDeleteParticipantRemovesCertificate(t *testing.T) {
	ctx := context.Background()
	s := newParticipantService(t)
	ev := createEvent(t, s.DB, nil)
	p := createParticipant(t, s.DB, ev, nil)
	other := createParticipant(t, s.DB, ev, func(p *models.Participant) { p.Email = "bob@example.edu" })
	require.NoError(t, RefreshParticipantCount(s.DB, ev.ID))
	require.NoError(t, s.DB.Create(&models.Certificate{
		ParticipantID: p.ID, CertificateNumber: codes.CertificateNumber(), VerificationCode: codes.VerificationCode(),
	}).Error)

	require.NoError(t, s.Delete(ctx, p.ID))

	var certs int64
	require.NoError(t, s.DB.Model(&models.Certificate{}).Count(&certs).Error)
	assert.Zero(t, certs)
	list, err := s.List(ctx, &ev.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, other.ID, list[0].ID)

	var stored models.Event
	require.NoError(t, s.DB.First(&stored, "id = ?", ev.ID).Error)
	assert.Equal(t, 1, stored.ParticipantsCount)

	assert.ErrorIs(t, s.Delete(ctx, p.ID), errs.ErrNotFound)
}
