package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/db/dbtest"
	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/models"
	"github.com/sirdesai22/certify-service/internal/notify"
)

func nullLog() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return logrus.NewEntry(l)
}

func createEvent(t *testing.T, db *gorm.DB, reqs datatypes.JSONMap) models.Event {
	t.Helper()
	ev := models.Event{
		Title:        "Research Week",
		Date:         time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Status:       models.EventUpcoming,
		Requirements: reqs,
	}
	require.NoError(t, db.Create(&ev).Error)
	return ev
}

func createParticipant(t *testing.T, db *gorm.DB, ev models.Event, mut func(*models.Participant)) models.Participant {
	t.Helper()
	p := models.Participant{
		EventID:        ev.ID,
		Name:           "Ana Lima",
		Email:          "ana@example.edu",
		Status:         models.StatusRegistered,
		AttendanceLogs: datatypes.JSONSlice[models.AttendanceEntry]{},
	}
	if mut != nil {
		mut(&p)
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func registerUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	u, err := (&UserService{DB: db}).Register(context.Background(), RegisterInput{
		Username: username, Email: username + "@example.edu", Name: "User " + username, Password: "password123",
	})
	require.NoError(t, err)
	return u
}

func countParticipants(t *testing.T, db *gorm.DB, eventID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Participant{}).Where("event_id = ?", eventID).Count(&n).Error)
	return n
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	codes []string
	err   error
}

func (f *fakeRenderer) Render(_ context.Context, _ models.Participant, _ models.Event, c models.Certificate) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.codes = append(f.codes, c.VerificationCode)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.3 " + c.VerificationCode), nil
}

type memStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func newMemStore() *memStore { return &memStore{docs: map[string][]byte{}} }

func (m *memStore) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = data
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[key]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return d, nil
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, msg notify.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type mapCache struct {
	mu  sync.Mutex
	ids map[string]uuid.UUID
}

func (c *mapCache) Lookup(_ context.Context, code string) (uuid.UUID, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[code]
	return id, ok, nil
}

func (c *mapCache) Remember(_ context.Context, code string, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[code] = id
	return nil
}

type certFixture struct {
	db       *gorm.DB
	svc      *CertificateService
	renderer *fakeRenderer
	store    *memStore
	notifier *MockNotifier
	cache    *mapCache
}

func newCertFixture(t *testing.T) *certFixture {
	db := dbtest.New(t)
	f := &certFixture{
		db:       db,
		renderer: &fakeRenderer{},
		store:    newMemStore(),
		notifier: &MockNotifier{},
		cache:    &mapCache{ids: map[string]uuid.UUID{}},
	}
	f.svc = &CertificateService{
		DB: db, Renderer: f.renderer, Store: f.store, Notifier: f.notifier, Cache: f.cache,
		Log: nullLog(), RenderTimeout: time.Second, MailTimeout: time.Second,
	}
	return f
}

var errSMTPDown = errors.New("smtp: connection refused")
