package db_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sirdesai22/certify-service/internal/codes"
	"github.com/sirdesai22/certify-service/internal/db"
	"github.com/sirdesai22/certify-service/internal/db/dbtest"
	"github.com/sirdesai22/certify-service/internal/models"
)

func TestSeed(t *testing.T) {
	gdb := dbtest.New(t)
	log := logrus.New()

	db.Seed(gdb, log)
	db.Seed(gdb, log)

	var events []models.Event
	require.NoError(t, gdb.Preload("Quizzes").Find(&events).Error)
	require.Len(t, events, 1)
	assert.Len(t, events[0].Quizzes, 2)
	assert.Equal(t, true, events[0].Requirements["quiz"])
}

func TestSeedAdmin(t *testing.T) {
	gdb := dbtest.New(t)
	log := logrus.New()

	require.NoError(t, db.SeedAdmin(gdb, "admin@example.edu", "secret", log))
	require.NoError(t, db.SeedAdmin(gdb, "admin@example.edu", "rotated", log))

	var users []models.User
	require.NoError(t, gdb.Preload("Profile").Find(&users).Error)
	require.Len(t, users, 1)
	assert.True(t, users[0].IsAdmin)
	require.NotNil(t, users[0].Profile)
	p, err := codes.Parse(users[0].Profile.QRCode)
	require.NoError(t, err)
	assert.Equal(t, users[0].ID.String(), p.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].PasswordHash), []byte("rotated")))
}

func TestSeedAdminSkippedWithoutCredentials(t *testing.T) {
	gdb := dbtest.New(t)
	require.NoError(t, db.SeedAdmin(gdb, "", "", logrus.New()))

	var n int64
	gdb.Model(&models.User{}).Count(&n)
	assert.Zero(t, n)
}
