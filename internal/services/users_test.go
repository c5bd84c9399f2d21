package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sirdesai22/certify-service/internal/codes"
	"github.com/sirdesai22/certify-service/internal/db/dbtest"
	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/models"
)

func TestRegisterCreatesProfile(t *testing.T) {
	ctx := context.Background()
	users := &UserService{DB: dbtest.New(t)}

	u, err := users.Register(ctx, RegisterInput{Username: "ana", Email: "Ana@Example.edu", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.edu", u.Email)
	assert.False(t, u.IsAdmin)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password123")))

	require.NotNil(t, u.Profile)
	payload, err := codes.Parse(u.Profile.QRCode)
	require.NoError(t, err)
	assert.Equal(t, codes.KindUser, payload.Kind)
	assert.Equal(t, u.ID.String(), payload.ID)

	got, err := users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Profile.QRCode, got.Profile.QRCode)
}

func TestRegisterRejectsTakenIdentity(t *testing.T) {
	ctx := context.Background()
	users := &UserService{DB: dbtest.New(t)}
	_, err := users.Register(ctx, RegisterInput{Username: "ana", Email: "ana@example.edu", Password: "password123"})
	require.NoError(t, err)

	_, err = users.Register(ctx, RegisterInput{Username: "ana", Email: "new@example.edu", Password: "password123"})
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)
	_, err = users.Register(ctx, RegisterInput{Username: "other", Email: "ANA@example.edu", Password: "password123"})
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)

	var n int64
	require.NoError(t, users.DB.Model(&models.UserProfile{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestProfileBackfillsLegacyUser(t *testing.T) {
	ctx := context.Background()
	users := &UserService{DB: dbtest.New(t)}
	legacy := models.User{Username: "old", Email: "old@example.edu", PasswordHash: "x"}
	require.NoError(t, users.DB.Create(&legacy).Error)

	p, err := users.Profile(ctx, legacy.ID)
	require.NoError(t, err)
	again, err := users.Profile(ctx, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, p.QRCode, again.QRCode)
}

func TestRolePolicy(t *testing.T) {
	pol := RolePolicy{}
	admin := &models.User{IsAdmin: true}
	member := registerUser(t, dbtest.New(t), "mem")
	own := models.Participant{UserID: &member.ID}

	assert.True(t, pol.IsAdmin(admin))
	assert.False(t, pol.IsAdmin(&member))
	assert.False(t, pol.IsAdmin(nil))
	assert.True(t, pol.CanAccessParticipant(admin, models.Participant{}))
	assert.True(t, pol.CanAccessParticipant(&member, own))
	assert.False(t, pol.CanAccessParticipant(&member, models.Participant{}))
	assert.False(t, pol.CanAccessParticipant(nil, own))
}
