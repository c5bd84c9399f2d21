package elastic

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirdesai22/certify-service/internal/models"
)

func TestBuildCertificateDoc(t *testing.T) {
	issued := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	eventID := uuid.New()
	c := models.Certificate{
		ParticipantID:     uuid.New(),
		CertificateNumber: "CERT-ABCDEF012345",
		VerificationCode:  "VERIFY-0123456789ABCDEF",
		IssuedAt:          &issued,
		Participant: &models.Participant{
			EventID: eventID,
			Name:    "Ana",
			Event:   &models.Event{Title: "Research Week"},
		},
	}

	raw, err := BuildCertificateDoc(c)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, sonic.Unmarshal(raw, &doc))
	assert.Equal(t, eventID.String(), doc["event_id"])
	assert.Equal(t, "Ana", doc["participant_name"])
	assert.Equal(t, "Research Week", doc["event_title"])
	assert.Equal(t, "VERIFY-0123456789ABCDEF", doc["verification_code"])
}

func TestBuildParticipantDocOmitsMissingUser(t *testing.T) {
	raw, err := BuildParticipantDoc(models.Participant{Name: "Walk-in", Status: models.StatusAttended})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "user_id")
	assert.Contains(t, string(raw), `"status":"attended"`)
}
