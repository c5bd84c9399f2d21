package render

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirdesai22/certify-service/internal/models"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestQRCodeEncode(t *testing.T) {
	png, err := NewQRCode().Encode("VERIFY-0123456789ABCDEF", 120)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

type recordingQR struct {
	texts []string
	err   error
}

func (r *recordingQR) Encode(text string, size int) ([]byte, error) {
	r.texts = append(r.texts, text)
	if r.err != nil {
		return nil, r.err
	}
	return NewQRCode().Encode(text, size)
}

func TestPDFRendererEmbedsVerificationCode(t *testing.T) {
	qr := &recordingQR{}
	r := NewPDFRenderer(qr, "Event Coordination System")
	issued := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	out, err := r.Render(context.Background(),
		models.Participant{Name: "José Núñez"},
		models.Event{Title: "Research Week", Date: issued},
		models.Certificate{CertificateNumber: "CERT-ABCDEF012345", VerificationCode: "VERIFY-0123456789ABCDEF", IssuedAt: &issued},
	)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Equal(t, []string{"VERIFY-0123456789ABCDEF"}, qr.texts)
}

func TestPDFRendererErrors(t *testing.T) {
	r := NewPDFRenderer(&recordingQR{err: errors.New("boom")}, "Org")
	_, err := r.Render(context.Background(), models.Participant{}, models.Event{}, models.Certificate{})
	assert.ErrorContains(t, err, "boom")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewPDFRenderer(NewQRCode(), "Org").Render(ctx, models.Participant{}, models.Event{}, models.Certificate{})
	assert.ErrorIs(t, err, context.Canceled)
}
