// Package notify delivers certificate emails.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/sirupsen/logrus"

	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/metrics"
)

// ErrNotConfigured is returned by a sender that lacks credentials.
var ErrNotConfigured = errors.New("email provider not configured")

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Message struct {
	To          string
	ToName      string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Sender is one email provider.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Fallback sends through Primary and, when that fails, through Secondary with the same content.
type Fallback struct {
	Primary   Sender
	Secondary Sender
	Log       logrus.FieldLogger
}

func (f *Fallback) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("%w: recipient has no email", errs.ErrDelivery)
	}

	var failures []error
	for _, s := range []Sender{f.Primary, f.Secondary} {
		if s == nil {
			continue
		}
		err := s.Send(ctx, msg)
		if err == nil {
			metrics.EmailDeliveries.WithLabelValues(s.Name(), "sent").Inc()
			return nil
		}
		if errors.Is(err, ErrNotConfigured) {
			metrics.EmailDeliveries.WithLabelValues(s.Name(), "skipped").Inc()
		} else {
			metrics.EmailDeliveries.WithLabelValues(s.Name(), "failed").Inc()
			if f.Log != nil {
				f.Log.WithError(err).WithField("provider", s.Name()).Warn("email provider failed")
			}
		}
		failures = append(failures, fmt.Errorf("%s: %w", s.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	if len(failures) == 0 {
		return fmt.Errorf("%w: %w", errs.ErrDelivery, ErrNotConfigured)
	}
	return fmt.Errorf("%w: %w", errs.ErrDelivery, errors.Join(failures...))
}

// CertificateEmail builds the message that carries an issued certificate.
func CertificateEmail(to, name, eventTitle, certificateNumber, verificationCode string, pdf []byte) Message {
	if name == "" {
		name = "Participant"
	}
	text := fmt.Sprintf("Dear %s,\n\n"+
		"Congratulations on completing %s.\n\n"+
		"Your certificate is attached to this email.\n"+
		"Certificate Number: %s\n"+
		"Verification Code: %s\n\n"+
		"Best regards,\nEvent Coordination Team\n",
		name, eventTitle, certificateNumber, verificationCode)

	body := fmt.Sprintf(`<p>Dear %s,</p>
<p>Congratulations on completing <strong>%s</strong>.</p>
<p>Your certificate is attached to this email.</p>
<p>Certificate Number: <strong>%s</strong><br>Verification Code: <strong>%s</strong></p>
<p>Best regards,<br>Event Coordination Team</p>`,
		html.EscapeString(name), html.EscapeString(eventTitle),
		html.EscapeString(certificateNumber), html.EscapeString(verificationCode))

	return Message{
		To:      to,
		ToName:  name,
		Subject: "Your Certificate: " + eventTitle,
		HTML:    body,
		Text:    text,
		Attachments: []Attachment{{
			Filename:    "Certificate_" + certificateNumber + ".pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}
}
