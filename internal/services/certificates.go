package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sirdesai22/certify-service/internal/codes"
	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/logger"
	"github.com/sirdesai22/certify-service/internal/metrics"
	"github.com/sirdesai22/certify-service/internal/models"
	"github.com/sirdesai22/certify-service/internal/notify"
	"github.com/sirdesai22/certify-service/internal/storage"
)

// Renderer produces the certificate document.
type Renderer interface {
	Render(ctx context.Context, p models.Participant, e models.Event, c models.Certificate) ([]byte, error)
}

// DocumentStore keeps rendered documents by key.
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

// VerificationCache maps verification codes to certificate ids.
type VerificationCache interface {
	Lookup(ctx context.Context, code string) (uuid.UUID, bool, error)
	Remember(ctx context.Context, code string, certificateID uuid.UUID) error
}

type CertificateService struct {
	DB       *gorm.DB
	Renderer Renderer
	Store    DocumentStore
	Notifier Notifier
	Cache    VerificationCache // optional
	Log      logrus.FieldLogger

	RenderTimeout time.Duration
	MailTimeout   time.Duration
}

type IssueOptions struct {
	SendEmail   bool `json:"send_email"`
	ForceResend bool `json:"force_resend"`
}

// DefaultIssueOptions sends the certificate on first issuance only.
func DefaultIssueOptions() IssueOptions { return IssueOptions{SendEmail: true} }

type IssueResult struct {
	Certificate models.Certificate `json:"certificate"`
	Created     bool               `json:"created"`
	Emailed     bool               `json:"emailed"`
	DeliveryErr error              `json:"-"`
}

const pdfContentType = "application/pdf"

// Issue creates or refreshes the participant's certificate. Identifiers are generated once;
// the document is re-rendered on every call.
func (s *CertificateService) Issue(ctx context.Context, participantID uuid.UUID, opts IssueOptions) (IssueResult, error) {
	var (
		p       models.Participant
		ev      models.Event
		cert    models.Certificate
		created bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if p, err = lockParticipant(tx, participantID); err != nil {
			return err
		}
		if ev, err = findEvent(tx, p.EventID); err != nil {
			return err
		}
		if unmet := UnmetRequirements(ev, p); len(unmet) > 0 {
			return &IneligibleError{Unmet: unmet}
		}
		cert, created, err = getOrCreateCertificate(tx, p.ID)
		return err
	})
	if err != nil {
		metrics.CertificatesIssued.WithLabelValues(issueLabel(err)).Inc()
		return IssueResult{}, err
	}
	res := IssueResult{Certificate: cert, Created: created}

	pdf, err := s.render(ctx, p, ev, cert)
	if err != nil {
		metrics.CertificatesIssued.WithLabelValues("render_failed").Inc()
		return res, err
	}
	key := storage.CertificateKey(cert.CertificateNumber)
	if err := s.Store.Put(ctx, key, pdf, pdfContentType); err != nil {
		metrics.CertificatesIssued.WithLabelValues("render_failed").Inc()
		return res, fmt.Errorf("%w: store document: %v", errs.ErrRender, err)
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Certificate{}).Where("id = ?", cert.ID).Update("document_key", key).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Participant{}).Where("id = ?", p.ID).Update("status", models.StatusCompleted).Error; err != nil {
			return err
		}
		if err := AddOutboxEvent(tx, models.EntityParticipant, p.ID, models.OpUpsert, nil); err != nil {
			return err
		}
		return AddOutboxEvent(tx, models.EntityCertificate, cert.ID, models.OpUpsert, nil)
	})
	if err != nil {
		return res, err
	}
	cert.DocumentKey = key
	p.Status = models.StatusCompleted
	res.Certificate = cert
	if created {
		metrics.CertificatesIssued.WithLabelValues("created").Inc()
	} else {
		metrics.CertificatesIssued.WithLabelValues("reissued").Inc()
	}

	s.remember(ctx, cert)

	// only the call that created the row sends automatically, so concurrent issuers email once
	if opts.SendEmail && (opts.ForceResend || (created && !cert.Emailed)) {
		if err := s.deliver(ctx, p, ev, &cert, pdf); err != nil {
			res.DeliveryErr = err
			s.log(ctx).WithError(err).WithField("certificate", cert.CertificateNumber).Warn("certificate email not delivered")
		} else {
			res.Emailed = true
		}
		res.Certificate = cert
	}
	return res, nil
}

// Resend emails the stored document again, rendering it when the store has none.
func (s *CertificateService) Resend(ctx context.Context, certificateID uuid.UUID) (models.Certificate, error) {
	cert, err := s.Get(ctx, certificateID)
	if err != nil {
		return cert, err
	}
	p, ev := *cert.Participant, *cert.Participant.Event

	pdf, err := s.Store.Get(ctx, storage.CertificateKey(cert.CertificateNumber))
	if errors.Is(err, errs.ErrNotFound) {
		if pdf, err = s.render(ctx, p, ev, cert); err == nil {
			err = s.Store.Put(ctx, storage.CertificateKey(cert.CertificateNumber), pdf, pdfContentType)
		}
	}
	if err != nil {
		return cert, err
	}
	if err := s.deliver(ctx, p, ev, &cert, pdf); err != nil {
		return cert, err
	}
	return cert, nil
}

func (s *CertificateService) render(ctx context.Context, p models.Participant, ev models.Event, cert models.Certificate) ([]byte, error) {
	rctx, cancel := withTimeout(ctx, s.RenderTimeout)
	defer cancel()
	pdf, err := s.Renderer.Render(rctx, p, ev, cert)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRender, err)
	}
	return pdf, nil
}

// deliver sends the document and records the delivery on success.
func (s *CertificateService) deliver(ctx context.Context, p models.Participant, ev models.Event, cert *models.Certificate, pdf []byte) error {
	if s.Notifier == nil {
		return fmt.Errorf("%w: no notifier configured", errs.ErrDelivery)
	}
	mctx, cancel := withTimeout(ctx, s.MailTimeout)
	defer cancel()

	msg := notify.CertificateEmail(p.Email, p.Name, ev.Title, cert.CertificateNumber, cert.VerificationCode, pdf)
	if err := s.Notifier.Send(mctx, msg); err != nil {
		if !errors.Is(err, errs.ErrDelivery) {
			err = fmt.Errorf("%w: %v", errs.ErrDelivery, err)
		}
		return err
	}

	now := time.Now().UTC()
	if err := s.DB.WithContext(ctx).Model(&models.Certificate{}).Where("id = ?", cert.ID).
		Updates(map[string]any{"emailed": true, "emailed_at": &now}).Error; err != nil {
		return err
	}
	cert.Emailed = true
	cert.EmailedAt = &now
	return nil
}

// getOrCreateCertificate relies on the unique participant_id index so concurrent issuers
// agree on one row.
func getOrCreateCertificate(tx *gorm.DB, participantID uuid.UUID) (models.Certificate, bool, error) {
	for attempt := 0; attempt < 3; attempt++ {
		now := time.Now().UTC()
		c := models.Certificate{
			ParticipantID:     participantID,
			CertificateNumber: codes.CertificateNumber(),
			VerificationCode:  codes.VerificationCode(),
			IssuedAt:          &now,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&c)
		if res.Error != nil {
			return c, false, res.Error
		}
		if res.RowsAffected == 1 {
			return c, true, nil
		}

		var existing models.Certificate
		err := tx.Where("participant_id = ?", participantID).First(&existing).Error
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return existing, false, err
		}
		// the insert lost on a number or code collision; draw new identifiers
	}
	return models.Certificate{}, false, errors.New("could not allocate unique certificate identifiers")
}

func (s *CertificateService) Get(ctx context.Context, id uuid.UUID) (models.Certificate, error) {
	var c models.Certificate
	err := s.DB.WithContext(ctx).Preload("Participant.Event").First(&c, "id = ?", id).Error
	return c, notFound(err, "certificate", id)
}

// List returns certificates, optionally only the participant's, newest first.
func (s *CertificateService) List(ctx context.Context, participantID *uuid.UUID) ([]models.Certificate, error) {
	q := s.DB.WithContext(ctx).Preload("Participant").Order("created_at DESC")
	if participantID != nil {
		q = q.Where("participant_id = ?", *participantID)
	}
	var out []models.Certificate
	return out, q.Find(&out).Error
}

// Document returns the stored PDF and a download file name.
func (s *CertificateService) Document(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if c.DocumentKey == "" {
		return nil, "", fmt.Errorf("%w: certificate %s has no document yet", errs.ErrNotFound, id)
	}
	data, err := s.Store.Get(ctx, c.DocumentKey)
	if err != nil {
		return nil, "", err
	}
	return data, "Certificate_" + c.CertificateNumber + ".pdf", nil
}

func (s *CertificateService) remember(ctx context.Context, c models.Certificate) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Remember(ctx, c.VerificationCode, c.ID); err != nil {
		s.log(ctx).WithError(err).Warn("verification cache write failed")
	}
}

func (s *CertificateService) log(ctx context.Context) logrus.FieldLogger {
	var fallback logrus.FieldLogger = logrus.StandardLogger()
	if s.Log != nil {
		fallback = s.Log
	}
	return logger.FromContext(ctx, fallback)
}

func issueLabel(err error) string {
	switch {
	case errors.Is(err, errs.ErrIneligible):
		return "ineligible"
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	}
	return "error"
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
