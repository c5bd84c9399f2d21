// Package api exposes the check-in and certificate services over HTTP.
package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/logger"
	"github.com/sirdesai22/certify-service/internal/metrics"
	"github.com/sirdesai22/certify-service/internal/render"
	"github.com/sirdesai22/certify-service/internal/services"
)

type Server struct {
	DB           *gorm.DB
	Users        *services.UserService
	Events       *services.EventService
	Participants *services.ParticipantService
	Quizzes      *services.QuizService
	Certificates *services.CertificateService
	Reports      *services.ReportService
	Outbox       *services.OutboxService
	Policy       services.Policy
	QR           render.QREncoder
	JWTSecret    []byte
	Log          logrus.FieldLogger

	validate *validator.Validate
}

// NewServer wires the services around one database handle.
func NewServer(db *gorm.DB, certs *services.CertificateService, quizResubmit bool, jwtSecret string, log logrus.FieldLogger) *Server {
	return &Server{
		DB:           db,
		Users:        &services.UserService{DB: db},
		Events:       &services.EventService{DB: db},
		Participants: &services.ParticipantService{DB: db, Log: log},
		Quizzes:      &services.QuizService{DB: db, AllowResubmit: quizResubmit},
		Certificates: certs,
		Reports:      &services.ReportService{DB: db},
		Outbox:       &services.OutboxService{DB: db},
		Policy:       services.RolePolicy{},
		QR:           render.NewQRCode(),
		JWTSecret:    []byte(jwtSecret),
		Log:          log,
		validate:     newValidator(),
	}
}

func (s *Server) Router() *mux.Router {
	if s.validate == nil {
		s.validate = newValidator()
	}
	r := mux.NewRouter()
	r.Use(logger.Middleware(s.Log))
	r.Use(metrics.Middleware)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.Use(s.authenticate)

	a.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	a.HandleFunc("/auth/me", s.requireUser(s.me)).Methods(http.MethodGet)
	a.HandleFunc("/users/me/qr", s.requireUser(s.myQR)).Methods(http.MethodGet)

	a.HandleFunc("/events", s.listEvents).Methods(http.MethodGet)
	a.HandleFunc("/events", s.requireAdmin(s.createEvent)).Methods(http.MethodPost)
	a.HandleFunc("/events/{id}", s.getEvent).Methods(http.MethodGet)
	a.HandleFunc("/events/{id}", s.requireAdmin(s.updateEvent)).Methods(http.MethodPatch)
	a.HandleFunc("/events/{id}", s.requireAdmin(s.deleteEvent)).Methods(http.MethodDelete)
	a.HandleFunc("/events/{id}/join", s.joinEvent).Methods(http.MethodPost)
	a.HandleFunc("/events/{id}/qr", s.requireAdmin(s.eventQR)).Methods(http.MethodGet)
	a.HandleFunc("/events/{id}/import", s.requireAdmin(s.importParticipants)).Methods(http.MethodPost)
	a.HandleFunc("/events/{id}/quizzes", s.listQuizzes).Methods(http.MethodGet)
	a.HandleFunc("/events/{id}/quizzes", s.requireAdmin(s.createQuiz)).Methods(http.MethodPost)
	a.HandleFunc("/quizzes/{id}", s.requireAdmin(s.deleteQuiz)).Methods(http.MethodDelete)

	a.HandleFunc("/participants", s.requireAdmin(s.listParticipants)).Methods(http.MethodGet)
	a.HandleFunc("/participants/{id}", s.requireUser(s.getParticipant)).Methods(http.MethodGet)
	a.HandleFunc("/participants/{id}", s.requireAdmin(s.deleteParticipant)).Methods(http.MethodDelete)
	a.HandleFunc("/participants/{id}/check-in", s.requireAdmin(s.checkIn)).Methods(http.MethodPost)
	a.HandleFunc("/participants/{id}/check-out", s.requireAdmin(s.checkOut)).Methods(http.MethodPost)
	a.HandleFunc("/participants/{id}/evaluation", s.requireUser(s.submitEvaluation)).Methods(http.MethodPost)
	a.HandleFunc("/participants/{id}/quiz", s.requireUser(s.submitQuiz)).Methods(http.MethodPost)
	a.HandleFunc("/participants/{id}/certificate", s.requireAdmin(s.issueCertificate)).Methods(http.MethodPost)
	a.HandleFunc("/scan/qr", s.requireAdmin(s.scanQR)).Methods(http.MethodPost)

	a.HandleFunc("/certificates", s.requireUser(s.listCertificates)).Methods(http.MethodGet)
	a.HandleFunc("/certificates/{id}/download", s.requireUser(s.downloadCertificate)).Methods(http.MethodGet)
	a.HandleFunc("/certificates/{id}/resend", s.requireAdmin(s.resendCertificate)).Methods(http.MethodPost)
	a.HandleFunc("/verify/{code}", s.verify).Methods(http.MethodGet)

	a.HandleFunc("/reports/attendance/{event_id}", s.requireAdmin(s.attendanceReport)).Methods(http.MethodGet)
	a.HandleFunc("/reports/evaluation/{event_id}", s.requireAdmin(s.evaluationReport)).Methods(http.MethodGet)

	a.HandleFunc("/outbox", s.requireAdmin(s.listOutbox)).Methods(http.MethodGet)
	a.HandleFunc("/dlq", s.requireAdmin(s.listDLQ)).Methods(http.MethodGet)
	a.HandleFunc("/retry/{id}", s.requireAdmin(s.retryDLQ)).Methods(http.MethodPost)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := s.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
