package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ProcessedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sync_processed_total", Help: "Total processed outbox events"},
	)
	FailedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sync_failed_total", Help: "Total failed outbox events"},
	)
	DLQEvents = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sync_dlq_total", Help: "Total events inserted into DLQ"},
	)

	Scans = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "certify_scans_total", Help: "QR check-in scans by code kind and result"},
		[]string{"kind", "result"},
	)
	CertificatesIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "certify_certificates_issued_total", Help: "Certificate issuance attempts by result"},
		[]string{"result"},
	)
	EmailDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "certify_email_deliveries_total", Help: "Email deliveries by provider and result"},
		[]string{"provider", "result"},
	)

	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "certify_http_requests_total", Help: "Total number of HTTP requests"},
		[]string{"route", "method", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "certify_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func Register() {
	prometheus.MustRegister(
		ProcessedEvents, FailedEvents, DLQEvents,
		Scans, CertificatesIssued, EmailDeliveries,
		RequestCounter, RequestDuration,
	)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency labelled by the matched route template.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)

		RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		RequestCounter.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).Inc()
	})
}
