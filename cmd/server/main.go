package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/api"
	"github.com/sirdesai22/certify-service/internal/cache"
	"github.com/sirdesai22/certify-service/internal/config"
	"github.com/sirdesai22/certify-service/internal/db"
	"github.com/sirdesai22/certify-service/internal/elastic"
	"github.com/sirdesai22/certify-service/internal/logger"
	"github.com/sirdesai22/certify-service/internal/metrics"
	"github.com/sirdesai22/certify-service/internal/notify"
	"github.com/sirdesai22/certify-service/internal/render"
	"github.com/sirdesai22/certify-service/internal/services"
	"github.com/sirdesai22/certify-service/internal/storage"
	"github.com/sirdesai22/certify-service/internal/workers"
)

func main() {
	cfg := config.Load()
	log := logger.New("certify-service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg := db.Connect(cfg.DBDriver, cfg.PostgresDSN, log)
	if err := db.Migrate(pg); err != nil {
		log.Fatalf("❌ migration failed: %v", err)
	}
	if err := db.SeedAdmin(pg, cfg.AdminEmail, cfg.AdminPassword, log); err != nil {
		log.Fatalf("❌ admin seed failed: %v", err)
	}
	db.Seed(pg, log)

	metrics.Register()

	certs := &services.CertificateService{
		DB:            pg,
		Renderer:      render.NewPDFRenderer(render.NewQRCode(), cfg.OrgName),
		Store:         documentStore(cfg, log),
		Notifier:      mailer(cfg, log),
		Log:           log,
		RenderTimeout: cfg.RenderTimeout,
		MailTimeout:   cfg.MailTimeout,
	}
	if cfg.RedisURL != "" {
		vc, err := cache.NewVerification(ctx, cfg.RedisURL, 24*time.Hour)
		if err != nil {
			log.WithError(err).Warn("verification cache disabled")
		} else {
			defer vc.Close()
			certs.Cache = vc
			log.Info("✅ Verification cache on Redis")
		}
	}

	if cfg.ElasticURL != "" {
		startSearchSync(ctx, cfg, pg, log)
	}

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set, authenticated routes will reject every request")
	}
	srv := api.NewServer(pg, certs, cfg.QuizAllowResubmit, cfg.JWTSecret, log)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID", "X-QR-Code"},
		AllowCredentials: true,
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsMiddleware.Handler(srv.Router()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("🧭 API running on :%s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API listener failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func documentStore(cfg config.Config, log logrus.FieldLogger) services.DocumentStore {
	if cfg.StorageDriver == "s3" {
		s, err := storage.NewS3(cfg.AWSRegion, cfg.S3Bucket)
		if err != nil {
			log.Fatalf("❌ s3 storage: %v", err)
		}
		log.Infof("✅ Certificates stored in s3://%s", cfg.S3Bucket)
		return s
	}
	s, err := storage.NewLocal(cfg.StorageDir)
	if err != nil {
		log.Fatalf("❌ local storage: %v", err)
	}
	log.Infof("✅ Certificates stored in %s", cfg.StorageDir)
	return s
}

func mailer(cfg config.Config, log logrus.FieldLogger) services.Notifier {
	return &notify.Fallback{
		Primary: notify.NewSendGrid(cfg.SendGridAPIKey, cfg.SendGridFrom, cfg.OrgName),
		Secondary: &notify.SMTP{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		},
		Log: log,
	}
}

// startSearchSync runs the outbox to Elasticsearch worker and its DLQ retry loop.
func startSearchSync(ctx context.Context, cfg config.Config, pg *gorm.DB, log logrus.FieldLogger) {
	client, err := elastic.Connect(cfg.ElasticURL, log)
	if err != nil {
		log.WithError(err).Warn("search sync disabled")
		return
	}
	worker := &workers.SyncWorker{DB: pg, ES: client, Log: log, Interval: time.Second, BatchSize: 200}
	go func() {
		if err := worker.Run(ctx); err != nil {
			log.WithError(err).Error("sync worker stopped")
		}
	}()
	go worker.RetryDLQ(ctx, time.Minute)
}
