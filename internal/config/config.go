package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once at startup from the environment (and .env when present).
type Config struct {
	Port        string
	DBDriver    string // postgres | sqlite
	PostgresDSN string
	JWTSecret   string
	ElasticURL  string
	RedisURL    string
	CORSOrigins []string

	StorageDriver string // local | s3
	StorageDir    string
	S3Bucket      string
	AWSRegion     string

	SendGridAPIKey string
	SendGridFrom   string
	SMTPHost       string
	SMTPPort       string
	SMTPUser       string
	SMTPPassword   string
	EmailFrom      string

	OrgName           string
	RenderTimeout     time.Duration
	MailTimeout       time.Duration
	QuizAllowResubmit bool

	AdminEmail    string
	AdminPassword string
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:        getenv("PORT", "8080"),
		DBDriver:    getenv("DB_DRIVER", "postgres"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		ElasticURL:  os.Getenv("ELASTIC_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		CORSOrigins: splitList(getenv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),

		StorageDriver: getenv("STORAGE_DRIVER", "local"),
		StorageDir:    getenv("STORAGE_DIR", "./data/certificates"),
		S3Bucket:      os.Getenv("S3_BUCKET"),
		AWSRegion:     getenv("AWS_REGION", "us-east-1"),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		SendGridFrom:   getenv("SENDGRID_FROM_EMAIL", "noreply@example.edu"),
		SMTPHost:       os.Getenv("SMTP_HOST"),
		SMTPPort:       getenv("SMTP_PORT", "587"),
		SMTPUser:       os.Getenv("SMTP_USER"),
		SMTPPassword:   os.Getenv("SMTP_PASSWORD"),
		EmailFrom:      getenv("EMAIL_FROM", "noreply@example.edu"),

		OrgName:           getenv("ORG_NAME", "Event Coordination System"),
		RenderTimeout:     getDuration("RENDER_TIMEOUT", 10*time.Second),
		MailTimeout:       getDuration("MAIL_TIMEOUT", 15*time.Second),
		QuizAllowResubmit: getBool("QUIZ_ALLOW_RESUBMIT", true),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getBool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getDuration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(k))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
