package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("RENDER_TIMEOUT", "")
	t.Setenv("QUIZ_ALLOW_RESUBMIT", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.RenderTimeout)
	assert.True(t, cfg.QuizAllowResubmit)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RENDER_TIMEOUT", "3s")
	t.Setenv("MAIL_TIMEOUT", "not-a-duration")
	t.Setenv("QUIZ_ALLOW_RESUBMIT", "false")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.RenderTimeout)
	assert.Equal(t, 15*time.Second, cfg.MailTimeout)
	assert.False(t, cfg.QuizAllowResubmit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}
