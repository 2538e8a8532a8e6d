package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory so no .env file is picked up.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{"GEMINI_API_KEY", "TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_PHONE_NUMBER", "STORAGE_BACKEND"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "websocket", cfg.ServerType)
	assert.Equal(t, "sqlite", cfg.StorageBackend)
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 12000.0, cfg.PriceFloor)
	assert.Equal(t, []string{"10:00", "14:00", "16:00"}, cfg.AutoscheduleSlots)
	assert.Empty(t, cfg.GeminiAPIKey)
	assert.Empty(t, cfg.TwilioAccountSID)
}

func TestLoadConfigOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SERVER_TYPE", "both")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("IDLE_TIMEOUT", "60")
	t.Setenv("COURSE_CACHE_TTL", "10")
	t.Setenv("PRICE_FLOOR", "15000.5")
	t.Setenv("AUTOSCHEDULE_SLOTS", "09:00, 13:30")
	t.Setenv("AUTOSCHEDULE_ANCHOR", "2025-06-01")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "secret")
	t.Setenv("TWILIO_PHONE_NUMBER", "+15550000000")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "both", cfg.ServerType)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.CourseCacheTTL)
	assert.Equal(t, 15000.5, cfg.PriceFloor)
	assert.Equal(t, []string{"09:00", "13:30"}, cfg.AutoscheduleSlots)
	assert.Equal(t, "2025-06-01", cfg.AutoscheduleAnchor)
	assert.Len(t, cfg.AllowedOrigins, 2)
	assert.Equal(t, "AC123", cfg.TwilioAccountSID)
	assert.Equal(t, "+15550000000", cfg.TwilioPhoneNumber)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"PORT":                "eighty",
		"SERVER_TYPE":         "grpc",
		"STORAGE_BACKEND":     "postgres",
		"TURN_RATE":           "fast",
		"AUTOSCHEDULE_SLOTS":  "10am",
		"AUTOSCHEDULE_ANCHOR": "tomorrow",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			isolate(t)
			t.Setenv(key, value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
