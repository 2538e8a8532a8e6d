package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server configuration
type Config struct {
	Port           int
	TwilioPort     int    // Port for Twilio server (used when ServerType is "both")
	ServerType     string // "websocket", "twilio", or "both"
	RedisURL       string
	RedisPassword  string
	MaxSessions    int
	SessionTimeout time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
	MaxBufferSize  int // Maximum partial transcript size in bytes per session
	TurnRate       float64
	TurnBurst      int

	GeminiAPIKey string // Optional; generated replies are disabled without it
	GeminiModel  string

	StorageBackend string // "sqlite" or "memory"
	DatabasePath   string

	HRSecret         string
	PriceFloor       float64
	InteractionLimit int

	AutoscheduleAnchor  string
	AutoscheduleHorizon int
	AutoscheduleSlots   []string
	CourseCacheTTL      time.Duration

	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string
	PublicURL         string // External base URL of the Twilio webhooks, enables signature checks
	SMSCountryPrefix  string
	OrgName           string
	HRContact         string

	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := &Config{
		Port:                8080,
		TwilioPort:          8081,
		ServerType:          "websocket",
		RedisURL:            "localhost:6379",
		MaxSessions:         100,
		SessionTimeout:      30 * time.Minute,
		IdleTimeout:         300 * time.Second,
		AllowedOrigins:      []string{"*"},
		MaxBufferSize:       4096,
		TurnRate:            2,
		TurnBurst:           5,
		GeminiModel:         "gemini-2.5-flash",
		StorageBackend:      "sqlite",
		DatabasePath:        "data/frontdesk.db",
		HRSecret:            "regex123",
		PriceFloor:          12000,
		InteractionLimit:    5,
		AutoscheduleHorizon: 30,
		AutoscheduleSlots:   []string{"10:00", "14:00", "16:00"},
		CourseCacheTTL:      300 * time.Second,
		SMSCountryPrefix:    "+91",
		OrgName:             "Regex Software",
		HRContact:           "(555) 987-6543",
		LogLevel:            "info",
		LogFormat:           "json",
	}

	strs := map[string]*string{
		"REDIS_URL":           &config.RedisURL,
		"REDIS_PASSWORD":      &config.RedisPassword,
		"GEMINI_API_KEY":      &config.GeminiAPIKey,
		"GEMINI_MODEL":        &config.GeminiModel,
		"DATABASE_PATH":       &config.DatabasePath,
		"HR_SECRET":           &config.HRSecret,
		"AUTOSCHEDULE_ANCHOR": &config.AutoscheduleAnchor,
		"TWILIO_ACCOUNT_SID":  &config.TwilioAccountSID,
		"TWILIO_AUTH_TOKEN":   &config.TwilioAuthToken,
		"TWILIO_PHONE_NUMBER": &config.TwilioPhoneNumber,
		"PUBLIC_URL":          &config.PublicURL,
		"SMS_COUNTRY_PREFIX":  &config.SMSCountryPrefix,
		"ORG_NAME":            &config.OrgName,
		"HR_CONTACT":          &config.HRContact,
		"LOG_LEVEL":           &config.LogLevel,
		"LOG_FORMAT":          &config.LogFormat,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PORT":                      &config.Port,
		"TWILIO_PORT":               &config.TwilioPort,
		"MAX_SESSIONS":              &config.MaxSessions,
		"MAX_BUFFER_SIZE":           &config.MaxBufferSize,
		"TURN_BURST":                &config.TurnBurst,
		"INTERACTION_LIMIT":         &config.InteractionLimit,
		"AUTOSCHEDULE_HORIZON_DAYS": &config.AutoscheduleHorizon,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"TURN_RATE":   &config.TurnRate,
		"PRICE_FLOOR": &config.PriceFloor,
	}
	for key, dst := range floats {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = f
		}
	}

	// Optional: SESSION_TIMEOUT (in minutes)
	if timeout := os.Getenv("SESSION_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TIMEOUT: %w", err)
		}
		config.SessionTimeout = time.Duration(t) * time.Minute
	}

	// Optional: IDLE_TIMEOUT (in seconds)
	if idle := os.Getenv("IDLE_TIMEOUT"); idle != "" {
		i, err := strconv.Atoi(idle)
		if err != nil {
			return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
		}
		config.IdleTimeout = time.Duration(i) * time.Second
	}

	// Optional: COURSE_CACHE_TTL (in seconds)
	if ttl := os.Getenv("COURSE_CACHE_TTL"); ttl != "" {
		t, err := strconv.Atoi(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid COURSE_CACHE_TTL: %w", err)
		}
		config.CourseCacheTTL = time.Duration(t) * time.Second
	}

	// Optional: ALLOWED_ORIGINS (comma-separated)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	// Optional: AUTOSCHEDULE_SLOTS (comma-separated HH:MM)
	if slots := os.Getenv("AUTOSCHEDULE_SLOTS"); slots != "" {
		config.AutoscheduleSlots = config.AutoscheduleSlots[:0:0]
		for _, s := range strings.Split(slots, ",") {
			s = strings.TrimSpace(s)
			if _, err := time.Parse("15:04", s); err != nil {
				return nil, fmt.Errorf("invalid AUTOSCHEDULE_SLOTS entry %q: %w", s, err)
			}
			config.AutoscheduleSlots = append(config.AutoscheduleSlots, s)
		}
	}

	if config.AutoscheduleAnchor != "" {
		if _, err := time.Parse("2006-01-02", config.AutoscheduleAnchor); err != nil {
			return nil, fmt.Errorf("invalid AUTOSCHEDULE_ANCHOR: %w", err)
		}
	}

	// Optional: SERVER_TYPE ("websocket", "twilio", or "both")
	if serverType := os.Getenv("SERVER_TYPE"); serverType != "" {
		switch serverType {
		case "websocket", "twilio", "both":
			config.ServerType = serverType
		default:
			return nil, fmt.Errorf("invalid SERVER_TYPE: must be 'websocket', 'twilio', or 'both'")
		}
	}

	// Optional: STORAGE_BACKEND ("sqlite" or "memory")
	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		switch backend {
		case "sqlite", "memory":
			config.StorageBackend = backend
		default:
			return nil, fmt.Errorf("invalid STORAGE_BACKEND: must be 'sqlite' or 'memory'")
		}
	}

	return config, nil
}
