package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	FrontendURL string
	CORSOrigins []string
	Timezone    string

	Database DatabaseConfig
	Auth     AuthConfig
	SMTP     SMTPConfig
	Termii   TermiiConfig
	FCM      FCMConfig
	Jobs     JobsConfig
	Log      LogConfig
	Metrics  MetricsConfig
	Limits   RateLimitConfig
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type AuthConfig struct {
	JWTSecret    string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	ActionTTL    time.Duration
	CookieSecure bool
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

type TermiiConfig struct {
	BaseURL  string
	APIKey   string
	SenderID string
	Channel  string
}

type FCMConfig struct {
	CredentialsJSON string // base64 encoded
	CredentialsFile string
}

type JobsConfig struct {
	Enabled       bool
	ChecklistCron string
	ReminderCron  string
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type MetricsConfig struct {
	User     string
	Password string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		Port:        "3333",
		Env:         "development",
		FrontendURL: "http://localhost:3000",
		CORSOrigins: []string{"http://localhost:3000"},
		Timezone:    "Africa/Lagos",
		Database: DatabaseConfig{
			MaxConns:        25,
			MinConns:        5,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			AccessTTL:    15 * time.Minute,
			RefreshTTL:   7 * 24 * time.Hour,
			ActionTTL:    24 * time.Hour,
			CookieSecure: true,
		},
		SMTP:   SMTPConfig{Port: 587, UseTLS: true},
		Termii: TermiiConfig{BaseURL: "https://api.ng.termii.com", Channel: "whatsapp"},
		FCM:    FCMConfig{CredentialsFile: "./serviceAccountKey.json"},
		Jobs: JobsConfig{
			Enabled:       true,
			ChecklistCron: "0 0 * * *",
			ReminderCron:  "0 8 * * *",
		},
		Log:    LogConfig{Level: "info", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Limits: RateLimitConfig{RPS: 5, Burst: 30},
	}

	envOverride(&c.Port, "PORT")
	envOverride(&c.Env, "APP_ENV")
	envOverride(&c.FrontendURL, "FRONTEND_URL")
	envOverrideList(&c.CORSOrigins, "CORS_ORIGINS")
	envOverride(&c.Timezone, "TIMEZONE")

	envOverride(&c.Database.URL, "DATABASE_URL")
	envOverrideInt32(&c.Database.MaxConns, "DB_MAX_CONNS")
	envOverrideInt32(&c.Database.MinConns, "DB_MIN_CONNS")
	envOverrideDuration(&c.Database.MaxConnLifetime, "DB_MAX_CONN_LIFETIME")
	envOverrideDuration(&c.Database.MaxConnIdleTime, "DB_MAX_CONN_IDLE_TIME")

	envOverride(&c.Auth.JWTSecret, "JWT_SECRET")
	envOverrideDuration(&c.Auth.AccessTTL, "ACCESS_TOKEN_TTL")
	envOverrideDuration(&c.Auth.RefreshTTL, "REFRESH_TOKEN_TTL")
	envOverrideDuration(&c.Auth.ActionTTL, "ACTION_TOKEN_TTL")
	envOverrideBool(&c.Auth.CookieSecure, "COOKIE_SECURE")

	envOverride(&c.SMTP.Host, "SMTP_HOST")
	envOverrideInt(&c.SMTP.Port, "SMTP_PORT")
	envOverride(&c.SMTP.Username, "SMTP_USER")
	envOverride(&c.SMTP.Password, "SMTP_PASSWORD")
	envOverride(&c.SMTP.From, "SMTP_FROM")
	envOverrideBool(&c.SMTP.UseTLS, "SMTP_USE_TLS")
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}

	envOverride(&c.Termii.BaseURL, "TERMII_BASE_URL")
	envOverride(&c.Termii.APIKey, "TERMII_API_KEY")
	envOverride(&c.Termii.SenderID, "TERMII_SENDER_ID")
	envOverride(&c.Termii.Channel, "TERMII_CHANNEL")

	envOverride(&c.FCM.CredentialsJSON, "FCM_SERVICE_ACCOUNT_JSON")
	envOverride(&c.FCM.CredentialsFile, "FCM_SERVICE_ACCOUNT_FILE")

	envOverrideBool(&c.Jobs.Enabled, "JOBS_ENABLED")
	envOverride(&c.Jobs.ChecklistCron, "CHECKLIST_CRON")
	envOverride(&c.Jobs.ReminderCron, "REMINDER_CRON")

	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverrideInt(&c.Log.MaxSizeMB, "LOG_MAX_SIZE_MB")
	envOverrideInt(&c.Log.MaxBackups, "LOG_MAX_BACKUPS")
	envOverrideInt(&c.Log.MaxAgeDays, "LOG_MAX_AGE_DAYS")

	envOverride(&c.Metrics.User, "METRICS_USER")
	envOverride(&c.Metrics.Password, "METRICS_PASS")

	envOverrideFloat(&c.Limits.RPS, "RATE_LIMIT_RPS")
	envOverrideInt(&c.Limits.Burst, "RATE_LIMIT_BURST")

	return c
}

// Validate reports the first missing or malformed required setting.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		return fmt.Errorf("refresh token TTL must exceed access token TTL")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envOverrideInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func envOverrideFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envOverrideBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envOverrideDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
