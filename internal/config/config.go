// Package config loads server settings from the environment, an optional
// .env file, and an optional config.yaml in the working directory.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds every server setting
type Config struct {
	S3                  S3Config
	DatabaseURL         string
	Port                string
	Environment         string
	Store               string
	CredentialSecret    string
	CaptchaSecret       string
	CaptchaAction       string
	MailTopic           string
	RedisAddr           string
	OrphanSweepSchedule string
	OTLPEndpoint        string
	PublicBaseURL       string
	KafkaBrokers        []string
	CORSOrigins         []string
	CaptchaScore        float64
	CredentialTTL       time.Duration
	MailTimeout         time.Duration
	CreateRateWindow    time.Duration
	OrphanMediaTTL      time.Duration
	PresignTTL          time.Duration
	MaxUploadSize       int64
	CreateRateLimit     int
}

// S3Config selects the media bucket. An empty Endpoint keeps blobs in memory.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("STORE", StorePostgres)
	v.SetDefault("CREDENTIAL_TTL", "720h")
	v.SetDefault("CAPTCHA_SCORE", 0.5)
	v.SetDefault("CAPTCHA_ACTION", "post")
	v.SetDefault("MAIL_TOPIC", "mail.outbound")
	v.SetDefault("MAIL_TIMEOUT", "5s")
	v.SetDefault("S3_BUCKET", "media")
	v.SetDefault("S3_USE_SSL", false)
	v.SetDefault("MEDIA_PRESIGN_TTL", "1m")
	v.SetDefault("MEDIA_MAX_UPLOAD", 10<<20)
	v.SetDefault("CREATE_RATE_LIMIT", 10)
	v.SetDefault("CREATE_RATE_WINDOW", "1h")
	v.SetDefault("ORPHAN_MEDIA_TTL", "24h")
	v.SetDefault("ORPHAN_SWEEP_SCHEDULE", "@hourly")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("CORS_ORIGINS", "*")
}

// Load reads .env (if present), config.yaml (if present) and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[CONFIG] No .env file found, using environment only")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from v, reading the environment for any key v
// does not already hold.
func FromViper(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		DatabaseURL:         v.GetString("DATABASE_URL"),
		Port:                v.GetString("APP_PORT"),
		Environment:         v.GetString("APP_ENV"),
		Store:               strings.ToLower(v.GetString("STORE")),
		CredentialSecret:    v.GetString("CREDENTIAL_SECRET"),
		CredentialTTL:       v.GetDuration("CREDENTIAL_TTL"),
		CaptchaSecret:       v.GetString("CAPTCHA_SECRET"),
		CaptchaScore:        v.GetFloat64("CAPTCHA_SCORE"),
		CaptchaAction:       v.GetString("CAPTCHA_ACTION"),
		KafkaBrokers:        splitList(v.GetString("KAFKA_BROKERS")),
		MailTopic:           v.GetString("MAIL_TOPIC"),
		MailTimeout:         v.GetDuration("MAIL_TIMEOUT"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		CreateRateLimit:     v.GetInt("CREATE_RATE_LIMIT"),
		CreateRateWindow:    v.GetDuration("CREATE_RATE_WINDOW"),
		OrphanMediaTTL:      v.GetDuration("ORPHAN_MEDIA_TTL"),
		OrphanSweepSchedule: v.GetString("ORPHAN_SWEEP_SCHEDULE"),
		OTLPEndpoint:        v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		PublicBaseURL:       strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		CORSOrigins:         splitList(v.GetString("CORS_ORIGINS")),
		PresignTTL:          v.GetDuration("MEDIA_PRESIGN_TTL"),
		MaxUploadSize:       v.GetInt64("MEDIA_MAX_UPLOAD"),
		S3: S3Config{
			Endpoint:  v.GetString("S3_ENDPOINT"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			Bucket:    v.GetString("S3_BUCKET"),
			Region:    v.GetString("S3_REGION"),
			UseSSL:    v.GetBool("S3_USE_SSL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE=%s", StorePostgres)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	if len(c.CredentialSecret) < 32 {
		return fmt.Errorf("CREDENTIAL_SECRET must be at least 32 characters")
	}
	if c.CaptchaScore < 0 || c.CaptchaScore >= 1 {
		return fmt.Errorf("CAPTCHA_SCORE must be in [0, 1), got %v", c.CaptchaScore)
	}
	if len(c.KafkaBrokers) > 0 && c.MailTopic == "" {
		return fmt.Errorf("MAIL_TOPIC is required when KAFKA_BROKERS is set")
	}
	if c.CreateRateLimit < 0 {
		return fmt.Errorf("CREATE_RATE_LIMIT must not be negative")
	}
	return nil
}

// VerifyURLBase is where verification links in mail point to
func (c *Config) VerifyURLBase() string {
	return c.PublicBaseURL + "/posts/v/"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
