package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestFromViper_Defaults(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("CREDENTIAL_SECRET", testSecret)

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 0.5, cfg.CaptchaScore)
	assert.Equal(t, "post", cfg.CaptchaAction)
	assert.Equal(t, 30*24*time.Hour, cfg.CredentialTTL)
	assert.Equal(t, 5*time.Second, cfg.MailTimeout)
	assert.Equal(t, 24*time.Hour, cfg.OrphanMediaTTL)
	assert.Equal(t, "@hourly", cfg.OrphanSweepSchedule)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadSize)
	assert.Equal(t, time.Minute, cfg.PresignTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "http://localhost:8080/posts/v/", cfg.VerifyURLBase())
}

func TestFromViper_Environment(t *testing.T) {
	t.Setenv("STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/curbside")
	t.Setenv("CREDENTIAL_SECRET", testSecret)
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("CAPTCHA_SCORE", "0.7")
	t.Setenv("PUBLIC_BASE_URL", "https://curbside.example/")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 0.7, cfg.CaptchaScore)
	assert.Equal(t, "https://curbside.example/posts/v/", cfg.VerifyURLBase())
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "postgres without url", env: map[string]string{"STORE": "postgres", "CREDENTIAL_SECRET": testSecret}},
		{name: "unknown store", env: map[string]string{"STORE": "sqlite", "CREDENTIAL_SECRET": testSecret}},
		{name: "short secret", env: map[string]string{"STORE": "memory", "CREDENTIAL_SECRET": "short"}},
		{name: "score out of range", env: map[string]string{"STORE": "memory", "CREDENTIAL_SECRET": testSecret, "CAPTCHA_SCORE": "1.5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromViper(viper.New())
			assert.Error(t, err)
		})
	}
}
