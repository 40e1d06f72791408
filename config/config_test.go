package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("PORT", "")
	t.Setenv("RATE_LIMIT_WINDOW", "")
	t.Setenv("RATE_LIMIT_MAX", "")
	t.Setenv("JWT_EXPIRY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "local", cfg.StorageDriver)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 100, cfg.RateLimitMax)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiry)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("RATE_LIMIT_WINDOW", "5")
	t.Setenv("RATE_LIMIT_MAX", "20")
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("ADMIN_EMAIL", "Pastor@Church.org")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 20, cfg.RateLimitMax)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, "pastor@church.org", cfg.Admin.Email)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestValidateMissingRequired(t *testing.T) {
	cfg := &Config{StorageDriver: "local"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGODB_URI is required")
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestValidateCloudinaryNeedsCredentials(t *testing.T) {
	cfg := &Config{MongoURI: "mongodb://x", JWTSecret: "s", StorageDriver: "cloudinary"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLOUDINARY_CLOUD_NAME")

	cfg.Cloudinary = CloudinaryConfig{CloudName: "c", APIKey: "k", APISecret: "s"}
	assert.NoError(t, cfg.Validate())
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := &Config{MongoURI: "mongodb://x", JWTSecret: "s", StorageDriver: "s3"}
	assert.ErrorContains(t, cfg.Validate(), `unknown STORAGE_DRIVER "s3"`)
}

func TestLoadMailDriver(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MAIL_DRIVER", "resend")
	t.Setenv("RESEND_API_KEY", "re_123")
	t.Setenv("ZEPTO_API_KEY", "zepto-key")
	t.Setenv("EMAIL_FROM", "noreply@church.local")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "resend", cfg.Mail.Driver)
	assert.Equal(t, "re_123", cfg.Mail.APIKey)
	assert.True(t, cfg.Mail.Enabled())
}

func TestMailEnabled(t *testing.T) {
	assert.False(t, MailConfig{Driver: "zepto", APIKey: "k", From: "f"}.Enabled(), "zepto needs an endpoint")
	assert.True(t, MailConfig{Driver: "zepto", APIURL: "https://api", APIKey: "k", From: "f"}.Enabled())
	assert.False(t, MailConfig{Driver: "resend", From: "f"}.Enabled())
}

func TestValidateUnknownMailDriver(t *testing.T) {
	cfg := &Config{MongoURI: "mongodb://x", JWTSecret: "s", StorageDriver: "local", Mail: MailConfig{Driver: "smtp"}}
	assert.ErrorContains(t, cfg.Validate(), `unknown MAIL_DRIVER "smtp"`)
}
