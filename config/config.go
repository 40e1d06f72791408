package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
)

type Config struct {
	Env     string
	Port    string
	BaseURL string

	MongoURI    string
	DBName      string
	MongoClient *mongo.Client

	JWTSecret string
	JWTExpiry time.Duration

	RateLimitWindow time.Duration
	RateLimitMax    int

	Admin AdminBootstrap

	UploadDir     string
	StorageDriver string
	Cloudinary    CloudinaryConfig

	CORSOrigins []string

	LogLevel  string
	LogFormat string

	MetricsEnabled bool

	Mail MailConfig
}

type AdminBootstrap struct {
	Name     string
	Email    string
	Password string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type MailConfig struct {
	Driver string // zepto or resend
	APIURL string
	APIKey string
	From   string
}

// Enabled reports whether enough is configured to send mail.
func (m MailConfig) Enabled() bool {
	if m.APIKey == "" || m.From == "" {
		return false
	}
	return m.Driver == "resend" || m.APIURL != ""
}

func loadMail() MailConfig {
	m := MailConfig{
		Driver: strings.ToLower(getEnv("MAIL_DRIVER", "zepto")),
		From:   os.Getenv("EMAIL_FROM"),
	}
	if m.Driver == "resend" {
		m.APIURL = os.Getenv("RESEND_API_URL")
		m.APIKey = os.Getenv("RESEND_API_KEY")
	} else {
		m.APIURL = os.Getenv("ZEPTO_API_URL")
		m.APIKey = os.Getenv("ZEPTO_API_KEY")
	}
	return m
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:     getEnv("APP_ENV", "development"),
		Port:    getEnv("PORT", "5000"),
		BaseURL: getEnv("BASE_URL", ""),

		MongoURI: getEnv("MONGODB_URI", ""),
		DBName:   getEnv("DB_NAME", "church"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTExpiry: getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),

		RateLimitWindow: time.Duration(getEnvInt("RATE_LIMIT_WINDOW", 15)) * time.Minute,
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 100),

		Admin: AdminBootstrap{
			Name:     getEnv("ADMIN_NAME", "Church Administrator"),
			Email:    strings.ToLower(getEnv("ADMIN_EMAIL", "admin@church.local")),
			Password: getEnv("ADMIN_PASSWORD", "admin123"),
		},

		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		},

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5500")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		Mail: loadMail(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGODB_URI is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.RateLimitMax < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX must not be negative"))
	}
	switch c.StorageDriver {
	case "local":
	case "cloudinary":
		if c.Cloudinary.CloudName == "" || c.Cloudinary.APIKey == "" || c.Cloudinary.APISecret == "" {
			errs = append(errs, errors.New("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required for the cloudinary storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	if d := c.Mail.Driver; d != "" && d != "zepto" && d != "resend" {
		errs = append(errs, fmt.Errorf("unknown MAIL_DRIVER %q", c.Mail.Driver))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
