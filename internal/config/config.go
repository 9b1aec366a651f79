package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the marketplace API.
type Config struct {
	Env     string
	AppPort string

	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	DatabaseDSN   string

	JWTSecret            string
	UsingDevSecret       bool
	JWTTTL               time.Duration
	OTPTTL               time.Duration
	OTPPurgeInterval     time.Duration
	ResetRequestsPerHour int

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	CORSOrigins   []string
	AdminEmails   []string
	AuthRateLimit int

	UploadDriver string
	UploadDir    string
	S3Bucket     string
	S3PublicURL  string

	RedisURL    string
	CacheTTL    time.Duration
	RabbitMQURL string

	SeedCatalog bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("STORE_DRIVER", "mongo")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "tradehub")
	v.SetDefault("DATABASE_DSN", "file:tradehub.db")
	v.SetDefault("JWT_TTL", "168h")
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("OTP_PURGE_INTERVAL", "5m")
	v.SetDefault("RESET_REQUESTS_PER_HOUR", 5)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MAIL_FROM", "no-reply@tradehub.local")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("AUTH_RATE_LIMIT", 20)
	v.SetDefault("UPLOAD_DRIVER", "local")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("CACHE_TTL", "5m")
}

// Load reads an optional .env file, then environment variables on top of defaults.
func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:                  v.GetString("APP_ENV"),
		AppPort:              v.GetString("APP_PORT"),
		StoreDriver:          strings.ToLower(v.GetString("STORE_DRIVER")),
		MongoURI:             v.GetString("MONGO_URI"),
		MongoDatabase:        v.GetString("MONGO_DATABASE"),
		DatabaseDSN:          v.GetString("DATABASE_DSN"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		JWTTTL:               v.GetDuration("JWT_TTL"),
		OTPTTL:               v.GetDuration("OTP_TTL"),
		OTPPurgeInterval:     v.GetDuration("OTP_PURGE_INTERVAL"),
		ResetRequestsPerHour: v.GetInt("RESET_REQUESTS_PER_HOUR"),
		SMTPHost:             v.GetString("SMTP_HOST"),
		SMTPPort:             v.GetInt("SMTP_PORT"),
		SMTPUser:             v.GetString("SMTP_USER"),
		SMTPPassword:         v.GetString("SMTP_PASSWORD"),
		MailFrom:             v.GetString("MAIL_FROM"),
		CORSOrigins:          splitList(v.GetString("CORS_ORIGINS")),
		AdminEmails:          splitList(strings.ToLower(v.GetString("ADMIN_EMAILS"))),
		AuthRateLimit:        v.GetInt("AUTH_RATE_LIMIT"),
		UploadDriver:         strings.ToLower(v.GetString("UPLOAD_DRIVER")),
		UploadDir:            v.GetString("UPLOAD_DIR"),
		S3Bucket:             v.GetString("S3_BUCKET"),
		S3PublicURL:          v.GetString("S3_PUBLIC_URL"),
		RedisURL:             v.GetString("REDIS_URL"),
		CacheTTL:             v.GetDuration("CACHE_TTL"),
		RabbitMQURL:          v.GetString("RABBITMQ_URL"),
		SeedCatalog:          v.GetBool("SEED_CATALOG"),
	}

	// Only an explicit development or test APP_ENV may run without a signing secret.
	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET must be set unless APP_ENV is development or test (APP_ENV=%q)", cfg.Env)
		}
		cfg.JWTSecret = "dev-only-secret"
		cfg.UsingDevSecret = true
	}

	switch cfg.StoreDriver {
	case "mongo", "postgres", "sqlite", "memory":
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	switch cfg.UploadDriver {
	case "local":
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when UPLOAD_DRIVER=s3")
		}
	default:
		return nil, fmt.Errorf("unsupported UPLOAD_DRIVER %q", cfg.UploadDriver)
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "test"
}

// SMTPEnabled reports whether real mail delivery is configured.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
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
