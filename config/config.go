package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	Store          string        `mapstructure:"STORE"`
	DBURI          string        `mapstructure:"DB_URI"`
	DBName         string        `mapstructure:"DB_NAME"`
	DBTimeout      time.Duration `mapstructure:"DB_TIMEOUT"`
	DBTransactions bool          `mapstructure:"DB_TRANSACTIONS"`
	AccessToken    string        `mapstructure:"ACCESS_TOKEN"`
	TokenTTL       time.Duration `mapstructure:"TOKEN_TTL"`
	StripeKey      string        `mapstructure:"STRIPE_SK"`
	CORSOrigins    string        `mapstructure:"CORS_ORIGINS"`

	CloudinaryCloudName string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `mapstructure:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder    string `mapstructure:"CLOUDINARY_FOLDER"`

	SMTPHost  string `mapstructure:"SMTP_HOST"`
	SMTPPort  int    `mapstructure:"SMTP_PORT"`
	EmailUser string `mapstructure:"EMAIL_USER"`
	EmailPass string `mapstructure:"EMAIL_PASS"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	ReminderCron          string `mapstructure:"REMINDER_CRON"`
	AppointmentDateLayout string `mapstructure:"APPOINTMENT_DATE_LAYOUT"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "STORE", "DB_URI", "DB_NAME", "DB_TIMEOUT", "DB_TRANSACTIONS",
	"ACCESS_TOKEN", "TOKEN_TTL", "STRIPE_SK", "CORS_ORIGINS",
	"CLOUDINARY_CLOUD_NAME", "CLOUDINARY_API_KEY", "CLOUDINARY_API_SECRET", "CLOUDINARY_FOLDER",
	"SMTP_HOST", "SMTP_PORT", "EMAIL_USER", "EMAIL_PASS",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"REMINDER_CRON", "APPOINTMENT_DATE_LAYOUT",
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may already carry everything.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE", StoreMongo)
	v.SetDefault("DB_NAME", "doctorsPortal")
	v.SetDefault("DB_TIMEOUT", "10s")
	v.SetDefault("DB_TRANSACTIONS", true)
	v.SetDefault("TOKEN_TTL", "12h")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("CLOUDINARY_FOLDER", "doctors")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("REMINDER_CRON", "0 8 * * *")
	v.SetDefault("APPOINTMENT_DATE_LAYOUT", "Jan 2, 2006")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("ACCESS_TOKEN is required")
	}
	switch c.Store {
	case StoreMongo:
		if c.DBURI == "" {
			return fmt.Errorf("DB_URI is required when STORE is %q", StoreMongo)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StoreMongo, StoreMemory, c.Store)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

// MailEnabled reports whether SMTP settings are present.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.EmailUser != ""
}

func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func (c *Config) AllowedOrigins() string {
	return strings.ReplaceAll(c.CORSOrigins, " ", "")
}
