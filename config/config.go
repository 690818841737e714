package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Log       LogConfig
	CORS      CORSConfig
	Storage   StorageConfig
	Reminders RemindersConfig
}

type AppConfig struct {
	Env  string
	Port string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	SlowThreshold   time.Duration
}

type JWTConfig struct {
	Secret string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

type CORSConfig struct {
	AllowOrigins []string
}

// StorageConfig points at the S3-compatible bucket holding tenant documents and complaint images.
type StorageConfig struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// Enabled reports whether enough is configured to talk to a bucket.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != "" && s.AccessKey != "" && s.SecretKey != ""
}

// RemindersConfig drives the overdue-rent sweep and its SMS reminders.
type RemindersConfig struct {
	Enabled          bool
	Schedule         string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
}

// Load reads configuration from .env, an optional config.yaml and the environment.
// Environment variables win over the file, the file wins over defaults.
func Load() (*Config, error) {
	// Load environment variables
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ELMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names kept from the original deployment environment.
	_ = v.BindEnv("app.port", "PORT")
	_ = v.BindEnv("database.url", "DB_URL")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")
	_ = v.BindEnv("reminders.twilio_account_sid", "TWILIO_ACCOUNT_SID")
	_ = v.BindEnv("reminders.twilio_auth_token", "TWILIO_AUTH_TOKEN")
	_ = v.BindEnv("reminders.twilio_from_number", "TWILIO_PHONE_NUMBER")

	cfg := &Config{
		App: AppConfig{
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("database.conn_max_idle_time"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		CORS: CORSConfig{
			AllowOrigins: splitList(v.GetStringSlice("cors.allow_origins")),
		},
		Storage: StorageConfig{
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Reminders: RemindersConfig{
			Enabled:          v.GetBool("reminders.enabled"),
			Schedule:         v.GetString("reminders.schedule"),
			TwilioAccountSID: v.GetString("reminders.twilio_account_sid"),
			TwilioAuthToken:  v.GetString("reminders.twilio_auth_token"),
			TwilioFromNumber: v.GetString("reminders.twilio_from_number"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.conn_max_idle_time", time.Minute)
	v.SetDefault("database.slow_threshold", 200*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("cors.allow_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.use_path_style", true)
	v.SetDefault("storage.presign_expiration", 15*time.Minute)
	v.SetDefault("reminders.enabled", false)
	v.SetDefault("reminders.schedule", "0 9 * * *") // daily at 9 AM
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if c.App.Env == "production" && c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.Reminders.Enabled && c.Reminders.Schedule == "" {
		return fmt.Errorf("reminders.schedule is required when reminders are enabled")
	}
	return nil
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
