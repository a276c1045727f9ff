package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/yeremiapane/restroflow/utils"
)

const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config is read once at startup from the environment (and an optional .env).
type Config struct {
	Port    string
	GinMode string

	DBDriver    string
	DatabaseURL string
	SeedTables  bool

	AdminUser     string
	AdminPassword string
	JWTSecret     string
	TokenTTL      time.Duration

	AMQPURL string

	AllocateOnToggle   bool
	DefaultCountryCode string
	Timezone           *time.Location

	LogLevel      string
	MetricsPrefix string

	// Login attempts per second per client IP, and burst.
	LoginRate  float64
	LoginBurst int

	AllowedOrigins []string
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Debug("No .env file loaded")
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables, applying
// defaults for everything optional.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:               "8080",
		GinMode:            "debug",
		DBDriver:           DriverSQLite,
		DatabaseURL:        "restroflow.db",
		SeedTables:         true,
		AdminUser:          "admin",
		TokenTTL:           12 * time.Hour,
		AllocateOnToggle:   true,
		DefaultCountryCode: "+91",
		LogLevel:           "info",
		MetricsPrefix:      "restroflow",
		LoginRate:          1,
		LoginBurst:         5,
		AllowedOrigins:     []string{"*"},
	}

	invalid := make([]string, 0, 2)
	missing := make([]string, 0, 1)

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				invalid = append(invalid, key)
				return
			}
			*dst = b
		}
	}

	str("PORT", &cfg.Port)
	str("GIN_MODE", &cfg.GinMode)
	str("DB_DRIVER", &cfg.DBDriver)
	str("DATABASE_URL", &cfg.DatabaseURL)
	boolean("SEED_TABLES", &cfg.SeedTables)
	str("ADMIN_USER", &cfg.AdminUser)
	str("ADMIN_PASSWORD", &cfg.AdminPassword)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("AMQP_URL", &cfg.AMQPURL)
	boolean("ALLOCATE_ON_TOGGLE", &cfg.AllocateOnToggle)
	str("DEFAULT_COUNTRY_CODE", &cfg.DefaultCountryCode)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("METRICS_PREFIX", &cfg.MetricsPrefix)

	cfg.DBDriver = strings.ToLower(cfg.DBDriver)
	switch cfg.DBDriver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		invalid = append(invalid, "DB_DRIVER")
	}

	if !strings.HasPrefix(cfg.DefaultCountryCode, "+") {
		invalid = append(invalid, "DEFAULT_COUNTRY_CODE")
	}

	if v := strings.TrimSpace(os.Getenv("TOKEN_TTL")); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "TOKEN_TTL")
		} else {
			cfg.TokenTTL = ttl
		}
	}

	tz := "Asia/Kolkata"
	str("TIMEZONE", &tz)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		invalid = append(invalid, "TIMEZONE")
	} else {
		cfg.Timezone = loc
	}

	if v := strings.TrimSpace(os.Getenv("LOGIN_RATE")); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate <= 0 {
			invalid = append(invalid, "LOGIN_RATE")
		} else {
			cfg.LoginRate = rate
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOGIN_BURST")); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "LOGIN_BURST")
		} else {
			cfg.LoginBurst = burst
		}
	}

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if cfg.AdminPassword == "" {
		missing = append(missing, "ADMIN_PASSWORD")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}
