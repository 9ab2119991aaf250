// Package config loads service settings from configs/.env, the process
// environment (BILLING_ prefix) and built-in defaults, in that order of
// precedence from lowest to highest: defaults < .env < environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "BILLING"

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Billing  BillingConfig
	Cart     CartConfig
}

type AppConfig struct {
	Name string
	Env  string
	Port string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	LogLevel     string // silent, error, warn, info
}

// DSN builds the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

type HTTPConfig struct {
	CORSAllowOrigins []string
}

// BillingConfig tunes document creation
type BillingConfig struct {
	// StoreMode is "transactional" (multi-row writes roll back together) or
	// "sequential" (each write commits alone, failures surface as partial writes).
	StoreMode        string
	PaymentTermsDays int // default due date offset for new invoices, 0 = no due date
	QuoteValidDays   int // default valid_until offset for new quotes, 0 = open ended
}

type CartConfig struct {
	Backend string // memory, redis
	TTL     time.Duration
}

// Load reads configs/.env (if present) and the environment into a Config
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("database.host"),
			Port:         v.GetInt("database.port"),
			User:         v.GetString("database.user"),
			Password:     v.GetString("database.password"),
			DBName:       v.GetString("database.dbname"),
			SSLMode:      v.GetString("database.sslmode"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
			MaxIdleConns: v.GetInt("database.max_idle_conns"),
			LogLevel:     v.GetString("database.log_level"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
		},
		Billing: BillingConfig{
			StoreMode:        v.GetString("billing.store_mode"),
			PaymentTermsDays: v.GetInt("billing.payment_terms_days"),
			QuoteValidDays:   v.GetInt("billing.quote_valid_days"),
		},
		Cart: CartConfig{
			Backend: v.GetString("cart.backend"),
			TTL:     v.GetDuration("cart.ttl"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "billing")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "billing")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "change-me-in-production")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("http.cors_allow_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	v.SetDefault("billing.store_mode", "transactional")
	v.SetDefault("billing.payment_terms_days", 30)
	v.SetDefault("billing.quote_valid_days", 14)

	v.SetDefault("cart.backend", "memory")
	v.SetDefault("cart.ttl", 24*time.Hour)
}

func (c *Config) validate() error {
	switch c.Billing.StoreMode {
	case "transactional", "sequential":
	default:
		return fmt.Errorf("billing.store_mode must be transactional or sequential, got %q", c.Billing.StoreMode)
	}
	switch c.Cart.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cart.backend must be memory or redis, got %q", c.Cart.Backend)
	}
	if c.Billing.PaymentTermsDays < 0 || c.Billing.QuoteValidDays < 0 {
		return fmt.Errorf("billing day offsets cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.App.Env == "production" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt.secret must be at least 32 characters in production")
	}
	return nil
}
