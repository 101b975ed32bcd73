package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=dealership port=5432 sslmode=disable"

type Config struct {
	HTTPPort       string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"` // postgres | sqlite
	DatabaseDSN    string `env:"DATABASE_DSN" envDefault:"host=localhost user=postgres password=postgres dbname=dealership port=5432 sslmode=disable"`
	JWTSecret      string `env:"JWT_SECRET"`
	CORSOrigins    string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173"`

	// Commission rule definitions, loaded once at startup.
	RulesFile       string `env:"COMMISSION_RULES_FILE" envDefault:"./config/commission_rules.json"`
	PaymentTermDays int    `env:"COMMISSION_PAYMENT_TERM_DAYS" envDefault:"30"`

	// Empty REDIS_URL disables event publishing.
	RedisURL      string `env:"REDIS_URL"`
	EventsChannel string `env:"COMMISSION_EVENTS_CHANNEL" envDefault:"commission-events"`

	GoalRefreshInterval time.Duration `env:"GOAL_REFRESH_INTERVAL" envDefault:"15m"`

	// Per-user throttle for approve/reject/pay/adjust.
	CommandRateLimit float64 `env:"COMMAND_RATE_LIMIT" envDefault:"2"`
	CommandRateBurst int     `env:"COMMAND_RATE_BURST" envDefault:"4"`
}

// Parse reads the environment without applying the production checks.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver)
	}
	if c.PaymentTermDays < 0 {
		return fmt.Errorf("COMMISSION_PAYMENT_TERM_DAYS must not be negative")
	}
	if c.CommandRateLimit <= 0 || c.CommandRateBurst <= 0 {
		return fmt.Errorf("COMMAND_RATE_LIMIT and COMMAND_RATE_BURST must be positive")
	}
	if c.GoalRefreshInterval < 0 {
		return fmt.Errorf("GOAL_REFRESH_INTERVAL must not be negative")
	}
	return nil
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] .env dosyası bulunamadı, yalnızca ortam değişkenleri kullanılıyor")
	}

	cfg, err := Parse()
	if err != nil {
		log.Fatalf("[FATAL] Konfigürasyon okunamadı: %v", err)
	}

	// Production güvenlik kontrolleri
	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET environment değişkeni tanımlanmamış! Production için zorunludur.")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET en az 32 karakter olmalıdır! Güvenlik riski.")
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN varsayılan değer kullanılıyor, production için mutlaka kendi Postgres bağlantı bilgisini tanımla.")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS varsayılan değer kullanılıyor, production için mutlaka kendi domain'ini tanımla.")
	}
	if cfg.RedisURL == "" {
		log.Println("[WARN] REDIS_URL tanımlı değil, komisyon olayları yayınlanmayacak.")
	}

	return cfg
}
