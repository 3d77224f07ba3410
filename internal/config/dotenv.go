package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Port        string   `env:"PORT" envDefault:"8080"`
	DatabaseURL string   `env:"DATABASE_URL"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	LogEncoding string   `env:"LOG_ENCODING" envDefault:"json"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	HeartbeatSeconds       int  `env:"HEARTBEAT_SECONDS" envDefault:"10"`
	PresenceTimeoutSeconds int  `env:"PRESENCE_TIMEOUT_SECONDS" envDefault:"45"`
	CheckCodeCollision     bool `env:"CHECK_CODE_COLLISION" envDefault:"false"`
	JanitorMinutes         int  `env:"JANITOR_MINUTES" envDefault:"10"`

	DBMaxOpenConns           int `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdleConns           int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeSeconds int `env:"DB_CONN_MAX_LIFETIME_SECONDS" envDefault:"300"`
	DBConnMaxIdleTimeSeconds int `env:"DB_CONN_MAX_IDLE_SECONDS" envDefault:"60"`
}

func Default() Config {
	return Config{
		Port:                     "8080",
		LogLevel:                 "info",
		LogEncoding:              "json",
		HeartbeatSeconds:         10,
		PresenceTimeoutSeconds:   45,
		JanitorMinutes:           10,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
	}
}

// Load reads the environment on top of the defaults.
func Load() (Config, error) {
	cfg := Default()
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.HeartbeatSeconds < 0 {
		cfg.HeartbeatSeconds = 0
	}
	if cfg.PresenceTimeoutSeconds < 0 {
		cfg.PresenceTimeoutSeconds = 0
	}
	// Without heartbeats nobody refreshes lastSeen, so pruning would evict
	// every participant once the timeout passed.
	if cfg.HeartbeatSeconds == 0 {
		cfg.PresenceTimeoutSeconds = 0
	}
	if cfg.PresenceTimeoutSeconds > 0 && cfg.PresenceTimeoutSeconds <= cfg.HeartbeatSeconds {
		cfg.PresenceTimeoutSeconds = cfg.HeartbeatSeconds * 3
	}
	return cfg, nil
}

func (c Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

func (c Config) PresenceTimeout() time.Duration {
	return time.Duration(c.PresenceTimeoutSeconds) * time.Second
}

// JanitorInterval is how often the server sweeps expired rooms nobody
// opens. Zero disables the janitor.
func (c Config) JanitorInterval() time.Duration {
	if c.JanitorMinutes <= 0 {
		return 0
	}
	return time.Duration(c.JanitorMinutes) * time.Minute
}

func (c Config) Addr() string {
	return ":" + c.Port
}
