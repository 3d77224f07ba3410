package main

import (
	"errors"
	"flag"
	"log"

	"planning-poker/internal/config"
	"planning-poker/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	down := flag.Bool("down", false, "roll back one migration instead of applying all")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zlog, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if cfg.DatabaseURL == "" {
		zlog.Fatal("DATABASE_URL is not set")
	}
	m, err := migrate.New("file://db/migrations", cfg.DatabaseURL)
	if err != nil {
		zlog.Fatalw("migration setup failed", "error", err)
	}
	if *down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		zlog.Fatalw("database migration failed", "error", err)
	}
	version, dirty, _ := m.Version()
	zlog.Infow("database migrations applied", "version", version, "dirty", dirty)
}
