package main

import (
	"context"
	"flag"
	"log"
	"time"

	"planning-poker/internal/config"
	"planning-poker/internal/db"
	"planning-poker/internal/journal"
	"planning-poker/internal/logger"
	"planning-poker/internal/poker"
	"planning-poker/internal/tree"
)

// Removes expired rooms from the journal database without starting a server.
func main() {
	dryRun := flag.Bool("dry-run", false, "list expired rooms without deleting them")
	timeout := flag.Duration("timeout", time.Minute, "overall timeout")
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

	conn, err := db.Open(cfg.DatabaseURL, db.PoolOptions{MaxOpenConns: 2})
	if err != nil {
		zlog.Fatalw("database connection failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	mem := tree.NewMemory()
	defer mem.Close()
	jrnl := journal.New(conn, zlog.Named("journal"))
	restored, err := jrnl.Restore(ctx, mem)
	if err != nil {
		zlog.Fatalw("restore rooms failed", "error", err)
	}
	if !*dryRun {
		jrnl.Attach(mem)
	}

	svc := poker.NewService(mem, poker.Options{Logger: zlog.Named("poker")})
	swept, err := svc.SweepExpired(ctx)
	jrnl.Close()
	if err != nil {
		zlog.Fatalw("sweep failed", "error", err, "swept", swept)
	}
	zlog.Infow("sweep complete", "leaves", restored, "expired", len(swept), "room_codes", swept, "dry_run", *dryRun)
}
