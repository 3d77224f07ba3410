package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"planning-poker/internal/config"
	"planning-poker/internal/db"
	"planning-poker/internal/journal"
	"planning-poker/internal/logger"
	"planning-poker/internal/poker"
	"planning-poker/internal/server"
	"planning-poker/internal/tree"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
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
	gin.SetMode(gin.ReleaseMode)

	mem := tree.NewMemory()
	defer mem.Close()

	conn := openDatabase(cfg, zlog)
	jrnl := journal.New(conn, zlog.Named("journal"))
	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), 30*time.Second)
	restored, err := jrnl.Restore(restoreCtx, mem)
	cancelRestore()
	if err != nil {
		zlog.Fatalw("restore rooms failed", "error", err)
	}
	if jrnl.Enabled() {
		zlog.Infow("rooms restored", "leaves", restored)
	}
	jrnl.Attach(mem)
	defer jrnl.Close()

	svc := poker.NewService(mem, poker.Options{
		HeartbeatInterval:  cfg.HeartbeatInterval(),
		PresenceTimeout:    cfg.PresenceTimeout(),
		CheckCodeCollision: cfg.CheckCodeCollision,
		Logger:             zlog.Named("poker"),
	})
	srv := server.New(svc, cfg, zlog.Named("http"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go runJanitor(ctx, svc, cfg.JanitorInterval(), zlog)

	httpServer := &http.Server{Addr: cfg.Addr(), Handler: srv.Handler()}
	go func() {
		zlog.Infow("planning-poker server listening", "addr", cfg.Addr(), "journal", jrnl.Enabled())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatalw("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Warnw("http shutdown", "error", err)
	}
}

// openDatabase returns nil when DATABASE_URL is unset; the tree then lives in
// memory only.
func openDatabase(cfg config.Config, zlog *zap.SugaredLogger) *gorm.DB {
	if cfg.DatabaseURL == "" {
		zlog.Info("DATABASE_URL not set; rooms will not survive a restart")
		return nil
	}
	conn, err := db.Open(cfg.DatabaseURL, db.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.DBConnMaxIdleTimeSeconds) * time.Second,
	})
	if err != nil {
		zlog.Fatalw("database connection failed", "error", err)
	}
	if err := db.Migrate(conn); err != nil {
		zlog.Fatalw("database migration failed", "error", err)
	}
	return conn
}

func runJanitor(ctx context.Context, svc *poker.Service, interval time.Duration, zlog *zap.SugaredLogger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := svc.SweepExpired(ctx)
			if err != nil {
				zlog.Warnw("janitor sweep failed", "error", err)
				continue
			}
			if len(swept) > 0 {
				zlog.Infow("janitor swept rooms", "count", len(swept), "room_codes", swept)
			}
		}
	}
}
