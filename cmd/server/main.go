package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"retailops/backend/internal/cache"
	"retailops/backend/internal/config"
	"retailops/backend/internal/httpapi"
	"retailops/backend/internal/lock"
	"retailops/backend/internal/logger"
	"retailops/backend/internal/scheduler"
	"retailops/backend/internal/service"
	"retailops/backend/internal/storage"
	"retailops/backend/internal/store"
	"retailops/backend/internal/store/memory"
	pgstore "retailops/backend/internal/store/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: !cfg.Production()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalw("invalid security configuration", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL, pgstore.Options{
			MaxOpenConns: cfg.DBMaxOpenConns,
			TxRetries:    cfg.DBTxRetries,
		})
		if err != nil {
			log.Fatalw("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", "error", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Infow("repository ready", "backend", "postgres")
	} else {
		repo = memory.NewSeeded()
		log.Infow("repository ready", "backend", "memory")
	}

	var listingCache cache.ListingCache = cache.NewMemoryListingCache()
	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.RedisAddr != "" {
		client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		redisCache := cache.NewRedisListingCache(client)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warnw("redis unavailable, using process-local cache and lock", "error", err)
			_ = client.Close()
		} else {
			listingCache = redisCache
			locker = lock.NewRedisLocker(client)
			closers = append(closers, client.Close)
			log.Infow("cache ready", "backend", "redis")
		}
	}

	opts := service.Options{
		Cache:       listingCache,
		CacheTTL:    cfg.ListingCacheTTL,
		ImageURLTTL: cfg.ImageURLTTL,
	}
	if cfg.ImageStorageEnabled() {
		images, err := storage.NewR2Storage(ctx, storage.Config{
			Endpoint:        cfg.R2Endpoint,
			Bucket:          cfg.R2Bucket,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			PublicBase:      cfg.R2PublicBase,
		})
		if err != nil {
			log.Fatalw("image storage misconfigured", "error", err)
		}
		opts.Images = images
	} else {
		log.Warnw("image storage disabled; image endpoints will answer 503")
	}

	svc := service.New(repo, opts)
	if created, err := svc.EnsureAdmin(ctx, cfg.SeedAdminUsername, cfg.SeedAdminPassword); err != nil {
		log.Fatalw("seed admin", "error", err)
	} else if created {
		log.Infow("seed admin created", "username", cfg.SeedAdminUsername)
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, svc)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	runCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	if cfg.DailyJobEnabled {
		job := scheduler.NewDailyJob(svc, locker, cfg.DailyJobHour)
		go job.Run(runCtx)
	}

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infow("retail ops backend listening", "addr", cfg.Address())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server error", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	stopJobs()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("shutdown error", "error", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Errorw("close error", "error", err)
		}
	}

	log.Infow("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if cfg.Production() && len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters in production")
	}
	if cfg.SeedAdminPassword == "" {
		return nil
	}
	if len(cfg.SeedAdminPassword) < 8 {
		return fmt.Errorf("SEED_ADMIN_PASSWORD must be at least 8 characters")
	}
	if err := validatePasswordStrength(cfg.SeedAdminPassword); err != nil {
		return fmt.Errorf("SEED_ADMIN_PASSWORD is too weak: %w", err)
	}
	return nil
}

// validatePasswordStrength rejects well-known passwords, single repeated
// characters and straight runs such as "12345678" or "abcdefgh".
func validatePasswordStrength(password string) error {
	known := map[string]bool{
		"password": true, "password1": true, "12345678": true, "87654321": true,
		"qwertyui": true, "admin123": true, "adminadmin": true, "changeme": true,
		"iloveyou": true, "11111111": true,
	}
	if known[strings.ToLower(password)] {
		return fmt.Errorf("common password not allowed")
	}

	allSame := true
	for i := 1; i < len(password); i++ {
		if password[i] != password[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("repeated-character password not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(password); i++ {
		diff := int(password[i]) - int(password[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential password not allowed")
	}
	return nil
}
