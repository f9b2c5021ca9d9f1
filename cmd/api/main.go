package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"claimguru/api/internal/app"
	"claimguru/api/internal/archive"
	"claimguru/api/internal/authpw"
	"claimguru/api/internal/config"
	"claimguru/api/internal/email"
	"claimguru/api/internal/search"
	"claimguru/api/internal/session"
	"claimguru/api/internal/store"
	"claimguru/api/internal/wizard"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.New(db)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)

	// Refresh tokens and live wizard registries share the Redis connection;
	// without Redis both fall back to in-process storage.
	var refreshStore interface {
		SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
		LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
		RevokeRefreshSession(ctx context.Context, tokenHash string) error
	}
	var wizardStates session.WizardStateStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for session and wizard state storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		refreshStore = redisStore
		wizardStates = session.NewRedisWizardState(redisStore.Client(), cfg.ProgressTTL)
	} else {
		log.Printf("Using in-process session and wizard state storage")
		refreshStore = session.NewMemoryStore()
		wizardStates = session.NewMemoryWizardState(cfg.ProgressTTL)
	}

	var archiveStore *archive.Store
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		archiveStore, err = archive.New(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("document archive setup failed: %v", err)
		}
	}

	emailService := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if !emailService.IsConfigured() {
		log.Printf("SMTP not configured; verification and reminder emails disabled")
	}

	wizardService := wizard.NewService(dataStore, log.Default(), cfg.ProgressTTL, cfg.ReminderLead)
	authService := authpw.NewService(dataStore)

	service := app.New(cfg, dataStore, refreshStore, wizardService, wizardStates, authService, emailService, searchService, archiveStore)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	go runSweeper(bgCtx, service, cfg.SweepInterval)
	go runReminderDispatch(bgCtx, service, cfg.ReminderInterval)
	if meiliClient != nil {
		go searchService.ReindexAllFromPG(bgCtx)
	}

	go func() {
		log.Printf("ClaimGuru API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// runSweeper periodically removes wizard progress rows past their expiry.
func runSweeper(ctx context.Context, service *app.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := service.CleanupExpiredWizards(ctx)
			if err != nil {
				log.Printf("wizard sweep failed: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("wizard sweep removed %d expired sessions", removed)
			}
		}
	}
}

// runReminderDispatch emails users whose wizard reminder tasks have come due.
func runReminderDispatch(ctx context.Context, service *app.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := service.DispatchDueReminders(ctx, log.Printf)
			if err != nil {
				log.Printf("reminder dispatch failed: %v", err)
				continue
			}
			if sent > 0 {
				log.Printf("reminder dispatch sent %d emails", sent)
			}
		}
	}
}
