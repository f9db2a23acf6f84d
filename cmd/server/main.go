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

	"user-auth-service/internal/auth/handler"
	"user-auth-service/internal/auth/oauth"
	authservice "user-auth-service/internal/auth/service"
	"user-auth-service/internal/config"
	"user-auth-service/internal/db"
	"user-auth-service/internal/security"
	"user-auth-service/internal/server"
	sessionrepo "user-auth-service/internal/session/repository"
	otelsetup "user-auth-service/internal/telemetry/otel"
	userrepo "user-auth-service/internal/user/repository"
	userservice "user-auth-service/internal/user/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "user-auth-service", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)

	hasher := security.NewHasher(cfg.BcryptCost)
	tokens := security.NewTokenProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())

	directory := userservice.NewDirectory(users, hasher)
	auth := authservice.NewAuthService(directory, sessions, hasher, tokens)

	google := oauth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	events := otelsetup.NewEventEmitter(providers.LoggerProvider)

	srv := server.New(cfg.HTTPAddr, handler.NewAuthHandler(auth, google, events), auth)

	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go reapSessions(reaperCtx, sessions, cfg.ReapInterval())

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

// reapSessions periodically deletes session rows whose expiry has passed.
// Expired sessions are already rejected at refresh time; this keeps the table
// from growing without bound.
func reapSessions(ctx context.Context, sessions *sessionrepo.PostgresRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				log.Printf("session reaper: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("session reaper: removed %d expired sessions", n)
			}
		}
	}
}
