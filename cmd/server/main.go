package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/worldzhy/newbie.saas/internal/apikey"
	apikeyrepo "github.com/worldzhy/newbie.saas/internal/apikey/repository"
	"github.com/worldzhy/newbie.saas/internal/audit"
	auditrepo "github.com/worldzhy/newbie.saas/internal/audit/repository"
	"github.com/worldzhy/newbie.saas/internal/auth"
	backupcoderepo "github.com/worldzhy/newbie.saas/internal/backupcode/repository"
	"github.com/worldzhy/newbie.saas/internal/config"
	"github.com/worldzhy/newbie.saas/internal/db"
	"github.com/worldzhy/newbie.saas/internal/email"
	"github.com/worldzhy/newbie.saas/internal/geolocation"
	"github.com/worldzhy/newbie.saas/internal/httpapi"
	"github.com/worldzhy/newbie.saas/internal/membership"
	membershiprepo "github.com/worldzhy/newbie.saas/internal/membership/repository"
	"github.com/worldzhy/newbie.saas/internal/mfa/sms"
	"github.com/worldzhy/newbie.saas/internal/ratelimit"
	"github.com/worldzhy/newbie.saas/internal/security"
	sessionrepo "github.com/worldzhy/newbie.saas/internal/session/repository"
	subnetrepo "github.com/worldzhy/newbie.saas/internal/subnet/repository"
	"github.com/worldzhy/newbie.saas/internal/team"
	teamrepo "github.com/worldzhy/newbie.saas/internal/team/repository"
	"github.com/worldzhy/newbie.saas/internal/telemetry/otel"
	"github.com/worldzhy/newbie.saas/internal/user"
	userrepo "github.com/worldzhy/newbie.saas/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "newbie-saas", false)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer providers.Shutdown(context.Background())

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience)
	hasher := security.NewHasher(cfg.BcryptCost)

	users := userrepo.NewPostgresRepository(database)
	sessions := sessionrepo.NewPostgresRepository(database)
	memberships := membershiprepo.NewPostgresRepository(database)
	teams := teamrepo.NewPostgresRepository(database)
	backupCodes := backupcoderepo.NewPostgresRepository(database)
	subnets := subnetrepo.NewPostgresRepository(database)
	apiKeys := apikeyrepo.NewPostgresRepository(database)
	auditLogs := auditrepo.NewPostgresRepository(database)

	auditor := audit.NewLogger(auditLogs)

	var mailer email.Mailer
	if cfg.EmailAPIKey != "" && cfg.EmailBaseURL != "" {
		mailer = email.NewHTTPMailer(cfg.EmailAPIKey, cfg.EmailBaseURL, cfg.EmailFrom)
	}
	var smsSender sms.Sender
	if cfg.SMSLocalAPIKey != "" {
		smsSender = sms.NewSMSLocalClient(cfg.SMSLocalAPIKey, cfg.SMSLocalBaseURL, cfg.SMSLocalSender)
	}
	var geo geolocation.Resolver
	if cfg.GeolocationBaseURL != "" {
		geo = geolocation.NewHTTPResolver(cfg.GeolocationBaseURL, 1000, time.Hour)
	}

	authService := auth.NewService(auth.Config{
		Users:       users,
		Sessions:    sessions,
		Memberships: memberships,
		BackupCodes: backupCodes,
		Subnets:     subnets,
		Hasher:      hasher,
		Tokens:      tokens,
		Mailer:      mailer,
		SMS:         smsSender,
		Geo:         geo,
		Audit:       auditor,
		AccessTTL:   cfg.AccessTTL(),
		TotpSkew:    uint(cfg.TotpSkew),
		TotpIssuer:  cfg.JWTIssuer,
		FrontendURL: cfg.FrontendURL,
	})
	apiKeyService := apikey.NewService(apiKeys, users, memberships, cfg.APIKeyCacheSize, cfg.APIKeyTTL())
	userService := user.NewService(users, sessions, auditor)
	membershipService := membership.NewService(memberships, sessions, apiKeyService, auditor)
	teamService := team.NewService(teams, memberships, sessions, apiKeyService, auditor)

	server := httpapi.NewServer(httpapi.Config{
		Auth:        authService,
		Users:       userService,
		Teams:       teamService,
		Memberships: membershipService,
		APIKeys:     apiKeyService,
		Subnets:     subnets,
		AuditLogs:   auditLogs,
		Audit:       auditor,
		Tokens:      tokens,
		PublicTier:  ratelimit.Tier{Requests: cfg.RateLimitPublic, Window: time.Minute},
		UserTier:    ratelimit.Tier{Requests: cfg.RateLimitUser, Window: time.Minute},
		APIKeyTier:  ratelimit.Tier{Requests: cfg.RateLimitAPIKey, Window: time.Minute},
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
