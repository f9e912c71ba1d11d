package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/application"
	"github.com/example/akiya-reservations/internal/config"
	"github.com/example/akiya-reservations/internal/drafts"
	httptransport "github.com/example/akiya-reservations/internal/http"
	"github.com/example/akiya-reservations/internal/logging"
	"github.com/example/akiya-reservations/internal/persistence/sqlite"
	"github.com/example/akiya-reservations/internal/wiring"
)

const usage = `usage: akiya <command> [flags]

commands:
  serve            run the HTTP server (default)
  migrate          apply pending schema migrations and print the schema version
  provision-admin  create an administrator account (-name, -email, -password)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve", "migrate", "provision-admin":
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, stdout)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.WithError(cerr).Error("failed to close storage")
		}
	}()

	switch command {
	case "migrate":
		return printMigrationStatus(ctx, store, logger, stdout)
	case "provision-admin":
		return provisionAdmin(ctx, cfg, store, logger, args, stdout)
	default:
		return serve(ctx, cfg, store, logger)
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*sqlite.Store, error) {
	store, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	if err := store.Migrate(ctx, logger); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return store, nil
}

func printMigrationStatus(ctx context.Context, store *sqlite.Store, logger *logrus.Logger, stdout io.Writer) error {
	status, err := store.Runner(logger).GetMigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	fmt.Fprintf(stdout, "schema version %s, %d applied, %d pending\n",
		status.CurrentVersion, len(status.AppliedMigrations), status.PendingCount)
	return nil
}

func provisionAdmin(ctx context.Context, cfg config.Config, store *sqlite.Store, logger *logrus.Logger, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("provision-admin", flag.ContinueOnError)
	flags.SetOutput(stdout)
	name := flags.String("name", "", "display name")
	email := flags.String("email", "", "login email (required)")
	password := flags.String("password", "", "initial password; falls back to AKIYA_ADMIN_PASSWORD")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("AKIYA_ADMIN_PASSWORD")
	}

	services := wiring.Build(store, wiring.Options{Location: cfg.Location, SessionTTL: cfg.SessionTTL, Logger: logger})
	user, err := services.Auth.ProvisionAdmin(ctx, application.ProvisionAdminParams{
		Name:     *name,
		Email:    *email,
		Password: *password,
	})
	if err != nil {
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			return fmt.Errorf("invalid administrator: %w", vErr)
		}
		return fmt.Errorf("failed to provision administrator: %w", err)
	}
	fmt.Fprintf(stdout, "administrator %s created (%s)\n", user.Email, user.ID)
	return nil
}

// draftBackend is the draft store plus its health check and release hook.
type draftBackend struct {
	store  application.DraftStore
	health httptransport.HealthCheck
	close  func()
}

func newDraftStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (draftBackend, error) {
	if cfg.DraftStore != config.DraftStoreRedis {
		return draftBackend{store: drafts.NewMemoryStore(time.Now), close: func() {}}, nil
	}

	store, err := drafts.DialRedis(ctx, drafts.RedisOptions{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		KeySecret: cfg.SessionSecret,
	}, logger)
	if err != nil {
		return draftBackend{}, err
	}
	return draftBackend{
		store:  store,
		health: store.Health,
		close: func() {
			if err := store.Close(); err != nil {
				logger.WithError(err).Error("failed to close redis draft store")
			}
		},
	}, nil
}

func newHandler(cfg config.Config, services wiring.Services, checks map[string]httptransport.HealthCheck, logger *logrus.Logger) (*gin.Engine, error) {
	return httptransport.NewRouter(httptransport.RouterConfig{
		Gate:         services.Gate,
		Auth:         httptransport.NewAuthHandler(services.Auth, services.Catalog, cfg.SecureCookies, logger),
		Listings:     httptransport.NewListingHandler(services.Listings, services.Catalog, logger),
		Reservations: httptransport.NewReservationHandler(services.Reservations, services.Drafts, logger),
		Pages: httptransport.NewPageHandler(httptransport.PageOptions{
			Auth:          services.Auth,
			Listings:      services.Listings,
			Catalog:       services.Catalog,
			Snapshots:     services.Catalog,
			Reservations:  services.Reservations,
			Drafts:        services.Drafts,
			StagedFlow:    cfg.StagedFlow(),
			LegacyAdmin:   cfg.LegacyAdminCodeEnabled(),
			SecureCookies: cfg.SecureCookies,
			Logger:        logger,
		}),
		HealthChecks: checks,
		CORSOrigins:  cfg.CORSOrigins,
		Logger:       logger,
	})
}

func healthChecks(store *sqlite.Store, backend draftBackend) map[string]httptransport.HealthCheck {
	checks := map[string]httptransport.HealthCheck{"sqlite": store.Pool().Ping}
	if backend.health != nil {
		checks["redis"] = backend.health
	}
	return checks
}

func serve(ctx context.Context, cfg config.Config, store *sqlite.Store, logger *logrus.Logger) error {
	backend, err := newDraftStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.close()

	if cfg.LegacyAdminCodeEnabled() {
		logger.Warn("AKIYA_LEGACY_ADMIN_CODE is set: anyone who knows the code can sign up as an administrator")
	}

	services := wiring.Build(store, wiring.Options{
		SessionTTL:      cfg.SessionTTL,
		LegacyAdminCode: cfg.LegacyAdminCode,
		Location:        cfg.Location,
		Drafts:          backend.store,
		DraftTTL:        cfg.DraftTTL,
		SnapshotTTL:     cfg.CatalogSnapshotTTL,
		Logger:          logger,
	})

	gin.SetMode(gin.ReleaseMode)
	handler, err := newHandler(cfg, services, healthChecks(store, backend), logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("failed to shutdown server")
		}
	}()

	logger.WithFields(logrus.Fields{
		"addr":             server.Addr,
		"reservation_flow": cfg.ReservationFlow,
		"draft_store":      cfg.DraftStore,
	}).Info("reservation service listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	return nil
}
