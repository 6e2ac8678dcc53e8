package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/campusfix/campusfix/internal/accounts"
	"github.com/campusfix/campusfix/internal/httpapi"
	"github.com/campusfix/campusfix/internal/issues"
	"github.com/campusfix/campusfix/internal/notifications"
	"github.com/campusfix/campusfix/internal/passreset"
	"github.com/campusfix/campusfix/internal/storage/postgres"
	"github.com/campusfix/campusfix/internal/twofactor"
	"github.com/campusfix/campusfix/pkg/config"
	"github.com/campusfix/campusfix/pkg/filestore"
	"github.com/campusfix/campusfix/pkg/httpserver"
	"github.com/campusfix/campusfix/pkg/jwt"
	"github.com/campusfix/campusfix/pkg/logger"
	"github.com/campusfix/campusfix/pkg/mailer"
	"github.com/campusfix/campusfix/pkg/opensearch"
	"github.com/campusfix/campusfix/pkg/pg"
	"github.com/campusfix/campusfix/pkg/redis"
)

type appConfig struct {
	Env             string `env:"APP_ENV" envDefault:"development"`
	BaseURL         string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	JWTSigningKey   string `env:"JWT_SIGNING_KEY,required"`
	TwoFactorIssuer string `env:"TWOFACTOR_ISSUER" envDefault:"CampusFix"`

	// MarkerBackend selects where verified-session markers live:
	// "redis" for shared state across instances, "memory" otherwise.
	MarkerBackend string `env:"TWOFACTOR_MARKER_BACKEND" envDefault:"memory"`

	UploadsDir  string `env:"UPLOADS_DIR" envDefault:"./tmp/uploads"`
	SearchIndex string `env:"OPENSEARCH_INDEX" envDefault:"campusfix-issues"`
	ResetURL    string `env:"PASSWORD_RESET_URL" envDefault:"http://localhost:8080/reset-password"`

	Postgres   pg.Config
	Redis      redis.Config
	HTTP       httpserver.Config
	Mailer     mailer.Config
	S3         filestore.S3Config
	OpenSearch opensearch.Config
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, "campusfix"),
		logger.WithAttr(slog.String("component", "server")),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.Postgres, log); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	repo := postgres.NewRepository(pool)
	devMode := cfg.Env == "development"

	jwtSvc, err := jwt.New(cfg.JWTSigningKey)
	if err != nil {
		return fmt.Errorf("failed to init token signer: %w", err)
	}

	files, err := newFileStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}

	markers, closeMarkers, err := newMarkerStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to init marker store: %w", err)
	}
	defer closeMarkers()

	mail := newMailer(cfg, log)

	accountsSvc := accounts.NewService(repo, jwtSvc,
		accounts.WithLogger(log),
		accounts.WithFileStorage(files),
	)
	twofactorSvc := twofactor.NewService(repo, repo, markers, cfg.TwoFactorIssuer,
		twofactor.WithLogger(log),
	)
	passresetSvc := passreset.NewService(repo, repo,
		passreset.WithLogger(log),
		passreset.WithMailer(mail, cfg.ResetURL),
	)
	notifs := notifications.NewManager(repo, notifications.NoOpDeliverer{})

	issuesOpts := []issues.Option{
		issues.WithLogger(log),
		issues.WithFileStorage(files),
	}
	if cfg.OpenSearch.Enabled() {
		osClient, err := opensearch.New(ctx, cfg.OpenSearch)
		if err != nil {
			return fmt.Errorf("failed to connect to opensearch: %w", err)
		}
		issuesOpts = append(issuesOpts, issues.WithIndexer(issues.NewOpenSearchIndexer(osClient, cfg.SearchIndex)))
		log.InfoContext(ctx, "search indexing enabled", slog.String("index", cfg.SearchIndex))
	}
	issuesSvc := issues.NewService(repo, notifs, repo, issuesOpts...)

	api := httpapi.NewHandler(accountsSvc, twofactorSvc, passresetSvc, issuesSvc, notifs,
		httpapi.WithLogger(log),
		httpapi.WithDevMode(devMode),
	)

	srv := httpserver.New(cfg.HTTP, log)
	return srv.Run(ctx, api.Routes())
}

func newFileStorage(ctx context.Context, cfg appConfig) (filestore.Storage, error) {
	if cfg.S3.Bucket != "" {
		return filestore.NewS3Storage(ctx, cfg.S3)
	}
	return filestore.NewLocalStorage(cfg.UploadsDir, cfg.BaseURL+"/uploads")
}

func newMarkerStore(ctx context.Context, cfg appConfig, log *slog.Logger) (twofactor.MarkerStore, func(), error) {
	if cfg.MarkerBackend == "redis" {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		store := twofactor.NewRedisMarkerStore(client, twofactor.DefaultMarkerTTL)
		return store, func() { _ = client.Close() }, nil
	}
	store := twofactor.NewMemoryMarkerStore(twofactor.DefaultMarkerTTL, twofactor.DefaultMarkerTTL)
	log.InfoContext(ctx, "using in-memory session markers")
	return store, store.Close, nil
}

func newMailer(cfg appConfig, log *slog.Logger) mailer.EmailSender {
	if cfg.Mailer.PostmarkServerToken != "" {
		sender, err := mailer.NewPostmarkSender(cfg.Mailer)
		if err == nil {
			return sender
		}
		log.Error("failed to init postmark, falling back to dev sender", logger.Error(err))
	}
	return mailer.NewDevSender(cfg.Mailer.DevDir)
}
