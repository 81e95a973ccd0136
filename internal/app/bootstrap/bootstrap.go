package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	dataauth "juvenis/app/internal/data/auth"
	"juvenis/app/internal/data/database"
	"juvenis/app/internal/data/migrations"
	datanews "juvenis/app/internal/data/news"
	datavolume "juvenis/app/internal/data/volume"
	domainauth "juvenis/app/internal/domain/auth"
	domainllm "juvenis/app/internal/domain/llm"
	domainnews "juvenis/app/internal/domain/news"
	domainstorage "juvenis/app/internal/domain/storage"
	domainvolume "juvenis/app/internal/domain/volume"
	"juvenis/app/internal/infrastructure/llm/openai"
	"juvenis/app/internal/infrastructure/storage/localfs"
	"juvenis/app/internal/platform/config"
	"juvenis/app/internal/platform/metrics"
	presentationhttp "juvenis/app/internal/presentation/http"
)

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
	// BcryptCost overrides the password hashing cost; zero keeps the library default.
	BcryptCost int
}

type Result struct {
	VolumeService  domainvolume.Service
	NewsService    domainnews.Service
	AuthService    domainauth.Service
	StorageService domainstorage.Service
	HTTPServer     *presentationhttp.Server
	Database       *gorm.DB
	Cleanup        func() error
}

// Build composes the journal application layers and returns the constructed components.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	cfg := deps.Config

	db, err := database.Open(database.Options{Path: cfg.DBPath, Logger: deps.Logger})
	if err != nil {
		return Result{}, eris.Wrap(err, "opening database")
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := database.Close(db); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Result{}, wrapper
	}

	if err := migrations.Apply(ctx, db, deps.Logger); err != nil {
		return closeOnError(eris.Wrap(err, "running migrations"))
	}

	volumeRepo, err := datavolume.NewRepository(db, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating volume repository"))
	}
	newsRepo, err := datanews.NewRepository(db, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating news repository"))
	}
	authRepo, err := dataauth.NewRepository(db, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating auth repository"))
	}

	store, err := localfs.New(cfg.StorageRoot, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "opening file storage"))
	}

	summarizer, err := buildSummarizer(cfg.LLM, deps.Logger)
	if err != nil {
		return closeOnError(err)
	}

	volumeService, err := domainvolume.NewService(volumeRepo, deps.Logger, deps.SentryHub)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating volume service"))
	}

	newsService, err := domainnews.NewService(newsRepo, summarizer, deps.Logger, deps.SentryHub)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating news service"))
	}

	authService, err := domainauth.NewService(authRepo, domainauth.Options{
		Secret:     []byte(cfg.Session.Secret),
		TTL:        cfg.Session.TTL,
		BcryptCost: deps.BcryptCost,
	}, deps.Logger, deps.SentryHub)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating auth service"))
	}

	if cfg.Admin.Enabled() {
		admin, err := authService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return closeOnError(eris.Wrap(err, "provisioning admin account"))
		}
		if deps.Logger != nil {
			deps.Logger.WithField("user_id", admin.ID).Info("admin account provisioned")
		}
	}

	collector := metrics.New()

	storageService, err := domainstorage.NewService(domainstorage.Options{
		Store:    store,
		BaseURL:  cfg.PublicBaseURL,
		Observer: collector,
		Logger:   deps.Logger,
		Hub:      deps.SentryHub,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating storage service"))
	}

	httpServer, err := presentationhttp.NewServer(presentationhttp.Options{
		VolumeService:  volumeService,
		NewsService:    newsService,
		AuthService:    authService,
		StorageService: storageService,
		Files:          store.Handler(),
		Metrics:        collector,
		HealthChecks: []presentationhttp.HealthCheck{
			{Name: "database", Check: func(ctx context.Context) error { return database.Ping(ctx, db) }},
			{Name: "storage", Check: func(context.Context) error { return store.Check() }},
		},
		Session: presentationhttp.SessionSettings{
			CookieName: cfg.Session.CookieName,
			Secure:     cfg.Session.CookieSecure,
		},
		SummarizerEnabled: summarizer != nil,
		Logger:            deps.Logger,
		SentryHub:         deps.SentryHub,
		RateLimiter: presentationhttp.RateLimiterSettings{
			Burst:             cfg.RateLimit.Burst,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			ClientTTL:         cfg.RateLimit.ClientTTL,
		},
		TrustProxyHeaders: cfg.TrustProxy,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	cleanup := func() error {
		httpServer.Close()
		return database.Close(db)
	}

	return Result{
		VolumeService:  volumeService,
		NewsService:    newsService,
		AuthService:    authService,
		StorageService: storageService,
		HTTPServer:     httpServer,
		Database:       db,
		Cleanup:        cleanup,
	}, nil
}

// buildSummarizer returns nil when no API key is configured; extracts then stay manual.
func buildSummarizer(cfg config.LLMConfig, logger *logrus.Logger) (domainllm.Summarizer, error) {
	if !cfg.Enabled() {
		if logger != nil {
			logger.Info("llm api key not set, news extract generation disabled")
		}
		return nil, nil
	}

	client, err := openai.NewClient(openai.ClientOptions{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.Endpoint,
		Logger:  logger,
	})
	if err != nil {
		return nil, eris.Wrap(err, "creating llm client")
	}

	summarizer, err := openai.NewSummarizer(openai.SummarizerOptions{
		Client: client,
		Model:  cfg.Model,
	})
	if err != nil {
		return nil, eris.Wrap(err, "initialising llm summarizer")
	}
	return summarizer, nil
}
