// Package app assembles the API: repositories, storage, services, worker pool
// and router, chosen from the loaded configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/rs/zerolog"

	"outfitlens/internal/adapter/repo"
	"outfitlens/internal/auth"
	"outfitlens/internal/domain"
	"outfitlens/internal/events"
	"outfitlens/internal/generation"
	"outfitlens/internal/http/handlers"
	"outfitlens/internal/http/httpapi"
	"outfitlens/internal/i18n"
	"outfitlens/internal/infra"
	"outfitlens/internal/infra/geoip"
	"outfitlens/internal/storage"
	"outfitlens/internal/uploads"
)

// Server is a fully wired API instance.
type Server struct {
	Handler     http.Handler
	Worker      *generation.Worker
	Auth        *auth.Service
	Uploads     *uploads.Service
	Generations *generation.Service

	closers []func()
}

type repositories struct {
	users       domain.UserRepository
	images      domain.ImageRepository
	generations domain.GenerationRepository
}

// Build wires every component described by cfg. Callers must Close the server.
func Build(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Server, error) {
	s := &Server{}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	repos, err := s.repositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	store, staticDir, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		s.closers = append(s.closers, nc.Close)
		publisher = nc
		logger.Info().Str("subject_prefix", cfg.NATSSubjectPrefix).Msg("app: publishing generation events to nats")
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("app: geoip disabled")
	}
	if resolver != nil {
		s.closers = append(s.closers, func() { _ = resolver.Close() })
	}

	s.Auth = auth.NewService(repos.users, auth.Options{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, logger)
	s.Uploads = uploads.NewService(repos.images, store, cfg.MaxUploadBytes, logger)
	s.Generations = generation.NewService(repos.generations, repos.images, publisher, logger, 0)
	s.Worker = generation.NewWorker(s.Generations, s.Uploads, generation.NewBlocklist(cfg.ModerationBlocklist), generation.WorkerOptions{
		Workers: cfg.GenerationWorkers,
		Delay:   cfg.GenerationDelay,
	}, logger)

	app := handlers.NewApp(s.Auth, s.Uploads, s.Generations, logger)
	s.Handler = httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   i18n.LocaleEnglish,
		CountryLookup:   resolver.Lookup(),
		StaticDir:       staticDir,
		Logger:          logger,
	})

	ok = true
	return s, nil
}

func (s *Server) repositories(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (repositories, error) {
	if !cfg.UsesDatabase() {
		logger.Warn().Msg("app: DATABASE_URL not set, using in-memory repositories")
		mem := repo.NewMemory()
		return repositories{users: mem.Users(), images: mem.Images(), generations: mem.Generations()}, nil
	}
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return repositories{}, err
	}
	s.closers = append(s.closers, pool.Close)
	runner := infra.NewSQLRunner(pool, logger)
	return repositories{
		users:       repo.NewUserRepository(runner),
		images:      repo.NewImageRepository(runner),
		generations: repo.NewGenerationRepository(runner),
	}, nil
}

// newStore returns the configured store and, for the filesystem backend, the
// directory served under /static.
func newStore(ctx context.Context, cfg *infra.Config) (storage.Store, string, error) {
	switch cfg.StorageBackend {
	case infra.StorageBackendS3:
		store, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
		return store, "", err
	default:
		dir := cfg.StoragePath
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		store, err := storage.NewFileStore(dir, cfg.StorageBaseURL)
		if err != nil {
			return nil, "", err
		}
		return store, dir, nil
	}
}

// Close releases connections in reverse order of acquisition.
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
