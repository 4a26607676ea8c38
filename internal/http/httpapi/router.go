package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"outfitlens/internal/http/handlers"
	"outfitlens/internal/middleware"
)

// Options configures the router's middleware stack.
type Options struct {
	JWTSecret       string
	CORSOrigins     []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	// StaticDir, when set, is served under /static for the filesystem store.
	StaticDir string
	Logger    zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", app.Register)
			r.Post("/login", app.Login)
			r.Post("/refresh", app.Refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(opts.JWTSecret))

			r.Get("/users/me", app.Me)
			r.Get("/stats", app.Stats)

			r.Route("/images", func(r chi.Router) {
				r.Get("/", app.ListImages)
				r.Post("/upload/user-photo", app.UploadUserPhoto)
				r.Post("/upload/clothing-photo", app.UploadClothingPhoto)
				r.Get("/{id}/raw", app.RawImage)
				r.Delete("/{id}", app.DeleteImage)
			})

			r.Route("/generations", func(r chi.Router) {
				r.Post("/", app.CreateGeneration)
				r.Get("/", app.GenerationHistory)
				r.Get("/{id}/status", app.GenerationStatus)
				r.Get("/{id}/download", app.DownloadGeneration)
			})
		})
	})

	return r
}
