package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/models"
	"github.com/vadimbarashkov/shortlink/pkg/middleware/recoverer"
)

// ShortenService creates short codes for urls.
type ShortenService interface {
	// Shorten reports created=false when the url already had a code.
	Shorten(ctx context.Context, originalURL string) (*models.URL, bool, error)
}

// RedirectService resolves short codes to their urls.
type RedirectService interface {
	Resolve(ctx context.Context, shortCode string) (string, error)
}

// StatsService exposes click statistics.
type StatsService interface {
	CodeStats(ctx context.Context, shortCode string) (*models.CodeStats, error)
	Totals(ctx context.Context) (*models.Totals, error)
}

// AdminService manages mappings behind basic auth.
type AdminService interface {
	List(ctx context.Context) ([]models.URL, error)
	Delete(ctx context.Context, shortCode string) (string, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type Services struct {
	Shorten  ShortenService
	Redirect RedirectService
	Stats    StatsService
	Admin    AdminService
}

// Options carries the router settings that are not services.
type Options struct {
	// BaseURL prefixes codes in the short_url field of shorten responses.
	BaseURL string
	// AdminCredentials maps usernames to passwords. The admin routes are
	// not mounted when it is empty.
	AdminCredentials map[string]string
	// RedirectLimiter guards GET /{code} and GET /{code}/stats.
	RedirectLimiter func(http.Handler) http.Handler
	// ShortenLimiter guards POST /shorten.
	ShortenLimiter func(http.Handler) http.Handler
}

// getValidate initializes a new validator instance for validating incoming request payloads.
// It customizes tag name extraction from struct fields to match JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

func passthrough(next http.Handler) http.Handler {
	return next
}

// NewRouter initializes and returns a new HTTP router with all routes and middleware configured.
func NewRouter(logger *httplog.Logger, svcs Services, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Location", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))

	redirectLimiter := opts.RedirectLimiter
	if redirectLimiter == nil {
		redirectLimiter = passthrough
	}
	shortenLimiter := opts.ShortenLimiter
	if shortenLimiter == nil {
		shortenLimiter = passthrough
	}

	validate := getValidate()

	r.Get("/ping", handlePing)
	r.Get("/stats", handleGetTotals(svcs.Stats))

	r.With(shortenLimiter).Post("/shorten", handleShortenURL(svcs.Shorten, validate, opts.BaseURL))

	r.Route("/{shortCode}", func(r chi.Router) {
		r.Use(redirectLimiter)

		r.Get("/", handleRedirect(svcs.Redirect))
		r.Get("/stats", handleGetCodeStats(svcs.Stats))
	})

	if len(opts.AdminCredentials) > 0 {
		r.Route("/admin/codes", func(r chi.Router) {
			r.Use(middleware.BasicAuth("shortlink-admin", opts.AdminCredentials))

			r.Get("/", handleListURLs(svcs.Admin))
			r.Delete("/", handleDeleteAllURLs(svcs.Admin))
			r.Delete("/{shortCode}", handleDeleteURL(svcs.Admin))
		})
	}

	return r
}
