package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// RouterConfig holds the parts the HTTP router is assembled from
type RouterConfig struct {
	Service   simplecatalog.Service
	TokenAuth *jwtauth.JWTAuth

	// Objects serves signed object URLs. Nil when the blob store serves its own.
	Objects *ObjectHandler

	Logger         *slog.Logger
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter builds the application router:
//
//	/healthz, /healthz/ready   liveness and readiness
//	/healthz/store             repository and blob store ping
//	/api/...                   catalog API
//	/objects/...               signed object URLs (in-memory blob store only)
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(CORS(cfg.AllowedOrigins))

	app.RoutesHealthz(r)
	app.RoutesHealthzReady(r)
	r.Get("/healthz/store", StoreHealthHandler(cfg.Service))

	handler := NewHandler(cfg.Service, cfg.Logger)
	r.Route("/api", func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.TokenAuth, cfg.Service))
		r.Mount("/", handler.Routes())
	})

	if cfg.Objects != nil {
		r.Mount("/objects", cfg.Objects.Routes())
	}

	return r
}
