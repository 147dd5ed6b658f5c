package router

import (
	"database/sql"
	"net/http"
	"os"

	"makerspace-access/internal/adapters/auth/tokens"
	mem "makerspace-access/internal/adapters/storage/memory"
	pg "makerspace-access/internal/adapters/storage/postgres"
	"makerspace-access/internal/domain/introducers"
	"makerspace-access/internal/domain/introductions"
	"makerspace-access/internal/domain/resources"
	"makerspace-access/internal/domain/users"
	"makerspace-access/internal/middleware"
	"makerspace-access/internal/platform/logger"
	"makerspace-access/internal/platform/metrics"
	"makerspace-access/internal/ports/auth"

	"makerspace-access/api/spec"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)
	TokenIssuer  *tokens.Manager   // puede ser nil (modo dev, login responde 501)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Opcional: cache de autorización (nil lo deshabilita).
	Cache introductions.Cache

	Logger logger.Logger

	// Requests por segundo por IP; 0 deshabilita el rate limit.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Instrument)

	if opts.Logger != nil {
		r.Use(middleware.RequestLog(opts.Logger))
	}
	if opts.RateLimitPerSecond > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerSecond, opts.RateLimitBurst))
	}

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(spec.OpenAPI)
	})
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/openapi.yaml"),
	))

	var (
		usersRepo         users.Repository
		resourcesRepo     resources.Repository
		introducersRepo   introducers.Repository
		introductionsRepo introductions.Repository
	)

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			}
		}
	}

	if db != nil {
		usersRepo = pg.NewUsersRepo(db)
		resourcesRepo = pg.NewResourcesRepo(db)
		introducersRepo = pg.NewIntroducersRepo(db)
		introductionsRepo = pg.NewIntroductionsRepo(db)
	} else {
		usersRepo = mem.NewUsersRepo()
		resourcesRepo = mem.NewResourcesRepo()
		introducersRepo = mem.NewIntroducersRepo()
		introductionsRepo = mem.NewIntroductionsRepo()
	}

	// Services por módulo
	usersSvc := users.NewService(usersRepo)
	resourcesSvc := resources.NewService(resourcesRepo)
	introducersSvc := introducers.NewService(introducersRepo, resourcesSvc)
	introductionsSvc := introductions.NewService(
		introductionsRepo,
		introducersSvc,
		usersSvc,
		resourcesSvc,
		opts.Cache,
	)

	// users.TokenIssuer es una interface: un *tokens.Manager nil tipado
	// no es un nil a secas, hay que chequear antes de asignar
	var issuer users.TokenIssuer
	if opts.TokenIssuer != nil {
		issuer = opts.TokenIssuer
	}
	var inval users.Invalidator
	if opts.Cache != nil {
		inval = opts.Cache
	}

	// Rutas por módulo
	users.RegisterRoutes(r, usersSvc, issuer, inval)
	resources.RegisterRoutes(r, resourcesSvc, usersSvc)
	introducers.RegisterRoutes(r, introducersSvc, usersSvc, usersSvc, resourcesSvc)
	introductions.RegisterRoutes(r, introductionsSvc, usersSvc, usersSvc)

	return r
}
