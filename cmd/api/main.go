package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"makerspace-access/internal/adapters/auth/tokens"
	"makerspace-access/internal/adapters/cache/redisauth"
	"makerspace-access/internal/adapters/storage/postgres"
	"makerspace-access/internal/platform/logger"
	"makerspace-access/internal/platform/metrics"
	"makerspace-access/internal/router"
)

func main() {
	log := logger.NewFromEnv()

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	metrics.Init()

	opts := router.Options{
		Logger:             log,
		RateLimitPerSecond: envFloat("RATE_LIMIT_RPS", 50),
		RateLimitBurst:     envInt("RATE_LIMIT_BURST", 100),
	}

	// Auth: con secret emite y verifica JWT; sin secret queda el modo
	// dev con X-Debug-User-ID.
	if secret := os.Getenv("AUTH_JWT_SECRET"); secret != "" {
		mgr := tokens.NewManager(secret, envDuration("AUTH_TOKEN_TTL", 24*time.Hour))
		opts.TokenIssuer = mgr
		opts.AuthVerifier = mgr
		log.Info("auth con jwt habilitado", nil)
	} else {
		log.Warn("sin AUTH_JWT_SECRET: modo dev con X-Debug-User-ID", nil)
	}

	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		db, err := postgres.Open(dsn)
		if err != nil {
			log.Error("no se pudo conectar a postgres", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			cancel()
			log.Error("no se pudo aplicar el esquema", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		cancel()

		opts.DB = db
		log.Info("storage postgres", nil)
	} else {
		log.Info("storage in-memory", nil)
	}

	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cache, err := redisauth.New(redisAddr, os.Getenv("REDIS_PASSWORD"), envInt("REDIS_DB", 0), log)
		if err != nil {
			// el cache es accesorio: sin Redis el servicio arranca igual
			log.Warn("redis no disponible, cache deshabilitado", map[string]any{"error": err.Error()})
		} else {
			defer cache.Close()
			opts.Cache = cache
			log.Info("cache de autorizacion habilitado", map[string]any{"addr": redisAddr})
		}
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      router.NewRouter(opts),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("servidor escuchando", map[string]any{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error("error del servidor", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	case sig := <-stop:
		log.Info("apagando", map[string]any{"signal": sig.String()})
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("shutdown con error", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
