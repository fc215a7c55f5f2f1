// Command rotord serves the auth engine over HTTP.
//
// Configuration comes from the environment:
//
//	ROTOR_ADDR            listen address (default :8080)
//	ROTOR_ACCESS_SECRET   access token signing secret (required)
//	ROTOR_REFRESH_SECRET  refresh token signing secret (required, distinct)
//	ROTOR_ACCESS_TTL      access token lifetime, Go duration (default 15m)
//	ROTOR_REFRESH_TTL     refresh token lifetime, Go duration (default 168h)
//	ROTOR_REDIS_ADDR      Redis address; empty starts an embedded miniredis
//	ROTOR_POSTGRES_DSN    user store DSN; empty uses the in-memory store
//	ROTOR_SECURE_COOKIES  "true" marks the refresh cookie Secure
//
// Without ROTOR_REDIS_ADDR and ROTOR_POSTGRES_DSN the process is fully
// self-contained, which is meant for local development only: every restart
// drops all accounts and sessions.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rotor-auth/rotor"
	"github.com/rotor-auth/rotor/httpapi"
	"github.com/rotor-auth/rotor/userstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("rotord exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := rotor.DefaultConfig()
	cfg.Token.AccessSecret = []byte(os.Getenv("ROTOR_ACCESS_SECRET"))
	cfg.Token.RefreshSecret = []byte(os.Getenv("ROTOR_REFRESH_SECRET"))
	if len(cfg.Token.AccessSecret) == 0 || len(cfg.Token.RefreshSecret) == 0 {
		return errors.New("ROTOR_ACCESS_SECRET and ROTOR_REFRESH_SECRET are required")
	}
	if err := applyTTL(&cfg.Token.AccessTTL, "ROTOR_ACCESS_TTL"); err != nil {
		return err
	}
	if err := applyTTL(&cfg.Token.RefreshTTL, "ROTOR_REFRESH_TTL"); err != nil {
		return err
	}

	redisAddr := os.Getenv("ROTOR_REDIS_ADDR")
	if redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return err
		}
		defer mr.Close()
		redisAddr = mr.Addr()
		logger.Warn("no ROTOR_REDIS_ADDR, sessions held in embedded redis", "addr", redisAddr)
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	users, cleanup, err := buildUserStore(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	publisher := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer publisher.Close()

	engine, err := rotor.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(users).
		WithEventPublisher(publisher).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}

	server := httpapi.NewServer(engine,
		httpapi.WithLogger(logger),
		httpapi.WithSecureCookies(os.Getenv("ROTOR_SECURE_COOKIES") == "true"),
	)

	addr := os.Getenv("ROTOR_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(server),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("rotord listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildUserStore(ctx context.Context, logger *slog.Logger) (rotor.UserProvider, func(), error) {
	dsn := os.Getenv("ROTOR_POSTGRES_DSN")
	if dsn == "" {
		logger.Warn("no ROTOR_POSTGRES_DSN, accounts held in memory")
		return userstore.NewMemory(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	store, err := userstore.NewPostgres(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}

func applyTTL(dst *time.Duration, env string) error {
	raw := os.Getenv(env)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return errors.New(env + " must be a positive duration")
	}
	*dst = d
	return nil
}
