package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/scaffold-dashboard/auth"
	"github.com/jrsteele09/scaffold-dashboard/backend"
	"github.com/jrsteele09/scaffold-dashboard/internal/config"
	"github.com/jrsteele09/scaffold-dashboard/internal/metrics"
	"github.com/jrsteele09/scaffold-dashboard/server"
	"github.com/jrsteele09/scaffold-dashboard/server/resetflow"
	"github.com/jrsteele09/scaffold-dashboard/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	shutdownTimeout = 5 * time.Second
	janitorInterval = time.Minute
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func run(port string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.WithPort(config.New(), port)
	setupLogging(c)
	if err := config.Validate(c); err != nil {
		return err
	}
	displayAppname(c.GetAppName())

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, closeStore, err := newSessionStore(ctx, c)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New()
	manager := auth.NewManager(
		backend.New(c.GetAPIBaseURL(), &http.Client{Timeout: c.GetBackendTimeout()}),
		store,
		auth.WithMetrics(m),
		auth.WithRefreshSkew(c.GetRefreshSkew()),
		auth.WithSessionMaxAge(c.GetSessionMaxAge()),
		auth.WithRefreshTimeout(c.GetBackendTimeout()),
	)
	api := backend.New(c.GetAPIBaseURL(), &http.Client{
		Transport: &auth.Transport{
			Base:     http.DefaultTransport,
			Sessions: manager,
			Metrics:  m,
			Timeout:  c.GetBackendTimeout(),
		},
	})

	handler, err := server.New(c, server.Services{
		Sessions:   manager,
		API:        api,
		ResetFlows: resetflow.NewInMemoryRepo(),
		Metrics:    m,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(srv) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if config.IsDev(c) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// newSessionStore picks the session store and returns how to release it.
func newSessionStore(ctx context.Context, c config.Config) (sessions.Store, func(), error) {
	if c.GetSessionStore() == config.SessionStoreRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", c.GetRedisAddr(), err)
		}
		log.Info().Str("addr", c.GetRedisAddr()).Msg("Using redis session store")
		return sessions.NewRedisStore(rdb, c.GetRedisPrefix()), func() { _ = rdb.Close() }, nil
	}

	store := sessions.NewInMemoryStore()
	janitorCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(janitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-janitorCtx.Done():
				return
			case <-ticker.C:
				if n := store.DeleteExpired(); n > 0 {
					log.Debug().Int("count", n).Msg("Expired sessions removed")
				}
			}
		}
	}()
	log.Info().Msg("Using in-memory session store")
	return store, cancel, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
