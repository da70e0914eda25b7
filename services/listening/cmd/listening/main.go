package main

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/audio-platform/internal/platform/analytics"
	"github.com/example/audio-platform/internal/platform/auth"
	"github.com/example/audio-platform/internal/platform/db"
	"github.com/example/audio-platform/internal/platform/httpserver"
	"github.com/example/audio-platform/internal/platform/logging"
	"github.com/example/audio-platform/internal/platform/natsconn"
	"github.com/example/audio-platform/internal/platform/run"
	"github.com/example/audio-platform/services/listening/internal/config"
	"github.com/example/audio-platform/services/listening/internal/handlers"
	"github.com/example/audio-platform/services/listening/internal/materialize"
	"github.com/example/audio-platform/services/listening/internal/recommend"
	"github.com/example/audio-platform/services/listening/internal/scheduler"
	"github.com/example/audio-platform/services/listening/internal/store"
	"github.com/example/audio-platform/services/listening/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.App.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	runner := run.New(log)
	run.Exit(runner.WithSignals(func(ctx context.Context) error {
		pool, err := db.Open(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		history := store.NewPostgresHistoryStore(pool)
		catalog := store.NewPostgresCatalogStore(pool)
		playlists := store.NewPostgresPlaylistStore(pool)
		rec := recommend.New(history, catalog)
		mat := materialize.New(history, catalog, playlists, rec, log)

		// NATS is optional: without it the service runs with sync writes
		// and TTL-only caching.
		var nc *nats.Conn
		var js nats.JetStreamContext
		if conn, err := natsconn.Connect(natsconn.Options{}); err != nil {
			log.Warn("nats unavailable, running without queue and invalidation", zap.Error(err))
		} else {
			nc = conn
			defer nc.Drain()
			if j, err := nc.JetStream(); err != nil {
				log.Warn("jetstream unavailable", zap.Error(err))
			} else {
				js = j
			}
		}
		mat.Analytics = analytics.New(js, log)

		if nc != nil {
			worker.StartPlayConsumer(ctx, nc, history, log)
		}

		sched := scheduler.New(func(ctx context.Context) error {
			if err := mat.GlobalAutoPlaylists(ctx); err != nil {
				return err
			}
			if nc != nil {
				if err := nc.Publish(handlers.InvalidateSubject, []byte("ALL")); err != nil {
					log.Warn("cache invalidation publish failed", zap.Error(err))
				}
			}
			return nil
		}, log)
		sched.Hour = cfg.RefreshHour
		sched.Minute = cfg.RefreshMinute
		go sched.Run(ctx)

		verifier := auth.JWTVerifier{Secret: []byte(cfg.JWTSecret)}
		pub := handlers.NewEventPublisher(js)
		cache := handlers.NewTTLCache(cfg.CacheTTLSec, nc, handlers.InvalidateSubject)

		r := chi.NewRouter()
		httpserver.SetupRouter(r, httpserver.RouterConfig{
			ReadyFunc: func() error {
				pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
				defer cancel()
				return pool.Ping(pingCtx)
			},
		})

		r.Route("/v1", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireUser(verifier))
				r.Post("/history", handlers.RecordPlay(history, pub, mat.Analytics, log))
				r.Delete("/history", handlers.DeleteHistory(history, mat.Analytics))
				r.Get("/history", handlers.ListHistory(history))
				r.Get("/history/recent", handlers.ListRecent(history))
				r.Get("/me/categories", handlers.Categories(rec))
				r.Get("/playlists/auto", handlers.AutoPlaylists(mat))
			})
			r.Group(func(r chi.Router) {
				r.Use(auth.OptionalUser(verifier))
				r.Get("/content/recommended", handlers.RecommendedContent(rec, cache))
			})
		})

		srv := httpserver.New(httpserver.Options{
			Addr:        cfg.App.HTTP.Addr,
			ServiceName: cfg.App.ServiceName,
			Logger:      log,
			Router:      r,
		})
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		return srv.Start(log)
	}))
}
