package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/campaign-tracker/internal/api"
	"github.com/ignite/campaign-tracker/internal/config"
	"github.com/ignite/campaign-tracker/internal/dispatch"
	"github.com/ignite/campaign-tracker/internal/repository"
	"github.com/ignite/campaign-tracker/internal/repository/memory"
	"github.com/ignite/campaign-tracker/internal/repository/postgres"
	"github.com/ignite/campaign-tracker/internal/stats"
	"github.com/ignite/campaign-tracker/internal/tracking"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx := context.Background()

	var store repository.Store
	if cfg.Database.URL != "" {
		db, err := postgres.Open(cfg.Database.URL)
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		defer db.Close()
		store = postgres.New(db)
		log.Println("using postgres store")
	} else {
		store = memory.New()
		log.Println("no database configured, using in-memory store")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("WARN redis unreachable, stats cache disabled: %v", err)
			redisClient = nil
		}
	}

	var mailer dispatch.Mailer
	switch cfg.Mailer.Provider {
	case "ses":
		mailer, err = dispatch.NewSESMailer(ctx, cfg.Mailer)
		if err != nil {
			log.Fatalf("ses mailer: %v", err)
		}
	default:
		mailer = dispatch.NewSparkPostMailer(cfg.Mailer)
	}

	dispatcher := dispatch.NewService(store, mailer, cfg.Tracking.BaseURL, cfg.Dispatch.Workers)
	recorder := tracking.NewRecorder(store)
	statsSvc := stats.NewService(store, redisClient, cfg.Redis.CacheTTL())

	trackingHandler := tracking.NewHandler(recorder)
	apiHandler := api.NewHandler(store, dispatcher, statsSvc)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.SetupRoutes(apiHandler, trackingHandler),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("campaign tracker listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
