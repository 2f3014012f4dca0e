package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"poolwatch/internal/discovery"
	"poolwatch/internal/enrich"
	"poolwatch/internal/handlers"
	"poolwatch/internal/metadata"
	"poolwatch/internal/middleware"
	"poolwatch/internal/observability"
	"poolwatch/internal/routes"
	"poolwatch/internal/schedule"
	"poolwatch/internal/snapshot"
	"poolwatch/internal/store"
	"poolwatch/pkg/config"
	"poolwatch/pkg/dextools"
	"poolwatch/pkg/rugcheck"
	chain "poolwatch/pkg/solana"
	"poolwatch/pkg/solscan"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithFields(log.Fields{"level": cfg.LogLevel}).Warn("Unknown log level, using info")
	}

	programID, err := solana.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		log.Fatal("Invalid RAYDIUM_PROGRAM_ID: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	// External clients
	chainClient := chain.NewClient(cfg.RPCURL, cfg.RPCRate)
	dextoolsClient := dextools.NewClient(cfg.DextoolsAPIKey, cfg.DextoolsBaseURL, cfg.DextoolsRate)
	rugcheckClient := rugcheck.NewClient(cfg.RugCheckBaseURL)
	solscanClient := solscan.NewClient(cfg.SolscanAPIKey, cfg.SolscanBaseURL)

	// State
	tokens := store.NewTokenStore()
	tracker := store.NewRefetchTracker(cfg.MaxMetadataAttempts, cfg.MetadataRefetchInterval)
	cache := metadata.NewCache()
	metrics.RegisterGauge("store", "tokens", "Token records held in memory.", func() float64 {
		return float64(tokens.Len())
	})
	metrics.RegisterGauge("metadata", "cache_entries", "Resolved metadata entries cached.", func() float64 {
		return float64(cache.Len())
	})

	resolver := metadata.NewResolver(chainClient, metadata.NewURIFetcher(), solscanClient, cache, metrics)
	agg := enrich.NewAggregator(tokens, enrich.Sources{
		Analytics: dextoolsClient,
		Liquidity: dextoolsClient,
		Holders:   chainClient,
		Risk:      rugcheckClient,
		Metadata:  resolver,
	}, metrics)

	// Publishing
	hub := snapshot.NewHub(cfg.AllowedOrigins, metrics)
	publisher := snapshot.NewPublisher(tokens, metrics, hub)
	if cfg.RabbitMQ.Enabled() {
		conn, err := config.DialRabbitMQ(ctx, cfg.RabbitMQ)
		if err != nil {
			log.Fatal("RabbitMQ unavailable: ", err)
		}
		defer conn.Close()

		exchange, err := config.NewExchangePublisher(conn, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatal("Failed to create RabbitMQ publisher: ", err)
		}
		defer exchange.Close()
		publisher.AddSink(snapshot.NewAMQPSink(exchange))
	} else {
		log.Info("RabbitMQ not configured, skipping snapshot exchange")
	}
	publisher.Publish(ctx)

	// Discovery
	subscriber := chain.NewLogSubscriber(cfg.WSURL, programID.String())
	handler := discovery.NewHandler(chainClient, programID, agg, publisher, metrics)
	listener := discovery.NewListener(subscriber, handler, cfg.Workers, cfg.QueueSize)

	// Reconciliation
	scheduler := schedule.New()
	if err := scheduler.Every(cfg.BackfillInterval, schedule.NewMetadataBackfill(agg, tracker, publisher, metrics)); err != nil {
		log.Fatal("Failed to schedule metadata backfill: ", err)
	}
	if err := scheduler.Every(cfg.SweepInterval, schedule.NewCompletenessSweep(agg, publisher, metrics)); err != nil {
		log.Fatal("Failed to schedule completeness sweep: ", err)
	}

	// HTTP
	gin.SetMode(gin.ReleaseMode)
	router := routes.SetupRouter(routes.Deps{
		Tokens:         handlers.NewTokenHandler(tokens, publisher, agg),
		Health:         handlers.NewHealthHandler([]string{cfg.RPCURL}, subscriber, tokens.Len),
		Stream:         hub,
		Metrics:        metrics.Handler(),
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit: middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(listener.Run(gctx))
	})
	g.Go(func() error {
		return ignoreCanceled(scheduler.Run(gctx))
	})
	g.Go(func() error {
		log.WithFields(log.Fields{
			"port":    cfg.Port,
			"program": programID.String(),
		}).Info("Pool discovery service started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithFields(log.Fields{"error": err}).Error("Service stopped with error")
		os.Exit(1)
	}
	log.Info("Service stopped")
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
