package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"

	"go-chat-commerce/chat-commerce/api"
	"go-chat-commerce/chat-commerce/config"
	"go-chat-commerce/chat-commerce/gateway"
	"go-chat-commerce/chat-commerce/ledger"
	"go-chat-commerce/chat-commerce/session"
)

const sessionCacheTTL = 30 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalln("Unable to load config", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHost,
		Namespace: cfg.TemporalNamespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		log.Fatalln("Unable to create Temporal client", err)
	}
	defer c.Close()

	rdb, err := session.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalln("Unable to connect to Redis", err)
	}
	defer rdb.Close()

	gw := gateway.New(cfg.Services, &http.Client{Timeout: 15 * time.Second})
	manager := session.NewManager(session.NewRedisStore(rdb, sessionCacheTTL), gw.Session, cfg.Channel, logger)

	opts := api.Options{
		TaskQueue:      cfg.TaskQueue,
		Settings:       cfg.Checkout(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Logger:         logger,
	}

	// Support reconciles unverified payments through the ops routes
	if cfg.LedgerDSN != "" {
		db, err := ledger.Connect(cfg.LedgerDSN)
		if err != nil {
			log.Fatalln("Unable to connect to ledger database", err)
		}
		defer db.Close()
		opts.Ledger = ledger.NewPostgresLedger(db)
	}

	srv := api.NewServer(c, manager, opts)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting chat server", "addr", cfg.HTTPAddr, "taskQueue", cfg.TaskQueue)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down chat server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
