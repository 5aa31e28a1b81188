package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"go-chat-commerce/chat-commerce/activities"
	"go-chat-commerce/chat-commerce/config"
	"go-chat-commerce/chat-commerce/gateway"
	"go-chat-commerce/chat-commerce/ledger"
	"go-chat-commerce/chat-commerce/session"
	"go-chat-commerce/chat-commerce/workflows"
)

const sessionCacheTTL = 30 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalln("Unable to load config", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHost,
		Namespace: cfg.TemporalNamespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		log.Fatalln("Unable to create Temporal client", err)
	}
	defer c.Close()

	// Session cache
	rdb, err := session.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalln("Unable to connect to Redis", err)
	}
	defer rdb.Close()

	gw := gateway.New(cfg.Services, &http.Client{Timeout: 25 * time.Second})
	manager := session.NewManager(session.NewRedisStore(rdb, sessionCacheTTL), gw.Session, cfg.Channel, logger)

	// Reconciliation ledger is optional; without it unverified payments are only logged
	var recorder activities.UnverifiedRecorder
	if cfg.LedgerDSN != "" {
		db, err := ledger.Connect(cfg.LedgerDSN)
		if err != nil {
			log.Fatalln("Unable to connect to ledger database", err)
		}
		defer db.Close()

		pl := ledger.NewPostgresLedger(db)
		if err := pl.EnsureSchema(context.Background()); err != nil {
			log.Fatalln("Unable to prepare ledger schema", err)
		}
		recorder = pl
	} else {
		logger.Warn("LEDGER_DSN not set, unverified payments will not be recorded")
	}

	// Create worker with options
	w := worker.New(c, cfg.TaskQueue, worker.Options{
		Identity:                               "chat-worker-" + hostname(),
		MaxConcurrentActivityExecutionSize:     100,
		MaxConcurrentWorkflowTaskExecutionSize: 50,
	})

	// Register workflows
	w.RegisterWorkflow(workflows.ChatSessionWorkflow)

	// Register activities
	w.RegisterActivity(&activities.SessionActivities{Client: gw.Session, Manager: manager})
	w.RegisterActivity(&activities.AgentActivities{Client: gw.Agent})
	w.RegisterActivity(&activities.LoyaltyActivities{Client: gw.Loyalty})
	w.RegisterActivity(&activities.PaymentActivities{Client: gw.Payment, Ledger: recorder})
	w.RegisterActivity(&activities.PostPurchaseActivities{Client: gw.PostPurchase})
	w.RegisterActivity(&activities.StylistActivities{Client: gw.Stylist})

	log.Println("Worker starting on task queue:", cfg.TaskQueue)
	log.Println("Worker identity:", "chat-worker-"+hostname())

	// Start worker
	err = w.Run(worker.InterruptCh())
	if err != nil {
		log.Fatalln("Unable to start worker", err)
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
