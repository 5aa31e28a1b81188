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

	"go-chat-commerce/chat-commerce/api"
	"go-chat-commerce/chat-commerce/config"
	"go-chat-commerce/chat-commerce/gateway"
	"go-chat-commerce/chat-commerce/session"
	"go-chat-commerce/chat-commerce/types"
	"go-chat-commerce/chat-commerce/workflows"
)

// Drives a scripted checkout through signals: enter, buy now, confirm, pay,
// address. Payment itself happens in the widget, so the script stops at an
// open gateway and prints the commands that stand in for its callbacks.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalln("Unable to load config", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

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

	rdb, err := session.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalln("Unable to connect to Redis", err)
	}
	defer rdb.Close()

	gw := gateway.New(cfg.Services, &http.Client{Timeout: 15 * time.Second})
	manager := session.NewManager(session.NewRedisStore(rdb, 0), gw.Session, cfg.Channel, logger)

	ctx := context.Background()
	phone := getEnv("PHONE", "9000000001")

	entry, err := manager.Enter(ctx, phone)
	if err != nil {
		log.Fatalln("Unable to enter chat session", err)
	}
	workflowID := api.WorkflowID(entry.Session.Token)

	_, err = c.SignalWithStartWorkflow(ctx, workflowID, types.SignalRestoreTranscript,
		types.RestoreTranscript{Entries: entry.Transcript},
		client.StartWorkflowOptions{ID: workflowID, TaskQueue: cfg.TaskQueue},
		workflows.ChatSessionWorkflow,
		types.ChatSessionInput{Session: entry.Session, Fresh: !entry.Restored, Settings: cfg.Checkout()})
	if err != nil {
		log.Fatalln("Unable to start chat workflow", err)
	}
	log.Printf("Chat session %s (restored: %v)\n", workflowID, entry.Restored)

	card := map[string]any{
		"sku":   getEnv("PRODUCT_SKU", "SKU1"),
		"name":  getEnv("PRODUCT_NAME", "Blue Shirt"),
		"price": getEnv("PRODUCT_PRICE", "₹999"),
	}
	signal(c, workflowID, types.SignalBuyNow, types.BuyNowRequest{Card: card})

	status := waitForCheckout(c, workflowID, func(s types.CheckoutStatus) bool { return s.AwaitingConfirmation })
	if !status.AwaitingConfirmation {
		log.Printf("Agent did not ask for cart confirmation (stage %s), stopping here\n", status.Stage)
		printTimeline(c, workflowID)
		return
	}
	signal(c, workflowID, types.SignalSendMessage, types.SendMessageRequest{Text: "confirm"})

	status = waitForCheckout(c, workflowID, func(s types.CheckoutStatus) bool { return s.Stage == types.StageConfirmedSummary })
	if status.Stage != types.StageConfirmedSummary {
		log.Printf("No checkout summary (stage %s), stopping here\n", status.Stage)
		printTimeline(c, workflowID)
		return
	}
	log.Printf("Summary: order %s, amount %.2f\n", status.Pending.OrderID, status.Pending.Amount)

	signal(c, workflowID, types.SignalPayTapped, nil)
	signal(c, workflowID, types.SignalSubmitAddress, types.Address{
		City:     getEnv("ADDRESS_CITY", "Mumbai"),
		Landmark: getEnv("ADDRESS_LANDMARK", "Near Mall"),
		Building: getEnv("ADDRESS_BUILDING", "Tower A"),
	})

	status = waitForCheckout(c, workflowID, func(s types.CheckoutStatus) bool {
		return s.Stage == types.StageGatewayOpen || s.Stage == types.StageFailed
	})
	printTimeline(c, workflowID)
	if status.Stage != types.StageGatewayOpen {
		log.Printf("Gateway not opened (stage %s): %s\n", status.Stage, status.LastError)
		return
	}

	log.Printf("\nGateway order %s for %d paise is open.\n", status.Gateway.OrderID, status.Gateway.Amount)
	log.Printf("  Report success:\n")
	log.Printf("    temporal workflow signal -w %s --name %s --input '{\"razorpay_payment_id\":\"pay_demo\",\"razorpay_order_id\":\"%s\",\"razorpay_signature\":\"sig\"}'\n",
		workflowID, types.SignalPaymentSuccess, status.Gateway.OrderID)
	log.Printf("  Dismiss the widget:\n")
	log.Printf("    temporal workflow signal -w %s --name %s\n", workflowID, types.SignalPaymentDismissed)
	log.Printf("  Query checkout:\n")
	log.Printf("    temporal workflow query -w %s --type %s\n", workflowID, types.QueryCheckout)
}

func signal(c client.Client, workflowID, name string, arg interface{}) {
	if err := c.SignalWorkflow(context.Background(), workflowID, "", name, arg); err != nil {
		log.Fatalf("Failed to send %s signal: %v\n", name, err)
	}
	log.Printf("Sent %s\n", name)
}

// waitForCheckout polls the checkout query until done holds or ten seconds pass
func waitForCheckout(c client.Client, workflowID string, done func(types.CheckoutStatus) bool) types.CheckoutStatus {
	var status types.CheckoutStatus
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := c.QueryWorkflow(context.Background(), workflowID, "", types.QueryCheckout)
		if err == nil && resp.Get(&status) == nil && done(status) {
			return status
		}
		time.Sleep(500 * time.Millisecond)
	}
	return status
}

func printTimeline(c client.Client, workflowID string) {
	resp, err := c.QueryWorkflow(context.Background(), workflowID, "", types.QueryTimeline)
	if err != nil {
		log.Printf("Failed to query timeline: %v\n", err)
		return
	}
	var messages []types.Message
	if err := resp.Get(&messages); err != nil {
		log.Printf("Failed to decode timeline: %v\n", err)
		return
	}
	log.Printf("\nTimeline (%d messages):\n", len(messages))
	for _, m := range messages {
		kind := ""
		if m.Attachment != nil {
			kind = " [" + string(m.Attachment.Kind) + "]"
		}
		log.Printf("  %-5s %s%s\n", m.Sender, m.Text, kind)
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
