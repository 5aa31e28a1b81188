package activities

import (
	"context"

	"go.temporal.io/sdk/activity"

	"go-chat-commerce/chat-commerce/gateway"
	"go-chat-commerce/chat-commerce/types"
)

// UnverifiedRecorder stores captured payments that failed verification
type UnverifiedRecorder interface {
	RecordUnverified(ctx context.Context, p types.UnverifiedPayment) error
}

// PaymentActivities contains payment-gateway activities
type PaymentActivities struct {
	Client *gateway.PaymentClient
	Ledger UnverifiedRecorder
}

// CreatePaymentOrder creates the gateway order for the displayed amount
func (a *PaymentActivities) CreatePaymentOrder(ctx context.Context, req types.CreateOrderRequest) (*types.CreateOrderResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Creating payment order", "amount", req.AmountRupees, "currency", req.Currency)

	res, err := a.Client.CreateOrder(ctx, req)
	if err != nil {
		logger.Error("Payment order creation failed", "error", err)
		return nil, asActivityError(err)
	}
	logger.Info("Payment order created", "gatewayOrderID", res.OrderID)
	return res, nil
}

// VerifyPayment confirms the widget's signature with the payment service
func (a *PaymentActivities) VerifyPayment(ctx context.Context, req types.VerifyPaymentRequest) (*types.VerifyPaymentResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Verifying payment", "paymentID", req.PaymentID, "gatewayOrderID", req.OrderID)

	res, err := a.Client.VerifyPayment(ctx, req)
	if err != nil {
		logger.Error("Payment verification failed", "paymentID", req.PaymentID, "error", err)
		return nil, asActivityError(err)
	}
	return res, nil
}

// RecordUnverifiedPayment puts a captured-but-unverified payment on the reconciliation ledger
func (a *PaymentActivities) RecordUnverifiedPayment(ctx context.Context, p types.UnverifiedPayment) error {
	logger := activity.GetLogger(ctx)
	if a.Ledger == nil {
		logger.Warn("No reconciliation ledger configured", "paymentID", p.PaymentID)
		return nil
	}
	logger.Info("Recording unverified payment", "paymentID", p.PaymentID)
	return a.Ledger.RecordUnverified(ctx, p)
}

// PostPurchaseActivities contains order registration and support ticket activities
type PostPurchaseActivities struct {
	Client *gateway.PostPurchaseClient
}

// RegisterOrder records a completed order with the post-purchase service
func (a *PostPurchaseActivities) RegisterOrder(ctx context.Context, req types.RegisterOrderRequest) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Registering order", "orderID", req.OrderID, "items", len(req.Items))

	return asActivityError(a.Client.RegisterOrder(ctx, req))
}

// FetchReturnReasons lists return and exchange reasons
func (a *PostPurchaseActivities) FetchReturnReasons(ctx context.Context) ([]types.ReturnReason, error) {
	reasons, err := a.Client.ReturnReasons(ctx)
	return reasons, asActivityError(err)
}

// FetchIssueTypes lists complaint categories
func (a *PostPurchaseActivities) FetchIssueTypes(ctx context.Context) ([]string, error) {
	issues, err := a.Client.IssueTypes(ctx)
	return issues, asActivityError(err)
}

// SubmitSupportTicket files a return, exchange, complaint or feedback
func (a *PostPurchaseActivities) SubmitSupportTicket(ctx context.Context, req types.SupportTicketRequest) (*types.SupportTicketResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Submitting support ticket", "mode", req.Mode, "orderID", req.Fields["order_id"])

	res, err := a.Client.Submit(ctx, req)
	if err != nil {
		logger.Warn("Support ticket submission failed", "mode", req.Mode, "error", err)
		return nil, asActivityError(err)
	}
	return res, nil
}

// StylistActivities contains stylist activities
type StylistActivities struct {
	Client *gateway.StylistClient
}

// FetchOutfitSuggestions returns nil picks when the stylist has none
func (a *StylistActivities) FetchOutfitSuggestions(ctx context.Context, req types.OutfitRequest) (*types.StylistPicks, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Fetching outfit suggestions", "sku", req.ProductSKU)

	picks, err := a.Client.OutfitSuggestions(ctx, req)
	return picks, asActivityError(err)
}
