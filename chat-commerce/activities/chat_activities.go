package activities

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"

	"go-chat-commerce/chat-commerce/gateway"
	"go-chat-commerce/chat-commerce/session"
	"go-chat-commerce/chat-commerce/types"
)

// SessionActivities contains session persistence activities
type SessionActivities struct {
	Client  *gateway.SessionClient
	Manager *session.Manager
}

// AppendTranscript persists one timeline message to the session transcript
func (a *SessionActivities) AppendTranscript(ctx context.Context, token string, msg types.Message) error {
	logger := activity.GetLogger(ctx)
	logger.Debug("Persisting chat message", "messageID", msg.ID, "sender", msg.Sender)

	payload := map[string]any{
		"id":        msg.ID,
		"text":      msg.Text,
		"sender":    string(msg.Sender),
		"timestamp": msg.Timestamp.Format(time.RFC3339Nano),
	}
	if msg.Attachment != nil {
		payload["metadata"] = map[string]any{"attachment": msg.Attachment}
	}

	err := a.Client.Update(ctx, token, types.SessionUpdate{Action: types.ActionChatMessage, Payload: payload})
	return asActivityError(err)
}

// AddToCart records the staged product against the session
func (a *SessionActivities) AddToCart(ctx context.Context, token string, item types.PendingCheckoutItem) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Adding to cart", "sku", item.SKU, "quantity", item.Quantity)

	payload := map[string]any{
		"product_sku":  item.SKU,
		"product_name": item.Name,
		"price":        item.Price,
		"quantity":     item.Quantity,
	}
	err := a.Client.Update(ctx, token, types.SessionUpdate{Action: types.ActionAddToCart, Payload: payload})
	return asActivityError(err)
}

// SaveAddress keeps the delivery address for future prefill
func (a *SessionActivities) SaveAddress(ctx context.Context, phone string, addr types.Address) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Saving delivery address", "phone", phone, "city", addr.City)

	return asActivityError(a.Manager.SaveAddress(ctx, phone, addr))
}

// SavedAddress returns the address kept from an earlier checkout, if any
func (a *SessionActivities) SavedAddress(ctx context.Context, phone string) (*types.Address, error) {
	addr, err := a.Manager.Address(ctx, phone)
	return addr, asActivityError(err)
}

// EndSession closes the session remotely and clears the local cache
func (a *SessionActivities) EndSession(ctx context.Context, sess types.Session) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Ending session", "phone", sess.Phone)

	return asActivityError(a.Manager.End(ctx, sess))
}

// AgentActivities contains sales-agent activities
type AgentActivities struct {
	Client *gateway.AgentClient
}

// SendToAgent forwards a user message and returns the agent's reply
func (a *AgentActivities) SendToAgent(ctx context.Context, sess types.Session, text string) (*types.AgentReply, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Forwarding message to sales agent", "phone", sess.Phone)

	reply, err := a.Client.Send(ctx, sess.Token, sess.Phone, text)
	if err != nil {
		logger.Warn("Sales agent call failed", "error", err)
		return nil, asActivityError(err)
	}
	logger.Info("Sales agent replied", "products", len(reply.Products))
	return reply, nil
}

// LoyaltyActivities contains loyalty activities
type LoyaltyActivities struct {
	Client *gateway.LoyaltyClient
}

// FetchTierInfo returns the customer's points and tier
func (a *LoyaltyActivities) FetchTierInfo(ctx context.Context, userID string) (*types.TierInfo, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Fetching loyalty tier", "userID", userID)

	info, err := a.Client.TierInfo(ctx, userID)
	return info, asActivityError(err)
}

// QuoteDiscount asks loyalty for the payable total of a cart
func (a *LoyaltyActivities) QuoteDiscount(ctx context.Context, userID string, cartTotal float64) (*types.DiscountQuote, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Quoting discount", "userID", userID, "cartTotal", cartTotal)

	quote, err := a.Client.CalculateDiscount(ctx, userID, cartTotal)
	return quote, asActivityError(err)
}
