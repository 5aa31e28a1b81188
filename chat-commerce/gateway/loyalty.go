package gateway

import (
	"context"
	"net/http"
	"net/url"

	"go-chat-commerce/chat-commerce/types"
)

// LoyaltyClient reads tiers and quotes discounts
type LoyaltyClient struct {
	c client
}

// TierInfo returns the customer's current points and tier
func (l *LoyaltyClient) TierInfo(ctx context.Context, userID string) (*types.TierInfo, error) {
	var out types.TierInfo
	if err := l.c.call(ctx, http.MethodGet, "/tier-info/"+url.PathEscape(userID), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CalculateDiscount quotes the payable total for a cart
func (l *LoyaltyClient) CalculateDiscount(ctx context.Context, userID string, cartTotal float64) (*types.DiscountQuote, error) {
	body := map[string]any{"user_id": userID, "cart_total": cartTotal}
	var out types.DiscountQuote
	if err := l.c.call(ctx, http.MethodPost, "/calculate-discounts", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
