package gateway

import (
	"context"
	"net/http"

	"go-chat-commerce/chat-commerce/types"
)

// PaymentClient creates and verifies payment-gateway orders
type PaymentClient struct {
	c client
}

// CreateOrder creates a gateway order for an already displayed amount
func (p *PaymentClient) CreateOrder(ctx context.Context, req types.CreateOrderRequest) (*types.CreateOrderResult, error) {
	var out types.CreateOrderResult
	if err := p.c.call(ctx, http.MethodPost, "/create-order", "", req, &out); err != nil {
		return nil, err
	}
	if out.OrderID == "" {
		out.OrderID = out.Order.ID
	}
	if out.Order.ID == "" {
		out.Order.ID = out.OrderID
	}
	if out.Order.ID == "" {
		return nil, &types.ServiceError{Service: p.c.service, StatusCode: http.StatusOK, Msg: "create-order returned no order id"}
	}
	return &out, nil
}

// VerifyPayment checks the widget's payment/order/signature triple.
// A {"success": false} answer is returned as a *types.ServiceError.
func (p *PaymentClient) VerifyPayment(ctx context.Context, req types.VerifyPaymentRequest) (*types.VerifyPaymentResult, error) {
	var out types.VerifyPaymentResult
	if err := p.c.call(ctx, http.MethodPost, "/verify-payment", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
