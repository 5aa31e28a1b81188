package types

// Request and response shapes of the remote services.

// SessionUpdate is the body of POST /session/update
type SessionUpdate struct {
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload"`
}

const (
	ActionChatMessage = "chat_message"
	ActionAddToCart   = "add_to_cart"
)

// AgentReply is the sales agent's answer to one user message
type AgentReply struct {
	Text     string        `json:"text"`
	Products []ProductCard `json:"products,omitempty"`
}

// TierInfo is the loyalty tier of a customer
type TierInfo struct {
	Points int    `json:"points"`
	Tier   string `json:"tier"`
}

// DiscountQuote is the loyalty service's quote for a cart total
type DiscountQuote struct {
	OriginalTotal float64 `json:"original_total"`
	FinalTotal    float64 `json:"final_total"`
	Message       string  `json:"message"`
}

// CreateOrderRequest is the body of POST create-order
type CreateOrderRequest struct {
	AmountRupees float64           `json:"amount_rupees"`
	Currency     string            `json:"currency"`
	Notes        map[string]string `json:"notes"`
	Receipt      string            `json:"receipt,omitempty"`
}

// GatewayOrder is the payment gateway's view of a created order; Amount is in paise
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateOrderResult is the response of create-order
type CreateOrderResult struct {
	KeyID   string       `json:"razorpay_key_id"`
	Order   GatewayOrder `json:"order"`
	OrderID string       `json:"order_id"`
}

// VerifyPaymentRequest is the body of POST verify-payment
type VerifyPaymentRequest struct {
	PaymentID    string  `json:"razorpay_payment_id"`
	OrderID      string  `json:"razorpay_order_id"`
	Signature    string  `json:"razorpay_signature"`
	AmountRupees float64 `json:"amount_rupees"`
	UserID       string  `json:"user_id"`
	Method       string  `json:"method"`
}

// VerifyPaymentResult is the response of verify-payment
type VerifyPaymentResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
}

// OrderItem is one line of a registered order
type OrderItem struct {
	ProductSKU  string  `json:"product_sku"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// RegisterOrderRequest is the body of POST register-order
type RegisterOrderRequest struct {
	OrderID string      `json:"order_id"`
	UserID  string      `json:"user_id"`
	Amount  float64     `json:"amount"`
	Status  string      `json:"status"`
	Items   []OrderItem `json:"items"`
}

// OutfitRequest is the body of POST outfit-suggestions
type OutfitRequest struct {
	UserID      string `json:"user_id"`
	ProductSKU  string `json:"product_sku"`
	ProductName string `json:"product_name"`
	Category    string `json:"category"`
	Color       string `json:"color"`
	Brand       string `json:"brand"`
}

// SupportTicketRequest is one support submission, already validated
type SupportTicketRequest struct {
	Mode   SupportMode       `json:"mode"`
	UserID string            `json:"user_id"`
	Fields map[string]string `json:"fields"`
}

// UnverifiedPayment is a captured payment whose verification failed
type UnverifiedPayment struct {
	PaymentID      string  `json:"payment_id"`
	GatewayOrderID string  `json:"gateway_order_id"`
	OrderID        string  `json:"order_id"`
	SessionToken   string  `json:"session_token"`
	Phone          string  `json:"phone"`
	Amount         float64 `json:"amount"`
	Reason         string  `json:"reason"`
}
