package types

// Signal and query names of the chat-session workflow
const (
	SignalRestoreTranscript = "restore-transcript"
	SignalSendMessage       = "send-message"
	SignalBuyNow            = "buy-now"
	SignalPayTapped         = "pay-tapped"
	SignalSubmitAddress     = "submit-address"
	SignalPaymentSuccess    = "payment-success"
	SignalPaymentFailed     = "payment-failed"
	SignalPaymentDismissed  = "payment-dismissed"
	SignalSupportMenu       = "support-menu"
	SignalSupportOpen       = "support-open"
	SignalSupportSubmit     = "support-submit"
	SignalSupportClose      = "support-close"
	SignalEndSession        = "end-session"

	QueryTimeline = "get-timeline"
	QueryCheckout = "get-checkout"
	QuerySupport  = "get-support"
	QuerySession  = "get-session"
)

// SendMessageRequest is the payload of the send-message signal
type SendMessageRequest struct {
	Text string `json:"text"`
}

// BuyNowRequest carries the raw card exactly as the UI received it
type BuyNowRequest struct {
	Card map[string]any `json:"card"`
}

// PaymentSuccess is the widget's success callback payload
type PaymentSuccess struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

// PaymentFailure is the widget's payment.failed event payload
type PaymentFailure struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// SupportOpenRequest opens a support form, optionally with caller context
type SupportOpenRequest struct {
	Mode    SupportMode       `json:"mode"`
	Context map[string]string `json:"context,omitempty"`
}

// SupportSubmission is the filled-in support form
type SupportSubmission struct {
	Fields map[string]string `json:"fields"`
}

// RestoreTranscript replays a stored transcript into the timeline
type RestoreTranscript struct {
	Entries []TranscriptEntry `json:"entries"`
}

// CheckoutSettings are the deployment-wide checkout parameters
type CheckoutSettings struct {
	Currency       string `json:"currency"`
	CheckoutSource string `json:"checkout_source"`
	MerchantName   string `json:"merchant_name"`
}

// ChatSessionInput starts the chat-session workflow. Carry is set only on a
// continuation of a session that outgrew one run.
type ChatSessionInput struct {
	Session  Session          `json:"session"`
	Fresh    bool             `json:"fresh"`
	Settings CheckoutSettings `json:"settings"`
	Carry    *SessionCarry    `json:"carry,omitempty"`
}

// SessionCarry is everything a session run hands to its continuation
type SessionCarry struct {
	Messages    []Message     `json:"messages"`
	Checkout    CheckoutCarry `json:"checkout"`
	Support     SupportStatus `json:"support"`
	Diagnostics []string      `json:"diagnostics,omitempty"`
	// Payments are the gateway payment ids already handled
	Payments []string `json:"payments,omitempty"`
}

// CheckoutCarry is the full checkout saga state, including what the query
// view leaves out.
type CheckoutCarry struct {
	Stage          CheckoutStage        `json:"stage"`
	Pending        *PendingCheckoutItem `json:"pending,omitempty"`
	Attempt        *PaymentAttempt      `json:"attempt,omitempty"`
	Awaiting       bool                 `json:"awaiting,omitempty"`
	AddressPrefill *Address             `json:"address_prefill,omitempty"`
	AddressErrors  map[string]string    `json:"address_errors,omitempty"`
	Gateway        *GatewayConfig       `json:"gateway,omitempty"`
	LastOrder      *CompletedOrder      `json:"last_order,omitempty"`
	LastError      string               `json:"last_error,omitempty"`
	Captured       bool                 `json:"captured,omitempty"`
	Closed         *PaymentAttempt      `json:"closed,omitempty"`
	ClosedItem     *PendingCheckoutItem `json:"closed_item,omitempty"`
}
