package types

import "time"

// Sender identifies who authored a chat message
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// DeliveryStatus is the cosmetic delivery state of a user-authored message
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

// Address is a delivery address collected before payment
type Address struct {
	City     string `json:"city"`
	Landmark string `json:"landmark"`
	Building string `json:"building"`
}

// Session is the customer's chat session
type Session struct {
	Token           string   `json:"token"`
	Phone           string   `json:"phone"`
	CustomerID      string   `json:"customer_id"`
	CustomerName    string   `json:"customer_name,omitempty"`
	LoyaltyTier     string   `json:"loyalty_tier,omitempty"`
	LoyaltyPoints   int      `json:"loyalty_points"`
	ShippingAddress *Address `json:"shipping_address,omitempty"`
}

// TranscriptEntry is one stored message returned by session restore
type TranscriptEntry struct {
	ID         string      `json:"id,omitempty"`
	Text       string      `json:"text"`
	Sender     Sender      `json:"sender"`
	Timestamp  time.Time   `json:"timestamp"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// EntryResult is what session entry hands to the chat workflow
type EntryResult struct {
	Session    Session           `json:"session"`
	Transcript []TranscriptEntry `json:"transcript"`
	Restored   bool              `json:"restored"`
}

// ProductCard is a normalized product as rendered in the chat
type ProductCard struct {
	SKU                string  `json:"sku"`
	Name               string  `json:"name"`
	Price              float64 `json:"price"`
	RawPrice           string  `json:"raw_price,omitempty"`
	Image              string  `json:"image,omitempty"`
	Description        string  `json:"description,omitempty"`
	PersonalizedReason string  `json:"personalized_reason,omitempty"`
	GiftMessage        string  `json:"gift_message,omitempty"`
	Brand              string  `json:"brand,omitempty"`
	Category           string  `json:"category,omitempty"`
	Color              string  `json:"color,omitempty"`
	Material           string  `json:"material,omitempty"`
}

// AttachmentKind tags the variant carried by an Attachment
type AttachmentKind string

const (
	AttachmentProductCards        AttachmentKind = "product_cards"
	AttachmentCheckoutSummary     AttachmentKind = "checkout_summary"
	AttachmentStylistPicks        AttachmentKind = "stylist_picks"
	AttachmentPostPurchaseOptions AttachmentKind = "post_purchase_options"
	AttachmentSupportReceipt      AttachmentKind = "support_receipt"
)

// CheckoutSummary is shown before payment; Amount is what will be charged
type CheckoutSummary struct {
	Product  ProductCard `json:"product"`
	Amount   float64     `json:"amount"`
	OrderID  string      `json:"order_id"`
	Quantity int         `json:"quantity"`
	Discount string      `json:"discount,omitempty"`
}

// StylistPicks holds outfit suggestions for a purchased product
type StylistPicks struct {
	PurchasedProduct    ProductCard   `json:"purchased_product"`
	RecommendedProducts []ProductCard `json:"recommended_products"`
	StylingTips         []string      `json:"styling_tips"`
}

// PostPurchaseOptions offers return, exchange, complaint and feedback
type PostPurchaseOptions struct {
	OrderID         string   `json:"order_id"`
	ProductName     string   `json:"product_name"`
	ProductSKU      string   `json:"product_sku"`
	Amount          float64  `json:"amount"`
	DeliveryAddress *Address `json:"delivery_address,omitempty"`
}

// SupportReceipt tags a support summary message with its mode and reference
type SupportReceipt struct {
	Mode      SupportMode `json:"mode"`
	Reference string      `json:"reference,omitempty"`
}

// Attachment is a tagged union; exactly the field matching Kind is set
type Attachment struct {
	Kind         AttachmentKind       `json:"kind"`
	Products     []ProductCard        `json:"products,omitempty"`
	Summary      *CheckoutSummary     `json:"summary,omitempty"`
	Stylist      *StylistPicks        `json:"stylist,omitempty"`
	PostPurchase *PostPurchaseOptions `json:"post_purchase,omitempty"`
	Support      *SupportReceipt      `json:"support,omitempty"`
}

// Message is one entry of the chat timeline
type Message struct {
	ID             string         `json:"id"`
	Text           string         `json:"text"`
	Sender         Sender         `json:"sender"`
	Timestamp      time.Time      `json:"timestamp"`
	DeliveryStatus DeliveryStatus `json:"delivery_status,omitempty"`
	Attachment     *Attachment    `json:"attachment,omitempty"`
}

// PendingCheckoutItem is the single product staged for purchase
type PendingCheckoutItem struct {
	Card     ProductCard `json:"card"`
	SKU      string      `json:"sku"`
	Name     string      `json:"name"`
	Price    float64     `json:"price"`
	RawPrice string      `json:"raw_price"`
	Quantity int         `json:"quantity"`
	OrderID  string      `json:"order_id,omitempty"`
	// Amount is the payable total once a summary has been shown.
	Amount float64 `json:"amount,omitempty"`
}

// PaymentAttempt is the ephemeral state of one gateway session
type PaymentAttempt struct {
	Amount          float64     `json:"amount"`
	Product         ProductCard `json:"product"`
	ShippingAddress Address     `json:"shipping_address"`
	GatewayOrderID  string      `json:"gateway_order_id,omitempty"`
	InFlight        bool        `json:"in_flight"`
}

// CheckoutStage is a state of the checkout saga
type CheckoutStage string

const (
	StageIdle             CheckoutStage = "idle"
	StageSelected         CheckoutStage = "selected"
	StageConfirmedSummary CheckoutStage = "confirmed-summary"
	StageAddressPending   CheckoutStage = "address-pending"
	StageOrderCreated     CheckoutStage = "order-created"
	StageGatewayOpen      CheckoutStage = "gateway-open"
	StageVerifying        CheckoutStage = "verifying"
	StageCompleted        CheckoutStage = "completed"
	StageCancelled        CheckoutStage = "cancelled"
	StageFailed           CheckoutStage = "failed"
)

// GatewayPrefill is the buyer identity handed to the payment widget
type GatewayPrefill struct {
	Name    string `json:"name,omitempty"`
	Contact string `json:"contact"`
}

// GatewayConfig is everything the UI needs to open the payment widget
type GatewayConfig struct {
	KeyID       string         `json:"key"`
	OrderID     string         `json:"order_id"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Prefill     GatewayPrefill `json:"prefill"`
}

// CompletedOrder is the most recent verified purchase of the session
type CompletedOrder struct {
	OrderID        string   `json:"order_id"`
	GatewayOrderID string   `json:"gateway_order_id"`
	PaymentID      string   `json:"payment_id"`
	ProductSKU     string   `json:"product_sku"`
	ProductName    string   `json:"product_name"`
	Amount         float64  `json:"amount"`
	Quantity       int      `json:"quantity"`
	Address        *Address `json:"address,omitempty"`
}

// CheckoutStatus is the query view of the checkout saga
type CheckoutStatus struct {
	Stage                CheckoutStage        `json:"stage"`
	Pending              *PendingCheckoutItem `json:"pending,omitempty"`
	Attempt              *PaymentAttempt      `json:"attempt,omitempty"`
	AwaitingConfirmation bool                 `json:"awaiting_confirmation"`
	AddressPrefill       *Address             `json:"address_prefill,omitempty"`
	AddressErrors        map[string]string    `json:"address_errors,omitempty"`
	Gateway              *GatewayConfig       `json:"gateway,omitempty"`
	LastOrder            *CompletedOrder      `json:"last_order,omitempty"`
	LastError            string               `json:"last_error,omitempty"`
	Diagnostics          []string             `json:"diagnostics,omitempty"`
}

// SupportMode selects a support ticket form
type SupportMode string

const (
	SupportReturn    SupportMode = "return"
	SupportExchange  SupportMode = "exchange"
	SupportComplaint SupportMode = "complaint"
	SupportFeedback  SupportMode = "feedback"
)

// SupportStage is a state of the support ticket workflow
type SupportStage string

const (
	SupportClosed     SupportStage = "closed"
	SupportMenuOpen   SupportStage = "menu-open"
	SupportFormOpen   SupportStage = "form-open"
	SupportSubmitting SupportStage = "submitting"
	SupportResult     SupportStage = "result"
	SupportError      SupportStage = "error"
)

// SupportTicketDraft is the form being filled in
type SupportTicketDraft struct {
	Mode   SupportMode       `json:"mode"`
	Fields map[string]string `json:"fields"`
}

// ReturnReason is a selectable return/exchange reason
type ReturnReason struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// SupportTicketResult is what the post-purchase service returned for a submission
type SupportTicketResult struct {
	Mode      SupportMode    `json:"mode"`
	Reference string         `json:"reference,omitempty"`
	Detail    string         `json:"detail,omitempty"`
	Raw       map[string]any `json:"raw,omitempty"`
}

// SupportStatus is the query view of the support panel
type SupportStatus struct {
	Stage         SupportStage         `json:"stage"`
	Draft         *SupportTicketDraft  `json:"draft,omitempty"`
	ReturnReasons []ReturnReason       `json:"return_reasons,omitempty"`
	IssueTypes    []string             `json:"issue_types,omitempty"`
	FieldErrors   map[string]string    `json:"field_errors,omitempty"`
	Result        *SupportTicketResult `json:"result,omitempty"`
	LastError     string               `json:"last_error,omitempty"`
}
