package workflows

import (
	"fmt"
	"strings"

	"go-chat-commerce/chat-commerce/types"
)

// checkoutEvent is the input of the checkout reducer
type checkoutEvent interface {
	name() string
}

type summaryShown struct {
	orderID string
	amount  float64
}

type paymentFailed struct {
	reason   string
	captured bool
}

type (
	itemSelected          struct{ item types.PendingCheckoutItem }
	payTapped             struct{ prefill *types.Address }
	addressRejected       struct{ errors map[string]string }
	addressAccepted       struct{ address types.Address }
	orderCreated          struct{ gateway types.GatewayConfig }
	gatewayOpened         struct{}
	paymentCallback       struct{}
	paymentVerified       struct{ order types.CompletedOrder }
	gatewayDismissed      struct{}
	paymentRecovered      struct{ gatewayOrderID string }
	confirmationAwaited   struct{ on bool }
	confirmationAbandoned struct{}
)

func (itemSelected) name() string          { return "item-selected" }
func (summaryShown) name() string          { return "summary-shown" }
func (payTapped) name() string             { return "pay-tapped" }
func (addressRejected) name() string       { return "address-rejected" }
func (addressAccepted) name() string       { return "address-accepted" }
func (orderCreated) name() string          { return "order-created" }
func (gatewayOpened) name() string         { return "gateway-opened" }
func (paymentCallback) name() string       { return "payment-callback" }
func (paymentVerified) name() string       { return "payment-verified" }
func (paymentFailed) name() string         { return "payment-failed" }
func (gatewayDismissed) name() string      { return "gateway-dismissed" }
func (paymentRecovered) name() string      { return "payment-recovered" }
func (confirmationAwaited) name() string   { return "confirmation-awaited" }
func (confirmationAbandoned) name() string { return "confirmation-abandoned" }

// checkoutState is the saga's state. Every field is written by apply only.
type checkoutState struct {
	stage          types.CheckoutStage
	pending        *types.PendingCheckoutItem
	attempt        *types.PaymentAttempt
	awaiting       bool
	addressPrefill *types.Address
	addressErrors  map[string]string
	gateway        *types.GatewayConfig
	lastOrder      *types.CompletedOrder
	lastError      string
	// captured marks a payment taken but not verified for the pending item;
	// paying again for it is refused until a new item is selected.
	captured bool
	// closed is the last attempt that failed or was cancelled with a gateway
	// order, kept with its item so a late success callback can still be
	// verified against that order.
	closed     *types.PaymentAttempt
	closedItem *types.PendingCheckoutItem
}

func newCheckoutState() *checkoutState {
	return &checkoutState{stage: types.StageIdle}
}

// processing is the re-entrancy guard: a payment attempt exists from address
// acceptance until a terminal outcome.
func (s *checkoutState) processing() bool {
	return s.attempt != nil
}

func (s *checkoutState) inFlight() bool {
	return s.attempt != nil && s.attempt.InFlight
}

// recoverable reports whether a success callback for gatewayOrderID belongs to
// the last closed attempt. An empty id matches that attempt.
func (s *checkoutState) recoverable(gatewayOrderID string) bool {
	if s.closed == nil || s.processing() {
		return false
	}
	return gatewayOrderID == "" || gatewayOrderID == s.closed.GatewayOrderID
}

// close keeps the current attempt for late callbacks. An attempt that never
// reached the gateway leaves the previous one in place.
func (s *checkoutState) close() {
	if s.attempt == nil || s.attempt.GatewayOrderID == "" || s.pending == nil {
		return
	}
	a, item := *s.attempt, *s.pending
	a.InFlight = false
	s.closed, s.closedItem = &a, &item
}

func illegal(s *checkoutState, ev checkoutEvent) error {
	return fmt.Errorf("%w: %s in stage %s", types.ErrIllegalTransition, ev.name(), s.stage)
}

// apply is the single transition function of the checkout saga
func (s *checkoutState) apply(ev checkoutEvent) error {
	switch e := ev.(type) {
	case itemSelected:
		if s.processing() {
			return illegal(s, ev)
		}
		item := e.item
		s.pending = &item
		s.stage = types.StageSelected
		s.captured = false
		s.closed, s.closedItem = nil, nil
		s.gateway = nil
		s.addressErrors = nil
		s.lastError = ""

	case summaryShown:
		if s.pending == nil || s.processing() || s.captured || e.amount <= 0 {
			return illegal(s, ev)
		}
		s.pending.OrderID = e.orderID
		s.pending.Amount = e.amount
		s.stage = types.StageConfirmedSummary
		s.awaiting = false

	case payTapped:
		if s.pending == nil || s.pending.OrderID == "" || s.processing() || s.captured {
			return illegal(s, ev)
		}
		switch s.stage {
		case types.StageConfirmedSummary, types.StageAddressPending, types.StageFailed, types.StageCancelled:
		default:
			return illegal(s, ev)
		}
		s.stage = types.StageAddressPending
		s.addressPrefill = e.prefill
		s.addressErrors = nil
		s.lastError = ""

	case addressRejected:
		if s.stage != types.StageAddressPending || s.processing() {
			return illegal(s, ev)
		}
		s.addressErrors = e.errors

	case addressAccepted:
		if s.stage != types.StageAddressPending || s.processing() {
			return illegal(s, ev)
		}
		addr := e.address
		s.addressErrors = nil
		s.addressPrefill = &addr
		s.attempt = &types.PaymentAttempt{
			Amount:          s.pending.Amount,
			Product:         s.pending.Card,
			ShippingAddress: addr,
		}

	case orderCreated:
		if s.stage != types.StageAddressPending || s.attempt == nil {
			return illegal(s, ev)
		}
		cfg := e.gateway
		s.attempt.GatewayOrderID = cfg.OrderID
		s.gateway = &cfg
		s.stage = types.StageOrderCreated

	case gatewayOpened:
		if s.stage != types.StageOrderCreated {
			return illegal(s, ev)
		}
		s.attempt.InFlight = true
		s.stage = types.StageGatewayOpen

	case paymentCallback:
		if s.stage != types.StageGatewayOpen {
			return illegal(s, ev)
		}
		s.stage = types.StageVerifying

	case paymentVerified:
		if s.stage != types.StageVerifying {
			return illegal(s, ev)
		}
		order := e.order
		s.lastOrder = &order
		s.pending = nil
		s.awaiting = false
		s.gateway = nil
		s.stage = types.StageCompleted
		s.attempt = nil
		s.closed, s.closedItem = nil, nil

	case paymentFailed:
		switch s.stage {
		case types.StageAddressPending, types.StageGatewayOpen, types.StageVerifying:
		default:
			return illegal(s, ev)
		}
		if s.attempt == nil {
			return illegal(s, ev)
		}
		if e.captured {
			s.closed, s.closedItem = nil, nil
		} else {
			s.close()
		}
		s.stage = types.StageFailed
		s.lastError = e.reason
		s.captured = e.captured
		s.gateway = nil
		s.attempt = nil

	case gatewayDismissed:
		if s.attempt == nil {
			return nil
		}
		if s.attempt.InFlight && s.stage == types.StageGatewayOpen {
			s.close()
			s.stage = types.StageCancelled
			s.gateway = nil
			s.attempt = nil
			return nil
		}
		s.attempt.InFlight = false

	case paymentRecovered:
		if !s.recoverable(e.gatewayOrderID) {
			return illegal(s, ev)
		}
		a, item := *s.closed, *s.closedItem
		s.attempt, s.pending = &a, &item
		s.closed, s.closedItem = nil, nil
		s.gateway = nil
		s.captured = false
		s.lastError = ""
		s.awaiting = false
		s.stage = types.StageVerifying

	case confirmationAwaited:
		s.awaiting = e.on

	case confirmationAbandoned:
		s.awaiting = false
		if s.stage == types.StageSelected && !s.processing() {
			s.pending = nil
			s.stage = types.StageIdle
		}

	default:
		return fmt.Errorf("unknown checkout event %T", ev)
	}
	return nil
}

// status is the query view; it shares nothing mutable with the state
func (s *checkoutState) status(diagnostics []string) types.CheckoutStatus {
	st := types.CheckoutStatus{
		Stage:                s.stage,
		AwaitingConfirmation: s.awaiting,
		LastError:            s.lastError,
	}
	if s.pending != nil {
		p := *s.pending
		st.Pending = &p
	}
	if s.attempt != nil {
		a := *s.attempt
		st.Attempt = &a
	}
	if s.addressPrefill != nil {
		a := *s.addressPrefill
		st.AddressPrefill = &a
	}
	if len(s.addressErrors) > 0 {
		st.AddressErrors = make(map[string]string, len(s.addressErrors))
		for k, v := range s.addressErrors {
			st.AddressErrors[k] = v
		}
	}
	if s.gateway != nil {
		g := *s.gateway
		st.Gateway = &g
	}
	if s.lastOrder != nil {
		o := *s.lastOrder
		st.LastOrder = &o
	}
	if len(diagnostics) > 0 {
		st.Diagnostics = append([]string(nil), diagnostics...)
	}
	return st
}

// carry captures the whole state for a continued run
func (s *checkoutState) carry() types.CheckoutCarry {
	return types.CheckoutCarry{
		Stage:          s.stage,
		Pending:        s.pending,
		Attempt:        s.attempt,
		Awaiting:       s.awaiting,
		AddressPrefill: s.addressPrefill,
		AddressErrors:  s.addressErrors,
		Gateway:        s.gateway,
		LastOrder:      s.lastOrder,
		LastError:      s.lastError,
		Captured:       s.captured,
		Closed:         s.closed,
		ClosedItem:     s.closedItem,
	}
}

func restoreCheckout(c types.CheckoutCarry) *checkoutState {
	s := &checkoutState{
		stage:          c.Stage,
		pending:        c.Pending,
		attempt:        c.Attempt,
		awaiting:       c.Awaiting,
		addressPrefill: c.AddressPrefill,
		addressErrors:  c.AddressErrors,
		gateway:        c.Gateway,
		lastOrder:      c.LastOrder,
		lastError:      c.LastError,
		captured:       c.Captured,
		closed:         c.Closed,
		closedItem:     c.ClosedItem,
	}
	if s.stage == "" {
		s.stage = types.StageIdle
	}
	if s.closed == nil || s.closedItem == nil {
		s.closed, s.closedItem = nil, nil
	}
	return s
}

// validateAddress checks the three required address fields
func validateAddress(addr types.Address) (types.Address, map[string]string) {
	addr = types.Address{
		City:     strings.TrimSpace(addr.City),
		Landmark: strings.TrimSpace(addr.Landmark),
		Building: strings.TrimSpace(addr.Building),
	}
	errs := map[string]string{}
	if addr.City == "" {
		errs["city"] = "City is required"
	}
	if addr.Landmark == "" {
		errs["landmark"] = "Landmark is required"
	}
	if addr.Building == "" {
		errs["building"] = "Building is required"
	}
	if len(errs) == 0 {
		return addr, nil
	}
	return addr, errs
}
