package workflows

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-chat-commerce/chat-commerce/cards"
	"go-chat-commerce/chat-commerce/types"
)

var mumbai = types.Address{City: "Mumbai", Landmark: "Near Mall", Building: "Tower A"}

func shirt() types.PendingCheckoutItem {
	return types.PendingCheckoutItem{
		Card:     types.ProductCard{SKU: "SKU1", Name: "Blue Shirt", Price: 999},
		SKU:      "SKU1",
		Name:     "Blue Shirt",
		Price:    999,
		Quantity: 1,
	}
}

// drive applies events in order and fails on the first rejection
func drive(t *testing.T, s *checkoutState, events ...checkoutEvent) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, s.apply(ev), ev.name())
	}
}

func openGateway() []checkoutEvent {
	return []checkoutEvent{
		itemSelected{item: shirt()},
		summaryShown{orderID: "ORDER-SKU1-1", amount: 999},
		payTapped{},
		addressAccepted{address: mumbai},
		orderCreated{gateway: types.GatewayConfig{OrderID: "order_GW1", Amount: 99900}},
		gatewayOpened{},
	}
}

func TestCheckout_HappyPath(t *testing.T) {
	s := newCheckoutState()
	drive(t, s, openGateway()...)

	assert.Equal(t, types.StageGatewayOpen, s.stage)
	require.NotNil(t, s.attempt)
	assert.True(t, s.inFlight())
	assert.Equal(t, 999.0, s.attempt.Amount)
	assert.Equal(t, "order_GW1", s.attempt.GatewayOrderID)
	assert.Equal(t, mumbai, s.attempt.ShippingAddress)

	drive(t, s, paymentCallback{}, paymentVerified{order: types.CompletedOrder{OrderID: "ORDER-SKU1-1", PaymentID: "pay_1"}})

	assert.Equal(t, types.StageCompleted, s.stage)
	assert.Nil(t, s.pending)
	assert.Nil(t, s.attempt)
	assert.Nil(t, s.gateway)
	assert.False(t, s.processing())
	require.NotNil(t, s.lastOrder)
	assert.Equal(t, "pay_1", s.lastOrder.PaymentID)
}

func TestCheckout_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name   string
		before []checkoutEvent
		event  checkoutEvent
	}{
		{"summary without item", nil, summaryShown{orderID: "O", amount: 1}},
		{"pay before summary", []checkoutEvent{itemSelected{item: shirt()}}, payTapped{}},
		{"address before pay", []checkoutEvent{itemSelected{item: shirt()}, summaryShown{orderID: "O", amount: 1}}, addressAccepted{address: mumbai}},
		{"select while paying", openGateway(), itemSelected{item: shirt()}},
		{"summary while paying", openGateway(), summaryShown{orderID: "O2", amount: 5}},
		{"pay while paying", openGateway(), payTapped{}},
		{"verify without callback", openGateway(), paymentVerified{}},
		{"open gateway twice", openGateway(), gatewayOpened{}},
		{"failure without attempt", []checkoutEvent{itemSelected{item: shirt()}}, paymentFailed{reason: "x"}},
		{"summary without amount", []checkoutEvent{itemSelected{item: shirt()}}, summaryShown{orderID: "O", amount: 0}},
		{"summary with negative amount", []checkoutEvent{itemSelected{item: shirt()}}, summaryShown{orderID: "O", amount: -5}},
		{"recover without closed attempt", openGateway(), paymentRecovered{gatewayOrderID: "order_GW1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newCheckoutState()
			drive(t, s, tt.before...)
			before := s.status(nil)

			err := s.apply(tt.event)

			assert.True(t, errors.Is(err, types.ErrIllegalTransition), "got %v", err)
			assert.Equal(t, before, s.status(nil), "a rejected event leaves the state untouched")
		})
	}
}

func TestCheckout_AddressRejectionKeepsStage(t *testing.T) {
	s := newCheckoutState()
	drive(t, s, itemSelected{item: shirt()}, summaryShown{orderID: "O", amount: 999}, payTapped{prefill: &mumbai})

	drive(t, s, addressRejected{errors: map[string]string{"city": "City is required"}})

	assert.Equal(t, types.StageAddressPending, s.stage)
	assert.Equal(t, "City is required", s.addressErrors["city"])
	assert.Equal(t, &mumbai, s.addressPrefill)
	assert.False(t, s.processing())
}

func TestCheckout_DismissOnlyCancelsInFlight(t *testing.T) {
	s := newCheckoutState()
	drive(t, s, openGateway()...)
	drive(t, s, gatewayDismissed{})

	assert.Equal(t, types.StageCancelled, s.stage)
	assert.Nil(t, s.attempt)
	require.NotNil(t, s.pending)

	// a second dismissal has nothing to cancel
	drive(t, s, gatewayDismissed{})
	assert.Equal(t, types.StageCancelled, s.stage)

	drive(t, s, payTapped{})
	assert.Equal(t, types.StageAddressPending, s.stage)
}

func TestCheckout_DismissDuringVerificationClearsInFlightOnly(t *testing.T) {
	s := newCheckoutState()
	drive(t, s, openGateway()...)
	drive(t, s, paymentCallback{}, gatewayDismissed{})

	assert.Equal(t, types.StageVerifying, s.stage)
	require.NotNil(t, s.attempt)
	assert.False(t, s.attempt.InFlight)
	assert.True(t, s.processing())
}

func TestCheckout_CapturedPaymentBlocksRepayment(t *testing.T) {
	s := newCheckoutState()
	drive(t, s, openGateway()...)
	drive(t, s, paymentCallback{}, paymentFailed{reason: "payment verification failed", captured: true})

	assert.Equal(t, types.StageFailed, s.stage)
	assert.NotNil(t, s.pending)
	assert.ErrorIs(t, s.apply(payTapped{}), types.ErrIllegalTransition)
	assert.ErrorIs(t, s.apply(summaryShown{orderID: "O2", amount: 999}), types.ErrIllegalTransition)

	// choosing a new item starts over
	drive(t, s, itemSelected{item: shirt()}, summaryShown{orderID: "O3", amount: 999}, payTapped{})
	assert.Equal(t, types.StageAddressPending, s.stage)
}

func TestCheckout_FailureAllowsRetry(t *testing.T) {
	s := newCheckoutState()
	drive(t, s, openGateway()...)
	drive(t, s, paymentFailed{reason: "Card declined"})

	assert.Equal(t, types.StageFailed, s.stage)
	assert.Equal(t, "Card declined", s.lastError)
	assert.Nil(t, s.gateway)

	drive(t, s, payTapped{}, addressAccepted{address: mumbai})
	assert.Equal(t, 999.0, s.attempt.Amount)
	assert.Empty(t, s.lastError)
}

func TestCheckout_LateSuccessAfterFailureRecovers(t *testing.T) {
	s := newCheckoutState()
	drive(t, s, openGateway()...)
	drive(t, s, paymentFailed{reason: "Card declined"})

	assert.True(t, s.recoverable("order_GW1"))
	assert.True(t, s.recoverable(""), "a callback without an order id matches the closed attempt")
	assert.False(t, s.recoverable("order_OTHER"))
	assert.ErrorIs(t, s.apply(paymentRecovered{gatewayOrderID: "order_OTHER"}), types.ErrIllegalTransition)

	// a new summary for the same item does not change what the old order charged
	drive(t, s, summaryShown{orderID: "ORDER-SKU1-2", amount: 899})
	drive(t, s, paymentRecovered{gatewayOrderID: "order_GW1"})

	assert.Equal(t, types.StageVerifying, s.stage)
	require.NotNil(t, s.attempt)
	assert.False(t, s.inFlight())
	assert.Equal(t, "order_GW1", s.attempt.GatewayOrderID)
	assert.Equal(t, 999.0, s.attempt.Amount)
	assert.Equal(t, "ORDER-SKU1-1", s.pending.OrderID)
	assert.Empty(t, s.lastError)
	assert.False(t, s.recoverable("order_GW1"), "an attempt is recovered once")

	drive(t, s, paymentVerified{order: types.CompletedOrder{OrderID: "ORDER-SKU1-1", PaymentID: "pay_1"}})
	assert.Equal(t, types.StageCompleted, s.stage)
	assert.Nil(t, s.closed)
}

func TestCheckout_LateSuccessAfterDismissRecovers(t *testing.T) {
	s := newCheckoutState()
	drive(t, s, openGateway()...)
	drive(t, s, gatewayDismissed{})

	require.True(t, s.recoverable("order_GW1"))
	drive(t, s, paymentRecovered{gatewayOrderID: "order_GW1"})
	assert.Equal(t, types.StageVerifying, s.stage)
}

func TestCheckout_ClosedAttemptIsForgotten(t *testing.T) {
	tests := []struct {
		name  string
		after []checkoutEvent
	}{
		{"new item", []checkoutEvent{itemSelected{item: shirt()}}},
		{"captured failure", []checkoutEvent{payTapped{}, addressAccepted{address: mumbai},
			orderCreated{gateway: types.GatewayConfig{OrderID: "order_GW2"}}, gatewayOpened{},
			paymentCallback{}, paymentFailed{reason: "unverified", captured: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newCheckoutState()
			drive(t, s, openGateway()...)
			drive(t, s, paymentFailed{reason: "Card declined"})
			drive(t, s, tt.after...)

			assert.False(t, s.recoverable("order_GW1"))
			assert.False(t, s.recoverable(""))
		})
	}
}

func TestCheckout_RetryWithoutGatewayKeepsClosedAttempt(t *testing.T) {
	s := newCheckoutState()
	drive(t, s, openGateway()...)
	drive(t, s, paymentFailed{reason: "Card declined"})
	// the retry fails before a gateway order exists
	drive(t, s, payTapped{}, addressAccepted{address: mumbai}, paymentFailed{reason: "create-order failed"})

	assert.True(t, s.recoverable("order_GW1"))

	// while another attempt is open nothing is recovered
	drive(t, s, payTapped{}, addressAccepted{address: mumbai})
	assert.False(t, s.recoverable("order_GW1"))
}

func TestCheckout_CarryRestoresEveryField(t *testing.T) {
	s := newCheckoutState()
	drive(t, s, openGateway()...)
	drive(t, s, paymentFailed{reason: "Card declined"}, confirmationAwaited{on: true})

	raw, err := json.Marshal(s.carry())
	require.NoError(t, err)
	var carried types.CheckoutCarry
	require.NoError(t, json.Unmarshal(raw, &carried))
	restored := restoreCheckout(carried)

	assert.Equal(t, s.status(nil), restored.status(nil))
	assert.Equal(t, s.captured, restored.captured)
	assert.True(t, restored.recoverable("order_GW1"))
	assert.Equal(t, *s.closedItem, *restored.closedItem)

	assert.Equal(t, types.StageIdle, restoreCheckout(types.CheckoutCarry{}).stage)
}

func TestCheckout_AbandonOnlyDropsUnconfirmedItem(t *testing.T) {
	s := newCheckoutState()
	drive(t, s, itemSelected{item: shirt()}, confirmationAwaited{on: true}, confirmationAbandoned{})
	assert.Nil(t, s.pending)
	assert.Equal(t, types.StageIdle, s.stage)
	assert.False(t, s.awaiting)

	drive(t, s, itemSelected{item: shirt()}, summaryShown{orderID: "O", amount: 999}, confirmationAbandoned{})
	assert.NotNil(t, s.pending, "a confirmed summary survives small talk")
	assert.Equal(t, types.StageConfirmedSummary, s.stage)
}

func TestCheckout_StatusIsACopy(t *testing.T) {
	s := newCheckoutState()
	drive(t, s, openGateway()...)
	diagnostics := []string{"QuoteDiscount: down"}

	st := s.status(diagnostics)
	st.Pending.Price = 1
	st.Attempt.Amount = 1
	st.Gateway.Amount = 1
	st.Diagnostics[0] = "changed"

	assert.Equal(t, 999.0, s.pending.Price)
	assert.Equal(t, 999.0, s.attempt.Amount)
	assert.Equal(t, int64(99900), s.gateway.Amount)
	assert.Equal(t, "QuoteDiscount: down", diagnostics[0])
}

func TestValidateAddress(t *testing.T) {
	addr, errs := validateAddress(types.Address{City: "  Mumbai ", Landmark: "Near Mall", Building: "Tower A"})
	assert.Nil(t, errs)
	assert.Equal(t, "Mumbai", addr.City)

	_, errs = validateAddress(types.Address{City: " ", Landmark: "", Building: "Tower A"})
	assert.Equal(t, map[string]string{
		"city":     "City is required",
		"landmark": "Landmark is required",
	}, errs)
}

// The amount charged is always the amount the summary showed, whatever the
// price and quantity.
func TestCheckout_AttemptAmountMatchesSummary(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("attempt and gateway follow the summary", prop.ForAll(
		func(price float64, qty int) bool {
			item := shirt()
			item.Price = cards.RoundRupees(price)
			item.Quantity = qty
			amount := cards.RoundRupees(item.Price * float64(qty))

			s := newCheckoutState()
			for _, ev := range []checkoutEvent{
				itemSelected{item: item},
				summaryShown{orderID: "O", amount: amount},
				payTapped{},
				addressAccepted{address: mumbai},
			} {
				if s.apply(ev) != nil {
					return false
				}
			}
			return s.attempt.Amount == amount && s.pending.Amount == amount &&
				cards.ToPaise(s.attempt.Amount) == cards.ToPaise(amount)
		},
		gen.Float64Range(1, 200000),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}

// Arbitrary event sequences never break the stage invariants.
func TestCheckout_InvariantsHoldUnderAnySequence(t *testing.T) {
	events := []checkoutEvent{
		itemSelected{item: shirt()},
		summaryShown{orderID: "O", amount: 999},
		payTapped{},
		addressRejected{errors: map[string]string{"city": "City is required"}},
		addressAccepted{address: mumbai},
		orderCreated{gateway: types.GatewayConfig{OrderID: "order_GW1"}},
		gatewayOpened{},
		paymentCallback{},
		paymentVerified{order: types.CompletedOrder{OrderID: "O"}},
		paymentFailed{reason: "declined"},
		paymentFailed{reason: "unverified", captured: true},
		gatewayDismissed{},
		paymentRecovered{},
		confirmationAwaited{on: true},
		confirmationAbandoned{},
	}

	properties := gopter.NewProperties(nil)
	properties.Property("stage invariants", prop.ForAll(
		func(picks []int) bool {
			s := newCheckoutState()
			for _, i := range picks {
				_ = s.apply(events[i])

				switch s.stage {
				case types.StageGatewayOpen:
					if s.attempt == nil || !s.attempt.InFlight || s.gateway == nil {
						return false
					}
				case types.StageCompleted, types.StageIdle:
					if s.attempt != nil {
						return false
					}
				case types.StageConfirmedSummary, types.StageAddressPending:
					if s.pending == nil || s.pending.OrderID == "" {
						return false
					}
				}
				if s.attempt != nil && s.pending == nil {
					return false
				}
				if s.closed != nil && (s.closedItem == nil || s.closed.GatewayOrderID == "" || s.captured) {
					return false
				}
				if s.inFlight() && s.stage != types.StageGatewayOpen && s.stage != types.StageVerifying {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(events)-1)),
	))

	properties.TestingRun(t)
}
