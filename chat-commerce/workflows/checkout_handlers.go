package workflows

import (
	"fmt"
	"strings"

	"go.temporal.io/sdk/workflow"

	"go-chat-commerce/chat-commerce/cards"
	"go-chat-commerce/chat-commerce/types"
)

// buyNow stages a tapped product card and hands over to the ordinary
// message path; it never opens payment directly.
func (c *chat) buyNow(ctx workflow.Context, req types.BuyNowRequest) {
	if c.checkout.processing() {
		c.logger.Info("Payment in progress, ignoring buy now")
		return
	}

	card := cards.Normalize(req.Card)
	if card.SKU == "" && card.Name == "" {
		c.logger.Warn("Buy now without a usable product card")
		return
	}
	name := card.Name
	if name == "" {
		name = card.SKU
	}
	if card.Price <= 0 {
		c.logger.Warn("Buy now without a usable price", "sku", card.SKU, "rawPrice", card.RawPrice)
		c.appendAgent(ctx, fmt.Sprintf("Sorry, %s doesn't have a valid price right now, so it can't be bought here. Please pick another product.", name), nil)
		return
	}

	item := types.PendingCheckoutItem{
		Card:     card,
		SKU:      card.SKU,
		Name:     name,
		Price:    card.Price,
		RawPrice: card.RawPrice,
		Quantity: 1,
	}
	c.applyCheckout(confirmationAwaited{on: false})
	if !c.applyCheckout(itemSelected{item: item}) {
		return
	}
	c.logger.Info("Product selected", "sku", item.SKU, "price", item.Price)

	c.fireAndForget(ctx, "AddToCart", c.session.Token, item)
	c.converse(ctx, fmt.Sprintf("I want to buy %s", name))
}

// confirmCheckout fixes the payable amount and shows the checkout summary
func (c *chat) confirmCheckout(ctx workflow.Context) {
	if c.checkout.processing() {
		c.logger.Info("Payment in progress, ignoring confirmation")
		return
	}
	item := c.checkout.pending
	if item == nil {
		c.appendAgent(ctx, "Your cart is empty. Tap Buy Now on a product to start checkout.", nil)
		return
	}
	if c.checkout.captured {
		c.appendAgent(ctx, "A payment for this item is still awaiting verification. Please contact support before paying again.", nil)
		return
	}

	total := cards.RoundRupees(item.Price * float64(item.Quantity))
	if total <= 0 {
		c.logger.Warn("Refusing summary without a payable amount", "sku", item.SKU, "total", total)
		c.appendAgent(ctx, fmt.Sprintf("Sorry, I couldn't work out a valid price for %s. Please pick another product.", item.Name), nil)
		return
	}
	amount := total
	var discount string

	var quote *types.DiscountQuote
	err := workflow.ExecuteActivity(ctx, "QuoteDiscount", c.userID(), total).Get(ctx, &quote)
	if err != nil {
		c.logger.Warn("Discount quote unavailable, charging list price", "error", err)
		c.note("QuoteDiscount", err)
	} else if quote != nil && quote.FinalTotal > 0 && quote.FinalTotal <= total {
		amount = cards.RoundRupees(quote.FinalTotal)
		discount = quote.Message
	}

	orderID := fmt.Sprintf("ORDER-%s-%d", item.SKU, workflow.Now(ctx).UnixMilli())
	if !c.applyCheckout(summaryShown{orderID: orderID, amount: amount}) {
		return
	}

	summary := &types.CheckoutSummary{
		Product:  item.Card,
		Amount:   amount,
		OrderID:  orderID,
		Quantity: item.Quantity,
		Discount: discount,
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Order summary\n%s x%d\n", item.Name, item.Quantity)
	if discount != "" {
		fmt.Fprintf(&b, "%s\n", discount)
	}
	fmt.Fprintf(&b, "Total: %s\nOrder ID: %s\nPlease Pay Here", cards.FormatRupees(amount), orderID)

	c.appendAgent(ctx, b.String(), &types.Attachment{Kind: types.AttachmentCheckoutSummary, Summary: summary})
	c.logger.Info("Checkout summary shown", "orderID", orderID, "amount", amount)
}

// payTapped opens address collection, prefilled from any saved address
func (c *chat) payTapped(ctx workflow.Context) {
	if c.checkout.processing() {
		c.logger.Info("Payment in progress, ignoring pay tap")
		return
	}

	var prefill *types.Address
	if c.session.ShippingAddress != nil {
		addr := *c.session.ShippingAddress
		prefill = &addr
	} else {
		var saved *types.Address
		err := workflow.ExecuteActivity(ctx, "SavedAddress", c.session.Phone).Get(ctx, &saved)
		if err != nil {
			c.logger.Warn("Saved address unavailable", "error", err)
		}
		prefill = saved
	}
	c.applyCheckout(payTapped{prefill: prefill})
}

// submitAddress validates the address and creates the gateway order for the
// amount already shown in the summary.
func (c *chat) submitAddress(ctx workflow.Context, addr types.Address) {
	addr, fieldErrors := validateAddress(addr)
	if fieldErrors != nil {
		c.applyCheckout(addressRejected{errors: fieldErrors})
		return
	}
	if !c.applyCheckout(addressAccepted{address: addr}) {
		return
	}

	saved := addr
	c.session.ShippingAddress = &saved
	c.fireAndForget(ctx, "SaveAddress", c.session.Phone, addr)
	c.sendUserMessage(ctx, fmt.Sprintf("Deliver to: %s, %s, %s", addr.Building, addr.Landmark, addr.City))

	attempt := c.checkout.attempt
	pending := c.checkout.pending
	req := types.CreateOrderRequest{
		AmountRupees: attempt.Amount,
		Currency:     c.settings.Currency,
		Receipt:      pending.OrderID,
		Notes: map[string]string{
			"session_id":       c.session.Token,
			"phone":            c.session.Phone,
			"customer_id":      c.session.CustomerID,
			"product_sku":      pending.SKU,
			"product_name":     pending.Name,
			"checkout_source":  c.settings.CheckoutSource,
			"order_ref":        pending.OrderID,
			"address_city":     addr.City,
			"address_landmark": addr.Landmark,
			"address_building": addr.Building,
		},
	}

	var res *types.CreateOrderResult
	err := workflow.ExecuteActivity(ctx, "CreatePaymentOrder", req).Get(ctx, &res)
	if err == nil && res == nil {
		err = fmt.Errorf("create-order returned nothing")
	}
	if err != nil {
		c.logger.Error("Payment order creation failed", "orderID", pending.OrderID, "error", err)
		c.applyCheckout(paymentFailed{reason: err.Error()})
		c.appendAgent(ctx, "We couldn't start the payment right now. Please tap Please Pay Here to try again.", nil)
		return
	}

	gateway := types.GatewayConfig{
		KeyID:       res.KeyID,
		OrderID:     res.OrderID,
		Amount:      cards.ToPaise(attempt.Amount),
		Currency:    c.settings.Currency,
		Name:        c.settings.MerchantName,
		Description: pending.Name,
		Prefill: types.GatewayPrefill{
			Name:    c.session.CustomerName,
			Contact: c.session.Phone,
		},
	}
	if c.applyCheckout(orderCreated{gateway: gateway}) {
		c.applyCheckout(gatewayOpened{})
	}
	c.logger.Info("Payment gateway opened", "orderID", pending.OrderID, "gatewayOrderID", res.OrderID, "amount", attempt.Amount)
}

// paymentSucceeded verifies the widget's success callback and runs the
// post-purchase steps. After verification the payment is final: nothing that
// follows can undo the success message.
func (c *chat) paymentSucceeded(ctx workflow.Context, p types.PaymentSuccess) {
	if p.PaymentID != "" {
		if c.payments[p.PaymentID] {
			c.logger.Info("Duplicate payment callback", "paymentID", p.PaymentID)
			return
		}
		c.payments[p.PaymentID] = true
	}

	switch {
	case c.checkout.stage == types.StageGatewayOpen:
		c.applyCheckout(paymentCallback{})
	case c.checkout.recoverable(p.OrderID):
		// the widget stays open after payment.failed or a dismissal, so the
		// customer may still have paid on the same gateway order
		c.logger.Warn("Late payment callback, verifying closed attempt", "stage", c.checkout.stage, "paymentID", p.PaymentID)
		c.applyCheckout(paymentRecovered{gatewayOrderID: p.OrderID})
	default:
		c.unmatchedPayment(ctx, p)
		return
	}
	attempt := *c.checkout.attempt
	pending := *c.checkout.pending

	gatewayOrderID := p.OrderID
	if gatewayOrderID == "" {
		gatewayOrderID = attempt.GatewayOrderID
	}
	req := types.VerifyPaymentRequest{
		PaymentID:    p.PaymentID,
		OrderID:      gatewayOrderID,
		Signature:    p.Signature,
		AmountRupees: attempt.Amount,
		UserID:       c.userID(),
		Method:       "razorpay",
	}
	err := workflow.ExecuteActivity(ctx, "VerifyPayment", req).Get(ctx, nil)
	if err != nil {
		c.logger.Error("Payment captured but not verified", "paymentID", p.PaymentID, "error", err)
		c.applyCheckout(paymentFailed{reason: "payment verification failed", captured: true})
		c.appendAgent(ctx, fmt.Sprintf(
			"We received your payment but its verification failed. Please contact support with payment ID %s and do not pay again.",
			p.PaymentID), nil)
		c.fireAndForget(ctx, "RecordUnverifiedPayment", types.UnverifiedPayment{
			PaymentID:      p.PaymentID,
			GatewayOrderID: gatewayOrderID,
			OrderID:        pending.OrderID,
			SessionToken:   c.session.Token,
			Phone:          c.session.Phone,
			Amount:         attempt.Amount,
			Reason:         err.Error(),
		})
		return
	}
	c.logger.Info("Payment verified", "paymentID", p.PaymentID, "orderID", pending.OrderID)

	c.refreshLoyalty(ctx)

	c.appendAgent(ctx, fmt.Sprintf("Payment successful! Your order %s for %s (%s) is confirmed. Payment ID: %s",
		pending.OrderID, pending.Name, cards.FormatRupees(attempt.Amount), p.PaymentID), nil)

	quantity := pending.Quantity
	if quantity < 1 {
		quantity = 1
	}
	unitPrice := pending.Price
	if unitPrice <= 0 {
		unitPrice = cards.RoundRupees(attempt.Amount / float64(quantity))
	}
	register := types.RegisterOrderRequest{
		OrderID: pending.OrderID,
		UserID:  c.userID(),
		Amount:  attempt.Amount,
		Status:  "paid",
		Items: []types.OrderItem{{
			ProductSKU:  pending.SKU,
			ProductName: pending.Name,
			Quantity:    quantity,
			Price:       unitPrice,
		}},
	}
	outfit := types.OutfitRequest{
		UserID:      c.userID(),
		ProductSKU:  pending.SKU,
		ProductName: pending.Name,
		Category:    pending.Card.Category,
		Color:       pending.Card.Color,
		Brand:       pending.Card.Brand,
	}

	var picks *types.StylistPicks
	outcomes := fanOut(ctx,
		effect{name: "RegisterOrder", run: func(gctx workflow.Context) error {
			return workflow.ExecuteActivity(gctx, "RegisterOrder", register).Get(gctx, nil)
		}},
		effect{name: "FetchOutfitSuggestions", run: func(gctx workflow.Context) error {
			return workflow.ExecuteActivity(gctx, "FetchOutfitSuggestions", outfit).Get(gctx, &picks)
		}},
	)
	for _, o := range outcomes {
		if o.err != nil {
			c.logger.Warn("Post-purchase step failed", "step", o.name, "orderID", pending.OrderID, "error", o.err)
			c.note(o.name, o.err)
		}
	}

	if picks != nil {
		c.appendAgent(ctx, fmt.Sprintf("Here are a few ideas to style your %s.", pending.Name),
			&types.Attachment{Kind: types.AttachmentStylistPicks, Stylist: picks})
	}

	shipTo := attempt.ShippingAddress
	c.appendAgent(ctx, "Need help with this order? You can request a return or exchange, raise a complaint, or share feedback.",
		&types.Attachment{Kind: types.AttachmentPostPurchaseOptions, PostPurchase: &types.PostPurchaseOptions{
			OrderID:         pending.OrderID,
			ProductName:     pending.Name,
			ProductSKU:      pending.SKU,
			Amount:          attempt.Amount,
			DeliveryAddress: &shipTo,
		}})

	c.applyCheckout(paymentVerified{order: types.CompletedOrder{
		OrderID:        pending.OrderID,
		GatewayOrderID: gatewayOrderID,
		PaymentID:      p.PaymentID,
		ProductSKU:     pending.SKU,
		ProductName:    pending.Name,
		Amount:         attempt.Amount,
		Quantity:       quantity,
		Address:        &shipTo,
	}})
}

// unmatchedPayment handles a success callback that belongs to no open or
// closed attempt. A payment id means money may have moved, so it goes to the
// reconciliation ledger and the customer gets the id for support.
func (c *chat) unmatchedPayment(ctx workflow.Context, p types.PaymentSuccess) {
	if p.PaymentID == "" {
		c.logger.Warn("Payment callback without a payment id", "stage", c.checkout.stage)
		return
	}
	c.logger.Error("Payment callback matches no checkout", "stage", c.checkout.stage, "paymentID", p.PaymentID, "gatewayOrderID", p.OrderID)

	rec := types.UnverifiedPayment{
		PaymentID:      p.PaymentID,
		GatewayOrderID: p.OrderID,
		SessionToken:   c.session.Token,
		Phone:          c.session.Phone,
		Reason:         "payment callback matches no open checkout",
	}
	if pending := c.checkout.pending; pending != nil {
		rec.OrderID = pending.OrderID
		rec.Amount = pending.Amount
	}
	c.fireAndForget(ctx, "RecordUnverifiedPayment", rec)
	c.appendAgent(ctx, fmt.Sprintf(
		"We received payment %s but couldn't match it to your checkout, so it is not verified yet. Please contact support with payment ID %s and do not pay again.",
		p.PaymentID, p.PaymentID), nil)
}

// paymentFailed handles the widget's payment.failed event
func (c *chat) paymentFailed(ctx workflow.Context, f types.PaymentFailure) {
	if c.checkout.stage != types.StageGatewayOpen {
		c.logger.Warn("Payment failure without an open gateway", "stage", c.checkout.stage)
		return
	}
	reason := strings.TrimSpace(f.Description)
	if reason == "" {
		reason = "the payment was not completed"
	}
	c.applyCheckout(paymentFailed{reason: reason})
	c.appendAgent(ctx, fmt.Sprintf("Payment failed: %s. You can tap Please Pay Here to try again.", reason), nil)
	c.logger.Info("Payment failed", "code", f.Code, "reason", reason)
}

// gatewayDismissed handles the widget closing. Only a dismissal while the
// payment is still in flight is the user's cancellation.
func (c *chat) gatewayDismissed(ctx workflow.Context) {
	wasInFlight := c.checkout.inFlight()
	c.applyCheckout(gatewayDismissed{})
	if !wasInFlight {
		c.logger.Debug("Gateway dismissed after a terminal callback")
		return
	}
	c.appendAgent(ctx, "Checkout was closed before the payment finished. Tap Please Pay Here whenever you're ready.", nil)
}
