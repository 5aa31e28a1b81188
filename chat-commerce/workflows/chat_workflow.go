package workflows

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"go-chat-commerce/chat-commerce/types"
)

const (
	deliveredAfter = 500 * time.Millisecond
	readAfter      = 1000 * time.Millisecond

	maxDiagnostics = 50

	// signalsPerRun bounds the signals one run handles before the session
	// continues as new, on top of the server's own suggestion.
	signalsPerRun = 2000
)

// chat is the state of one running chat session
type chat struct {
	session     types.Session
	settings    types.CheckoutSettings
	timeline    *Timeline
	checkout    *checkoutState
	support     *supportState
	diagnostics []string
	// payments are gateway payment ids already handled, so a repeated
	// callback is not verified or recorded twice
	payments   map[string]bool
	background workflow.WaitGroup
	handled    int
	messages   int
	ended      bool
	logger     log.Logger
}

// ChatSessionWorkflow runs one customer's chat session: the message timeline,
// the checkout saga and the support panel. UI events arrive as signals and
// the UI reads state through queries. It returns once the session is ended,
// or continues as new with its state carried when the history grows long.
func ChatSessionWorkflow(ctx workflow.Context, input types.ChatSessionInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Chat session started", "phone", input.Session.Phone, "fresh", input.Fresh)

	// Nothing here is retried automatically; every retry is a new user action.
	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	c := &chat{
		session:    input.Session,
		settings:   withDefaults(input.Settings),
		timeline:   NewTimeline(),
		checkout:   newCheckoutState(),
		support:    newSupportState(),
		payments:   map[string]bool{},
		background: workflow.NewWaitGroup(ctx),
		logger:     logger,
	}
	if input.Carry != nil {
		c.restore(*input.Carry)
		logger.Info("Chat session continued", "messages", c.timeline.Len(), "stage", c.checkout.stage)
	}

	if err := c.registerQueries(ctx); err != nil {
		return err
	}

	selector := c.signals(ctx)

	if input.Carry == nil {
		c.refreshLoyalty(ctx)
		if input.Fresh {
			c.appendAgent(ctx, greetingFor(c.session.CustomerName, workflow.Now(ctx)), nil)
		}
	}

	for !c.ended {
		selector.Select(ctx)
		c.handled++

		if c.ended || !c.continueAsNewDue(ctx) {
			continue
		}
		if c.drain(ctx, selector) {
			break
		}
		logger.Info("Chat session continuing as new", "signals", c.handled, "messages", c.timeline.Len())
		return workflow.NewContinueAsNewError(ctx, ChatSessionWorkflow, c.continuation(input))
	}

	err := workflow.ExecuteActivity(ctx, "EndSession", c.session).Get(ctx, nil)
	if err != nil {
		logger.Warn("Failed to end session", "error", err)
	}

	logger.Info("Chat session ended", "phone", c.session.Phone, "messages", c.timeline.Len())
	return nil
}

// signals wires every UI signal into one selector. Handlers run one at a
// time, so a signal never observes another half-applied.
func (c *chat) signals(ctx workflow.Context) workflow.Selector {
	selector := workflow.NewSelector(ctx)

	selector.AddReceive(workflow.GetSignalChannel(ctx, types.SignalRestoreTranscript), func(ch workflow.ReceiveChannel, more bool) {
		var req types.RestoreTranscript
		ch.Receive(ctx, &req)
		added := c.timeline.Replay(c.session.Token, req.Entries)
		c.logger.Info("Transcript restored", "entries", len(req.Entries), "added", added)
	})

	selector.AddReceive(workflow.GetSignalChannel(ctx, types.SignalSendMessage), func(ch workflow.ReceiveChannel, more bool) {
		var req types.SendMessageRequest
		ch.Receive(ctx, &req)
		c.handleMessage(ctx, req.Text)
	})

	selector.AddReceive(workflow.GetSignalChannel(ctx, types.SignalBuyNow), func(ch workflow.ReceiveChannel, more bool) {
		var req types.BuyNowRequest
		ch.Receive(ctx, &req)
		c.buyNow(ctx, req)
	})

	selector.AddReceive(workflow.GetSignalChannel(ctx, types.SignalPayTapped), func(ch workflow.ReceiveChannel, more bool) {
		ch.Receive(ctx, nil)
		c.payTapped(ctx)
	})

	selector.AddReceive(workflow.GetSignalChannel(ctx, types.SignalSubmitAddress), func(ch workflow.ReceiveChannel, more bool) {
		var addr types.Address
		ch.Receive(ctx, &addr)
		c.submitAddress(ctx, addr)
	})

	selector.AddReceive(workflow.GetSignalChannel(ctx, types.SignalPaymentSuccess), func(ch workflow.ReceiveChannel, more bool) {
		var payload types.PaymentSuccess
		ch.Receive(ctx, &payload)
		c.paymentSucceeded(ctx, payload)
	})

	selector.AddReceive(workflow.GetSignalChannel(ctx, types.SignalPaymentFailed), func(ch workflow.ReceiveChannel, more bool) {
		var payload types.PaymentFailure
		ch.Receive(ctx, &payload)
		c.paymentFailed(ctx, payload)
	})

	selector.AddReceive(workflow.GetSignalChannel(ctx, types.SignalPaymentDismissed), func(ch workflow.ReceiveChannel, more bool) {
		ch.Receive(ctx, nil)
		c.gatewayDismissed(ctx)
	})

	selector.AddReceive(workflow.GetSignalChannel(ctx, types.SignalSupportMenu), func(ch workflow.ReceiveChannel, more bool) {
		ch.Receive(ctx, nil)
		c.openSupportMenu()
	})

	selector.AddReceive(workflow.GetSignalChannel(ctx, types.SignalSupportOpen), func(ch workflow.ReceiveChannel, more bool) {
		var req types.SupportOpenRequest
		ch.Receive(ctx, &req)
		c.openSupportForm(ctx, req)
	})

	selector.AddReceive(workflow.GetSignalChannel(ctx, types.SignalSupportSubmit), func(ch workflow.ReceiveChannel, more bool) {
		var sub types.SupportSubmission
		ch.Receive(ctx, &sub)
		c.submitSupport(ctx, sub)
	})

	selector.AddReceive(workflow.GetSignalChannel(ctx, types.SignalSupportClose), func(ch workflow.ReceiveChannel, more bool) {
		ch.Receive(ctx, nil)
		c.closeSupport()
	})

	selector.AddReceive(workflow.GetSignalChannel(ctx, types.SignalEndSession), func(ch workflow.ReceiveChannel, more bool) {
		ch.Receive(ctx, nil)
		c.ended = true
	})

	return selector
}

func (c *chat) continueAsNewDue(ctx workflow.Context) bool {
	return c.handled >= signalsPerRun || workflow.GetInfo(ctx).GetContinueAsNewSuggested()
}

// drain handles every buffered signal and waits out background work, so
// nothing is lost when the run closes. It reports whether the session ended.
func (c *chat) drain(ctx workflow.Context, selector workflow.Selector) bool {
	for {
		for selector.HasPending() && !c.ended {
			selector.Select(ctx)
		}
		if c.ended {
			return true
		}
		c.background.Wait(ctx)
		if !selector.HasPending() {
			return false
		}
	}
}

// continuation is the input of the next run of this session
func (c *chat) continuation(input types.ChatSessionInput) types.ChatSessionInput {
	payments := make([]string, 0, len(c.payments))
	for id := range c.payments {
		payments = append(payments, id)
	}
	sort.Strings(payments)

	return types.ChatSessionInput{
		Session:  c.session,
		Settings: input.Settings,
		Carry: &types.SessionCarry{
			Messages:    c.timeline.Messages(),
			Checkout:    c.checkout.carry(),
			Support:     c.support.status(),
			Diagnostics: append([]string(nil), c.diagnostics...),
			Payments:    payments,
		},
	}
}

func (c *chat) restore(carry types.SessionCarry) {
	for _, msg := range carry.Messages {
		c.timeline.Append(msg)
	}
	c.checkout = restoreCheckout(carry.Checkout)
	c.support = restoreSupport(carry.Support)
	c.diagnostics = append([]string(nil), carry.Diagnostics...)
	for _, id := range carry.Payments {
		c.payments[id] = true
	}
}

func withDefaults(s types.CheckoutSettings) types.CheckoutSettings {
	if s.Currency == "" {
		s.Currency = "INR"
	}
	if s.CheckoutSource == "" {
		s.CheckoutSource = "chat"
	}
	return s
}

func (c *chat) registerQueries(ctx workflow.Context) error {
	err := workflow.SetQueryHandler(ctx, types.QueryTimeline, func() ([]types.Message, error) {
		return c.timeline.Messages(), nil
	})
	if err != nil {
		return err
	}

	err = workflow.SetQueryHandler(ctx, types.QueryCheckout, func() (types.CheckoutStatus, error) {
		return c.checkout.status(c.diagnostics), nil
	})
	if err != nil {
		return err
	}

	err = workflow.SetQueryHandler(ctx, types.QuerySupport, func() (types.SupportStatus, error) {
		return c.support.status(), nil
	})
	if err != nil {
		return err
	}

	return workflow.SetQueryHandler(ctx, types.QuerySession, func() (types.Session, error) {
		sess := c.session
		if sess.ShippingAddress != nil {
			addr := *sess.ShippingAddress
			sess.ShippingAddress = &addr
		}
		return sess, nil
	})
}

func (c *chat) userID() string {
	if c.session.CustomerID != "" {
		return c.session.CustomerID
	}
	return c.session.Phone
}

// note records a best-effort failure for the checkout query
func (c *chat) note(step string, err error) {
	c.diagnostics = append(c.diagnostics, fmt.Sprintf("%s: %v", step, err))
	if len(c.diagnostics) > maxDiagnostics {
		c.diagnostics = c.diagnostics[len(c.diagnostics)-maxDiagnostics:]
	}
}

// applyCheckout runs one checkout transition and logs a rejected one
func (c *chat) applyCheckout(ev checkoutEvent) bool {
	if err := c.checkout.apply(ev); err != nil {
		c.logger.Warn("Checkout transition rejected", "event", ev.name(), "error", err)
		return false
	}
	return true
}

// fireAndForget starts an activity whose failure is only logged
func (c *chat) fireAndForget(ctx workflow.Context, activity string, args ...interface{}) {
	future := workflow.ExecuteActivity(ctx, activity, args...)
	c.background.Add(1)
	workflow.Go(ctx, func(gctx workflow.Context) {
		defer c.background.Done()
		if err := future.Get(gctx, nil); err != nil {
			c.logger.Warn("Best-effort activity failed", "activity", activity, "error", err)
			c.note(activity, err)
		}
	})
}

func (c *chat) newMessage(ctx workflow.Context, sender types.Sender, text string, att *types.Attachment) types.Message {
	c.messages++
	encoded := workflow.SideEffect(ctx, func(workflow.Context) interface{} {
		return uuid.NewString()
	})
	fallback := fmt.Sprintf("msg-%s-%d", workflow.GetInfo(ctx).WorkflowExecution.RunID, c.messages)
	id, err := messageID(encoded, fallback)
	if err != nil {
		c.logger.Warn("Message id unavailable, using fallback", "id", id, "error", err)
	}

	return types.Message{
		ID:         id,
		Text:       text,
		Sender:     sender,
		Timestamp:  workflow.Now(ctx),
		Attachment: att,
	}
}

// messageID decodes a side-effect message id. Any failure yields fallback,
// since an empty id would make the timeline drop the message.
func messageID(encoded converter.EncodedValue, fallback string) (string, error) {
	var id string
	if err := encoded.Get(&id); err != nil {
		return fallback, err
	}
	if id == "" {
		return fallback, errors.New("empty message id")
	}
	return id, nil
}

// sendUserMessage appends the user's message optimistically and persists it
// in the background. Delivery status then advances on local timers only.
func (c *chat) sendUserMessage(ctx workflow.Context, text string) types.Message {
	msg := c.newMessage(ctx, types.SenderUser, text, nil)
	msg.DeliveryStatus = types.StatusSent
	c.timeline.Append(msg)
	c.fireAndForget(ctx, "AppendTranscript", c.session.Token, msg)

	c.advanceStatusAfter(ctx, msg.ID, types.StatusDelivered, deliveredAfter)
	c.advanceStatusAfter(ctx, msg.ID, types.StatusRead, readAfter)
	return msg
}

func (c *chat) advanceStatusAfter(ctx workflow.Context, id string, status types.DeliveryStatus, d time.Duration) {
	c.background.Add(1)
	workflow.Go(ctx, func(gctx workflow.Context) {
		defer c.background.Done()
		if err := workflow.Sleep(gctx, d); err != nil {
			return
		}
		c.timeline.SetStatus(id, status)
	})
}

func (c *chat) appendAgent(ctx workflow.Context, text string, att *types.Attachment) types.Message {
	msg := c.newMessage(ctx, types.SenderAgent, text, att)
	c.timeline.Append(msg)
	c.fireAndForget(ctx, "AppendTranscript", c.session.Token, msg)
	return msg
}

// handleMessage routes a typed user message. While a cart confirmation is
// awaited the literal "confirm" goes to checkout instead of the agent.
func (c *chat) handleMessage(ctx workflow.Context, text string) {
	if c.checkout.awaiting {
		if IsConfirmCommand(text) {
			c.sendUserMessage(ctx, text)
			c.applyCheckout(confirmationAwaited{on: false})
			c.confirmCheckout(ctx)
			return
		}
		c.applyCheckout(confirmationAbandoned{})
	}
	c.converse(ctx, text)
}

// converse sends text to the sales agent and appends its reply
func (c *chat) converse(ctx workflow.Context, text string) {
	c.sendUserMessage(ctx, text)

	var reply *types.AgentReply
	err := workflow.ExecuteActivity(ctx, "SendToAgent", c.session, text).Get(ctx, &reply)
	if err != nil || reply == nil {
		c.logger.Warn("Sales agent unavailable", "error", err)
		c.appendAgent(ctx, "Sorry, I couldn't reach our shopping assistant just now. Please try again in a moment.", nil)
		return
	}

	var att *types.Attachment
	if len(reply.Products) > 0 {
		att = &types.Attachment{Kind: types.AttachmentProductCards, Products: reply.Products}
	}
	c.appendAgent(ctx, reply.Text, att)

	if IsCartConfirmationPrompt(reply.Text) {
		c.applyCheckout(confirmationAwaited{on: true})
	}
}

// refreshLoyalty updates the session's tier and points, best effort
func (c *chat) refreshLoyalty(ctx workflow.Context) {
	var info *types.TierInfo
	err := workflow.ExecuteActivity(ctx, "FetchTierInfo", c.userID()).Get(ctx, &info)
	if err != nil {
		c.logger.Warn("Loyalty tier unavailable", "error", err)
		c.note("FetchTierInfo", err)
		return
	}
	if info != nil {
		c.session.LoyaltyTier = info.Tier
		c.session.LoyaltyPoints = info.Points
	}
}
