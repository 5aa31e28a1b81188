package activities

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"go-chat-commerce/chat-commerce/config"
	"go-chat-commerce/chat-commerce/gateway"
	"go-chat-commerce/chat-commerce/session"
	"go-chat-commerce/chat-commerce/types"
)

func newGateway(t *testing.T, handler http.HandlerFunc) *gateway.Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return gateway.New(config.Services{
		Session: srv.URL, SalesAgent: srv.URL, Loyalty: srv.URL,
		Payment: srv.URL, PostPurchase: srv.URL, Stylist: srv.URL,
	}, srv.Client())
}

type recordingLedger struct {
	recorded []types.UnverifiedPayment
}

func (r *recordingLedger) RecordUnverified(_ context.Context, p types.UnverifiedPayment) error {
	r.recorded = append(r.recorded, p)
	return nil
}

func TestAppendTranscript_SendsChatMessageUpdate(t *testing.T) {
	var got types.SessionUpdate
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/session/update", r.URL.Path)
		assert.Equal(t, "tok-1", r.Header.Get(gateway.SessionHeader))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	acts := &SessionActivities{Client: gw.Session}
	env.RegisterActivity(acts)

	msg := types.Message{
		ID: "m1", Text: "Order summary", Sender: types.SenderAgent,
		Attachment: &types.Attachment{Kind: types.AttachmentCheckoutSummary, Summary: &types.CheckoutSummary{OrderID: "ORDER-SKU1-1", Amount: 999}},
	}
	_, err := env.ExecuteActivity(acts.AppendTranscript, "tok-1", msg)
	require.NoError(t, err)
	assert.Equal(t, types.ActionChatMessage, got.Action)
	assert.Equal(t, "m1", got.Payload["id"])
	assert.Contains(t, got.Payload, "metadata")
}

func TestSaveAddress_UsesSessionStore(t *testing.T) {
	store := session.NewMemoryStore()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	acts := &SessionActivities{Manager: session.NewManager(store, nil, "web", nil)}
	env.RegisterActivity(acts)

	addr := types.Address{City: "Mumbai", Landmark: "Near Mall", Building: "Tower A"}
	_, err := env.ExecuteActivity(acts.SaveAddress, "9000000001", addr)
	require.NoError(t, err)

	saved, err := store.Address(context.Background(), "9000000001")
	require.NoError(t, err)
	assert.Equal(t, &addr, saved)
}

func TestCreatePaymentOrder_ServiceErrorIsTyped(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"gateway unavailable"}`, http.StatusBadGateway)
	})

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	acts := &PaymentActivities{Client: gw.Payment}
	env.RegisterActivity(acts)

	_, err := env.ExecuteActivity(acts.CreatePaymentOrder, types.CreateOrderRequest{AmountRupees: 999, Currency: "INR"})
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeService, appErr.Type())
}

func TestRecordUnverifiedPayment(t *testing.T) {
	var ts testsuite.WorkflowTestSuite

	t.Run("with ledger", func(t *testing.T) {
		env := ts.NewTestActivityEnvironment()
		ledger := &recordingLedger{}
		acts := &PaymentActivities{Ledger: ledger}
		env.RegisterActivity(acts)

		_, err := env.ExecuteActivity(acts.RecordUnverifiedPayment, types.UnverifiedPayment{PaymentID: "pay_1"})
		require.NoError(t, err)
		require.Len(t, ledger.recorded, 1)
		assert.Equal(t, "pay_1", ledger.recorded[0].PaymentID)
	})

	t.Run("without ledger", func(t *testing.T) {
		env := ts.NewTestActivityEnvironment()
		acts := &PaymentActivities{}
		env.RegisterActivity(acts)

		_, err := env.ExecuteActivity(acts.RecordUnverifiedPayment, types.UnverifiedPayment{PaymentID: "pay_1"})
		assert.NoError(t, err)
	})
}

func TestFetchOutfitSuggestions_NoPicks(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": false}`))
	})

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	acts := &StylistActivities{Client: gw.Stylist}
	env.RegisterActivity(acts)

	val, err := env.ExecuteActivity(acts.FetchOutfitSuggestions, types.OutfitRequest{ProductSKU: "SKU1"})
	require.NoError(t, err)
	var picks *types.StylistPicks
	require.NoError(t, val.Get(&picks))
	assert.Nil(t, picks)
}

func TestSendToAgent(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response": "Great pick! Please confirm your cart.", "products": [{"sku": "SKU1", "name": "Blue Shirt", "price": "₹999"}]}`))
	})

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	acts := &AgentActivities{Client: gw.Agent}
	env.RegisterActivity(acts)

	val, err := env.ExecuteActivity(acts.SendToAgent, types.Session{Token: "tok-1", Phone: "9000000001"}, "I want to buy Blue Shirt")
	require.NoError(t, err)
	var reply types.AgentReply
	require.NoError(t, val.Get(&reply))
	assert.Contains(t, reply.Text, "confirm your cart")
	require.Len(t, reply.Products, 1)
	assert.Equal(t, 999.0, reply.Products[0].Price)
}
