package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-chat-commerce/chat-commerce/config"
	"go-chat-commerce/chat-commerce/types"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.Services{
		Session:      srv.URL,
		SalesAgent:   srv.URL,
		Loyalty:      srv.URL,
		Payment:      srv.URL,
		PostPurchase: srv.URL,
		Stylist:      srv.URL,
	}, srv.Client())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSessionRestore_ReplaysTranscriptWithAttachments(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/session/restore", r.URL.Path)
		assert.Equal(t, "tok-1", r.Header.Get(SessionHeader))
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id":  "tok-1",
			"phone":       "9000000001",
			"customer_id": "cust-1",
			"chat_history": []map[string]any{
				{"id": "m1", "text": "hi", "sender": "user", "timestamp": "2026-01-02T10:00:00Z"},
				{"id": "m2", "text": "Here you go", "sender": "agent", "timestamp": "2026-01-02T10:00:01Z",
					"metadata": map[string]any{"products": []any{map[string]any{"sku": "SKU1", "name": "Blue Shirt", "price": "₹999"}}}},
				{"id": "m3", "text": "Summary", "sender": "agent",
					"metadata": map[string]any{"attachment": map[string]any{"kind": "checkout_summary", "summary": map[string]any{"order_id": "ORDER-SKU1-1", "amount": 999}}}},
			},
		})
	})

	res, err := gw.Session.Restore(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.True(t, res.Restored)
	assert.Equal(t, "cust-1", res.Session.CustomerID)
	require.Len(t, res.Transcript, 3)
	assert.Equal(t, types.SenderUser, res.Transcript[0].Sender)
	require.NotNil(t, res.Transcript[1].Attachment)
	assert.Equal(t, types.AttachmentProductCards, res.Transcript[1].Attachment.Kind)
	assert.Equal(t, 999.0, res.Transcript[1].Attachment.Products[0].Price)
	require.NotNil(t, res.Transcript[2].Attachment)
	assert.Equal(t, "ORDER-SKU1-1", res.Transcript[2].Attachment.Summary.OrderID)
}

func TestSessionRestore_NotFound(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "session expired"})
	})

	_, err := gw.Session.Restore(context.Background(), "gone")
	assert.ErrorIs(t, err, types.ErrSessionNotFound)
}

func TestSessionStart_RequiresSessionID(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "9000000001", body["phone"])
		assert.Equal(t, "web", body["channel"])
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	_, err := gw.Session.Start(context.Background(), "9000000001", "web")
	var se *types.ServiceError
	assert.True(t, errors.As(err, &se))
}

func TestCall_SuccessFalseIsServiceError(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "signature mismatch"})
	})

	_, err := gw.Payment.VerifyPayment(context.Background(), types.VerifyPaymentRequest{PaymentID: "pay_1"})
	var se *types.ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "payment", se.Service)
	assert.Contains(t, se.Error(), "signature mismatch")
}

func TestCreateOrder_SendsAmountAndNotes(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/create-order", r.URL.Path)
		var body types.CreateOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 999.0, body.AmountRupees)
		assert.Equal(t, "Mumbai", body.Notes["address_city"])
		writeJSON(w, http.StatusOK, map[string]any{
			"razorpay_key_id": "rzp_test",
			"order":           map[string]any{"id": "order_abc", "amount": 99900, "currency": "INR"},
		})
	})

	res, err := gw.Payment.CreateOrder(context.Background(), types.CreateOrderRequest{
		AmountRupees: 999.0,
		Currency:     "INR",
		Notes:        map[string]string{"address_city": "Mumbai"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", res.OrderID)
	assert.Equal(t, int64(99900), res.Order.Amount)
}

func TestOutfitSuggestions(t *testing.T) {
	t.Run("success false yields no picks", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": false})
		})
		picks, err := gw.Stylist.OutfitSuggestions(context.Background(), types.OutfitRequest{ProductSKU: "SKU1"})
		assert.NoError(t, err)
		assert.Nil(t, picks)
	})

	t.Run("recommendations are normalized", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"recommendation_id": "rec-1",
				"purchased_product": map[string]any{"sku": "SKU1", "name": "Blue Shirt"},
				"recommendations": map[string]any{
					"recommended_products": []any{map[string]any{"product_sku": "SKU9", "title": "Chinos", "price": "₹1,499"}},
					"styling_tips":         []string{"Roll the sleeves"},
				},
			})
		})
		picks, err := gw.Stylist.OutfitSuggestions(context.Background(), types.OutfitRequest{ProductSKU: "SKU1"})
		require.NoError(t, err)
		require.NotNil(t, picks)
		assert.Equal(t, "SKU9", picks.RecommendedProducts[0].SKU)
		assert.Equal(t, 1499.0, picks.RecommendedProducts[0].Price)
		assert.Equal(t, []string{"Roll the sleeves"}, picks.StylingTips)
	})
}

func TestSubmitSupportTicket(t *testing.T) {
	tests := []struct {
		mode     types.SupportMode
		path     string
		response map[string]any
		wantRef  string
	}{
		{types.SupportReturn, "/return", map[string]any{"return_id": "RET-1", "pickup_date": "2026-10-20"}, "RET-1"},
		{types.SupportExchange, "/exchange", map[string]any{"exchange_id": "EXC-1"}, "EXC-1"},
		{types.SupportComplaint, "/complaint", map[string]any{"complaint_id": "C-1", "ticket_number": "TKT-77"}, "TKT-77"},
		{types.SupportFeedback, "/feedback", map[string]any{"message": "Thanks!"}, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.path, r.URL.Path)
				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "cust-1", body["user_id"])
				writeJSON(w, http.StatusOK, tt.response)
			})
			res, err := gw.PostPurchase.Submit(context.Background(), types.SupportTicketRequest{
				Mode:   tt.mode,
				UserID: "cust-1",
				Fields: map[string]string{"order_id": "ORDER-SKU1-1", "product_sku": "SKU1", "fit_rating": "4"},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantRef, res.Reference)
		})
	}
}

func TestTransportFailureIsServiceError(t *testing.T) {
	gw := New(config.Services{Loyalty: "http://127.0.0.1:1"}, nil)

	_, err := gw.Loyalty.TierInfo(context.Background(), "cust-1")
	var se *types.ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 0, se.StatusCode)
}
