package workflows

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go-chat-commerce/chat-commerce/types"
)

func TestGreetingFor(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		who  string
		want string
	}{
		// 03:00 UTC is 08:30 in the store
		{"morning", time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC), "Asha",
			"Good morning, Asha! Welcome to our store. What are you shopping for today?"},
		{"afternoon", time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC), "Asha",
			"Good afternoon, Asha! Welcome to our store. What are you shopping for today?"},
		{"evening", time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC), "  ",
			"Good evening! Welcome to our store. What are you shopping for today?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, greetingFor(tt.who, tt.at))
		})
	}
}

func TestConfirmPredicates(t *testing.T) {
	assert.True(t, IsCartConfirmationPrompt("Great pick! Please confirm your cart by typing confirm."))
	assert.True(t, IsCartConfirmationPrompt("PLEASE CONFIRM YOUR CART"))
	assert.False(t, IsCartConfirmationPrompt("Your cart is confirmed"))

	assert.True(t, IsConfirmCommand(" Confirm "))
	assert.True(t, IsConfirmCommand("CONFIRM"))
	assert.False(t, IsConfirmCommand("confirm please"))
	assert.False(t, IsConfirmCommand("yes"))
}

func TestValidateSupport(t *testing.T) {
	assert.Nil(t, validateSupport(types.SupportExchange, map[string]string{
		"order_id": "O1", "product_sku": "SKU1", "reason_code": "SIZE", "current_size": "M", "requested_size": "L",
	}))

	errs := validateSupport(types.SupportExchange, map[string]string{"order_id": "O1", "product_sku": "SKU1"})
	assert.Len(t, errs, 3)
	assert.Contains(t, errs, "requested_size")

	errs = validateSupport(types.SupportFeedback, map[string]string{
		"order_id": "O1", "product_sku": "SKU1", "fit_rating": "0", "length_feedback": "short",
	})
	assert.Equal(t, map[string]string{"fit_rating": "must be a number from 1 to 5"}, errs)

	assert.Nil(t, validateSupport(types.SupportFeedback, map[string]string{
		"order_id": "O1", "product_sku": "SKU1", "fit_rating": "5", "length_feedback": "short",
	}))
}
