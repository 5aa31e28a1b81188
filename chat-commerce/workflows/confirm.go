package workflows

import "strings"

// The sales agent asks for cart confirmation in prose; these two predicates
// are the only place that knows the wording.
const (
	cartConfirmationPrompt = "please confirm your cart"
	confirmCommand         = "confirm"
)

// IsCartConfirmationPrompt reports whether an agent reply asks the user to confirm the cart
func IsCartConfirmationPrompt(text string) bool {
	return strings.Contains(strings.ToLower(text), cartConfirmationPrompt)
}

// IsConfirmCommand reports whether a user message is the literal confirmation
func IsConfirmCommand(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), confirmCommand)
}
