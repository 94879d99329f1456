package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrEmptyCart rejects a checkout with no line items.
	ErrEmptyCart = errors.New("no items provided")
	// ErrSetupRequired means the payment provider credentials are missing or placeholders.
	ErrSetupRequired = errors.New("payment system not configured")
	// ErrPaymentIncomplete means the provider does not report the session as paid.
	ErrPaymentIncomplete = errors.New("payment not completed")
	// ErrSessionNotFound means the provider has no session with the given id.
	ErrSessionNotFound = errors.New("checkout session not found")
	// ErrOrderClosed means payment succeeded for an order that already left PENDING.
	ErrOrderClosed = errors.New("order is no longer pending")
)

// SetupInstructions is returned to clients alongside ErrSetupRequired.
var SetupInstructions = map[string]string{
	"step1": "Sign up at https://stripe.com",
	"step2": "Go to Dashboard → Developers → API keys",
	"step3": "Copy your test secret key into STRIPE_SECRET_KEY",
	"step4": "Restart the service",
}

// ValidationError lists offending fields and the rule each one broke.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ProviderError carries the payment provider's classification of a failure.
type ProviderError struct {
	Type    string
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider %s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("provider %s: %s", e.Type, e.Message)
}
