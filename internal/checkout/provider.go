package checkout

import (
	"context"
	"time"
)

// Provider session states.
const (
	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"

	SessionStatusOpen     = "open"
	SessionStatusComplete = "complete"
	SessionStatusExpired  = "expired"
)

// Provider webhook event types handled by the worker.
const (
	EventSessionCompleted          = "checkout.session.completed"
	EventSessionExpired            = "checkout.session.expired"
	EventSessionAsyncPaymentPassed = "checkout.session.async_payment_succeeded"
	EventSessionAsyncPaymentFailed = "checkout.session.async_payment_failed"
)

// LineItem is one priced row on the hosted payment page.
type LineItem struct {
	Name        string
	Description string
	UnitAmount  int64
	Quantity    int64
}

// SessionParams describes a hosted checkout session to open.
type SessionParams struct {
	Currency       string
	CustomerEmail  string
	LineItems      []LineItem
	ItemCount      int
	SuccessURL     string
	CancelURL      string
	ExpiresAt      time.Time
	Metadata       map[string]string
	IdempotencyKey string
}

// Session is the provider's view of a checkout session.
type Session struct {
	ID            string
	URL           string
	Status        string
	PaymentStatus string
	AmountTotal   int64
	CustomerEmail string
	Metadata      map[string]string
	ExpiresAt     time.Time
}

func (s *Session) Paid() bool { return s.PaymentStatus == PaymentStatusPaid }

// Provider is a hosted-checkout payment processor. Implementations return
// *ProviderError for processor failures and ErrSessionNotFound for unknown ids.
type Provider interface {
	Configured() bool
	CreateSession(ctx context.Context, p SessionParams) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	ExpireSession(ctx context.Context, id string) (*Session, error)
}

// ProviderEvent is a verified webhook notification about a checkout session.
type ProviderEvent struct {
	ID        string `json:"event_id"`
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}
