package idempotency

import "time"

// Status values for idempotency entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// Key prefixes namespace claims by what they guard.
const (
	sessionKeyPrefix = "checkout_session#"
	eventKeyPrefix   = "provider_event#"
)

// IdempotencyRecord is the shape persisted in the idempotency DynamoDB table.
type IdempotencyRecord struct {
	IdempotencyKey string    `dynamodbav:"idempotency_key"` // PK
	Status         string    `dynamodbav:"status"`
	OrderID        string    `dynamodbav:"order_id,omitempty"`
	ResponseBody   string    `dynamodbav:"response_body,omitempty"`   // confirmation payload replayed to duplicates
	ResponseStatus int       `dynamodbav:"response_status,omitempty"` // e.g., 200
	CreatedAt      time.Time `dynamodbav:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at"`
	ExpiresAt      int64     `dynamodbav:"expires_at"` // TTL epoch seconds
	Note           string    `dynamodbav:"note,omitempty"`
}

// SessionKey returns the claim key for a provider checkout session.
func SessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// EventKey returns the claim key for a provider webhook event.
func EventKey(eventID string) string {
	return eventKeyPrefix + eventID
}
