// Package payments adapts Stripe hosted checkout to the checkout.Provider interface.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/adyx-fashion/storefront/internal/checkout"
)

// AllowedShippingCountries are the destinations offered on the payment page.
var AllowedShippingCountries = []string{"US", "CA", "IN", "GB", "AU"}

// placeholderKeys are sample values shipped in env templates.
var placeholderKeys = []string{
	"sk_test_your_stripe_secret_key_here",
	"PASTE_YOUR_ACTUAL_SECRET_KEY_HERE",
	"your_stripe_secret_key_here",
}

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// StripeConfig configures the provider. Backend is optional and defaults to
// the live Stripe API.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Backend       stripe.Backend
}

// StripeProvider implements checkout.Provider with Stripe Checkout Sessions.
type StripeProvider struct {
	sessions      *session.Client
	secretKey     string
	webhookSecret string
}

func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	b := cfg.Backend
	if b == nil {
		b = stripe.GetBackend(stripe.APIBackend)
	}
	return &StripeProvider{
		sessions:      &session.Client{B: b, Key: cfg.SecretKey},
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
	}
}

// Configured reports whether a real secret key is present.
func (p *StripeProvider) Configured() bool {
	return KeyConfigured(p.secretKey)
}

// KeyConfigured rejects empty keys and the sample placeholders.
func KeyConfigured(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	for _, ph := range placeholderKeys {
		if strings.Contains(key, ph) {
			return false
		}
	}
	return true
}

func (p *StripeProvider) CreateSession(ctx context.Context, sp checkout.SessionParams) (*checkout.Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(sp.LineItems))
	for _, li := range sp.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(sp.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(li.Name),
					Description: stripe.String(li.Description),
				},
				UnitAmount: stripe.Int64(li.UnitAmount),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(sp.SuccessURL),
		CancelURL:          stripe.String(sp.CancelURL),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(AllowedShippingCountries),
		},
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		PhoneNumberCollection: &stripe.CheckoutSessionPhoneNumberCollectionParams{
			Enabled: stripe.Bool(true),
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Description: stripe.String(fmt.Sprintf("AdyX Fashion Order - %d item(s)", sp.ItemCount)),
		},
		ExpiresAt: stripe.Int64(sp.ExpiresAt.Unix()),
	}
	if sp.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(sp.CustomerEmail)
	}
	for k, v := range sp.Metadata {
		params.AddMetadata(k, v)
	}
	if sp.IdempotencyKey != "" {
		params.SetIdempotencyKey(sp.IdempotencyKey)
	}
	params.Context = ctx

	s, err := p.sessions.New(params)
	if err != nil {
		return nil, mapError(err)
	}
	return toSession(s), nil
}

func (p *StripeProvider) GetSession(ctx context.Context, id string) (*checkout.Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := p.sessions.Get(id, params)
	if err != nil {
		return nil, mapError(err)
	}
	return toSession(s), nil
}

func (p *StripeProvider) ExpireSession(ctx context.Context, id string) (*checkout.Session, error) {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	s, err := p.sessions.Expire(id, params)
	if err != nil {
		return nil, mapError(err)
	}
	return toSession(s), nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the session
// the event refers to.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (checkout.ProviderEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return checkout.ProviderEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	evt := checkout.ProviderEvent{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(evt.Type, "checkout.session.") && event.Data != nil {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return checkout.ProviderEvent{}, fmt.Errorf("decode checkout session: %w", err)
		}
		evt.SessionID = sess.ID
	}
	return evt, nil
}

func toSession(s *stripe.CheckoutSession) *checkout.Session {
	out := &checkout.Session{
		ID:            s.ID,
		URL:           s.URL,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		CustomerEmail: s.CustomerEmail,
		Metadata:      s.Metadata,
	}
	if out.CustomerEmail == "" && s.CustomerDetails != nil {
		out.CustomerEmail = s.CustomerDetails.Email
	}
	if s.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	}
	return out
}

func mapError(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("stripe: %w", err)
	}
	if se.Code == stripe.ErrorCodeResourceMissing {
		return checkout.ErrSessionNotFound
	}
	return &checkout.ProviderError{
		Type:    string(se.Type),
		Code:    string(se.Code),
		Message: se.Msg,
	}
}
