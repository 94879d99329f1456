package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adyx-fashion/storefront/internal/aws"
	"github.com/adyx-fashion/storefront/internal/cart"
	"github.com/adyx-fashion/storefront/internal/idempotency"
	"github.com/adyx-fashion/storefront/internal/orders"
)

// DefaultSessionTTL is how long a hosted checkout session stays payable.
const DefaultSessionTTL = 30 * time.Minute

// EventOrderConfirmed is the notification type published once per order.
const EventOrderConfirmed = "order.confirmed"

// Notifier publishes domain events.
type Notifier interface {
	Publish(ctx context.Context, eventType string, event interface{}) error
}

// Config holds checkout URLs and provider settings.
type Config struct {
	Currency    string
	FrontendURL string // success page host
	APIBaseURL  string // cancel callback host
	SessionTTL  time.Duration
}

// Deps groups the collaborators of a Service. Carts, Notifier and Metrics are optional.
type Deps struct {
	Provider Provider
	Orders   *orders.Store
	Claims   *idempotency.Store
	Carts    cart.Persister
	Notifier Notifier
	Metrics  *aws.Metrics
	Logger   *zap.Logger
}

// Service orchestrates hosted checkout: it opens provider sessions and turns
// paid sessions into exactly one order each.
type Service struct {
	provider Provider
	orders   *orders.Store
	claims   *idempotency.Store
	carts    cart.Persister
	notifier Notifier
	metrics  *aws.Metrics
	log      *zap.Logger
	cfg      Config
	nowFunc  func() time.Time
	newID    func() string
}

func NewService(d Deps, cfg Config) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		provider: d.Provider,
		orders:   d.Orders,
		claims:   d.Claims,
		carts:    d.Carts,
		notifier: d.Notifier,
		metrics:  d.Metrics,
		log:      log,
		cfg:      cfg,
		nowFunc:  time.Now,
		newID:    uuid.NewString,
	}
}

// Request is a checkout submission.
type Request struct {
	Items    []Item
	Customer CustomerInfo
	UserID   string
	CartID   string
}

// CreateResult identifies the opened session and its pending order.
type CreateResult struct {
	SessionID string
	URL       string
	OrderID   string
	ExpiresAt time.Time
}

// Confirmation is the outcome of confirming a paid session. Replayed is true
// when the order had already been created by an earlier confirmation.
type Confirmation struct {
	Order    *orders.Order
	Replayed bool
}

// CreateSession prices the cart, opens a provider session carrying the
// checkout snapshot and records a PENDING order.
func (s *Service) CreateSession(ctx context.Context, req Request) (*CreateResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if !s.provider.Configured() {
		return nil, ErrSetupRequired
	}

	totals := ComputeTotals(req.Items)
	orderID := s.newID()
	now := s.nowFunc().UTC()
	expiresAt := now.Add(s.cfg.SessionTTL)

	md, err := Metadata{
		OrderID:  orderID,
		UserID:   req.UserID,
		CartID:   req.CartID,
		Customer: req.Customer,
		Items:    req.Items,
		Totals:   totals,
	}.Encode()
	if err != nil {
		return nil, err
	}

	params := SessionParams{
		Currency:       s.cfg.Currency,
		CustomerEmail:  req.Customer.Email,
		LineItems:      LineItems(req.Items, totals),
		ItemCount:      len(req.Items),
		SuccessURL:     strings.TrimRight(s.cfg.FrontendURL, "/") + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      strings.TrimRight(s.cfg.APIBaseURL, "/") + "/checkout/cancel?session_id={CHECKOUT_SESSION_ID}",
		ExpiresAt:      expiresAt,
		Metadata:       md,
		IdempotencyKey: "checkout-" + orderID,
	}

	start := s.nowFunc()
	sess, err := s.provider.CreateSession(ctx, params)
	s.latency(ctx, "create_session", start)
	if err != nil {
		s.count(ctx, aws.MetricCheckoutFailures, map[string]string{"stage": "create_session"})
		s.log.Warn("provider session creation failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}

	pending := orders.Order{
		OrderID:         orderID,
		SessionID:       sess.ID,
		UserID:          req.UserID,
		CartID:          req.CartID,
		Email:           req.Customer.Email,
		Subtotal:        totals.Subtotal.InexactFloat64(),
		Shipping:        totals.Shipping.InexactFloat64(),
		Tax:             totals.Tax.InexactFloat64(),
		Total:           totals.Total.InexactFloat64(),
		ShippingAddress: req.Customer,
		Items:           snapshotItems(req.Items),
		CreatedAt:       now,
		ExpiresAt:       expiresAt,
	}
	if err := s.orders.CreatePending(ctx, pending); err != nil {
		// confirmation rebuilds the order from session metadata
		s.log.Error("persist pending order", zap.String("order_id", orderID), zap.String("session_id", sess.ID), zap.Error(err))
	}

	s.count(ctx, aws.MetricCheckoutSessionsCreated, nil)
	s.log.Info("checkout session created",
		zap.String("order_id", orderID),
		zap.String("session_id", sess.ID),
		zap.String("total", totals.Total.StringFixed(2)))

	return &CreateResult{
		SessionID: sess.ID,
		URL:       sess.URL,
		OrderID:   orderID,
		ExpiresAt: expiresAt,
	}, nil
}

// Confirm re-reads the session from the provider and, when it is paid, makes
// sure exactly one CONFIRMED order exists for it.
func (s *Service) Confirm(ctx context.Context, sessionID string) (*Confirmation, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, &ValidationError{Fields: map[string]string{"session_id": "required"}}
	}
	if !s.provider.Configured() {
		return nil, ErrSetupRequired
	}

	start := s.nowFunc()
	sess, err := s.provider.GetSession(ctx, sessionID)
	s.latency(ctx, "get_session", start)
	if err != nil {
		return nil, err
	}

	if !sess.Paid() {
		if sess.Status == SessionStatusExpired {
			s.closePending(ctx, sess, orders.StatusExpired)
		}
		s.count(ctx, aws.MetricCheckoutFailures, map[string]string{"stage": "confirm"})
		return nil, ErrPaymentIncomplete
	}

	key := idempotency.SessionKey(sess.ID)
	if rec, err := s.claims.Get(ctx, key); err != nil {
		return nil, fmt.Errorf("read session claim: %w", err)
	} else if rec != nil {
		return s.replay(ctx, rec)
	}

	order, err := s.confirmedOrder(ctx, sess)
	if err != nil {
		return nil, err
	}
	claim, err := s.claims.ClaimPut(key, order.OrderID)
	if err != nil {
		return nil, err
	}

	err = s.orders.Confirm(ctx, claim, *order)
	switch {
	case errors.Is(err, orders.ErrAlreadyClaimed):
		rec, gerr := s.claims.Get(ctx, key)
		if gerr != nil {
			return nil, fmt.Errorf("read session claim: %w", gerr)
		}
		if rec == nil {
			return nil, fmt.Errorf("confirm session %s: %w", sess.ID, err)
		}
		return s.replay(ctx, rec)
	case errors.Is(err, orders.ErrStatusMismatch):
		// the claim may have been reaped after an earlier confirmation
		existing, gerr := s.orders.Get(ctx, order.OrderID)
		if gerr != nil {
			return nil, fmt.Errorf("load order %s: %w", order.OrderID, gerr)
		}
		if existing != nil && existing.Status == orders.StatusConfirmed && existing.SessionID == sess.ID {
			s.count(ctx, aws.MetricConfirmationReplays, nil)
			return &Confirmation{Order: existing, Replayed: true}, nil
		}
		s.log.Error("paid session for closed order", zap.String("order_id", order.OrderID), zap.String("session_id", sess.ID))
		return nil, ErrOrderClosed
	case err != nil:
		return nil, fmt.Errorf("confirm order %s: %w", order.OrderID, err)
	}

	confirmed, err := s.orders.Get(ctx, order.OrderID)
	if err != nil || confirmed == nil {
		confirmed = order
	}
	s.afterConfirm(ctx, key, confirmed)
	return &Confirmation{Order: confirmed}, nil
}

// Cancel expires an open session when the shopper backs out of the hosted
// page and closes its pending order. Completed sessions are left alone.
func (s *Service) Cancel(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return &ValidationError{Fields: map[string]string{"session_id": "required"}}
	}
	if !s.provider.Configured() {
		return ErrSetupRequired
	}

	sess, err := s.provider.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	switch sess.Status {
	case SessionStatusComplete:
		return nil
	case SessionStatusExpired:
		s.closePending(ctx, sess, orders.StatusExpired)
		return nil
	}

	expired, err := s.provider.ExpireSession(ctx, sessionID)
	if err != nil {
		return err
	}
	s.closePending(ctx, expired, orders.StatusAbandoned)
	return nil
}

// HandleProviderEvent applies a webhook notification. The session is always
// re-fetched; the event only says which session to look at.
func (s *Service) HandleProviderEvent(ctx context.Context, evt ProviderEvent) error {
	log := s.log.With(zap.String("event_id", evt.ID), zap.String("event_type", evt.Type), zap.String("session_id", evt.SessionID))

	switch evt.Type {
	case EventSessionCompleted, EventSessionAsyncPaymentPassed:
		res, err := s.Confirm(ctx, evt.SessionID)
		if errors.Is(err, ErrPaymentIncomplete) {
			// delayed payment methods complete the session before funds settle
			log.Info("session completed without payment, awaiting async result")
			return nil
		}
		if errors.Is(err, ErrOrderClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		log.Info("order confirmed from webhook", zap.String("order_id", res.Order.OrderID), zap.Bool("replayed", res.Replayed))
		return nil

	case EventSessionExpired, EventSessionAsyncPaymentFailed:
		if !s.provider.Configured() {
			return ErrSetupRequired
		}
		sess, err := s.provider.GetSession(ctx, evt.SessionID)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				log.Warn("event for unknown session")
				return nil
			}
			return err
		}
		status := orders.StatusExpired
		if evt.Type == EventSessionAsyncPaymentFailed {
			status = orders.StatusDeclined
		}
		s.closePending(ctx, sess, status)
		return nil

	default:
		log.Debug("ignoring provider event")
		return nil
	}
}

func (s *Service) replay(ctx context.Context, rec *idempotency.IdempotencyRecord) (*Confirmation, error) {
	o, err := s.orders.Get(ctx, rec.OrderID)
	if err != nil {
		return nil, fmt.Errorf("load confirmed order: %w", err)
	}
	if o == nil {
		return nil, fmt.Errorf("claim %s references missing order %s", rec.IdempotencyKey, rec.OrderID)
	}
	s.count(ctx, aws.MetricConfirmationReplays, nil)
	return &Confirmation{Order: o, Replayed: true}, nil
}

// confirmedOrder builds the CONFIRMED order from the pending record when one
// exists, else from the session metadata.
func (s *Service) confirmedOrder(ctx context.Context, sess *Session) (*orders.Order, error) {
	md, err := DecodeMetadata(sess.Metadata)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sess.ID, err)
	}

	o, err := s.orders.Get(ctx, md.OrderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		o = &orders.Order{
			OrderID:         md.OrderID,
			UserID:          md.UserID,
			CartID:          md.CartID,
			Subtotal:        md.Totals.Subtotal.InexactFloat64(),
			Shipping:        md.Totals.Shipping.InexactFloat64(),
			Tax:             md.Totals.Tax.InexactFloat64(),
			ShippingAddress: md.Customer,
			Items:           snapshotItems(md.Items),
			ExpiresAt:       sess.ExpiresAt,
		}
	}

	o.SessionID = sess.ID
	o.Total = FromMinorUnits(sess.AmountTotal).InexactFloat64()
	o.Email = sess.CustomerEmail
	if o.Email == "" {
		o.Email = md.Customer.Email
	}
	return o, nil
}

// afterConfirm runs the once-per-order side effects. Failures are logged; the
// order itself is already durable.
func (s *Service) afterConfirm(ctx context.Context, key string, o *orders.Order) {
	log := s.log.With(zap.String("order_id", o.OrderID), zap.String("session_id", o.SessionID))

	if s.carts != nil && o.CartID != "" {
		c, _, err := cart.Open(ctx, s.carts, o.CartID)
		if err == nil {
			err = c.Clear(ctx)
		}
		if err != nil {
			log.Warn("clear cart after purchase", zap.String("cart_id", o.CartID), zap.Error(err))
		}
	}

	if s.notifier != nil {
		evt := OrderConfirmedEvent{
			OrderID:   o.OrderID,
			SessionID: o.SessionID,
			UserID:    o.UserID,
			Email:     o.Email,
			Total:     o.Total,
			ItemCount: len(o.Items),
		}
		if o.ConfirmedAt != nil {
			evt.ConfirmedAt = *o.ConfirmedAt
		}
		if err := s.notifier.Publish(ctx, EventOrderConfirmed, evt); err != nil {
			log.Warn("publish order confirmation", zap.Error(err))
		}
	}

	body, _ := json.Marshal(map[string]interface{}{"id": o.OrderID, "status": o.Status, "total": o.Total})
	if err := s.claims.MarkDone(ctx, key, string(body), http.StatusOK); err != nil {
		log.Warn("mark session claim done", zap.Error(err))
	}

	s.count(ctx, aws.MetricOrdersConfirmed, nil)
	log.Info("order confirmed", zap.Float64("total", o.Total))
}

func (s *Service) closePending(ctx context.Context, sess *Session, status string) {
	md, err := DecodeMetadata(sess.Metadata)
	if err != nil {
		s.log.Warn("session without checkout snapshot", zap.String("session_id", sess.ID), zap.Error(err))
		return
	}
	err = s.orders.UpdateStatus(ctx, md.OrderID, orders.StatusPending, status)
	if errors.Is(err, orders.ErrStatusMismatch) {
		return
	}
	if err != nil {
		s.log.Error("close pending order", zap.String("order_id", md.OrderID), zap.String("status", status), zap.Error(err))
		return
	}
	s.count(ctx, aws.MetricSessionsClosed, map[string]string{"status": status})
	s.log.Info("pending order closed", zap.String("order_id", md.OrderID), zap.String("status", status))
}

func (s *Service) count(ctx context.Context, name string, dims map[string]string) {
	if err := s.metrics.Count(ctx, name, dims); err != nil {
		s.log.Debug("metric", zap.String("name", name), zap.Error(err))
	}
}

func (s *Service) latency(ctx context.Context, op string, start time.Time) {
	if err := s.metrics.Latency(ctx, aws.MetricProviderLatency, s.nowFunc().Sub(start), map[string]string{"operation": op}); err != nil {
		s.log.Debug("metric", zap.String("name", aws.MetricProviderLatency), zap.Error(err))
	}
}

// OrderConfirmedEvent is the payload of EventOrderConfirmed.
type OrderConfirmedEvent struct {
	OrderID     string    `json:"order_id"`
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id,omitempty"`
	Email       string    `json:"email"`
	Total       float64   `json:"total"`
	ItemCount   int       `json:"item_count"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

func snapshotItems(items []Item) []orders.OrderItem {
	out := make([]orders.OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, orders.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Image:     it.Image,
			Size:      it.Size,
			Color:     it.Color,
		})
	}
	return out
}

func validateRequest(req Request) error {
	fields := map[string]string{}
	for i, it := range req.Items {
		if it.ProductID == "" {
			fields[fmt.Sprintf("items[%d].productId", i)] = "required"
		}
		if it.Quantity <= 0 {
			fields[fmt.Sprintf("items[%d].quantity", i)] = "min=1"
		}
		if it.Price < 0 {
			fields[fmt.Sprintf("items[%d].price", i)] = "min=0"
		}
	}
	c := req.Customer
	required := map[string]string{
		"customerInfo.firstName": c.FirstName,
		"customerInfo.lastName":  c.LastName,
		"customerInfo.email":     c.Email,
		"customerInfo.address":   c.Address,
		"customerInfo.city":      c.City,
		"customerInfo.zipCode":   c.ZipCode,
	}
	for k, v := range required {
		if strings.TrimSpace(v) == "" {
			fields[k] = "required"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
