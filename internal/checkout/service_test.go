package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/adyx-fashion/storefront/internal/aws"
	"github.com/adyx-fashion/storefront/internal/aws/awstest"
	"github.com/adyx-fashion/storefront/internal/cart"
	"github.com/adyx-fashion/storefront/internal/idempotency"
	"github.com/adyx-fashion/storefront/internal/orders"
)

const (
	ordersTable = "orders"
	claimsTable = "idempotency"
)

type fakeProvider struct {
	mu         sync.Mutex
	configured bool
	sessions   map[string]*Session
	created    []SessionParams
	createErr  error
	seq        int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{configured: true, sessions: map[string]*Session{}}
}

func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) CreateSession(ctx context.Context, p SessionParams) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	var total int64
	for _, li := range p.LineItems {
		total += li.UnitAmount * li.Quantity
	}
	s := &Session{
		ID:            fmt.Sprintf("cs_test_%d", f.seq),
		URL:           fmt.Sprintf("https://checkout.example/pay/cs_test_%d", f.seq),
		Status:        SessionStatusOpen,
		PaymentStatus: PaymentStatusUnpaid,
		AmountTotal:   total,
		Metadata:      p.Metadata,
		ExpiresAt:     p.ExpiresAt,
	}
	f.sessions[s.ID] = s
	f.created = append(f.created, p)
	cp := *s
	return &cp, nil
}

func (f *fakeProvider) GetSession(ctx context.Context, id string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeProvider) ExpireSession(ctx context.Context, id string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Status != SessionStatusOpen {
		return nil, &ProviderError{Type: "invalid_request_error", Message: "session is not open"}
	}
	s.Status = SessionStatusExpired
	cp := *s
	return &cp, nil
}

func (f *fakeProvider) pay(id, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[id]
	s.Status = SessionStatusComplete
	s.PaymentStatus = PaymentStatusPaid
	s.CustomerEmail = email
}

func (f *fakeProvider) expire(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id].Status = SessionStatusExpired
}

type memoryCarts struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryCarts) Load(ctx context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[id], nil
}

func (m *memoryCarts) Save(ctx context.Context, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = data
	return nil
}

func (m *memoryCarts) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

type harness struct {
	svc      *Service
	provider *fakeProvider
	dynamo   *awstest.DynamoDB
	sns      *awstest.SNS
	cw       *awstest.CloudWatch
	carts    *memoryCarts
	orders   *orders.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dynamo := awstest.NewDynamoDB()
	dynamo.CreateTable(ordersTable, "order_id", map[string]string{
		orders.HistoryIndex: "history_user_id:created_at",
		orders.StatusIndex:  "status:created_at",
	})
	dynamo.CreateTable(claimsTable, "idempotency_key", nil)

	h := &harness{
		provider: newFakeProvider(),
		dynamo:   dynamo,
		sns:      &awstest.SNS{},
		cw:       &awstest.CloudWatch{},
		carts:    &memoryCarts{data: map[string][]byte{}},
		orders:   orders.NewStore(dynamo, ordersTable),
	}
	h.svc = NewService(Deps{
		Provider: h.provider,
		Orders:   h.orders,
		Claims:   idempotency.NewStore(dynamo, claimsTable, 7*24*time.Hour),
		Carts:    h.carts,
		Notifier: aws.NewNotifier(h.sns, "arn:aws:sns:us-east-1:123456789012:orders"),
		Metrics:  aws.NewMetrics(h.cw, "Test", true),
		Logger:   zaptest.NewLogger(t),
	}, Config{FrontendURL: "http://localhost:3000/", APIBaseURL: "http://localhost:8080"})
	seq := 0
	h.svc.newID = func() string {
		seq++
		return fmt.Sprintf("order-%d", seq)
	}
	return h
}

func polosRequest() Request {
	return Request{
		Items: []Item{{ProductID: "23", Name: "Cotton Polo Shirt", Price: 29.99, Quantity: 3, Size: "M", Color: "Navy"}},
		Customer: CustomerInfo{
			FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
			Address: "1 Main St", City: "London", ZipCode: "N1", Country: "GB",
		},
		UserID: "user-1",
		CartID: "cart-1",
	}
}

func (h *harness) seedCart(t *testing.T, id string) {
	t.Helper()
	c := cart.New(id, h.carts)
	require.NoError(t, c.AddItem(context.Background(), cart.AddInput{ProductID: "23", Name: "Cotton Polo Shirt", Price: 29.99, MaxQuantity: 90, Quantity: 3}))
}

func TestCreateSession_PricesAndPersistsPending(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.CreateSession(context.Background(), polosRequest())
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", res.SessionID)
	assert.Equal(t, "order-1", res.OrderID)
	assert.NotEmpty(t, res.URL)

	require.Len(t, h.provider.created, 1)
	p := h.provider.created[0]
	assert.Equal(t, "http://localhost:3000/checkout/success?session_id={CHECKOUT_SESSION_ID}", p.SuccessURL)
	assert.Equal(t, "http://localhost:8080/checkout/cancel?session_id={CHECKOUT_SESSION_ID}", p.CancelURL)
	assert.Equal(t, "ada@example.com", p.CustomerEmail)
	assert.Equal(t, "usd", p.Currency)
	assert.Equal(t, "107.16", p.Metadata["total"])
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), p.ExpiresAt, 5*time.Second)

	sess, _ := h.provider.GetSession(context.Background(), res.SessionID)
	assert.Equal(t, int64(10716), sess.AmountTotal)

	pending, err := h.orders.Get(context.Background(), "order-1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, orders.StatusPending, pending.Status)
	assert.Equal(t, "cs_test_1", pending.SessionID)
	assert.InDelta(t, 107.16, pending.Total, 1e-9)

	assert.Contains(t, h.cw.MetricNames(), aws.MetricCheckoutSessionsCreated)
}

func TestCreateSession_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateSession(ctx, Request{Customer: polosRequest().Customer})
	assert.ErrorIs(t, err, ErrEmptyCart)

	bad := polosRequest()
	bad.Customer.Email = ""
	bad.Items[0].Quantity = 0
	_, err = h.svc.CreateSession(ctx, bad)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "customerInfo.email")
	assert.Contains(t, verr.Fields, "items[0].quantity")

	h.provider.configured = false
	_, err = h.svc.CreateSession(ctx, polosRequest())
	assert.ErrorIs(t, err, ErrSetupRequired)

	assert.Empty(t, h.provider.created)
	assert.Zero(t, h.dynamo.Len(ordersTable))
}

func TestCreateSession_ProviderErrorPassesThrough(t *testing.T) {
	h := newHarness(t)
	h.provider.createErr = &ProviderError{Type: "invalid_request_error", Code: "parameter_invalid_integer", Message: "bad amount"}

	_, err := h.svc.CreateSession(context.Background(), polosRequest())
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "parameter_invalid_integer", perr.Code)
	assert.Zero(t, h.dynamo.Len(ordersTable))
	assert.Contains(t, h.cw.MetricNames(), aws.MetricCheckoutFailures)
}

func TestConfirm_UnpaidCreatesNoOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.svc.CreateSession(ctx, polosRequest())
	require.NoError(t, err)

	_, err = h.svc.Confirm(ctx, res.SessionID)
	assert.ErrorIs(t, err, ErrPaymentIncomplete)

	o, _ := h.orders.Get(ctx, res.OrderID)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Nil(t, h.dynamo.Item(claimsTable, idempotency.SessionKey(res.SessionID)))
	assert.Empty(t, h.sns.Published)
}

func TestConfirm_PaidCreatesOrderOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedCart(t, "cart-1")

	res, err := h.svc.CreateSession(ctx, polosRequest())
	require.NoError(t, err)
	h.provider.pay(res.SessionID, "")

	first, err := h.svc.Confirm(ctx, res.SessionID)
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	assert.Equal(t, orders.StatusConfirmed, first.Order.Status)
	assert.InDelta(t, 107.16, first.Order.Total, 1e-9)
	assert.Equal(t, "ada@example.com", first.Order.Email, "falls back to the checkout contact email")
	require.Len(t, first.Order.Items, 1)
	assert.Equal(t, 3, first.Order.Items[0].Quantity)

	second, err := h.svc.Confirm(ctx, res.SessionID)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.OrderID, second.Order.OrderID)

	assert.Equal(t, 1, h.dynamo.Len(ordersTable))
	assert.Len(t, h.sns.Published, 1, "confirmation side effects run once")

	c, _, err := cart.Open(ctx, h.carts, "cart-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items(), "purchased cart is cleared")

	rec, err := idempotency.NewStore(h.dynamo, claimsTable, time.Hour).Get(ctx, idempotency.SessionKey(res.SessionID))
	require.NoError(t, err)
	assert.Equal(t, idempotency.StatusDone, rec.Status)
	assert.Equal(t, first.Order.OrderID, rec.OrderID)

	var evt OrderConfirmedEvent
	require.NoError(t, json.Unmarshal([]byte(*h.sns.Published[0].Message), &evt))
	assert.Equal(t, first.Order.OrderID, evt.OrderID)
}

func TestConfirm_ReplaysAfterClaimReaped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.CreateSession(ctx, polosRequest())
	require.NoError(t, err)
	h.provider.pay(res.SessionID, "")

	first, err := h.svc.Confirm(ctx, res.SessionID)
	require.NoError(t, err)

	// the table TTL removes the session claim; the success page is reloaded later
	h.dynamo.Delete(claimsTable, idempotency.SessionKey(res.SessionID))

	again, err := h.svc.Confirm(ctx, res.SessionID)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Order.OrderID, again.Order.OrderID)
	assert.Equal(t, orders.StatusConfirmed, again.Order.Status)
	assert.Equal(t, 1, h.dynamo.Len(ordersTable))
	assert.Len(t, h.sns.Published, 1)
}

func TestConfirm_ClosedOrderIsNotResurrected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.CreateSession(ctx, polosRequest())
	require.NoError(t, err)
	require.NoError(t, h.orders.UpdateStatus(ctx, res.OrderID, orders.StatusPending, orders.StatusAbandoned))
	h.provider.pay(res.SessionID, "")

	_, err = h.svc.Confirm(ctx, res.SessionID)
	require.ErrorIs(t, err, ErrOrderClosed)

	o, err := h.orders.Get(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusAbandoned, o.Status)
	assert.Empty(t, h.sns.Published)
}

func TestConfirm_ConcurrentCallsYieldOneOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.svc.CreateSession(ctx, polosRequest())
	require.NoError(t, err)
	h.provider.pay(res.SessionID, "buyer@example.com")

	var wg sync.WaitGroup
	results := make([]*Confirmation, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.svc.Confirm(ctx, res.SessionID)
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, res.OrderID, results[i].Order.OrderID)
		if !results[i].Replayed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Equal(t, 1, h.dynamo.Len(ordersTable))
	assert.Len(t, h.sns.Published, 1)
}

func TestConfirm_WithoutPendingRecordUsesMetadata(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.dynamo.Errors["PutItem"] = errors.New("throttled")

	res, err := h.svc.CreateSession(ctx, polosRequest())
	require.NoError(t, err, "pending persistence failure is not fatal")
	delete(h.dynamo.Errors, "PutItem")
	assert.Zero(t, h.dynamo.Len(ordersTable))

	h.provider.pay(res.SessionID, "buyer@example.com")
	conf, err := h.svc.Confirm(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, res.OrderID, conf.Order.OrderID)
	assert.Equal(t, "buyer@example.com", conf.Order.Email)
	assert.Equal(t, "user-1", conf.Order.UserID)
	assert.InDelta(t, 89.97, conf.Order.Subtotal, 1e-9)
	assert.Equal(t, "London", conf.Order.ShippingAddress.City)
}

func TestConfirm_Validation(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Confirm(context.Background(), " ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = h.svc.Confirm(context.Background(), "cs_unknown")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConfirm_ExpiredSessionClosesPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.svc.CreateSession(ctx, polosRequest())
	require.NoError(t, err)
	h.provider.expire(res.SessionID)

	_, err = h.svc.Confirm(ctx, res.SessionID)
	assert.ErrorIs(t, err, ErrPaymentIncomplete)

	o, _ := h.orders.Get(ctx, res.OrderID)
	assert.Equal(t, orders.StatusExpired, o.Status)
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.svc.CreateSession(ctx, polosRequest())
	require.NoError(t, err)

	require.NoError(t, h.svc.Cancel(ctx, res.SessionID))
	o, _ := h.orders.Get(ctx, res.OrderID)
	assert.Equal(t, orders.StatusAbandoned, o.Status)

	sess, _ := h.provider.GetSession(ctx, res.SessionID)
	assert.Equal(t, SessionStatusExpired, sess.Status)

	// a second cancel is harmless
	require.NoError(t, h.svc.Cancel(ctx, res.SessionID))
	o, _ = h.orders.Get(ctx, res.OrderID)
	assert.Equal(t, orders.StatusAbandoned, o.Status)
}

func TestCancel_CompletedSessionUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.svc.CreateSession(ctx, polosRequest())
	require.NoError(t, err)
	h.provider.pay(res.SessionID, "")
	_, err = h.svc.Confirm(ctx, res.SessionID)
	require.NoError(t, err)

	require.NoError(t, h.svc.Cancel(ctx, res.SessionID))
	o, _ := h.orders.Get(ctx, res.OrderID)
	assert.Equal(t, orders.StatusConfirmed, o.Status)
}

func TestHandleProviderEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("completed confirms", func(t *testing.T) {
		h := newHarness(t)
		res, _ := h.svc.CreateSession(ctx, polosRequest())
		h.provider.pay(res.SessionID, "")

		evt := ProviderEvent{ID: "evt_1", Type: EventSessionCompleted, SessionID: res.SessionID}
		require.NoError(t, h.svc.HandleProviderEvent(ctx, evt))
		require.NoError(t, h.svc.HandleProviderEvent(ctx, evt))

		o, _ := h.orders.Get(ctx, res.OrderID)
		assert.Equal(t, orders.StatusConfirmed, o.Status)
		assert.Len(t, h.sns.Published, 1)
	})

	t.Run("completed but unpaid waits", func(t *testing.T) {
		h := newHarness(t)
		res, _ := h.svc.CreateSession(ctx, polosRequest())
		err := h.svc.HandleProviderEvent(ctx, ProviderEvent{Type: EventSessionCompleted, SessionID: res.SessionID})
		require.NoError(t, err)
		o, _ := h.orders.Get(ctx, res.OrderID)
		assert.Equal(t, orders.StatusPending, o.Status)
	})

	t.Run("expired", func(t *testing.T) {
		h := newHarness(t)
		res, _ := h.svc.CreateSession(ctx, polosRequest())
		h.provider.expire(res.SessionID)
		require.NoError(t, h.svc.HandleProviderEvent(ctx, ProviderEvent{Type: EventSessionExpired, SessionID: res.SessionID}))
		o, _ := h.orders.Get(ctx, res.OrderID)
		assert.Equal(t, orders.StatusExpired, o.Status)
	})

	t.Run("async failure declines", func(t *testing.T) {
		h := newHarness(t)
		res, _ := h.svc.CreateSession(ctx, polosRequest())
		require.NoError(t, h.svc.HandleProviderEvent(ctx, ProviderEvent{Type: EventSessionAsyncPaymentFailed, SessionID: res.SessionID}))
		o, _ := h.orders.Get(ctx, res.OrderID)
		assert.Equal(t, orders.StatusDeclined, o.Status)
	})

	t.Run("unknown session and type", func(t *testing.T) {
		h := newHarness(t)
		assert.NoError(t, h.svc.HandleProviderEvent(ctx, ProviderEvent{Type: EventSessionExpired, SessionID: "cs_missing"}))
		assert.NoError(t, h.svc.HandleProviderEvent(ctx, ProviderEvent{Type: "customer.created"}))
	})
}
