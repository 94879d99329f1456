package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/adyx-fashion/storefront/internal/aws/awstest"
)

const (
	ordersTable = "orders"
	idempTable  = "idempotency"
)

func newTestStore() (*Store, *awstest.DynamoDB) {
	mock := awstest.NewDynamoDB()
	mock.CreateTable(ordersTable, "order_id", map[string]string{
		HistoryIndex: "history_user_id:created_at",
		StatusIndex:  "status:created_at",
	})
	mock.CreateTable(idempTable, "idempotency_key", nil)
	return NewStore(mock, ordersTable), mock
}

func claimPut(t *testing.T, key, orderID string) types.TransactWriteItem {
	t.Helper()
	item, err := attributevalue.MarshalMap(map[string]interface{}{
		"idempotency_key": key,
		"status":          "IN_PROGRESS",
		"order_id":        orderID,
	})
	if err != nil {
		t.Fatalf("marshal claim: %v", err)
	}
	cond := "attribute_not_exists(idempotency_key)"
	tbl := idempTable
	return types.TransactWriteItem{Put: &types.Put{TableName: &tbl, Item: item, ConditionExpression: &cond}}
}

func sampleOrder(id string) Order {
	return Order{
		OrderID:   id,
		SessionID: "cs_test_" + id,
		UserID:    "user-1",
		Email:     "ada@example.com",
		Subtotal:  89.97,
		Shipping:  9.99,
		Tax:       7.20,
		Total:     107.16,
		Items: []OrderItem{
			{ProductID: "23", Name: "Cotton Polo Shirt", Price: 29.99, Quantity: 3, Size: "M", Color: "Navy"},
		},
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}
}

func TestCreatePending_AndGet(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	if err := store.CreatePending(ctx, sampleOrder("order-1")); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	got, err := store.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("order not stored")
	}
	if got.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", got.Status)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != 3 {
		t.Fatalf("items snapshot not stored: %+v", got.Items)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set")
	}

	if err := store.CreatePending(ctx, sampleOrder("order-1")); !errors.Is(err, ErrOrderExists) {
		t.Fatalf("expected ErrOrderExists, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	store, _ := newTestStore()
	got, err := store.Get(context.Background(), "missing")
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", got, err)
	}
}

func TestConfirm_PendingOrder(t *testing.T) {
	store, mock := newTestStore()
	ctx := context.Background()
	o := sampleOrder("order-2")
	if err := store.CreatePending(ctx, o); err != nil {
		t.Fatalf("create pending: %v", err)
	}

	if err := store.Confirm(ctx, claimPut(t, "checkout_session#"+o.SessionID, o.OrderID), o); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	got, _ := store.Get(ctx, "order-2")
	if got.Status != StatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", got.Status)
	}
	if got.ConfirmedAt == nil {
		t.Fatalf("confirmed_at not set")
	}
	if got.HistoryUserID != o.UserID {
		t.Fatalf("history_user_id not set on confirm: %q", got.HistoryUserID)
	}
	if mock.Item(idempTable, "checkout_session#"+o.SessionID) == nil {
		t.Fatalf("claim not written")
	}
}

func TestConfirm_WithoutPendingRecord(t *testing.T) {
	store, mock := newTestStore()
	o := sampleOrder("order-3")

	if err := store.Confirm(context.Background(), claimPut(t, "k3", o.OrderID), o); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if mock.Len(ordersTable) != 1 {
		t.Fatalf("expected one order, got %d", mock.Len(ordersTable))
	}
}

func TestConfirm_SecondClaimLoses(t *testing.T) {
	store, mock := newTestStore()
	ctx := context.Background()
	o := sampleOrder("order-4")

	if err := store.Confirm(ctx, claimPut(t, "k4", o.OrderID), o); err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	dup := sampleOrder("order-4b")
	err := store.Confirm(ctx, claimPut(t, "k4", dup.OrderID), dup)
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	if mock.Len(ordersTable) != 1 {
		t.Fatalf("duplicate confirmation created a second order")
	}
}

func TestConfirm_TerminalOrderRejected(t *testing.T) {
	store, mock := newTestStore()
	ctx := context.Background()
	o := sampleOrder("order-5")
	if err := store.CreatePending(ctx, o); err != nil {
		t.Fatalf("create pending: %v", err)
	}
	if err := store.UpdateStatus(ctx, o.OrderID, StatusPending, StatusExpired); err != nil {
		t.Fatalf("expire: %v", err)
	}

	err := store.Confirm(ctx, claimPut(t, "k5", o.OrderID), o)
	if !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch, got %v", err)
	}
	if mock.Item(idempTable, "k5") != nil {
		t.Fatalf("claim must not be written when the transaction is cancelled")
	}
}

func TestUpdateStatus_Condition_SuccessAndFail(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	if err := store.CreatePending(ctx, sampleOrder("order-10")); err != nil {
		t.Fatalf("create pending: %v", err)
	}

	// success: PENDING -> ABANDONED
	if err := store.UpdateStatus(ctx, "order-10", StatusPending, StatusAbandoned); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	// failure: PENDING -> EXPIRED (but current is ABANDONED)
	err := store.UpdateStatus(ctx, "order-10", StatusPending, StatusExpired)
	if !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch, got %v", err)
	}

	// missing order fails the condition too
	err = store.UpdateStatus(ctx, "nope", StatusPending, StatusExpired)
	if !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch for missing order, got %v", err)
	}
}

func TestListByUser_NewestFirst(t *testing.T) {
	store, mock := newTestStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		o := sampleOrder(id)
		o.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		o.Status = StatusConfirmed
		o.HistoryUserID = o.UserID
		if err := mock.Seed(ordersTable, o); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	other := sampleOrder("z")
	other.UserID = "user-2"
	other.HistoryUserID = "user-2"
	_ = mock.Seed(ordersTable, other)

	list, err := store.ListByUser(ctx, "user-1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(list))
	}
	if list[0].OrderID != "c" || list[2].OrderID != "a" {
		t.Fatalf("expected newest first, got %s..%s", list[0].OrderID, list[2].OrderID)
	}
}

func TestListByUser_OnlyConfirmedCountTowardsLimit(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store.nowFunc = func() time.Time { return base.Add(48 * time.Hour) }

	confirmed := sampleOrder("paid")
	confirmed.CreatedAt = base
	if err := store.Confirm(ctx, claimPut(t, "k-paid", confirmed.OrderID), confirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// newer unpaid checkouts must not crowd the paid order out of the page
	for i, status := range []string{"", StatusAbandoned, StatusExpired, StatusDeclined} {
		o := sampleOrder("unpaid-" + string(rune('a'+i)))
		o.CreatedAt = base.Add(time.Duration(i+1) * time.Hour)
		if err := store.CreatePending(ctx, o); err != nil {
			t.Fatalf("create pending: %v", err)
		}
		if status != "" {
			if err := store.UpdateStatus(ctx, o.OrderID, StatusPending, status); err != nil {
				t.Fatalf("close: %v", err)
			}
		}
	}

	list, err := store.ListByUser(ctx, "user-1", 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].OrderID != "paid" {
		t.Fatalf("expected only the confirmed order, got %+v", list)
	}
}

func TestStats_ConfirmedOnlyAcrossPages(t *testing.T) {
	store, mock := newTestStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	total := int(statsPageSize) + 5
	for i := 0; i < total; i++ {
		o := sampleOrder(fmt.Sprintf("o-%03d", i))
		o.Status = StatusConfirmed
		o.Total = 10.10
		o.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := mock.Seed(ordersTable, o); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	pending := sampleOrder("pending")
	pending.CreatedAt = base.Add(24 * time.Hour)
	if err := store.CreatePending(ctx, pending); err != nil {
		t.Fatalf("create pending: %v", err)
	}

	st, err := store.Stats(ctx, 5)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalOrders != total {
		t.Fatalf("expected %d confirmed orders, got %d", total, st.TotalOrders)
	}
	if want := "1060.50"; st.Revenue.StringFixed(2) != want {
		t.Fatalf("expected revenue %s, got %s", want, st.Revenue.StringFixed(2))
	}
	if len(st.Recent) != 5 {
		t.Fatalf("expected 5 recent orders, got %d", len(st.Recent))
	}
	if st.Recent[0].OrderID != fmt.Sprintf("o-%03d", total-1) || st.Recent[4].OrderID != fmt.Sprintf("o-%03d", total-5) {
		t.Fatalf("recent orders not newest first: %s..%s", st.Recent[0].OrderID, st.Recent[4].OrderID)
	}
	if mock.Calls["Query"] < 2 {
		t.Fatalf("expected a paginated walk, got %d queries", mock.Calls["Query"])
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []string{StatusConfirmed, StatusExpired, StatusAbandoned, StatusDeclined} {
		o := Order{Status: s}
		if !o.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	if (&Order{Status: StatusPending}).IsTerminal() {
		t.Fatalf("PENDING is not terminal")
	}
}
