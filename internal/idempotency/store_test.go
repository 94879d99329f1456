package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/adyx-fashion/storefront/internal/aws/awstest"
)

const table = "idempotency-table"

func newTestStore() (*Store, *awstest.DynamoDB) {
	mock := awstest.NewDynamoDB()
	mock.CreateTable(table, "idempotency_key", nil)
	s := NewStore(mock, table, 48*time.Hour)
	s.nowFunc = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s, mock
}

func TestCreateIfNotExists_Get_MarkDone_MarkFailed(t *testing.T) {
	s, mock := newTestStore()
	ctx := context.Background()
	key := EventKey("evt_1")
	orderID := "order-123"

	created, err := s.CreateIfNotExists(ctx, key, orderID)
	if err != nil {
		t.Fatalf("CreateIfNotExists error: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true")
	}

	// second create should return created=false (exists)
	created2, err := s.CreateIfNotExists(ctx, key, orderID)
	if err != nil {
		t.Fatalf("second CreateIfNotExists error: %v", err)
	}
	if created2 {
		t.Fatalf("expected created=false on duplicate create")
	}

	rec, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec == nil {
		t.Fatalf("expected record, got nil")
	}
	if rec.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", rec.Status)
	}
	if rec.OrderID != orderID {
		t.Fatalf("order id mismatch")
	}
	wantExpiry := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC).Unix()
	if rec.ExpiresAt != wantExpiry {
		t.Fatalf("expires_at: got %d want %d", rec.ExpiresAt, wantExpiry)
	}

	if err := s.MarkDone(ctx, key, `{"ok":true}`, 200); err != nil {
		t.Fatalf("MarkDone error: %v", err)
	}
	item := mock.Item(table, key)
	if st, ok := item["status"].(*types.AttributeValueMemberS); !ok || st.Value != StatusDone {
		t.Fatalf("status not updated to DONE, got %+v", item["status"])
	}
	if rb, ok := item["response_body"].(*types.AttributeValueMemberS); !ok || rb.Value != `{"ok":true}` {
		t.Fatalf("response_body not set correctly: %+v", item["response_body"])
	}

	// MarkFailed (should overwrite status)
	if err := s.MarkFailed(ctx, key, "failed-reason"); err != nil {
		t.Fatalf("MarkFailed error: %v", err)
	}
	item2 := mock.Item(table, key)
	if st, ok := item2["status"].(*types.AttributeValueMemberS); !ok || st.Value != StatusFailed {
		t.Fatalf("status not updated to FAILED, got %+v", item2["status"])
	}
	if n, ok := item2["note"].(*types.AttributeValueMemberS); !ok || n.Value != "failed-reason" {
		t.Fatalf("note not set, got %+v", item2["note"])
	}
}

func TestReclaim_OnlyOneTakeover(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	key := EventKey("evt_stuck")

	if _, err := s.CreateIfNotExists(ctx, key, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	seen, err := s.Get(ctx, key)
	if err != nil || seen == nil {
		t.Fatalf("get: %v %v", seen, err)
	}

	later := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return later }

	taken, err := s.Reclaim(ctx, key, seen)
	if err != nil || !taken {
		t.Fatalf("first reclaim: taken=%v err=%v", taken, err)
	}
	// a second caller holding the same stale read loses
	taken, err = s.Reclaim(ctx, key, seen)
	if err != nil || taken {
		t.Fatalf("second reclaim: taken=%v err=%v", taken, err)
	}

	rec, _ := s.Get(ctx, key)
	if rec.Status != StatusInProgress || !rec.UpdatedAt.Equal(later) {
		t.Fatalf("claim not refreshed: %+v", rec)
	}

	if err := s.MarkFailed(ctx, key, "sqs_send_failed"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	failed, _ := s.Get(ctx, key)
	taken, err = s.Reclaim(ctx, key, failed)
	if err != nil || !taken {
		t.Fatalf("reclaim failed claim: taken=%v err=%v", taken, err)
	}
}

func TestSettle_MissingClaim(t *testing.T) {
	s, mock := newTestStore()
	if err := s.MarkDone(context.Background(), "nope", "{}", 200); !errors.Is(err, ErrConditionFailed) {
		t.Fatalf("MarkDone: expected ErrConditionFailed, got %v", err)
	}
	if err := s.MarkFailed(context.Background(), "nope", "x"); !errors.Is(err, ErrConditionFailed) {
		t.Fatalf("MarkFailed: expected ErrConditionFailed, got %v", err)
	}
	if mock.Item(table, "nope") != nil {
		t.Fatalf("settling a missing claim must not create it")
	}
}

func TestGet_NotFound(t *testing.T) {
	s, _ := newTestStore()
	rec, err := s.Get(context.Background(), "missing")
	if err != nil || rec != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", rec, err)
	}
}

func TestClaimPut_OnlyFirstTransactionWins(t *testing.T) {
	s, mock := newTestStore()
	ctx := context.Background()
	key := SessionKey("cs_test_1")

	claim, err := s.ClaimPut(key, "order-1")
	if err != nil {
		t.Fatalf("ClaimPut: %v", err)
	}
	if _, err := mock.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: []types.TransactWriteItem{claim}}); err != nil {
		t.Fatalf("first transaction: %v", err)
	}

	again, _ := s.ClaimPut(key, "order-2")
	_, err = mock.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: []types.TransactWriteItem{again}})
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		t.Fatalf("expected TransactionCanceledException, got %v", err)
	}

	rec, _ := s.Get(ctx, key)
	if rec.OrderID != "order-1" {
		t.Fatalf("claim overwritten: %s", rec.OrderID)
	}
}

func TestKeys(t *testing.T) {
	if got := SessionKey("cs_1"); got != "checkout_session#cs_1" {
		t.Fatalf("SessionKey: %s", got)
	}
	if got := EventKey("evt_1"); got != "provider_event#evt_1" {
		t.Fatalf("EventKey: %s", got)
	}
}

func TestAttributevalueMarshal_Unmarshal(t *testing.T) {
	rec := IdempotencyRecord{
		IdempotencyKey: "k1",
		Status:         StatusInProgress,
		OrderID:        "o1",
		CreatedAt:      time.Now().Round(time.Second),
		UpdatedAt:      time.Now().Round(time.Second),
		ExpiresAt:      time.Now().Add(24 * time.Hour).Unix(),
	}
	m, err := attributevalue.MarshalMap(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out IdempotencyRecord
	if err := attributevalue.UnmarshalMap(m, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.IdempotencyKey != rec.IdempotencyKey || out.ExpiresAt != rec.ExpiresAt {
		t.Fatalf("unmarshal mismatch")
	}
}
