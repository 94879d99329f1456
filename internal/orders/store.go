package orders

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/adyx-fashion/storefront/internal/aws"
)

var (
	// ErrStatusMismatch is returned when a conditional status transition fails.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
	// ErrOrderExists is returned when a pending order id is already taken.
	ErrOrderExists = errors.New("order already exists")
	// ErrAlreadyClaimed is returned by Confirm when the session claim already exists.
	ErrAlreadyClaimed = errors.New("checkout session already claimed")
)

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// CreatePending stores a new PENDING order. The order id must be unused.
func (s *Store) CreatePending(ctx context.Context, o Order) error {
	now := s.nowFunc().UTC()
	o.Status = StatusPending
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return ErrOrderExists
		}
		return fmt.Errorf("put order: %w", err)
	}
	return nil
}

// Confirm atomically writes the session claim and the CONFIRMED order:
//   - claim is the conditional put produced by the idempotency store
//   - the order put succeeds only when no record exists or the record is still PENDING
//
// ErrAlreadyClaimed means another confirmation won; ErrStatusMismatch means the
// order already left PENDING through another path.
func (s *Store) Confirm(ctx context.Context, claim types.TransactWriteItem, o Order) error {
	now := s.nowFunc().UTC()
	o.Status = StatusConfirmed
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	if o.ConfirmedAt == nil {
		o.ConfirmedAt = &now
	}
	o.HistoryUserID = o.UserID

	orderMap, err := attributevalue.MarshalMap(o)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	transactItems := []types.TransactWriteItem{
		claim,
		{
			Put: &types.Put{
				TableName:                &s.tableName,
				Item:                     orderMap,
				ConditionExpression:      awsString("attribute_not_exists(order_id) OR #s = :pending"),
				ExpressionAttributeNames: map[string]string{"#s": "status"},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":pending": &types.AttributeValueMemberS{Value: StatusPending},
				},
			},
		},
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: transactItems})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			if conditionFailed(tce, 1) && !conditionFailed(tce, 0) {
				return ErrStatusMismatch
			}
			return ErrAlreadyClaimed
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

func conditionFailed(tce *types.TransactionCanceledException, idx int) bool {
	if idx >= len(tce.CancellationReasons) {
		return false
	}
	code := tce.CancellationReasons[idx].Code
	return code != nil && *code == "ConditionalCheckFailed"
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	key := map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// UpdateStatus conditionally updates the order status from expected -> newStatus.
// Returns nil on success, ErrStatusMismatch if condition failed or the order is missing.
func (s *Store) UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error {
	now := s.nowFunc().UTC()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :new, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: newStatus},
			":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
			":expected": &types.AttributeValueMemberS{Value: expectedStatus},
		},
		ConditionExpression: awsString("#s = :expected"),
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var sc *types.ConditionalCheckFailedException
		if errors.As(err, &sc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// ListByUser returns up to limit confirmed orders placed by userID, newest
// first. Unpaid checkouts never reach the history index.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int32) ([]Order, error) {
	input := &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(HistoryIndex),
		KeyConditionExpression: awsString("history_user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: awsBool(false),
	}
	if limit > 0 {
		input.Limit = &limit
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	var list []Order
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &list); err != nil {
		return nil, fmt.Errorf("unmarshal orders: %w", err)
	}
	sortNewestFirst(list)
	return list, nil
}

// Stats summarizes confirmed sales.
type Stats struct {
	TotalOrders int
	Revenue     decimal.Decimal
	Recent      []Order
}

const statsPageSize int32 = 100

// Stats walks every CONFIRMED order through the status index and keeps the
// recent most recent ones.
func (s *Store) Stats(ctx context.Context, recent int) (*Stats, error) {
	st := &Stats{Revenue: decimal.Zero}
	input := &dyn.QueryInput{
		TableName:                &s.tableName,
		IndexName:                awsString(StatusIndex),
		KeyConditionExpression:   awsString("#s = :confirmed"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":confirmed": &types.AttributeValueMemberS{Value: StatusConfirmed},
		},
		ScanIndexForward: awsBool(false),
		Limit:            awsInt32(statsPageSize),
	}

	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query confirmed orders: %w", err)
		}
		var page []Order
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		for _, o := range page {
			st.TotalOrders++
			st.Revenue = st.Revenue.Add(decimal.NewFromFloat(o.Total))
		}
		if recent > 0 {
			st.Recent = append(st.Recent, page...)
			sortNewestFirst(st.Recent)
			if len(st.Recent) > recent {
				st.Recent = st.Recent[:recent]
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return st, nil
}

// RFC3339 strings with trimmed fractions do not always sort lexically
func sortNewestFirst(list []Order) {
	slices.SortStableFunc(list, func(a, b Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }

func awsInt32(n int32) *int32 { return &n }
