// Package awstest provides in-memory stand-ins for the AWS clients used by the
// service. The DynamoDB fake understands the small expression grammar the
// stores emit: SET updates, equality and attribute_(not_)exists conditions
// joined by AND/OR, and single-attribute key conditions on queries. Index
// queries honor the range key order, Limit and ExclusiveStartKey.
package awstest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type item = map[string]types.AttributeValue

type table struct {
	hashKey string
	indexes map[string]index
	items   map[string]item
}

type index struct {
	hashKey  string
	rangeKey string
}

// DynamoDB is a mutex-guarded multi-table fake.
type DynamoDB struct {
	mu     sync.Mutex
	tables map[string]*table

	// Errors forces the named operation ("PutItem", "TransactWriteItems", ...) to fail.
	Errors map[string]error
	Calls  map[string]int
}

func NewDynamoDB() *DynamoDB {
	return &DynamoDB{
		tables: map[string]*table{},
		Errors: map[string]error{},
		Calls:  map[string]int{},
	}
}

// CreateTable registers a table keyed by hashKey. Optional indexes map a GSI
// name to its key attributes, either "hash" or "hash:range".
func (d *DynamoDB) CreateTable(name, hashKey string, indexes map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := make(map[string]index, len(indexes))
	for n, spec := range indexes {
		h, r, _ := strings.Cut(spec, ":")
		idx[n] = index{hashKey: h, rangeKey: r}
	}
	d.tables[name] = &table{hashKey: hashKey, indexes: idx, items: map[string]item{}}
}

// Seed marshals v with attributevalue and stores it unconditionally.
func (d *DynamoDB) Seed(tableName string, v interface{}) error {
	m, err := attributevalue.MarshalMap(v)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.table(tableName)
	if err != nil {
		return err
	}
	k, err := t.keyOf(m)
	if err != nil {
		return err
	}
	t.items[k] = m
	return nil
}

// Item returns the raw stored item or nil.
func (d *DynamoDB) Item(tableName, key string) map[string]types.AttributeValue {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tables[tableName]
	if !ok {
		return nil
	}
	return t.items[key]
}

// Delete removes an item, as a TTL sweep would.
func (d *DynamoDB) Delete(tableName, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.tables[tableName]; ok {
		delete(t.items, key)
	}
}

// Len reports how many items a table holds.
func (d *DynamoDB) Len(tableName string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.tables[tableName]; ok {
		return len(t.items)
	}
	return 0
}

func (d *DynamoDB) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("PutItem"); err != nil {
		return nil, err
	}
	t, err := d.table(*in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Item)
	if err != nil {
		return nil, err
	}
	ok, err := evaluate(in.ConditionExpression, t.items[k], in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: str("The conditional request failed")}
	}
	t.items[k] = copyItem(in.Item)
	return &dyn.PutItemOutput{}, nil
}

func (d *DynamoDB) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("GetItem"); err != nil {
		return nil, err
	}
	t, err := d.table(*in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	it, ok := t.items[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(it)}, nil
}

func (d *DynamoDB) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("UpdateItem"); err != nil {
		return nil, err
	}
	t, err := d.table(*in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	ok, err := evaluate(in.ConditionExpression, t.items[k], in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: str("The conditional request failed")}
	}
	updated, err := applyUpdate(t.items[k], in.Key, in.UpdateExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	t.items[k] = updated
	return &dyn.UpdateItemOutput{Attributes: copyItem(updated)}, nil
}

func (d *DynamoDB) TransactWriteItems(ctx context.Context, in *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("TransactWriteItems"); err != nil {
		return nil, err
	}

	type write struct {
		t   *table
		key string
		it  item
	}
	writes := make([]write, 0, len(in.TransactItems))
	reasons := make([]types.CancellationReason, len(in.TransactItems))
	cancelled := false

	for i, ti := range in.TransactItems {
		reasons[i] = types.CancellationReason{Code: str("None")}
		switch {
		case ti.Put != nil:
			p := ti.Put
			t, err := d.table(*p.TableName)
			if err != nil {
				return nil, err
			}
			k, err := t.keyOf(p.Item)
			if err != nil {
				return nil, err
			}
			ok, err := evaluate(p.ConditionExpression, t.items[k], p.ExpressionAttributeNames, p.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			if !ok {
				reasons[i] = types.CancellationReason{Code: str("ConditionalCheckFailed")}
				cancelled = true
				continue
			}
			writes = append(writes, write{t, k, copyItem(p.Item)})
		case ti.Update != nil:
			u := ti.Update
			t, err := d.table(*u.TableName)
			if err != nil {
				return nil, err
			}
			k, err := t.keyOf(u.Key)
			if err != nil {
				return nil, err
			}
			ok, err := evaluate(u.ConditionExpression, t.items[k], u.ExpressionAttributeNames, u.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			if !ok {
				reasons[i] = types.CancellationReason{Code: str("ConditionalCheckFailed")}
				cancelled = true
				continue
			}
			updated, err := applyUpdate(t.items[k], u.Key, u.UpdateExpression, u.ExpressionAttributeNames, u.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			writes = append(writes, write{t, k, updated})
		default:
			return nil, errors.New("awstest: unsupported transact item")
		}
	}

	if cancelled {
		return nil, &types.TransactionCanceledException{
			Message:             str("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}
	for _, w := range writes {
		w.t.items[w.key] = w.it
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func (d *DynamoDB) Query(ctx context.Context, in *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("Query"); err != nil {
		return nil, err
	}
	t, err := d.table(*in.TableName)
	if err != nil {
		return nil, err
	}
	attr, placeholder, ok := strings.Cut(deref(in.KeyConditionExpression), " = ")
	if !ok {
		return nil, fmt.Errorf("awstest: unsupported key condition %q", deref(in.KeyConditionExpression))
	}
	attr = resolveName(strings.TrimSpace(attr), in.ExpressionAttributeNames)
	var idx index
	if in.IndexName != nil {
		if idx, ok = t.indexes[*in.IndexName]; !ok {
			return nil, fmt.Errorf("awstest: unknown index %s", *in.IndexName)
		}
	}
	want := in.ExpressionAttributeValues[strings.TrimSpace(placeholder)]

	var matched []item
	for _, it := range t.items {
		if equalAV(it[attr], want) {
			matched = append(matched, it)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := rangeValue(matched[i], idx.rangeKey), rangeValue(matched[j], idx.rangeKey)
		if a == b {
			a, b = rangeValue(matched[i], t.hashKey), rangeValue(matched[j], t.hashKey)
		}
		if in.ScanIndexForward != nil && !*in.ScanIndexForward {
			return a > b
		}
		return a < b
	})

	if start, ok := in.ExclusiveStartKey[t.hashKey]; ok {
		for i, it := range matched {
			if equalAV(it[t.hashKey], start) {
				matched = matched[i+1:]
				break
			}
		}
	}

	out := &dyn.QueryOutput{}
	if in.Limit != nil && int(*in.Limit) < len(matched) {
		matched = matched[:*in.Limit]
		last := matched[len(matched)-1]
		out.LastEvaluatedKey = item{t.hashKey: last[t.hashKey]}
	}
	for _, it := range matched {
		out.Items = append(out.Items, copyItem(it))
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func rangeValue(it item, attr string) string {
	switch v := it[attr].(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

func (d *DynamoDB) record(op string) error {
	d.Calls[op]++
	return d.Errors[op]
}

func (d *DynamoDB) table(name string) (*table, error) {
	t, ok := d.tables[name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: str("table not found: " + name)}
	}
	return t, nil
}

func (t *table) keyOf(m item) (string, error) {
	v, ok := m[t.hashKey].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("awstest: missing string key %s", t.hashKey)
	}
	return v.Value, nil
}

// evaluate supports "a OR b", "a AND b", attribute_exists, attribute_not_exists,
// "=" and "<>".
func evaluate(expr *string, it item, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	e := strings.TrimSpace(deref(expr))
	if e == "" {
		return true, nil
	}
	if parts := strings.Split(e, " OR "); len(parts) > 1 {
		for _, p := range parts {
			ok, err := evaluate(&p, it, names, values)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	if parts := strings.Split(e, " AND "); len(parts) > 1 {
		for _, p := range parts {
			ok, err := evaluate(&p, it, names, values)
			if err != nil || !ok {
				return ok, err
			}
		}
		return true, nil
	}
	if arg, ok := fn(e, "attribute_not_exists"); ok {
		_, exists := it[resolveName(arg, names)]
		return !exists, nil
	}
	if arg, ok := fn(e, "attribute_exists"); ok {
		_, exists := it[resolveName(arg, names)]
		return exists, nil
	}
	if lhs, rhs, ok := strings.Cut(e, " <> "); ok {
		return !equalAV(it[resolveName(strings.TrimSpace(lhs), names)], values[strings.TrimSpace(rhs)]), nil
	}
	if lhs, rhs, ok := strings.Cut(e, " = "); ok {
		cur, exists := it[resolveName(strings.TrimSpace(lhs), names)]
		return exists && equalAV(cur, values[strings.TrimSpace(rhs)]), nil
	}
	return false, fmt.Errorf("awstest: unsupported condition %q", e)
}

func fn(e, name string) (string, bool) {
	if !strings.HasPrefix(e, name+"(") || !strings.HasSuffix(e, ")") {
		return "", false
	}
	return strings.TrimSpace(e[len(name)+1 : len(e)-1]), true
}

func applyUpdate(existing, key item, expr *string, names map[string]string, values map[string]types.AttributeValue) (item, error) {
	out := copyItem(existing)
	if out == nil {
		out = copyItem(key)
	}
	e := strings.TrimSpace(deref(expr))
	if !strings.HasPrefix(e, "SET ") {
		return nil, fmt.Errorf("awstest: unsupported update %q", e)
	}
	for _, assign := range strings.Split(strings.TrimPrefix(e, "SET "), ",") {
		lhs, rhs, ok := strings.Cut(assign, "=")
		if !ok {
			return nil, fmt.Errorf("awstest: bad assignment %q", assign)
		}
		v, ok := values[strings.TrimSpace(rhs)]
		if !ok {
			return nil, fmt.Errorf("awstest: missing value %s", strings.TrimSpace(rhs))
		}
		out[resolveName(strings.TrimSpace(lhs), names)] = v
	}
	return out, nil
}

func resolveName(n string, names map[string]string) string {
	if strings.HasPrefix(n, "#") {
		if v, ok := names[n]; ok {
			return v
		}
	}
	return n
}

func equalAV(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	}
	return false
}

func copyItem(m item) item {
	if m == nil {
		return nil
	}
	out := make(item, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func str(s string) *string { return &s }
