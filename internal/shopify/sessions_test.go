package shopify

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"orderdesk/internal/security"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memDDB keeps items keyed by table and the string form of their key attributes.
type memDDB struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newMemDDB() *memDDB {
	return &memDDB{items: map[string]map[string]types.AttributeValue{}}
}

func keyOf(table string, item map[string]types.AttributeValue) string {
	parts := []string{table}
	for _, k := range []string{"PK", "SK", "State"} {
		if v, ok := item[k].(*types.AttributeValueMemberS); ok {
			parts = append(parts, k+"="+v.Value)
		}
	}
	return strings.Join(parts, "|")
}

func (m *memDDB) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: m.items[keyOf(aws.ToString(in.TableName), in.Key)]}, nil
}

func (m *memDDB) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[keyOf(aws.ToString(in.TableName), in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *memDDB) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, keyOf(aws.ToString(in.TableName), in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *memDDB) Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return nil, fmt.Errorf("query not supported")
}

func (m *memDDB) Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return nil, fmt.Errorf("scan not supported")
}

func testCipher(t *testing.T) *security.Cipher {
	t.Helper()
	key, err := security.LoadKeyFromBase64(base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 32))))
	require.NoError(t, err)
	c, err := security.NewCipher(key)
	require.NoError(t, err)
	return c
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	ddb := newMemDDB()
	store := NewSessionStore(ddb, "sessions", testCipher(t))

	_, err := store.Load(ctx, "demo.myshopify.com")
	assert.ErrorIs(t, err, ErrShopNotInstalled)

	require.NoError(t, store.Save(ctx, "demo.myshopify.com", "shpat_abc", "read_orders,write_orders"))

	stored := ddb.items["sessions|PK=SHOP#demo.myshopify.com|SK=OFFLINE"]
	require.NotNil(t, stored)
	enc := stored["AccessTokenEnc"].(*types.AttributeValueMemberS).Value
	assert.NotContains(t, enc, "shpat_abc")

	tok, err := store.Load(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "shpat_abc", tok)

	assert.Error(t, NewSessionStore(ddb, "", testCipher(t)).Save(ctx, "x.myshopify.com", "t", ""))
}

func TestStateStore(t *testing.T) {
	ctx := context.Background()
	ddb := newMemDDB()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewStateStore(ddb, "oauth-state")
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, "s1", "demo.myshopify.com"))
	require.NoError(t, store.Put(ctx, "s2", "demo.myshopify.com"))

	assert.ErrorIs(t, store.Consume(ctx, "s1", "other.myshopify.com"), ErrInvalidState)
	require.NoError(t, store.Consume(ctx, "s1", "demo.myshopify.com"))
	assert.ErrorIs(t, store.Consume(ctx, "s1", "demo.myshopify.com"), ErrInvalidState, "states are single use")

	now = now.Add(11 * time.Minute)
	assert.ErrorIs(t, store.Consume(ctx, "s2", "demo.myshopify.com"), ErrInvalidState)
	assert.ErrorIs(t, store.Consume(ctx, "missing", "demo.myshopify.com"), ErrInvalidState)
}
