package audit

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"unicode/utf8"
	"testing"
	"time"

	"orderdesk/internal/orders"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDDB struct {
	mock.Mock
}

func (m *mockDDB) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockDDB) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *mockDDB) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*dynamodb.DeleteItemOutput)
	return out, args.Error(1)
}

func (m *mockDDB) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}

func (m *mockDDB) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*dynamodb.ScanOutput)
	return out, args.Error(1)
}

func TestNewOperation(t *testing.T) {
	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	at := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	op := NewOperation("demo.myshopify.com", KindCombine, at, denver)
	assert.NotEmpty(t, op.ID)
	assert.Equal(t, "2026-03-01", op.Day, "day is taken in the configured zone")
	assert.Equal(t, "2026-03-02T03:00:00Z", op.CreatedAt)

	other := NewOperation("demo.myshopify.com", KindCombine, at, nil)
	assert.NotEqual(t, op.ID, other.ID)
	assert.Equal(t, "2026-03-02", other.Day)
}

func TestRecorderRecord(t *testing.T) {
	ctx := context.Background()
	op := Operation{ID: "op-1", Shop: "demo.myshopify.com", Kind: KindSplit, Day: "2026-03-01", SourceOrders: []string{"#1001"}}

	t.Run("conditional put", func(t *testing.T) {
		ddb := new(mockDDB)
		ddb.On("PutItem", mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
			var got Operation
			require.NoError(t, attributevalue.UnmarshalMap(in.Item, &got))
			return aws.ToString(in.TableName) == "operations" &&
				got.PK == "SHOP#demo.myshopify.com" &&
				got.SK == "OP#2026-03-01#op-1" &&
				strings.Contains(aws.ToString(in.ConditionExpression), "attribute_not_exists(PK)")
		})).Return(&dynamodb.PutItemOutput{}, nil)

		require.NoError(t, NewRecorder(ddb, "operations").Record(ctx, op))
		ddb.AssertExpectations(t)
	})

	t.Run("duplicate", func(t *testing.T) {
		ddb := new(mockDDB)
		ddb.On("PutItem", mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

		err := NewRecorder(ddb, "operations").Record(ctx, op)
		assert.ErrorIs(t, err, ErrDuplicateOperation)
	})

	t.Run("empty id", func(t *testing.T) {
		assert.Error(t, NewRecorder(new(mockDDB), "operations").Record(ctx, Operation{}))
	})
}

func TestRecorderListDay(t *testing.T) {
	ddb := new(mockDDB)
	item1, _ := attributevalue.MarshalMap(Operation{ID: "a", Kind: KindCombine})
	item2, _ := attributevalue.MarshalMap(Operation{ID: "b", Kind: KindSplit})

	ddb.On("Query", mock.MatchedBy(func(in *dynamodb.QueryInput) bool { return in.ExclusiveStartKey == nil })).
		Return(&dynamodb.QueryOutput{
			Items:            []map[string]types.AttributeValue{item1},
			LastEvaluatedKey: map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "x"}},
		}, nil).Once()
	ddb.On("Query", mock.MatchedBy(func(in *dynamodb.QueryInput) bool { return in.ExclusiveStartKey != nil })).
		Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item2}}, nil).Once()

	ops, err := NewRecorder(ddb, "operations").ListDay(context.Background(), "demo.myshopify.com", "2026-03-01")
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, KindSplit, ops[1].Kind)

	first := ddb.Calls[0].Arguments.Get(0).(*dynamodb.QueryInput)
	assert.Equal(t, "OP#2026-03-01#", first.ExpressionAttributeValues[":day"].(*types.AttributeValueMemberS).Value)
}

func TestRecorderShops(t *testing.T) {
	ddb := new(mockDDB)
	shop := func(s string) map[string]types.AttributeValue {
		return map[string]types.AttributeValue{"Shop": &types.AttributeValueMemberS{Value: s}}
	}
	ddb.On("Scan", mock.Anything).Return(&dynamodb.ScanOutput{
		Items: []map[string]types.AttributeValue{shop("a.myshopify.com"), shop("A.myshopify.com"), shop(" "), shop("b.myshopify.com")},
	}, nil)

	shops, err := NewRecorder(ddb, "operations").Shops(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.myshopify.com", "b.myshopify.com"}, shops)
}

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func TestArchiver(t *testing.T) {
	client := new(mockS3)
	var body []byte
	client.On("PutObject", mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		body, _ = io.ReadAll(in.Body)
		return aws.ToString(in.Bucket) == "snapshots" &&
			aws.ToString(in.Key) == "snapshots/demo.myshopify.com/op-1/1001.json"
	})).Return(&s3.PutObjectOutput{}, nil)

	o := orders.Order{ID: "gid://shopify/Order/1001", Name: "#1001"}
	require.NoError(t, NewArchiver(client, "snapshots").Archive(context.Background(), "demo.myshopify.com", "op-1", o))
	client.AssertExpectations(t)

	var got orders.Order
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "#1001", got.Name)
}

type mockSNS struct {
	mock.Mock
}

func (m *mockSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func TestNotifier(t *testing.T) {
	op := Operation{
		ID:              "op-1",
		Shop:            "demo.myshopify.com",
		Kind:            KindCombine,
		SourceOrders:    []string{"#1001", "#1002"},
		CreatedOrders:   []string{"#1001-C"},
		CancelledOrders: []string{"#1001", "#1002"},
	}
	client := new(mockSNS)
	client.On("Publish", mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.TopicArn) == "arn:topic" &&
			aws.ToString(in.Subject) == "[demo.myshopify.com] combine: #1001, #1002" &&
			strings.Contains(aws.ToString(in.Message), "Created orders: #1001-C")
	})).Return(&sns.PublishOutput{}, nil)

	require.NoError(t, NewNotifier(client, "arn:topic").Notify(context.Background(), op))
	client.AssertExpectations(t)
}

func TestSubjectIsTruncated(t *testing.T) {
	op := Operation{Shop: "demo.myshopify.com", Kind: KindCombine}
	for i := 0; i < 30; i++ {
		op.SourceOrders = append(op.SourceOrders, "#100000")
	}
	s := Subject(op)
	assert.Len(t, s, 100)
	assert.True(t, strings.HasSuffix(s, "..."))
}

func TestSubjectKeepsRunesWhole(t *testing.T) {
	op := Operation{Shop: "café-münchen.myshopify.com", Kind: KindSplit}
	for i := 0; i < 20; i++ {
		op.SourceOrders = append(op.SourceOrders, "#é1000")
	}
	s := Subject(op)
	assert.True(t, utf8.ValidString(s))
	assert.Equal(t, 100, utf8.RuneCountInString(s))
	assert.True(t, strings.HasSuffix(s, "..."))
}
