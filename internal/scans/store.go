package scans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderdesk/internal/db"
	"orderdesk/internal/orders"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

var ErrNoSession = errors.New("no scan in progress for this order")

// item is a ScanSession in DynamoDB.
// PK = SHOP#<shop>
// SK = SCAN#<order numeric id>
type item struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	orders.ScanSession
	UpdatedAt string `dynamodbav:"UpdatedAt"`
	ExpiresAt int64  `dynamodbav:"ExpiresAt"`
}

// Store persists packing progress between requests. Sessions expire after
// a day through the table's TTL on ExpiresAt.
type Store struct {
	ddb   db.DDBClient
	table string
	ttl   time.Duration
	now   func() time.Time
}

func NewStore(ddb db.DDBClient, table string) *Store {
	return &Store{ddb: ddb, table: table, ttl: 24 * time.Hour, now: time.Now}
}

func key(shop, orderGID string) (string, string) {
	return fmt.Sprintf("SHOP#%s", shop), fmt.Sprintf("SCAN#%s", orders.NumericID(orderGID))
}

func (s *Store) Put(ctx context.Context, shop string, session *orders.ScanSession) error {
	pk, sk := key(shop, session.OrderID)
	now := s.now().UTC()
	av, err := attributevalue.MarshalMap(item{
		PK:          pk,
		SK:          sk,
		ScanSession: *session,
		UpdatedAt:   now.Format(time.RFC3339),
		ExpiresAt:   now.Add(s.ttl).Unix(),
	})
	if err != nil {
		return err
	}
	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("store scan session %s: %w", session.OrderName, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, shop, orderGID string) (*orders.ScanSession, error) {
	pk, sk := key(shop, orderGID)
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            db.Key(pk, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("load scan session: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNoSession
	}
	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	if it.ExpiresAt > 0 && s.now().UTC().Unix() > it.ExpiresAt {
		return nil, ErrNoSession
	}
	return &it.ScanSession, nil
}

func (s *Store) Delete(ctx context.Context, shop, orderGID string) error {
	pk, sk := key(shop, orderGID)
	_, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       db.Key(pk, sk),
	})
	return err
}
