package shopify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"orderdesk/internal/db"
	"orderdesk/internal/security"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	ErrShopNotInstalled = errors.New("shop has not installed the app")
	ErrInvalidState     = errors.New("invalid or expired state")
)

// SessionItem mirrors the DynamoDB structure of an offline session.
// PK = SHOP#<shopDomain>
// SK = OFFLINE
type SessionItem struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	Shop           string `dynamodbav:"Shop"`
	AccessTokenEnc string `dynamodbav:"AccessTokenEnc"`
	Scope          string `dynamodbav:"Scope"`
	CreatedAt      string `dynamodbav:"CreatedAt"`
}

func sessionKey(shop string) (string, string) {
	return fmt.Sprintf("SHOP#%s", shop), "OFFLINE"
}

// SessionStore keeps each shop's offline access token, encrypted at rest.
type SessionStore struct {
	ddb    db.DDBClient
	table  string
	cipher *security.Cipher
	now    func() time.Time
}

func NewSessionStore(ddb db.DDBClient, table string, c *security.Cipher) *SessionStore {
	return &SessionStore{ddb: ddb, table: table, cipher: c, now: time.Now}
}

func (s *SessionStore) Save(ctx context.Context, shop, accessToken, scope string) error {
	if strings.TrimSpace(s.table) == "" {
		return errors.New("SESSIONS_TABLE not set")
	}
	enc, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}
	pk, sk := sessionKey(shop)
	item, err := attributevalue.MarshalMap(SessionItem{
		PK:             pk,
		SK:             sk,
		Shop:           shop,
		AccessTokenEnc: enc,
		Scope:          scope,
		CreatedAt:      s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("store session for %s: %w", shop, err)
	}
	return nil
}

// Load returns the decrypted offline token of shop.
func (s *SessionStore) Load(ctx context.Context, shop string) (string, error) {
	if strings.TrimSpace(s.table) == "" {
		return "", errors.New("SESSIONS_TABLE not set")
	}
	pk, sk := sessionKey(shop)
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       db.Key(pk, sk),
	})
	if err != nil {
		return "", fmt.Errorf("load session for %s: %w", shop, err)
	}
	if out.Item == nil {
		return "", ErrShopNotInstalled
	}

	var item SessionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return "", err
	}
	if strings.TrimSpace(item.AccessTokenEnc) == "" {
		return "", errors.New("no AccessTokenEnc on record")
	}
	token, err := s.cipher.Decrypt(item.AccessTokenEnc)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}
	return token, nil
}

// StateStore holds OAuth install states for ten minutes.
type StateStore struct {
	ddb   db.DDBClient
	table string
	ttl   time.Duration
	now   func() time.Time
}

func NewStateStore(ddb db.DDBClient, table string) *StateStore {
	return &StateStore{ddb: ddb, table: table, ttl: 10 * time.Minute, now: time.Now}
}

func (s *StateStore) Put(ctx context.Context, state, shop string) error {
	if strings.TrimSpace(s.table) == "" {
		return errors.New("OAUTH_STATE_TABLE not set")
	}
	exp := s.now().UTC().Add(s.ttl).Unix()
	_, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"State":          &types.AttributeValueMemberS{Value: state},
			"Shop":           &types.AttributeValueMemberS{Value: shop},
			"ExpiresAtEpoch": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", exp)},
		},
	})
	return err
}

// Consume checks that state was issued for shop and has not expired, then
// deletes it.
func (s *StateStore) Consume(ctx context.Context, state, shop string) error {
	key := map[string]types.AttributeValue{
		"State": &types.AttributeValueMemberS{Value: state},
	}
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       key,
	})
	if err != nil || out.Item == nil {
		return ErrInvalidState
	}

	var item struct {
		Shop           string `dynamodbav:"Shop"`
		ExpiresAtEpoch int64  `dynamodbav:"ExpiresAtEpoch"`
	}
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return ErrInvalidState
	}
	if item.Shop == "" || item.Shop != shop || s.now().UTC().Unix() > item.ExpiresAtEpoch {
		return ErrInvalidState
	}

	// one-time state cleanup
	_, _ = s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       key,
	})
	return nil
}
