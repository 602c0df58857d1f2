package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"orderdesk/internal/db"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

type Kind string

const (
	KindCombine    Kind = "combine"
	KindSplit      Kind = "split"
	KindSplitItems Kind = "split_items"
	KindDraft      Kind = "draft"
)

var ErrDuplicateOperation = errors.New("operation already recorded")

// Operation is one merchant action that created or cancelled orders.
// PK = SHOP#<shop>
// SK = OP#<YYYY-MM-DD>#<id>
type Operation struct {
	PK              string   `dynamodbav:"PK" json:"-"`
	SK              string   `dynamodbav:"SK" json:"-"`
	ID              string   `dynamodbav:"Id" json:"id"`
	Shop            string   `dynamodbav:"Shop" json:"shop"`
	Kind            Kind     `dynamodbav:"Kind" json:"kind"`
	Day             string   `dynamodbav:"Day" json:"day"`
	SourceOrders    []string `dynamodbav:"SourceOrders" json:"sourceOrders"`
	CreatedOrders   []string `dynamodbav:"CreatedOrders,omitempty" json:"createdOrders,omitempty"`
	CancelledOrders []string `dynamodbav:"CancelledOrders,omitempty" json:"cancelledOrders,omitempty"`
	DraftOrders     []string `dynamodbav:"DraftOrders,omitempty" json:"draftOrders,omitempty"`
	CreatedAt       string   `dynamodbav:"CreatedAt" json:"createdAt"`
}

// NewOperation stamps a fresh id and the day in loc.
func NewOperation(shop string, kind Kind, at time.Time, loc *time.Location) Operation {
	if loc == nil {
		loc = time.UTC
	}
	return Operation{
		ID:        uuid.NewString(),
		Shop:      shop,
		Kind:      kind,
		Day:       at.In(loc).Format("2006-01-02"),
		CreatedAt: at.UTC().Format(time.RFC3339),
	}
}

func shopPK(shop string) string {
	return fmt.Sprintf("SHOP#%s", shop)
}

func opSK(day, id string) string {
	return fmt.Sprintf("OP#%s#%s", day, id)
}

type Recorder struct {
	ddb   db.DDBClient
	table string
}

func NewRecorder(ddb db.DDBClient, table string) *Recorder {
	return &Recorder{ddb: ddb, table: table}
}

// Record stores op once; a second write with the same id fails with
// ErrDuplicateOperation.
func (r *Recorder) Record(ctx context.Context, op Operation) error {
	if strings.TrimSpace(op.ID) == "" {
		return errors.New("operation id is empty")
	}
	op.PK = shopPK(op.Shop)
	op.SK = opSK(op.Day, op.ID)

	item, err := attributevalue.MarshalMap(op)
	if err != nil {
		return err
	}
	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return ErrDuplicateOperation
		}
		return fmt.Errorf("put operation %s: %w", op.ID, err)
	}
	return nil
}

// ListDay returns the operations of shop on day (YYYY-MM-DD).
func (r *Recorder) ListDay(ctx context.Context, shop, day string) ([]Operation, error) {
	var (
		ops      []Operation
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.table),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :day)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":  &types.AttributeValueMemberS{Value: shopPK(shop)},
				":day": &types.AttributeValueMemberS{Value: "OP#" + day + "#"},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("query operations shop=%s day=%s: %w", shop, day, err)
		}

		var page []Operation
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		ops = append(ops, page...)

		if len(out.LastEvaluatedKey) == 0 {
			return ops, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// Shops lists every shop that has recorded at least one operation.
func (r *Recorder) Shops(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	shops := make([]string, 0, 16)

	var startKey map[string]types.AttributeValue
	for {
		out, err := r.ddb.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(r.table),
			ExclusiveStartKey:    startKey,
			ProjectionExpression: aws.String("#shop"),
			ExpressionAttributeNames: map[string]string{
				"#shop": "Shop",
			},
		})
		if err != nil {
			return nil, fmt.Errorf("dynamodb scan %s: %w", r.table, err)
		}

		for _, it := range out.Items {
			s := strings.TrimSpace(db.StringAttr(it["Shop"]))
			if s == "" {
				continue
			}
			if k := strings.ToLower(s); !seen[k] {
				seen[k] = true
				shops = append(shops, s)
			}
		}

		if len(out.LastEvaluatedKey) == 0 {
			return shops, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
