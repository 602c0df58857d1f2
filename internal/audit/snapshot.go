package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"orderdesk/internal/orders"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver keeps a JSON copy of every order before it is cancelled.
type Archiver struct {
	s3     S3Putter
	bucket string
}

func NewArchiver(client S3Putter, bucket string) *Archiver {
	return &Archiver{s3: client, bucket: bucket}
}

func SnapshotKey(shop, operationID, orderGID string) string {
	return fmt.Sprintf("snapshots/%s/%s/%s.json", shop, operationID, orders.NumericID(orderGID))
}

func (a *Archiver) Archive(ctx context.Context, shop, operationID string, o orders.Order) error {
	b, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", o.Name, err)
	}
	_, err = a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(SnapshotKey(shop, operationID, o.ID)),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
		ACL:         s3types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("s3 putobject failed: %w", err)
	}
	return nil
}
