package report

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"orderdesk/internal/audit"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"
)

// Row matches the ops report table columns.
type Row struct {
	ShopID          string `parquet:"name=shop_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ReportDate      string `parquet:"name=report_date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"` // YYYY-MM-DD
	Combines        int64  `parquet:"name=combines, type=INT64"`
	Splits          int64  `parquet:"name=splits, type=INT64"`
	Drafts          int64  `parquet:"name=drafts, type=INT64"`
	OrdersCreated   int64  `parquet:"name=orders_created, type=INT64"`
	OrdersCancelled int64  `parquet:"name=orders_cancelled, type=INT64"`
}

// Aggregate folds one shop's operations of a day into a report row.
func Aggregate(shop, day string, ops []audit.Operation) Row {
	row := Row{ShopID: shop, ReportDate: day}
	for _, op := range ops {
		switch op.Kind {
		case audit.KindCombine:
			row.Combines++
		case audit.KindSplit, audit.KindSplitItems:
			row.Splits++
		case audit.KindDraft:
			row.Drafts++
		}
		row.OrdersCreated += int64(len(op.CreatedOrders))
		row.OrdersCancelled += int64(len(op.CancelledOrders))
	}
	return row
}

type S3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Writer uploads one parquet file per row under a Hive style partition.
type Writer struct {
	s3     S3Putter
	bucket string
	prefix string
}

func NewWriter(client S3Putter, bucket, prefix string) *Writer {
	return &Writer{s3: client, bucket: bucket, prefix: prefix}
}

// Key is <prefix>dt=YYYY-MM-DD/shop_id=<shop>/part-<suffix>.parquet.
func Key(prefix, day, shop, suffix string) string {
	return fmt.Sprintf("%sdt=%s/shop_id=%s/part-%s.parquet",
		ensureTrailingSlash(prefix),
		day,
		shop,
		suffix,
	)
}

func (w *Writer) Write(ctx context.Context, row Row) (string, error) {
	key := Key(w.prefix, row.ReportDate, row.ShopID, randHex(8))

	data, err := encodeRow(row)
	if err != nil {
		return "", err
	}
	_, err = w.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		ACL:         s3types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("s3 putobject failed: %w", err)
	}
	return key, nil
}

// encodeRow writes the row through a temp file; /tmp is the only writable
// place on Lambda.
func encodeRow(row Row) ([]byte, error) {
	localPath := filepath.Join(os.TempDir(), "ops_report_"+randHex(8)+".parquet")
	defer func() { _ = os.Remove(localPath) }()

	fw, err := local.NewLocalFileWriter(localPath)
	if err != nil {
		return nil, fmt.Errorf("parquet file writer: %w", err)
	}

	pw, err := writer.NewParquetWriter(fw, new(Row), 1)
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("parquet writer: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.PageSize = 8 * 1024
	pw.CompressionType = 0 // no snappy

	if err := pw.Write(row); err != nil {
		_ = pw.WriteStop()
		_ = fw.Close()
		return nil, fmt.Errorf("parquet write row: %w", err)
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("parquet write stop: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("parquet close: %w", err)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("read parquet tmp: %w", err)
	}
	return data, nil
}

func ensureTrailingSlash(s string) string {
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

func randHex(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
