package report

import (
	"context"
	"fmt"
	"time"

	"orderdesk/internal/audit"

	"go.uber.org/zap"
)

type OperationSource interface {
	Shops(ctx context.Context) ([]string, error)
	ListDay(ctx context.Context, shop, day string) ([]audit.Operation, error)
}

type RowWriter interface {
	Write(ctx context.Context, row Row) (string, error)
}

type PartitionRepairer interface {
	Repair(ctx context.Context) (string, error)
}

// Summary is what the scheduled run returns.
type Summary struct {
	Ok         bool   `json:"ok"`
	Shops      int    `json:"shops"`
	DaysBack   int    `json:"days_back"`
	Written    int    `json:"written"`
	Operations int    `json:"operations"`
	RepairID   string `json:"repair_query_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Job writes one report row per shop and day for the last DaysBack days,
// today included.
type Job struct {
	Source   OperationSource
	Writer   RowWriter
	Repairer PartitionRepairer // optional
	Location *time.Location
	DaysBack int
	Log      *zap.Logger

	now func() time.Time
}

func (j *Job) Run(ctx context.Context) (Summary, error) {
	log := j.Log
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now
	if j.now != nil {
		now = j.now
	}
	loc := j.Location
	if loc == nil {
		loc = time.UTC
	}
	daysBack := j.DaysBack
	if daysBack <= 0 {
		daysBack = 1
	}

	shops, err := j.Source.Shops(ctx)
	if err != nil {
		return Summary{}, err
	}
	if len(shops) == 0 {
		return Summary{Ok: true, Reason: "no shops found"}, nil
	}

	sum := Summary{Ok: true, Shops: len(shops), DaysBack: daysBack}
	today := now().In(loc)
	for i := 0; i < daysBack; i++ {
		day := today.AddDate(0, 0, -i).Format("2006-01-02")
		for _, shop := range shops {
			ops, err := j.Source.ListDay(ctx, shop, day)
			if err != nil {
				return Summary{}, fmt.Errorf("list operations shop=%s dt=%s: %w", shop, day, err)
			}
			key, err := j.Writer.Write(ctx, Aggregate(shop, day, ops))
			if err != nil {
				return Summary{}, fmt.Errorf("write parquet for shop=%s dt=%s: %w", shop, day, err)
			}
			log.Debug("report row written", zap.String("shop", shop), zap.String("dt", day), zap.String("key", key))
			sum.Written++
			sum.Operations += len(ops)
		}
	}

	if j.Repairer != nil {
		qid, err := j.Repairer.Repair(ctx)
		if err != nil {
			return sum, err
		}
		sum.RepairID = qid
	}
	log.Info("ops report done", zap.Int("shops", sum.Shops), zap.Int("written", sum.Written))
	return sum, nil
}
