package report

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"
	"go.uber.org/zap"
)

type AthenaAPI interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
}

// Repairer makes Athena pick up newly written partitions.
type Repairer struct {
	api       AthenaAPI
	database  string
	table     string
	workgroup string
	output    string // s3://bucket/prefix/
	log       *zap.Logger

	timeout time.Duration
	poll    time.Duration
	sleep   func(context.Context, time.Duration) error
}

func NewRepairer(api AthenaAPI, database, table, workgroup, output string, log *zap.Logger) *Repairer {
	if workgroup == "" {
		workgroup = "primary"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Repairer{
		api:       api,
		database:  database,
		table:     table,
		workgroup: workgroup,
		output:    output,
		log:       log,
		timeout:   60 * time.Second,
		poll:      2 * time.Second,
		sleep:     sleepCtx,
	}
}

// Repair runs MSCK REPAIR TABLE and waits for it to finish.
func (r *Repairer) Repair(ctx context.Context) (string, error) {
	startOut, err := r.api.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString: aws.String(fmt.Sprintf("MSCK REPAIR TABLE %s;", r.table)),
		QueryExecutionContext: &athenatypes.QueryExecutionContext{
			Database: aws.String(r.database),
		},
		WorkGroup: aws.String(r.workgroup),
		ResultConfiguration: &athenatypes.ResultConfiguration{
			OutputLocation: aws.String(r.output),
		},
	})
	if err != nil {
		return "", fmt.Errorf("StartQueryExecution: %w", err)
	}

	qid := aws.ToString(startOut.QueryExecutionId)
	log := r.log.With(zap.String("query_id", qid), zap.String("table", r.table))
	log.Info("repair started")

	// Poll until completion (short timeout)
	for waited := time.Duration(0); waited < r.timeout; waited += r.poll {
		st, err := r.api.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(qid),
		})
		if err != nil {
			return qid, fmt.Errorf("GetQueryExecution: %w", err)
		}
		switch st.QueryExecution.Status.State {
		case athenatypes.QueryExecutionStateSucceeded:
			log.Info("repair succeeded")
			return qid, nil
		case athenatypes.QueryExecutionStateFailed, athenatypes.QueryExecutionStateCancelled:
			return qid, fmt.Errorf("repair %s: %s", st.QueryExecution.Status.State, aws.ToString(st.QueryExecution.Status.StateChangeReason))
		}
		if err := r.sleep(ctx, r.poll); err != nil {
			return qid, err
		}
	}
	return qid, fmt.Errorf("repair timed out waiting for qid=%s", qid)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
