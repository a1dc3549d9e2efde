package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/canopy-network/regionledger/pkg/ledger"
	"github.com/canopy-network/regionledger/pkg/settlement/activity"
)

// DefaultMaxBatches bounds one settlement run; a ledger with more windows than
// DefaultMaxBatches*batchsize finishes on the next run.
const DefaultMaxBatches = 5000

// SettlementInput configures WeeklySettlementWorkflow.
type SettlementInput struct {
	MaxBatches        int  `json:"max_batches"`
	UpdateCirculating bool `json:"update_circulating"`
}

// SettlementResult summarises a settlement run.
type SettlementResult struct {
	Period      uint64                      `json:"period"`
	Batches     int                         `json:"batches"`
	Cleared     int                         `json:"cleared"`
	Done        bool                        `json:"done"`
	Circulating *ledger.CirculatingSnapshot `json:"circulating,omitempty"`
}

func (c *Context) activityOptions(ctx workflow.Context) workflow.Context {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}
	if c.TemporalClient != nil {
		ao.TaskQueue = c.TemporalClient.SettlementQueue
	}
	return workflow.WithActivityOptions(ctx, ao)
}

// WeeklySettlementWorkflow drains the weekly reset batch by batch, then optionally refreshes the
// circulating supply snapshot for the new period.
func (c *Context) WeeklySettlementWorkflow(ctx workflow.Context, in SettlementInput) (SettlementResult, error) {
	ctx = c.activityOptions(ctx)
	logger := workflow.GetLogger(ctx)

	maxBatches := in.MaxBatches
	if maxBatches <= 0 {
		maxBatches = DefaultMaxBatches
	}

	var result SettlementResult
	for result.Batches < maxBatches {
		var progress ledger.ResetProgress
		if err := workflow.ExecuteActivity(ctx, (*activity.Context).ResetWeeklyBatch).Get(ctx, &progress); err != nil {
			return result, fmt.Errorf("reset batch %d: %w", result.Batches+1, err)
		}
		result.Batches++
		result.Period = progress.Period
		result.Cleared = progress.Cleared
		if progress.Done {
			result.Done = true
			break
		}
	}
	if !result.Done {
		logger.Warn("Weekly reset not finished", "Period", result.Period, "Batches", result.Batches)
		return result, nil
	}

	if in.UpdateCirculating {
		var snap ledger.CirculatingSnapshot
		if err := workflow.ExecuteActivity(ctx, (*activity.Context).UpdateCirculating).Get(ctx, &snap); err != nil {
			return result, fmt.Errorf("update circulating: %w", err)
		}
		result.Circulating = &snap
	}

	logger.Info("Weekly settlement complete", "Period", result.Period, "Batches", result.Batches, "Cleared", result.Cleared)
	return result, nil
}

// CirculatingWorkflow refreshes the circulating supply snapshot.
func (c *Context) CirculatingWorkflow(ctx workflow.Context) (ledger.CirculatingSnapshot, error) {
	ctx = c.activityOptions(ctx)
	var snap ledger.CirculatingSnapshot
	err := workflow.ExecuteActivity(ctx, (*activity.Context).UpdateCirculating).Get(ctx, &snap)
	return snap, err
}
