package types

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/canopy-network/regionledger/pkg/core"
	"github.com/canopy-network/regionledger/pkg/ledger"
	"github.com/canopy-network/regionledger/pkg/settlement/workflow"
)

// RunSettlement performs one weekly settlement: through Temporal when a client is configured,
// otherwise in process by draining the batched reset and refreshing circulating supply.
func (a *App) RunSettlement(ctx context.Context) error {
	if a.TemporalClient != nil && a.Workflows != nil {
		id := a.TemporalClient.GetSettlementWorkflowID(core.ClockOrSystem(a.Clock).Now())
		runID, err := a.TemporalClient.Start(ctx, id, a.Workflows.WeeklySettlementWorkflow,
			workflow.SettlementInput{UpdateCirculating: true})
		if err != nil {
			return err
		}
		a.Logger.Info("Settlement workflow started", zap.String("workflowId", id), zap.String("runId", runID))
		return nil
	}

	var progress ledger.ResetProgress
	for batches := 0; !progress.Done; batches++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("settlement interrupted after %d batches: %w", batches, err)
		}
		progress = a.Ledger.ResetWeekly()
	}
	_, err := a.Ledger.UpdateCirculating()
	return err
}

// RunCirculating refreshes the circulating supply snapshot.
func (a *App) RunCirculating(ctx context.Context) error {
	if a.TemporalClient != nil && a.Workflows != nil {
		id := a.TemporalClient.GetCirculatingWorkflowID(core.ClockOrSystem(a.Clock).Now())
		_, err := a.TemporalClient.Start(ctx, id, a.Workflows.CirculatingWorkflow)
		return err
	}
	_, err := a.Ledger.UpdateCirculating()
	return err
}
