package activity

import (
	"context"

	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/canopy-network/regionledger/pkg/ledger"
)

// ResetWeeklyBatch clears one batch of rate windows. The first call of a reset opens the new
// settlement period.
func (c *Context) ResetWeeklyBatch(ctx context.Context) (ledger.ResetProgress, error) {
	if err := ctx.Err(); err != nil {
		return ledger.ResetProgress{}, err
	}
	progress := c.Ledger.ResetWeekly()
	c.Logger.Debug("Reset batch applied",
		zap.Uint64("period", progress.Period),
		zap.Int("processed", progress.Processed),
		zap.Int("remaining", progress.Remaining))
	return progress, nil
}

// UpdateCirculating stores the circulating supply snapshot for the current period.
func (c *Context) UpdateCirculating(ctx context.Context) (ledger.CirculatingSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return ledger.CirculatingSnapshot{}, err
	}
	snap, err := c.Ledger.UpdateCirculating()
	if err != nil {
		// Arithmetic failures repeat on retry.
		return ledger.CirculatingSnapshot{}, temporal.NewNonRetryableApplicationError(err.Error(), "CirculatingOverflow", err)
	}
	return snap, nil
}
