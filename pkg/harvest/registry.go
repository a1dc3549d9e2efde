// Package harvest keeps the planted balances that unlock the higher transfer tier.
//
// Planting is a plain ledger transfer into the harvest account; the registry observes those
// transfers as a ledger.Listener and credits the sender.
package harvest

import (
	"context"
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/canopy-network/regionledger/pkg/asset"
	"github.com/canopy-network/regionledger/pkg/core"
	"github.com/canopy-network/regionledger/pkg/ledger"
)

// Registry is safe for concurrent use.
type Registry struct {
	account core.AccountID
	symbol  asset.Symbol
	planted *xsync.Map[core.AccountID, int64]
	logger  *zap.Logger
}

// NewRegistry tracks plants sent to account in sym.
func NewRegistry(account core.AccountID, sym asset.Symbol, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		account: account,
		symbol:  sym,
		planted: xsync.NewMap[core.AccountID, int64](),
		logger:  logger,
	}
}

// Account is the harvest account that receives plants.
func (r *Registry) Account() core.AccountID { return r.account }

// OnTransfer credits the sender of every transfer into the harvest account.
func (r *Registry) OnTransfer(fact ledger.TransferFact) {
	if fact.To != r.account || fact.Quantity.Symbol != r.symbol {
		return
	}
	total, _ := r.planted.Compute(fact.From, func(old int64, _ bool) (int64, xsync.ComputeOp) {
		return old + fact.Quantity.Amount, xsync.UpdateOp
	})
	r.logger.Debug("Planted",
		zap.String("account", fact.From.String()),
		zap.Stringer("quantity", fact.Quantity),
		zap.Stringer("planted", asset.New(total, r.symbol)))
}

// PlantedBalance implements ledger.PlantedBalances.
func (r *Registry) PlantedBalance(_ context.Context, account core.AccountID) (asset.Asset, error) {
	amount, _ := r.planted.Load(account)
	return asset.New(amount, r.symbol), nil
}

// Planted lists every planted balance ordered by account.
func (r *Registry) Planted() []ledger.AccountBalance {
	out := make([]ledger.AccountBalance, 0, r.planted.Size())
	r.planted.Range(func(acc core.AccountID, amount int64) bool {
		out = append(out, ledger.AccountBalance{Account: acc, Balance: asset.New(amount, r.symbol)})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out
}

// Unplant lowers account's planted balance by qty. Returning the tokens is a separate ledger
// transfer out of the harvest account.
func (r *Registry) Unplant(account core.AccountID, qty asset.Asset) error {
	if qty.Symbol != r.symbol || !qty.IsPositive() {
		return fmt.Errorf("%w: cannot unplant %s", core.ErrInvalidAmount, qty)
	}
	var err error
	r.planted.Compute(account, func(old int64, loaded bool) (int64, xsync.ComputeOp) {
		if !loaded || old < qty.Amount {
			err = fmt.Errorf("%w: %s has %s planted", core.ErrInsufficientFunds, account, asset.New(old, r.symbol))
			return old, xsync.CancelOp
		}
		if old == qty.Amount {
			return 0, xsync.DeleteOp
		}
		return old - qty.Amount, xsync.UpdateOp
	})
	if err != nil {
		return err
	}
	r.logger.Debug("Unplanted", zap.String("account", account.String()), zap.Stringer("quantity", qty))
	return nil
}

// Reset forgets every planted balance.
func (r *Registry) Reset() {
	r.planted.Clear()
	r.logger.Info("Harvest reset")
}
