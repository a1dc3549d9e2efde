package ledger

import (
	"context"
	"fmt"

	"github.com/canopy-network/regionledger/pkg/asset"
	"github.com/canopy-network/regionledger/pkg/core"
)

// PlantedBalances is the read-only view of the staking/harvest companion.
type PlantedBalances interface {
	PlantedBalance(ctx context.Context, account core.AccountID) (asset.Asset, error)
}

// Tiers supplies the two outgoing-transfer allowances. *settings.Settings implements it.
type Tiers interface {
	TxLimits() (lower, planted int64)
}

// RateLimiter decides how many outgoing transfers an account may make per settlement period.
// Accounts with a positive planted balance get the planted tier, everyone else the lower one.
//
// Allowance is resolved before the ledger lock is taken; the count comparison and the increment
// happen inside Store under the same lock as the balance change.
type RateLimiter struct {
	planted PlantedBalances
	tiers   Tiers
}

// NewRateLimiter returns a limiter. A nil planted source puts every account on the lower tier.
func NewRateLimiter(planted PlantedBalances, tiers Tiers) *RateLimiter {
	return &RateLimiter{planted: planted, tiers: tiers}
}

// Allowance returns the number of outgoing transfers account may make in the open period.
func (l *RateLimiter) Allowance(ctx context.Context, account core.AccountID) (uint64, error) {
	lower, planted := l.tiers.TxLimits()
	if l.planted == nil {
		return uint64(lower), nil
	}
	bal, err := l.planted.PlantedBalance(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("planted balance of %s: %w", account, err)
	}
	if bal.IsPositive() {
		return uint64(planted), nil
	}
	return uint64(lower), nil
}

// permit rejects the transfer when count has reached allowance.
func permit(account core.AccountID, count, allowance uint64) error {
	if count >= allowance {
		return fmt.Errorf("%w: %s made %d of %d outgoing transfers this period",
			core.ErrRateLimitExceeded, account, count, allowance)
	}
	return nil
}
