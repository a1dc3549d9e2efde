package harvest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/canopy-network/regionledger/pkg/asset"
	"github.com/canopy-network/regionledger/pkg/core"
	"github.com/canopy-network/regionledger/pkg/ledger"
	"github.com/canopy-network/regionledger/pkg/settings"
)

var seeds = asset.Symbol{Code: "SEEDS", Precision: 4}

func TestRegistryCreditsPlantsOnly(t *testing.T) {
	r := NewRegistry("harvest", seeds, zaptest.NewLogger(t))

	r.OnTransfer(ledger.TransferFact{From: "alice", To: "harvest", Quantity: asset.MustParse("2.0000 SEEDS")})
	r.OnTransfer(ledger.TransferFact{From: "alice", To: "harvest", Quantity: asset.MustParse("1.5000 SEEDS")})
	r.OnTransfer(ledger.TransferFact{From: "bob", To: "carol", Quantity: asset.MustParse("9.0000 SEEDS")})
	r.OnTransfer(ledger.TransferFact{From: "bob", To: "harvest", Quantity: asset.MustParse("9.0000 TLOS")})

	alice, err := r.PlantedBalance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "3.5000 SEEDS", alice.String())

	bob, err := r.PlantedBalance(context.Background(), "bob")
	require.NoError(t, err)
	assert.True(t, bob.IsZero())

	rows := r.Planted()
	require.Len(t, rows, 1)
	assert.Equal(t, core.AccountID("alice"), rows[0].Account)

	r.Reset()
	assert.Empty(t, r.Planted())
}

// Planting through the ledger moves an account onto the planted tier.
func TestPlantingUnlocksHigherTier(t *testing.T) {
	s, err := settings.New(settings.Defaults{
		Authority: "settings", RegionFee: 10000, TxLimitMin: 7, TxLimitPlanted: 21, BatchSize: 100,
	}, nil)
	require.NoError(t, err)

	store, err := ledger.NewStore(seeds, time.Unix(0, 0))
	require.NoError(t, err)
	registry := NewRegistry("harvest", seeds, zaptest.NewLogger(t))
	engine, err := ledger.NewEngine(store, ledger.NewRateLimiter(registry, s), ledger.Options{
		Issuer: "token.seeds",
		Batch:  s,
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	engine.Subscribe(registry)

	ctx := context.Background()
	require.NoError(t, engine.Issue("token.seeds", asset.MustParse("1000.0000 SEEDS"), ""))
	_, err = engine.Transfer(ctx, "token.seeds", "seedsuseraaa", asset.MustParse("500.0000 SEEDS"), "")
	require.NoError(t, err)
	engine.ResetWeekly()

	_, err = engine.Transfer(ctx, "seedsuseraaa", "harvest", asset.MustParse("2.0000 SEEDS"), "")
	require.NoError(t, err)

	// the plant itself counted as one outgoing transfer
	for i := 0; i < 20; i++ {
		_, err = engine.Transfer(ctx, "seedsuseraaa", "seedsuserbbb", asset.MustParse("10.0000 SEEDS"), "")
		require.NoError(t, err, "transfer %d", i+1)
	}
	_, err = engine.Transfer(ctx, "seedsuseraaa", "seedsuserbbb", asset.MustParse("10.0000 SEEDS"), "")
	assert.ErrorIs(t, err, core.ErrRateLimitExceeded)

	bal, _ := store.Balance("seedsuseraaa")
	assert.Equal(t, "298.0000 SEEDS", bal.String())

	registry.Reset()
	for !engine.ResetWeekly().Done {
	}
	for i := 0; i < 7; i++ {
		_, err = engine.Transfer(ctx, "seedsuseraaa", "seedsuserbbb", asset.MustParse("10.0000 SEEDS"), "")
		require.NoError(t, err)
	}
	_, err = engine.Transfer(ctx, "seedsuseraaa", "seedsuserbbb", asset.MustParse("10.0000 SEEDS"), "")
	assert.ErrorIs(t, err, core.ErrRateLimitExceeded)
}

func TestUnplant(t *testing.T) {
	r := NewRegistry("harvest", seeds, zaptest.NewLogger(t))
	r.OnTransfer(ledger.TransferFact{From: "alice", To: "harvest", Quantity: asset.MustParse("2.0000 SEEDS")})

	assert.ErrorIs(t, r.Unplant("alice", asset.MustParse("3.0000 SEEDS")), core.ErrInsufficientFunds)
	assert.ErrorIs(t, r.Unplant("bob", asset.MustParse("1.0000 SEEDS")), core.ErrInsufficientFunds)
	assert.ErrorIs(t, r.Unplant("alice", asset.MustParse("1.0000 TLOS")), core.ErrInvalidInput)

	require.NoError(t, r.Unplant("alice", asset.MustParse("0.5000 SEEDS")))
	alice, _ := r.PlantedBalance(context.Background(), "alice")
	assert.Equal(t, "1.5000 SEEDS", alice.String())

	require.NoError(t, r.Unplant("alice", asset.MustParse("1.5000 SEEDS")))
	assert.Empty(t, r.Planted())
}
