package activity

import (
	"go.uber.org/zap"

	"github.com/canopy-network/regionledger/pkg/ledger"
)

// Settler is the ledger surface settlement drives. *ledger.Engine implements it.
type Settler interface {
	ResetWeekly() ledger.ResetProgress
	UpdateCirculating() (ledger.CirculatingSnapshot, error)
}

type Context struct {
	Logger *zap.Logger
	Ledger Settler
}
