package ledger

import (
	"time"

	"github.com/canopy-network/regionledger/pkg/asset"
	"github.com/canopy-network/regionledger/pkg/core"
)

// TransferFact is published after every successful transfer.
type TransferFact struct {
	From      core.AccountID `json:"from"`
	To        core.AccountID `json:"to"`
	Quantity  asset.Asset    `json:"quantity"`
	Memo      string         `json:"memo"`
	Timestamp time.Time      `json:"timestamp"`
}

// Listener observes committed transfers. It is called synchronously, outside the ledger lock, in
// subscription order. Listeners must not fail the transfer; anything slow belongs on a pool.
type Listener interface {
	OnTransfer(fact TransferFact)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(fact TransferFact)

func (f ListenerFunc) OnTransfer(fact TransferFact) { f(fact) }
