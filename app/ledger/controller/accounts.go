package controller

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/canopy-network/regionledger/pkg/asset"
	"github.com/canopy-network/regionledger/pkg/core"
	"github.com/canopy-network/regionledger/pkg/ledger"
)

type windowResponse struct {
	ledger.Window
	// Stale windows belong to an earlier period and count as empty.
	Stale bool `json:"stale"`
}

func accountVar(r *http.Request) (core.AccountID, error) {
	account := core.AccountID(mux.Vars(r)["account"])
	return account, account.Validate()
}

func (c *Controller) HandleBalance(w http.ResponseWriter, r *http.Request) {
	account, err := accountVar(r)
	if err != nil {
		writeError(w, err)
		return
	}
	bal, ok := c.App.Ledger.Store().Balance(account)
	if !ok {
		writeError(w, fmt.Errorf("%w: no balance for %s", core.ErrNotFound, account))
		return
	}
	writeJSON(w, http.StatusOK, ledger.AccountBalance{Account: account, Balance: bal})
}

func (c *Controller) HandleWindow(w http.ResponseWriter, r *http.Request) {
	account, err := accountVar(r)
	if err != nil {
		writeError(w, err)
		return
	}
	store := c.App.Ledger.Store()
	win, ok := store.Window(account)
	if !ok {
		writeError(w, fmt.Errorf("%w: no transfer window for %s", core.ErrNotFound, account))
		return
	}
	writeJSON(w, http.StatusOK, windowResponse{Window: win, Stale: win.Period < store.Period().Number})
}

func (c *Controller) HandlePlanted(w http.ResponseWriter, r *http.Request) {
	account, err := accountVar(r)
	if err != nil {
		writeError(w, err)
		return
	}
	planted, err := c.App.Harvest.PlantedBalance(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger.AccountBalance{Account: account, Balance: planted})
}

func (c *Controller) HandleEscrow(w http.ResponseWriter, r *http.Request) {
	account, err := accountVar(r)
	if err != nil {
		writeError(w, err)
		return
	}
	deposit := c.App.Governance.Store().Deposit(account)
	sym := c.App.Ledger.Store().Symbol()
	writeJSON(w, http.StatusOK, ledger.AccountBalance{Account: account, Balance: asset.New(deposit, sym)})
}

func (c *Controller) HandleSupply(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, c.App.Ledger.Store().Supply())
}

func (c *Controller) HandleCirculating(w http.ResponseWriter, _ *http.Request) {
	snap, ok := c.App.Ledger.Store().Circulating()
	if !ok {
		writeError(w, fmt.Errorf("%w: circulating supply has not been computed", core.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (c *Controller) HandleSettlement(w http.ResponseWriter, _ *http.Request) {
	store := c.App.Ledger.Store()
	resp := map[string]interface{}{
		"period": store.Period(),
		"reset":  store.ResetStatus(),
	}
	if c.App.History != nil {
		resp["history"] = c.App.History.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}
