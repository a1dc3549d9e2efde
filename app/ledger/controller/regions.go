package controller

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/canopy-network/regionledger/pkg/core"
	"github.com/canopy-network/regionledger/pkg/governance"
)

func (c *Controller) region(r *http.Request) (governance.Region, error) {
	id := core.RegionID(mux.Vars(r)["id"])
	if err := id.Validate(); err != nil {
		return governance.Region{}, err
	}
	region, ok := c.App.Governance.Store().Region(id)
	if !ok {
		return governance.Region{}, fmt.Errorf("%w: region %s", core.ErrNotFound, id)
	}
	return region, nil
}

func (c *Controller) HandleRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, c.App.Governance.Store().Regions())
}

// HandleRegion also serves removed regions, whose ids stay reserved.
func (c *Controller) HandleRegion(w http.ResponseWriter, r *http.Request) {
	region, err := c.region(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, region)
}

func (c *Controller) HandleMembers(w http.ResponseWriter, r *http.Request) {
	region, err := c.region(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.App.Governance.Store().Members(region.ID))
}

func (c *Controller) HandleRoles(w http.ResponseWriter, r *http.Request) {
	region, err := c.region(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.App.Governance.Store().Roles(region.ID))
}

func (c *Controller) HandleSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authority": c.App.Settings.Authority(),
		"values":    c.App.Settings.Snapshot(),
	})
}
