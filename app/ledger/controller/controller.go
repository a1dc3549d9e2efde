package controller

import (
	"errors"
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"

	"github.com/canopy-network/regionledger/app/ledger/types"
	"github.com/canopy-network/regionledger/pkg/core"
)

type Controller struct {
	App *types.App
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	return &Controller{App: app}
}

// WithCORS allows browser dashboards to read the projections.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter returns a new router with all the read routes.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	r.Handle("/healthz", http.HandlerFunc(c.HandleHealth)).Methods(http.MethodGet)

	r.HandleFunc("/accounts/{account}/balance", c.HandleBalance).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{account}/window", c.HandleWindow).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{account}/planted", c.HandlePlanted).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{account}/escrow", c.HandleEscrow).Methods(http.MethodGet)

	r.HandleFunc("/supply", c.HandleSupply).Methods(http.MethodGet)
	r.HandleFunc("/supply/circulating", c.HandleCirculating).Methods(http.MethodGet)
	r.HandleFunc("/settlement", c.HandleSettlement).Methods(http.MethodGet)

	r.HandleFunc("/regions", c.HandleRegions).Methods(http.MethodGet)
	r.HandleFunc("/regions/{id}", c.HandleRegion).Methods(http.MethodGet)
	r.HandleFunc("/regions/{id}/members", c.HandleMembers).Methods(http.MethodGet)
	r.HandleFunc("/regions/{id}/roles", c.HandleRoles).Methods(http.MethodGet)

	r.HandleFunc("/settings", c.HandleSettings).Methods(http.MethodGet)

	return r, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch kind := core.Kind(err); {
	case errors.Is(kind, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(kind, core.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
