package ledgerd

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/canopy-network/regionledger/app/ledger/controller"
	"github.com/canopy-network/regionledger/app/ledger/types"
	"github.com/canopy-network/regionledger/pkg/utils"
)

// NewServer attaches the read-only HTTP server to app.
func NewServer(app *types.App) error {
	ctler := controller.NewController(app)
	router, err := ctler.NewRouter()
	if err != nil {
		return err
	}

	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3002")

	app.Server = &http.Server{
		Addr:              addr,
		Handler:           controller.WithCORS(router),
		ReadHeaderTimeout: 5 * time.Second,
	}
	app.Logger.Info("Starting server", zap.String("addr", addr))
	return nil
}
