package types

import (
	"context"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/canopy-network/regionledger/pkg/core"
	"github.com/canopy-network/regionledger/pkg/governance"
	"github.com/canopy-network/regionledger/pkg/harvest"
	"github.com/canopy-network/regionledger/pkg/history"
	"github.com/canopy-network/regionledger/pkg/ledger"
	"github.com/canopy-network/regionledger/pkg/redis"
	"github.com/canopy-network/regionledger/pkg/settings"
	"github.com/canopy-network/regionledger/pkg/settlement/workflow"
	"github.com/canopy-network/regionledger/pkg/temporal"
)

type App struct {
	Settings   *settings.Settings
	Ledger     *ledger.Engine
	Harvest    *harvest.Registry
	Governance *governance.Engine

	// History, RedisClient, TemporalClient and Worker are nil when their backends are disabled.
	History        *history.Publisher
	RedisClient    *redis.Client
	TemporalClient *temporal.Client
	Worker         worker.Worker
	Workflows      *workflow.Context

	// Cron triggers settlement according to SettlementCron and CirculatingCron.
	Cron            *cron.Cron
	SettlementCron  string
	CirculatingCron string

	Clock  core.Clock
	Logger *zap.Logger
	// Server serves the read-only HTTP projections.
	Server *http.Server
}

// Start runs the worker, the scheduler and the HTTP server until ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	if a.Worker != nil {
		if err := a.Worker.Start(); err != nil {
			a.Logger.Fatal("Unable to start worker", zap.Error(err))
		}
	}
	if a.Cron != nil {
		a.Cron.Start()
		a.Logger.Info("Cron started",
			zap.String("settlementCron", a.SettlementCron),
			zap.String("circulatingCron", a.CirculatingCron))
	}
	if a.Server != nil {
		go func() {
			if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.Logger.Error("Server stopped", zap.Error(err))
			}
		}()
	}
	<-ctx.Done()
	a.Stop()
}

// Stop shuts everything down in reverse start order.
func (a *App) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.Server != nil {
		_ = a.Server.Shutdown(shutdownCtx)
	}
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
	if a.Worker != nil {
		a.Worker.Stop()
	}
	if a.History != nil {
		a.History.Close()
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}
	if a.TemporalClient != nil {
		a.TemporalClient.Close()
	}
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
