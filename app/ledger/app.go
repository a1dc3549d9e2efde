package ledgerd

import (
	"context"
	"fmt"
	"strings"

	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/canopy-network/regionledger/app/ledger/types"
	"github.com/canopy-network/regionledger/pkg/asset"
	"github.com/canopy-network/regionledger/pkg/core"
	"github.com/canopy-network/regionledger/pkg/governance"
	"github.com/canopy-network/regionledger/pkg/harvest"
	"github.com/canopy-network/regionledger/pkg/history"
	"github.com/canopy-network/regionledger/pkg/ledger"
	"github.com/canopy-network/regionledger/pkg/logging"
	"github.com/canopy-network/regionledger/pkg/redis"
	"github.com/canopy-network/regionledger/pkg/settings"
	"github.com/canopy-network/regionledger/pkg/settlement/activity"
	"github.com/canopy-network/regionledger/pkg/settlement/workflow"
	"github.com/canopy-network/regionledger/pkg/temporal"
	"github.com/canopy-network/regionledger/pkg/utils"
)

// Config names the accounts and token the process runs with.
type Config struct {
	Symbol            asset.Symbol
	Issuer            core.AccountID
	InitialSupply     string
	HarvestAccount    core.AccountID
	GovernanceAccount core.AccountID
	NonCirculating    []core.AccountID
	SettlementCron    string
	CirculatingCron   string
}

// ConfigFromEnv reads Config from LEDGER_*, HARVEST_ACCOUNT, GOVERNANCE_ACCOUNT and *_CRON.
func ConfigFromEnv() (Config, error) {
	sym, err := asset.NewSymbol(utils.Env("LEDGER_SYMBOL", "SEEDS"), uint8(utils.EnvInt("LEDGER_PRECISION", 4)))
	if err != nil {
		return Config{}, err
	}
	var nonCirculating []core.AccountID
	for _, acc := range strings.Split(utils.Env("LEDGER_NON_CIRCULATING", ""), ",") {
		if acc = strings.TrimSpace(acc); acc != "" {
			nonCirculating = append(nonCirculating, core.AccountID(acc))
		}
	}
	return Config{
		Symbol:            sym,
		Issuer:            core.AccountID(utils.Env("LEDGER_ISSUER", "token.seeds")),
		InitialSupply:     utils.Env("LEDGER_INITIAL_SUPPLY", ""),
		HarvestAccount:    core.AccountID(utils.Env("HARVEST_ACCOUNT", "harvst.seeds")),
		GovernanceAccount: core.AccountID(utils.Env("GOVERNANCE_ACCOUNT", "rgns.seeds")),
		NonCirculating:    nonCirculating,
		// Seconds field first: every Sunday at midnight, and daily at midnight.
		SettlementCron:  utils.Env("SETTLEMENT_CRON", "0 0 0 * * 0"),
		CirculatingCron: utils.Env("CIRCULATING_CRON", "0 0 0 * * *"),
	}, nil
}

// Build wires the engines and their listeners. It touches no external service.
func Build(cfg Config, s *settings.Settings, clk core.Clock, logger *zap.Logger) (*types.App, error) {
	clk = core.ClockOrSystem(clk)

	store, err := ledger.NewStore(cfg.Symbol, clk.Now())
	if err != nil {
		return nil, fmt.Errorf("ledger store: %w", err)
	}
	registry := harvest.NewRegistry(cfg.HarvestAccount, cfg.Symbol, logger.Named("harvest"))
	engine, err := ledger.NewEngine(store, ledger.NewRateLimiter(registry, s), ledger.Options{
		Issuer:         cfg.Issuer,
		NonCirculating: cfg.NonCirculating,
		Batch:          s,
		Clock:          clk,
		Logger:         logger.Named("ledger"),
	})
	if err != nil {
		return nil, fmt.Errorf("ledger engine: %w", err)
	}
	gov, err := governance.NewEngine(governance.NewStore(), governance.Options{
		Account:   cfg.GovernanceAccount,
		FeeSymbol: cfg.Symbol,
		Config:    s,
		Clock:     clk,
		Logger:    logger.Named("governance"),
	})
	if err != nil {
		return nil, fmt.Errorf("governance engine: %w", err)
	}
	engine.Subscribe(gov)
	engine.Subscribe(registry)

	if cfg.InitialSupply != "" {
		qty, err := asset.Parse(cfg.InitialSupply)
		if err != nil {
			return nil, fmt.Errorf("initial supply: %w", err)
		}
		if err := engine.Issue(cfg.Issuer, qty, "initial supply"); err != nil {
			return nil, fmt.Errorf("initial supply: %w", err)
		}
	}

	return &types.App{
		Settings:        s,
		Ledger:          engine,
		Harvest:         registry,
		Governance:      gov,
		SettlementCron:  cfg.SettlementCron,
		CirculatingCron: cfg.CirculatingCron,
		Clock:           clk,
		Logger:          logger,
	}, nil
}

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New("ledger")
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	cfg, err := ConfigFromEnv()
	if err != nil {
		logger.Fatal("Invalid ledger configuration", zap.Error(err))
	}
	defaults, err := settings.LoadDefaults()
	if err != nil {
		logger.Fatal("Invalid settings", zap.Error(err))
	}
	s, err := settings.New(defaults, logger.Named("settings"))
	if err != nil {
		logger.Fatal("Invalid settings", zap.Error(err))
	}

	app, err := Build(cfg, s, core.SystemClock(), logger)
	if err != nil {
		logger.Fatal("Unable to build ledger", zap.Error(err))
	}

	// Transfer history fan-out (optional)
	if utils.EnvBool("REDIS_ENABLED", false) {
		redisClient, err := redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - transfer history will not be published", zap.Error(err))
		} else {
			app.RedisClient = redisClient
			app.History = history.NewPublisher(redisClient, history.ConfigFromEnv(), logger.Named("history"))
			app.Ledger.Subscribe(app.History)
		}
	} else {
		logger.Info("Redis disabled - transfer history will not be published")
	}

	// Settlement worker (optional); without it the scheduler settles in process.
	if utils.EnvBool("TEMPORAL_ENABLED", false) {
		temporalClient, err := temporal.NewClient(ctx, logger)
		if err != nil {
			logger.Fatal("Unable to establish temporal connection", zap.Error(err))
		}
		activityContext := &activity.Context{Logger: logger.Named("settlement"), Ledger: app.Ledger}
		workflowContext := &workflow.Context{TemporalClient: temporalClient, ActivityContext: activityContext}

		wkr := worker.New(temporalClient.TClient, temporalClient.SettlementQueue, worker.Options{})
		wkr.RegisterWorkflow(workflowContext.WeeklySettlementWorkflow)
		wkr.RegisterWorkflow(workflowContext.CirculatingWorkflow)
		wkr.RegisterActivity(activityContext.ResetWeeklyBatch)
		wkr.RegisterActivity(activityContext.UpdateCirculating)

		app.TemporalClient = temporalClient
		app.Workflows = workflowContext
		app.Worker = wkr
	}

	if err := SetupScheduler(ctx, app); err != nil {
		logger.Fatal("Unable to set up scheduler", zap.Error(err))
	}
	if err := NewServer(app); err != nil {
		logger.Fatal("Unable to set up server", zap.Error(err))
	}
	return app
}
