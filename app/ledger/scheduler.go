package ledgerd

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/canopy-network/regionledger/app/ledger/types"
)

// cronLogger routes cron's own messages through zap.
type cronLogger struct{ logger *zap.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

// SetupScheduler registers the settlement and circulating supply jobs on a fresh cron.
// An empty cron expression disables its job.
func SetupScheduler(ctx context.Context, app *types.App) error {
	logger := cronLogger{logger: app.Logger.Named("cron")}
	// Seconds field, optional
	app.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"settlement", app.SettlementCron, app.RunSettlement},
		{"circulating", app.CirculatingCron, app.RunCirculating},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		_, err := app.Cron.AddFunc(job.spec, func() {
			// keep each run bounded
			rctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			defer cancel()
			if err := job.run(rctx); err != nil {
				app.Logger.Error("Scheduled job failed", zap.String("job", job.name), zap.Error(err))
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}
