package temporal

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// ZapAdapter is a Temporal logger adapter for Zap.
type ZapAdapter struct{ *zap.SugaredLogger }

var _ log.WithLogger = (*ZapAdapter)(nil)

// NewZapAdapter creates a Temporal logger adapter from a Zap logger. The SDK passes loosely typed
// keyvals, hence the sugared logger.
func NewZapAdapter(logger *zap.Logger) *ZapAdapter {
	return &ZapAdapter{logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (z *ZapAdapter) Debug(msg string, keyvals ...interface{}) { z.Debugw(msg, keyvals...) }
func (z *ZapAdapter) Info(msg string, keyvals ...interface{})  { z.Infow(msg, keyvals...) }
func (z *ZapAdapter) Warn(msg string, keyvals ...interface{})  { z.Warnw(msg, keyvals...) }
func (z *ZapAdapter) Error(msg string, keyvals ...interface{}) { z.Errorw(msg, keyvals...) }

// With returns a logger that always carries keyvals.
func (z *ZapAdapter) With(keyvals ...interface{}) log.Logger {
	return &ZapAdapter{z.SugaredLogger.With(keyvals...)}
}
