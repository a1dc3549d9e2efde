package logging

import (
	"github.com/canopy-network/regionledger/pkg/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger from LOG_LEVEL and LOG_ENCODING.
// Every entry carries the service name so ledger and worker logs can be told apart.
func New(service string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = utils.Env("LOG_ENCODING", "json")
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(utils.Env("LOG_LEVEL", "debug")))
	if cfg.Level.Level() == zapcore.DebugLevel {
		cfg.Development = true
	}

	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if service != "" {
		l = l.With(zap.String("service", service))
	}
	return l, nil
}

// ParseLevel maps a LOG_LEVEL value to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
