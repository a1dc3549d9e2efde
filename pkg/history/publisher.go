// Package history fans committed transfer facts out to an external sink (a Redis stream plus a
// Pub/Sub notification) without holding up the ledger.
package history

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/go-jose/go-jose/v4/json"
	"go.uber.org/zap"

	"github.com/canopy-network/regionledger/pkg/ledger"
	"github.com/canopy-network/regionledger/pkg/retry"
	"github.com/canopy-network/regionledger/pkg/utils"
)

// Sink is the subset of *redis.Client the publisher writes to.
type Sink interface {
	XAdd(ctx context.Context, stream string, values map[string]interface{}) (string, error)
	Publish(ctx context.Context, channel string, message interface{}) error
}

// Config tunes a Publisher.
type Config struct {
	Stream    string
	Channel   string
	Workers   int
	QueueSize int
	Timeout   time.Duration
	Retry     retry.Config
}

// ConfigFromEnv reads HISTORY_* environment variables.
func ConfigFromEnv() Config {
	return Config{
		Stream:    utils.Env("HISTORY_STREAM", "ledger:transfers"),
		Channel:   utils.Env("HISTORY_CHANNEL", "ledger:transfer"),
		Workers:   utils.EnvInt("HISTORY_WORKERS", 4),
		QueueSize: utils.EnvInt("HISTORY_QUEUE_SIZE", 1024),
		Timeout:   utils.EnvDuration("HISTORY_TIMEOUT", 3*time.Second),
		Retry:     retry.ConfigFromEnv("HISTORY"),
	}
}

// Stats counts publisher outcomes since start.
type Stats struct {
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}

// Publisher is a ledger.Listener. Facts are queued on a bounded pool; when the queue is full the
// fact is dropped and counted rather than blocking the transfer that produced it.
type Publisher struct {
	sink   Sink
	cfg    Config
	pool   pond.Pool
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// NewPublisher starts a publisher writing to sink.
func NewPublisher(sink Sink, cfg Config, logger *zap.Logger) *Publisher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Publisher{
		sink:   sink,
		cfg:    cfg,
		pool:   pond.NewPool(cfg.Workers, pond.WithQueueSize(cfg.QueueSize)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnTransfer queues fact for delivery.
func (p *Publisher) OnTransfer(fact ledger.TransferFact) {
	if _, ok := p.pool.TrySubmit(func() { p.deliver(fact) }); !ok {
		p.dropped.Add(1)
		p.logger.Warn("History queue full, dropping transfer fact",
			zap.String("from", fact.From.String()),
			zap.String("to", fact.To.String()))
	}
}

// Stats returns the current counters.
func (p *Publisher) Stats() Stats {
	return Stats{
		Published: p.published.Load(),
		Dropped:   p.dropped.Load(),
		Failed:    p.failed.Load(),
	}
}

// Close drains queued facts and stops the workers.
func (p *Publisher) Close() {
	p.pool.StopAndWait()
	p.cancel()
}

func (p *Publisher) deliver(fact ledger.TransferFact) {
	values := Values(fact)
	err := retry.WithBackoff(p.ctx, p.cfg.Retry, p.logger, "history.xadd", func() error {
		ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
		defer cancel()
		_, err := p.sink.XAdd(ctx, p.cfg.Stream, values)
		return err
	})
	if err != nil {
		p.failed.Add(1)
		p.logger.Error("Failed to append transfer fact", zap.String("stream", p.cfg.Stream), zap.Error(err))
		return
	}
	p.published.Add(1)

	if p.cfg.Channel == "" {
		return
	}
	payload, err := json.Marshal(fact)
	if err != nil {
		p.logger.Warn("Failed to encode transfer notification", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()
	if err := p.sink.Publish(ctx, p.cfg.Channel, payload); err != nil {
		p.logger.Warn("Failed to publish transfer notification", zap.String("channel", p.cfg.Channel), zap.Error(err))
	}
}

// Values flattens fact into stream entry fields.
func Values(fact ledger.TransferFact) map[string]interface{} {
	return map[string]interface{}{
		"from":      fact.From.String(),
		"to":        fact.To.String(),
		"quantity":  fact.Quantity.String(),
		"amount":    strconv.FormatInt(fact.Quantity.Amount, 10),
		"memo":      fact.Memo,
		"timestamp": fact.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}
