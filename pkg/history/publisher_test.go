package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/canopy-network/regionledger/pkg/asset"
	"github.com/canopy-network/regionledger/pkg/ledger"
	"github.com/canopy-network/regionledger/pkg/retry"
)

type fakeSink struct {
	mu        sync.Mutex
	failFirst int
	entries   []map[string]interface{}
	messages  [][]byte
	block     chan struct{}
}

func (f *fakeSink) XAdd(_ context.Context, stream string, values map[string]interface{}) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFirst > 0 {
		f.failFirst--
		return "", errors.New("connection refused")
	}
	f.entries = append(f.entries, values)
	return "1-0", nil
}

func (f *fakeSink) Publish(_ context.Context, _ string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message.([]byte))
	return nil
}

func testConfig() Config {
	return Config{
		Stream:    "ledger:transfers",
		Channel:   "ledger:transfer",
		Workers:   2,
		QueueSize: 16,
		Timeout:   time.Second,
		Retry:     retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1},
	}
}

func fact(memo string) ledger.TransferFact {
	return ledger.TransferFact{
		From:      "seedsuseraaa",
		To:        "seedsuserbbb",
		Quantity:  asset.MustParse("10.0000 SEEDS"),
		Memo:      memo,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestPublisherDeliversFacts(t *testing.T) {
	sink := &fakeSink{failFirst: 2}
	p := NewPublisher(sink, testConfig(), zaptest.NewLogger(t))

	p.OnTransfer(fact("a"))
	p.OnTransfer(fact("b"))
	p.Close()

	require.Len(t, sink.entries, 2)
	assert.Equal(t, Stats{Published: 2}, p.Stats())
	memos := []interface{}{sink.entries[0]["memo"], sink.entries[1]["memo"]}
	assert.ElementsMatch(t, []interface{}{"a", "b"}, memos)
	assert.Equal(t, "10.0000 SEEDS", sink.entries[0]["quantity"])
	assert.Equal(t, "100000", sink.entries[0]["amount"])

	require.Len(t, sink.messages, 2)
	var decoded ledger.TransferFact
	require.NoError(t, json.Unmarshal(sink.messages[0], &decoded))
	assert.Equal(t, asset.MustParse("10.0000 SEEDS"), decoded.Quantity)
}

func TestPublisherCountsFailures(t *testing.T) {
	sink := &fakeSink{failFirst: 100}
	p := NewPublisher(sink, testConfig(), zaptest.NewLogger(t))
	p.OnTransfer(fact("a"))
	p.Close()

	assert.Equal(t, Stats{Failed: 1}, p.Stats())
	assert.Empty(t, sink.messages)
}

func TestPublisherDropsWhenQueueIsFull(t *testing.T) {
	sink := &fakeSink{block: make(chan struct{})}
	cfg := testConfig()
	cfg.Workers = 1
	cfg.QueueSize = 1
	p := NewPublisher(sink, cfg, zaptest.NewLogger(t))

	for i := 0; i < 10; i++ {
		p.OnTransfer(fact("x"))
	}
	close(sink.block)
	p.Close()

	st := p.Stats()
	assert.Equal(t, uint64(10), st.Published+st.Dropped)
	assert.NotZero(t, st.Dropped)
}

func TestValues(t *testing.T) {
	v := Values(fact("memo"))
	assert.Equal(t, "seedsuseraaa", v["from"])
	assert.Equal(t, "seedsuserbbb", v["to"])
	assert.Equal(t, "2026-01-02T03:04:05Z", v["timestamp"])
}

type mockSink struct{ mock.Mock }

func (m *mockSink) XAdd(ctx context.Context, stream string, values map[string]interface{}) (string, error) {
	args := m.Called(ctx, stream, values)
	return args.String(0), args.Error(1)
}

func (m *mockSink) Publish(ctx context.Context, channel string, message interface{}) error {
	return m.Called(ctx, channel, message).Error(0)
}

func TestPublisherRetriesStreamButNotNotification(t *testing.T) {
	sink := &mockSink{}
	sink.On("XAdd", mock.Anything, "ledger:transfers", mock.Anything).Return("", errors.New("timeout")).Once()
	sink.On("XAdd", mock.Anything, "ledger:transfers", mock.Anything).Return("1-0", nil).Once()
	sink.On("Publish", mock.Anything, "ledger:transfer", mock.Anything).Return(errors.New("no subscribers")).Once()

	p := NewPublisher(sink, testConfig(), zaptest.NewLogger(t))
	p.OnTransfer(fact("a"))
	p.Close()

	sink.AssertExpectations(t)
	assert.Equal(t, Stats{Published: 1}, p.Stats())
}

func TestPublisherWithoutChannel(t *testing.T) {
	sink := &mockSink{}
	sink.On("XAdd", mock.Anything, "ledger:transfers", mock.Anything).Return("1-0", nil).Once()

	cfg := testConfig()
	cfg.Channel = ""
	p := NewPublisher(sink, cfg, zaptest.NewLogger(t))
	p.OnTransfer(fact("a"))
	p.Close()

	sink.AssertExpectations(t)
	sink.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}
