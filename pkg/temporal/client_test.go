package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWorkflowIDs(t *testing.T) {
	c := &Client{
		SettlementWorkflowID:  "settlement:weekly:%d",
		CirculatingWorkflowID: "settlement:circulating:%d",
	}
	at := time.Unix(600, 0)
	assert.Equal(t, "settlement:weekly:10", c.GetSettlementWorkflowID(at))
	assert.Equal(t, "settlement:weekly:10", c.GetSettlementWorkflowID(at.Add(59*time.Second)))
	assert.Equal(t, "settlement:circulating:11", c.GetCirculatingWorkflowID(at.Add(time.Minute)))
}

func TestZapAdapterForwardsKeyvals(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	adapter := NewZapAdapter(zap.New(core))

	adapter.Info("worker started", "TaskQueue", "settlement")
	adapter.Error("poll failed", "Attempt", 3)

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "settlement", entries[0].ContextMap()["TaskQueue"])
		assert.Equal(t, int64(3), entries[1].ContextMap()["Attempt"])
	}
}

func TestZapAdapterWith(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	adapter := NewZapAdapter(zap.New(core)).With("Namespace", "regionledger")

	adapter.Info("connected")
	adapter.Debug("dropped below level")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "regionledger", entries[0].ContextMap()["Namespace"])
	}
}
