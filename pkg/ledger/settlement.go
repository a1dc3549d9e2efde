package ledger

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/canopy-network/regionledger/pkg/asset"
)

// ResetWeekly clears at most one batch of rate windows.
//
// When no reset is in progress the call opens a new settlement period and starts a cursor over
// the windows; later calls continue from the cursor until every window has been cleared, at which
// point Done is reported and the next call starts a fresh reset. Between calls the ledger is fully
// consistent: windows still carrying the previous period are frozen, read as zero by the rate
// limiter, and are cleared by the cursor or by their account's next transfer, whichever is first.
func (e *Engine) ResetWeekly() ResetProgress {
	batch := e.opts.Batch.BatchSize()
	if batch < 1 {
		batch = 1
	}
	now := e.clock.Now()

	s := e.store
	s.mu.Lock()
	started := false
	if s.reset == nil {
		s.period = Period{Number: s.period.Number + 1, StartedAt: now}
		s.reset = &resetCursor{}
		started = true
	}

	cur := s.reset
	end := cur.next + batch
	if end > len(s.windowOrder) {
		end = len(s.windowOrder)
	}
	processed := 0
	for _, acc := range s.windowOrder[cur.next:end] {
		w := s.windows[acc]
		if w.Period < s.period.Number {
			clearWindow(w, s.period.Number, s.symbol)
		}
		processed++
	}
	cur.next = end
	cur.cleared += processed

	progress := ResetProgress{
		Period:    s.period.Number,
		Processed: processed,
		Cleared:   cur.cleared,
		Remaining: len(s.windowOrder) - cur.next,
	}
	if progress.Remaining == 0 {
		progress.Done = true
		s.reset = nil
	}
	s.mu.Unlock()

	e.logger.Info("Weekly reset batch",
		zap.Uint64("period", progress.Period),
		zap.Bool("started", started),
		zap.Int("processed", progress.Processed),
		zap.Int("remaining", progress.Remaining),
		zap.Bool("done", progress.Done))
	return progress
}

// UpdateCirculating recomputes circulating supply as issued - burned - the balances of the
// non-circulating accounts and stores it as the current period's snapshot, replacing any earlier
// snapshot for that period.
func (e *Engine) UpdateCirculating() (CirculatingSnapshot, error) {
	now := e.clock.Now()

	s := e.store
	s.mu.Lock()
	defer s.mu.Unlock()

	supply, err := s.issued.Sub(s.burned)
	if err != nil {
		return CirculatingSnapshot{}, fmt.Errorf("supply: %w", err)
	}
	held := asset.Zero(s.symbol)
	seen := make(map[string]struct{}, len(e.opts.NonCirculating))
	for _, acc := range e.opts.NonCirculating {
		if _, dup := seen[acc.String()]; dup {
			continue
		}
		seen[acc.String()] = struct{}{}
		if bal, ok := s.balances[acc]; ok {
			if held, err = held.Add(bal); err != nil {
				return CirculatingSnapshot{}, fmt.Errorf("non-circulating: %w", err)
			}
		}
	}
	circ, err := supply.Sub(held)
	if err != nil {
		return CirculatingSnapshot{}, fmt.Errorf("circulating: %w", err)
	}

	snap := CirculatingSnapshot{
		Period:         s.period.Number,
		Supply:         supply,
		NonCirculating: held,
		Circulating:    circ,
		ComputedAt:     now,
	}
	s.snapshots[snap.Period] = snap
	period := snap.Period
	s.latest = &period

	e.logger.Info("Updated circulating supply",
		zap.Uint64("period", snap.Period),
		zap.Stringer("supply", supply),
		zap.Stringer("circulating", circ))
	return snap, nil
}
