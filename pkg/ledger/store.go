package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/canopy-network/regionledger/pkg/asset"
	"github.com/canopy-network/regionledger/pkg/core"
)

// Period is a settlement window. Number increases by one every time a weekly reset opens a new one.
type Period struct {
	Number    uint64    `json:"number"`
	StartedAt time.Time `json:"started_at"`
}

// Window holds one account's transfer counters for a settlement period.
// A window whose Period is older than the store's current period is stale: its counts are frozen
// and read as zero by the rate limiter until the reset cursor (or the account's next transfer)
// clears it.
type Window struct {
	Account  core.AccountID `json:"account"`
	Period   uint64         `json:"period"`
	Outgoing uint64         `json:"outgoing_transactions"`
	Incoming uint64         `json:"incoming_transactions"`
	Total    uint64         `json:"total_transactions"`
	Volume   asset.Asset    `json:"transactions_volume"`
}

// AccountBalance is one row of the balances projection.
type AccountBalance struct {
	Account core.AccountID `json:"account"`
	Balance asset.Asset    `json:"balance"`
}

// SupplyState is the supply projection. Supply is Issued minus Burned.
type SupplyState struct {
	Issued      asset.Asset          `json:"issued"`
	Burned      asset.Asset          `json:"burned"`
	Supply      asset.Asset          `json:"supply"`
	Circulating *CirculatingSnapshot `json:"circulating,omitempty"`
}

// CirculatingSnapshot is the stored result of UpdateCirculating for one settlement period.
type CirculatingSnapshot struct {
	Period         uint64      `json:"period"`
	Supply         asset.Asset `json:"supply"`
	NonCirculating asset.Asset `json:"non_circulating"`
	Circulating    asset.Asset `json:"circulating"`
	ComputedAt     time.Time   `json:"computed_at"`
}

// ResetProgress reports the state of the batched weekly reset after a ResetWeekly call.
type ResetProgress struct {
	Period    uint64 `json:"period"`
	Processed int    `json:"processed"`
	Cleared   int    `json:"cleared"`
	Remaining int    `json:"remaining"`
	Done      bool   `json:"done"`
}

type resetCursor struct {
	next    int
	cleared int
}

// Store owns every ledger mapping. All access goes through mu, so each engine operation sees and
// leaves one consistent state.
type Store struct {
	mu sync.RWMutex

	symbol   asset.Symbol
	balances map[core.AccountID]asset.Asset
	issued   asset.Asset
	burned   asset.Asset

	period      Period
	windows     map[core.AccountID]*Window
	windowOrder []core.AccountID
	reset       *resetCursor

	snapshots map[uint64]CirculatingSnapshot
	latest    *uint64
}

// NewStore returns an empty ledger for sym whose first settlement period starts at start.
func NewStore(sym asset.Symbol, start time.Time) (*Store, error) {
	if err := sym.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		symbol:    sym,
		balances:  make(map[core.AccountID]asset.Asset),
		issued:    asset.Zero(sym),
		burned:    asset.Zero(sym),
		period:    Period{Number: 1, StartedAt: start},
		windows:   make(map[core.AccountID]*Window),
		snapshots: make(map[uint64]CirculatingSnapshot),
	}, nil
}

func (s *Store) Symbol() asset.Symbol { return s.symbol }

// Balance returns the balance row of account; ok is false when no row exists.
func (s *Store) Balance(account core.AccountID) (asset.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.balances[account]
	return b, ok
}

// Balances lists every balance row ordered by account.
func (s *Store) Balances() []AccountBalance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AccountBalance, 0, len(s.balances))
	for acc, bal := range s.balances {
		out = append(out, AccountBalance{Account: acc, Balance: bal})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out
}

// TotalBalances sums every balance row.
func (s *Store) TotalBalances() asset.Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := asset.Zero(s.symbol)
	for _, bal := range s.balances {
		// every balance is bounded by issued, which is within range
		total.Amount += bal.Amount
	}
	return total
}

// Supply returns issued, burned and the latest circulating snapshot.
func (s *Store) Supply() SupplyState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := SupplyState{
		Issued: s.issued,
		Burned: s.burned,
		Supply: asset.New(s.issued.Amount-s.burned.Amount, s.symbol),
	}
	if s.latest != nil {
		snap := s.snapshots[*s.latest]
		st.Circulating = &snap
	}
	return st
}

// Circulating returns the snapshot stored for the latest period that has one.
func (s *Store) Circulating() (CirculatingSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return CirculatingSnapshot{}, false
	}
	return s.snapshots[*s.latest], true
}

// CirculatingSnapshots returns the number of stored snapshot rows.
func (s *Store) CirculatingSnapshots() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

// Period returns the current settlement period.
func (s *Store) Period() Period {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.period
}

// Window returns the stored counters for account, stale or not.
func (s *Store) Window(account core.AccountID) (Window, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.windows[account]
	if !ok {
		return Window{}, false
	}
	return *w, true
}

// Windows lists every rate window in creation order.
func (s *Store) Windows() []Window {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Window, 0, len(s.windowOrder))
	for _, acc := range s.windowOrder {
		out = append(out, *s.windows[acc])
	}
	return out
}

// ResetStatus reports whether a weekly reset is still draining.
func (s *Store) ResetStatus() ResetProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.reset == nil {
		return ResetProgress{Period: s.period.Number, Done: true}
	}
	return ResetProgress{
		Period:    s.period.Number,
		Cleared:   s.reset.cleared,
		Remaining: len(s.windowOrder) - s.reset.next,
	}
}

// outgoing returns the count the rate limiter must compare against. Caller holds mu.
func (s *Store) outgoing(account core.AccountID) uint64 {
	w, ok := s.windows[account]
	if !ok || w.Period < s.period.Number {
		return 0
	}
	return w.Outgoing
}

// window returns the current-period window for account, creating or rolling it over.
// Caller holds mu for writing.
func (s *Store) window(account core.AccountID) *Window {
	w, ok := s.windows[account]
	if !ok {
		w = &Window{Account: account, Period: s.period.Number, Volume: asset.Zero(s.symbol)}
		s.windows[account] = w
		s.windowOrder = append(s.windowOrder, account)
		return w
	}
	if w.Period < s.period.Number {
		clearWindow(w, s.period.Number, s.symbol)
	}
	return w
}

func clearWindow(w *Window, period uint64, sym asset.Symbol) {
	w.Period = period
	w.Outgoing = 0
	w.Incoming = 0
	w.Total = 0
	w.Volume = asset.Zero(sym)
}

func addVolume(w *Window, qty asset.Asset) {
	v, err := w.Volume.Add(qty)
	if err != nil {
		// statistics only; saturate rather than fail the transfer
		v = asset.New(asset.MaxAmount, qty.Symbol)
	}
	w.Volume = v
}
