// Package ledger implements the token ledger: balances, supply, transfer rate windows, the
// batched weekly reset and the circulating-supply snapshot.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/canopy-network/regionledger/pkg/asset"
	"github.com/canopy-network/regionledger/pkg/core"
)

// BatchSizer supplies the weekly reset batch size. *settings.Settings implements it.
type BatchSizer interface {
	BatchSize() int
}

// Options configures an Engine.
type Options struct {
	// Issuer is the only account that may receive Issue and the one Retire debits.
	Issuer core.AccountID
	// NonCirculating accounts are subtracted from supply by UpdateCirculating.
	NonCirculating []core.AccountID
	Batch          BatchSizer
	Clock          core.Clock
	Logger         *zap.Logger
}

// Engine runs ledger operations against a Store.
type Engine struct {
	store   *Store
	limiter *RateLimiter
	opts    Options
	clock   core.Clock
	logger  *zap.Logger

	listenersMu sync.RWMutex
	listeners   []Listener
}

// NewEngine wires an engine to store and limiter.
func NewEngine(store *Store, limiter *RateLimiter, opts Options) (*Engine, error) {
	if store == nil || limiter == nil {
		return nil, fmt.Errorf("%w: store and limiter are required", core.ErrInvalidInput)
	}
	if err := opts.Issuer.Validate(); err != nil {
		return nil, fmt.Errorf("issuer: %w", err)
	}
	if opts.Batch == nil {
		return nil, fmt.Errorf("%w: batch size source is required", core.ErrInvalidInput)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:   store,
		limiter: limiter,
		opts:    opts,
		clock:   core.ClockOrSystem(opts.Clock),
		logger:  logger,
	}, nil
}

// Store exposes the read projections.
func (e *Engine) Store() *Store { return e.store }

// Subscribe registers l for transfer facts.
func (e *Engine) Subscribe(l Listener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Open creates a zero balance row for account if it has none.
func (e *Engine) Open(account core.AccountID) error {
	if err := account.Validate(); err != nil {
		return err
	}
	s := e.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.balances[account]; !ok {
		s.balances[account] = asset.Zero(s.symbol)
	}
	return nil
}

// Issue mints qty into the issuer account.
func (e *Engine) Issue(to core.AccountID, qty asset.Asset, memo string) error {
	if err := e.checkQuantity(qty, memo); err != nil {
		return err
	}
	if to != e.opts.Issuer {
		return fmt.Errorf("%w: tokens can only be issued to %s", core.ErrNotAuthorized, e.opts.Issuer)
	}

	s := e.store
	s.mu.Lock()
	issued, err := s.issued.Add(qty)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("issue %s: %w", qty, err)
	}
	bal, err := s.balanceOrZero(to).Add(qty)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("issue %s: %w", qty, err)
	}
	s.issued = issued
	s.balances[to] = bal
	s.mu.Unlock()

	e.logger.Debug("Issued", zap.String("account", to.String()), zap.Stringer("quantity", qty))
	return nil
}

// Retire removes qty from the issuer's balance and from total issued.
func (e *Engine) Retire(qty asset.Asset, memo string) error {
	if err := e.checkQuantity(qty, memo); err != nil {
		return err
	}
	issuer := e.opts.Issuer

	s := e.store
	s.mu.Lock()
	bal, err := s.debit(issuer, qty)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	issued, err := s.issued.Sub(qty)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("retire %s: %w", qty, err)
	}
	s.balances[issuer] = bal
	s.issued = issued
	s.mu.Unlock()

	e.logger.Debug("Retired", zap.Stringer("quantity", qty))
	return nil
}

// Transfer moves qty from one account to another, subject to the rate limiter.
//
// The planted-balance lookup that selects the tier happens first; the count check, the balance
// check and every mutation then happen under one lock, so a rejected transfer changes nothing and
// an accepted one both moves funds and consumes quota.
func (e *Engine) Transfer(ctx context.Context, from, to core.AccountID, qty asset.Asset, memo string) (TransferFact, error) {
	if err := from.Validate(); err != nil {
		return TransferFact{}, err
	}
	if err := to.Validate(); err != nil {
		return TransferFact{}, err
	}
	if from == to {
		return TransferFact{}, core.ErrSelfTransfer
	}
	if err := e.checkQuantity(qty, memo); err != nil {
		return TransferFact{}, err
	}

	allowance, err := e.limiter.Allowance(ctx, from)
	if err != nil {
		return TransferFact{}, err
	}
	now := e.clock.Now()

	s := e.store
	s.mu.Lock()
	if err := permit(from, s.outgoing(from), allowance); err != nil {
		s.mu.Unlock()
		e.logger.Debug("Transfer rejected", zap.String("from", from.String()), zap.Error(err))
		return TransferFact{}, err
	}
	fromBal, err := s.debit(from, qty)
	if err != nil {
		s.mu.Unlock()
		e.logger.Debug("Transfer rejected", zap.String("from", from.String()), zap.Error(err))
		return TransferFact{}, err
	}
	toBal, err := s.balanceOrZero(to).Add(qty)
	if err != nil {
		s.mu.Unlock()
		return TransferFact{}, fmt.Errorf("credit %s: %w", to, err)
	}

	s.balances[from] = fromBal
	s.balances[to] = toBal

	out := s.window(from)
	out.Outgoing++
	out.Total++
	addVolume(out, qty)

	in := s.window(to)
	in.Incoming++
	in.Total++
	addVolume(in, qty)
	s.mu.Unlock()

	fact := TransferFact{From: from, To: to, Quantity: qty, Memo: memo, Timestamp: now}
	e.logger.Debug("Transferred",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Stringer("quantity", qty))
	e.publish(fact)
	return fact, nil
}

// Burn destroys qty from account. It does not consume transfer quota.
func (e *Engine) Burn(account core.AccountID, qty asset.Asset) error {
	if err := account.Validate(); err != nil {
		return err
	}
	if err := e.checkQuantity(qty, ""); err != nil {
		return err
	}

	s := e.store
	s.mu.Lock()
	bal, err := s.debit(account, qty)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	burned, err := s.burned.Add(qty)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("burn %s: %w", qty, err)
	}
	s.balances[account] = bal
	s.burned = burned
	s.mu.Unlock()

	e.logger.Debug("Burned", zap.String("account", account.String()), zap.Stringer("quantity", qty))
	return nil
}

func (e *Engine) checkQuantity(qty asset.Asset, memo string) error {
	if len(memo) > core.MaxMemoBytes {
		return core.ErrMemoTooLong
	}
	if qty.Symbol != e.store.symbol {
		return fmt.Errorf("%w: expected symbol %s, got %s", core.ErrInvalidAmount, e.store.symbol, qty.Symbol)
	}
	if err := qty.Validate(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
	}
	if !qty.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", core.ErrInvalidAmount, qty)
	}
	return nil
}

func (e *Engine) publish(fact TransferFact) {
	e.listenersMu.RLock()
	listeners := append([]Listener(nil), e.listeners...)
	e.listenersMu.RUnlock()
	for _, l := range listeners {
		l.OnTransfer(fact)
	}
}

// debit returns account's balance minus qty without storing it. Caller holds mu.
func (s *Store) debit(account core.AccountID, qty asset.Asset) (asset.Asset, error) {
	bal, ok := s.balances[account]
	if !ok {
		return asset.Asset{}, fmt.Errorf("%w: %s has no balance", core.ErrInsufficientFunds, account)
	}
	if bal.Amount < qty.Amount {
		return asset.Asset{}, fmt.Errorf("%w: %s has %s, needs %s", core.ErrInsufficientFunds, account, bal, qty)
	}
	return bal.Sub(qty)
}

func (s *Store) balanceOrZero(account core.AccountID) asset.Asset {
	if bal, ok := s.balances[account]; ok {
		return bal
	}
	return asset.Zero(s.symbol)
}
