// Package governance implements the regional governance state machine: the region registry,
// per-region membership and roles, founder protection, the re-join delay and region removal.
package governance

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/canopy-network/regionledger/pkg/asset"
	"github.com/canopy-network/regionledger/pkg/core"
	"github.com/canopy-network/regionledger/pkg/ledger"
)

// Config supplies the region fee and the re-join delay. *settings.Settings implements it.
type Config interface {
	RegionFee() int64
	RejoinDelay() time.Duration
}

// Options configures an Engine.
type Options struct {
	// Account receives region fees and is the only caller allowed to remove regions.
	Account core.AccountID
	// FeeSymbol is the token fees are paid in.
	FeeSymbol asset.Symbol
	Config    Config
	Clock     core.Clock
	Logger    *zap.Logger
}

// RegionParams carries the descriptive fields of a new region. None of them are interpreted.
type RegionParams struct {
	Description string
	Locality    string
	Latitude    float64
	Longitude   float64
	PublicKey   string
}

// Engine runs governance operations against a Store.
type Engine struct {
	store  *Store
	opts   Options
	clock  core.Clock
	logger *zap.Logger
}

// NewEngine wires an engine to store.
func NewEngine(store *Store, opts Options) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", core.ErrInvalidInput)
	}
	if err := opts.Account.Validate(); err != nil {
		return nil, fmt.Errorf("governance account: %w", err)
	}
	if err := opts.FeeSymbol.Validate(); err != nil {
		return nil, fmt.Errorf("fee symbol: %w", err)
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: config is required", core.ErrInvalidInput)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:  store,
		opts:   opts,
		clock:  core.ClockOrSystem(opts.Clock),
		logger: logger,
	}, nil
}

// Store exposes the read projections.
func (e *Engine) Store() *Store { return e.store }

// Account returns the fee-collecting governance account.
func (e *Engine) Account() core.AccountID { return e.opts.Account }

// OnTransfer credits the sender's fee escrow for transfers into the governance account.
func (e *Engine) OnTransfer(fact ledger.TransferFact) {
	if fact.To != e.opts.Account || fact.Quantity.Symbol != e.opts.FeeSymbol || !fact.Quantity.IsPositive() {
		return
	}
	s := e.store
	s.mu.Lock()
	deposit := s.escrow[fact.From] + fact.Quantity.Amount
	if deposit < 0 || deposit > asset.MaxAmount {
		deposit = asset.MaxAmount
	}
	s.escrow[fact.From] = deposit
	s.mu.Unlock()

	e.logger.Debug("Fee deposited",
		zap.String("account", fact.From.String()),
		zap.Stringer("quantity", fact.Quantity))
}

// Create registers a region founded by creator. The configured fee is taken from the creator's
// escrow; a zero fee needs no deposit.
func (e *Engine) Create(creator core.AccountID, id core.RegionID, params RegionParams) (Region, error) {
	if err := creator.Validate(); err != nil {
		return Region{}, err
	}
	if err := id.Validate(); err != nil {
		return Region{}, err
	}
	fee := e.opts.Config.RegionFee()
	now := e.clock.Now()

	s := e.store
	s.mu.Lock()
	if _, ok := s.regions[id]; ok {
		s.mu.Unlock()
		return Region{}, fmt.Errorf("%w: region %s", core.ErrAlreadyExists, id)
	}
	deposit := s.escrow[creator]
	if deposit < fee {
		s.mu.Unlock()
		return Region{}, fmt.Errorf("%w: %s deposited %s, region fee is %s", core.ErrFeeNotPaid,
			creator, asset.New(deposit, e.opts.FeeSymbol), asset.New(fee, e.opts.FeeSymbol))
	}
	if deposit -= fee; deposit == 0 {
		delete(s.escrow, creator)
	} else {
		s.escrow[creator] = deposit
	}

	r := &Region{
		ID:          id,
		Founder:     creator,
		Description: params.Description,
		Locality:    params.Locality,
		Latitude:    params.Latitude,
		Longitude:   params.Longitude,
		PublicKey:   params.PublicKey,
		FeePaid:     true,
		State:       StateActive,
		CreatedAt:   now,
	}
	s.regions[id] = r
	s.putMember(Membership{Region: id, Account: creator, JoinedAt: now})
	s.putRole(RoleAssignment{Region: id, Account: creator, Role: RoleFounder, GrantedAt: now})
	out := *r
	s.mu.Unlock()

	e.logger.Info("Region created", zap.String("region", id.String()), zap.String("founder", creator.String()))
	return out, nil
}

// Join adds account as a member of region id.
func (e *Engine) Join(id core.RegionID, account core.AccountID) error {
	if err := account.Validate(); err != nil {
		return err
	}
	delay := e.opts.Config.RejoinDelay()
	now := e.clock.Now()

	s := e.store
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.joinable(id)
	if err != nil {
		return err
	}
	if s.isMember(r, account) {
		return fmt.Errorf("%w: %s in %s", core.ErrAlreadyMember, account, id)
	}
	if left, ok := s.leaves[id][account]; ok && now.Before(left.Add(delay)) {
		return fmt.Errorf("%w: %s may rejoin %s after %s", core.ErrJoinDelayActive,
			account, id, left.Add(delay).UTC().Format(time.RFC3339))
	}
	s.putMember(Membership{Region: id, Account: account, JoinedAt: now})

	e.logger.Debug("Member joined", zap.String("region", id.String()), zap.String("account", account.String()))
	return nil
}

// Leave removes account's membership and any role it holds, and starts its re-join delay.
func (e *Engine) Leave(id core.RegionID, account core.AccountID) error {
	if err := account.Validate(); err != nil {
		return err
	}
	now := e.clock.Now()

	s := e.store
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.active(id)
	if err != nil {
		return err
	}
	if account == r.Founder {
		return core.ErrFounderCannotLeave
	}
	if !s.isMember(r, account) {
		return fmt.Errorf("%w: %s is not a member of %s", core.ErrNotFound, account, id)
	}
	delete(s.members[id], account)
	s.deleteRole(id, account)
	s.recordLeave(id, account, now)

	e.logger.Debug("Member left", zap.String("region", id.String()), zap.String("account", account.String()))
	return nil
}

// AddRole grants role to target. Only the founder and admins may grant; the founder role moves
// with SetFounder only, and the founder's own row cannot be overwritten.
func (e *Engine) AddRole(id core.RegionID, actor, target core.AccountID, role Role) error {
	if err := target.Validate(); err != nil {
		return err
	}
	now := e.clock.Now()

	s := e.store
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.joinable(id)
	if err != nil {
		return err
	}
	if !s.privileged(r, actor) {
		return fmt.Errorf("%w: %s cannot grant roles in %s", core.ErrNotAuthorized, actor, id)
	}
	switch role {
	case RoleAdmin:
	case RoleFounder:
		return fmt.Errorf("%w: founder role is transferred with setfounder", core.ErrInvalidInput)
	default:
		return fmt.Errorf("%w: unknown role %q", core.ErrInvalidInput, role)
	}
	if target == r.Founder {
		return fmt.Errorf("%w: cannot change the founder's role", core.ErrFounderProtected)
	}
	if !s.isMember(r, target) {
		return fmt.Errorf("%w: %s is not a member of %s", core.ErrNotFound, target, id)
	}
	if row, ok := s.roles[id][target]; ok && row.Role == role {
		return nil
	}
	s.putRole(RoleAssignment{Region: id, Account: target, Role: role, GrantedAt: now})

	e.logger.Debug("Role granted",
		zap.String("region", id.String()),
		zap.String("account", target.String()),
		zap.String("role", string(role)))
	return nil
}

// RemoveRole revokes target's role. Revoking an absent role succeeds.
func (e *Engine) RemoveRole(id core.RegionID, actor, target core.AccountID) error {
	s := e.store
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.active(id)
	if err != nil {
		return err
	}
	if !s.privileged(r, actor) {
		return fmt.Errorf("%w: %s cannot revoke roles in %s", core.ErrNotAuthorized, actor, id)
	}
	if target == r.Founder {
		return fmt.Errorf("%w: cannot revoke the founder's role", core.ErrFounderProtected)
	}
	if s.deleteRole(id, target) {
		e.logger.Debug("Role revoked", zap.String("region", id.String()), zap.String("account", target.String()))
	}
	return nil
}

// LeaveRole drops account's own role while keeping its membership.
func (e *Engine) LeaveRole(id core.RegionID, account core.AccountID) error {
	s := e.store
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.active(id)
	if err != nil {
		return err
	}
	if account == r.Founder {
		return fmt.Errorf("%w: founder cannot drop the founder role", core.ErrFounderProtected)
	}
	s.deleteRole(id, account)
	return nil
}

// RemoveMember removes target from region id on behalf of actor, who must be the founder or an
// admin. The founder cannot be removed.
func (e *Engine) RemoveMember(id core.RegionID, actor, target core.AccountID) error {
	s := e.store
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.active(id)
	if err != nil {
		return err
	}
	if !s.privileged(r, actor) {
		return fmt.Errorf("%w: %s cannot remove members of %s", core.ErrNotAuthorized, actor, id)
	}
	if target == r.Founder {
		return core.ErrCannotRemoveFounder
	}
	if !s.isMember(r, target) {
		return fmt.Errorf("%w: %s is not a member of %s", core.ErrNotFound, target, id)
	}
	delete(s.members[id], target)
	s.deleteRole(id, target)

	e.logger.Debug("Member removed",
		zap.String("region", id.String()),
		zap.String("account", target.String()),
		zap.String("actor", actor.String()))
	return nil
}

// SetFounder hands the founder role from the current founder, who must be actor, to an existing
// member. The previous founder stays a member without a role.
func (e *Engine) SetFounder(id core.RegionID, actor, founder core.AccountID) error {
	if err := founder.Validate(); err != nil {
		return err
	}
	now := e.clock.Now()

	s := e.store
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.active(id)
	if err != nil {
		return err
	}
	if actor != r.Founder {
		return fmt.Errorf("%w: only the founder of %s can hand over the founder role", core.ErrNotAuthorized, id)
	}
	if founder == r.Founder {
		return nil
	}
	if !s.isMember(r, founder) {
		return fmt.Errorf("%w: %s is not a member of %s", core.ErrNotFound, founder, id)
	}
	previous := r.Founder
	if _, ok := s.members[id][previous]; !ok {
		s.putMember(Membership{Region: id, Account: previous, JoinedAt: r.CreatedAt})
	}
	s.deleteRole(id, previous)
	s.putRole(RoleAssignment{Region: id, Account: founder, Role: RoleFounder, GrantedAt: now})
	r.Founder = founder

	e.logger.Info("Founder changed",
		zap.String("region", id.String()),
		zap.String("from", previous.String()),
		zap.String("to", founder.String()))
	return nil
}

// RemoveRegion removes region id with every member, role and leave row scoped to it. Only the
// governance account may call it. Removing an absent or already removed region succeeds.
func (e *Engine) RemoveRegion(caller core.AccountID, id core.RegionID) error {
	if caller != e.opts.Account {
		return fmt.Errorf("%w: only %s can remove regions", core.ErrNotAuthorized, e.opts.Account)
	}
	now := e.clock.Now()

	s := e.store
	s.mu.Lock()
	r, ok := s.regions[id]
	if !ok || r.State == StateRemoved {
		s.mu.Unlock()
		return nil
	}
	members, roles := len(s.members[id]), len(s.roles[id])
	delete(s.members, id)
	delete(s.roles, id)
	delete(s.leaves, id)
	r.State = StateRemoved
	r.RemovedAt = &now
	s.mu.Unlock()

	e.logger.Info("Region removed",
		zap.String("region", id.String()),
		zap.Int("members", members),
		zap.Int("roles", roles))
	return nil
}

// active returns the active region id. Caller holds mu.
func (s *Store) active(id core.RegionID) (*Region, error) {
	r, ok := s.regions[id]
	if !ok || r.State != StateActive {
		return nil, fmt.Errorf("%w: region %s", core.ErrNotFound, id)
	}
	return r, nil
}

// joinable returns the active region id if its fee was paid. Caller holds mu.
func (s *Store) joinable(id core.RegionID) (*Region, error) {
	r, err := s.active(id)
	if err != nil {
		return nil, err
	}
	if !r.FeePaid {
		return nil, fmt.Errorf("%w: region %s", core.ErrFeeNotPaid, id)
	}
	return r, nil
}
