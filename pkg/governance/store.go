package governance

import (
	"sort"
	"sync"
	"time"

	"github.com/canopy-network/regionledger/pkg/core"
)

// State is a region's lifecycle state. A region never leaves StateRemoved.
type State string

const (
	StateActive  State = "active"
	StateRemoved State = "removed"
)

// Role is a per-region role tag.
type Role string

const (
	RoleFounder Role = "founder"
	RoleAdmin   Role = "admin"
)

// Region is a registry row. Founder is the single source of truth for founder status.
type Region struct {
	ID          core.RegionID  `json:"id"`
	Founder     core.AccountID `json:"founder"`
	Description string         `json:"description"`
	Locality    string         `json:"locality"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	PublicKey   string         `json:"public_key"`
	FeePaid     bool           `json:"fee_paid"`
	State       State          `json:"state"`
	CreatedAt   time.Time      `json:"created_at"`
	RemovedAt   *time.Time     `json:"removed_at,omitempty"`
}

// Membership is one member row.
type Membership struct {
	Region   core.RegionID  `json:"region"`
	Account  core.AccountID `json:"account"`
	JoinedAt time.Time      `json:"joined_at"`
}

// RoleAssignment is one role row.
type RoleAssignment struct {
	Region    core.RegionID  `json:"region"`
	Account   core.AccountID `json:"account"`
	Role      Role           `json:"role"`
	GrantedAt time.Time      `json:"granted_at"`
}

// Store owns the registry, the membership and role tables, the leave log and the fee escrow.
// Member, role and leave rows are indexed by region id first so a region's rows can be dropped
// without touching any other region.
type Store struct {
	mu sync.RWMutex

	regions map[core.RegionID]*Region
	members map[core.RegionID]map[core.AccountID]Membership
	roles   map[core.RegionID]map[core.AccountID]RoleAssignment
	leaves  map[core.RegionID]map[core.AccountID]time.Time
	escrow  map[core.AccountID]int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		regions: make(map[core.RegionID]*Region),
		members: make(map[core.RegionID]map[core.AccountID]Membership),
		roles:   make(map[core.RegionID]map[core.AccountID]RoleAssignment),
		leaves:  make(map[core.RegionID]map[core.AccountID]time.Time),
		escrow:  make(map[core.AccountID]int64),
	}
}

// Region returns the registry row for id, including removed regions.
func (s *Store) Region(id core.RegionID) (Region, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regions[id]
	if !ok {
		return Region{}, false
	}
	return *r, true
}

// Regions lists active regions ordered by id.
func (s *Store) Regions() []Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Region, 0, len(s.regions))
	for _, r := range s.regions {
		if r.State == StateActive {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Members lists the member rows of a region ordered by account.
func (s *Store) Members(id core.RegionID) []Membership {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Membership, 0, len(s.members[id]))
	for _, m := range s.members[id] {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out
}

// AllMembers lists every member row of every region.
func (s *Store) AllMembers() []Membership {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Membership
	for _, rows := range s.members {
		for _, m := range rows {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		return out[i].Account < out[j].Account
	})
	return out
}

// Roles lists the role rows of a region ordered by account.
func (s *Store) Roles(id core.RegionID) []RoleAssignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RoleAssignment, 0, len(s.roles[id]))
	for _, r := range s.roles[id] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out
}

// IsMember reports membership. The founder of an active region is always a member.
func (s *Store) IsMember(id core.RegionID, account core.AccountID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regions[id]
	if !ok || r.State != StateActive {
		return false
	}
	return s.isMember(r, account)
}

// Deposit returns the unspent fee escrow of account, in base units.
func (s *Store) Deposit(account core.AccountID) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.escrow[account]
}

func (s *Store) isMember(r *Region, account core.AccountID) bool {
	if account == r.Founder {
		return true
	}
	_, ok := s.members[r.ID][account]
	return ok
}

// privileged reports whether actor is the founder or an admin member of r.
func (s *Store) privileged(r *Region, actor core.AccountID) bool {
	if actor == r.Founder {
		return true
	}
	if !s.isMember(r, actor) {
		return false
	}
	row, ok := s.roles[r.ID][actor]
	return ok && row.Role == RoleAdmin
}

func (s *Store) putMember(m Membership) {
	rows, ok := s.members[m.Region]
	if !ok {
		rows = make(map[core.AccountID]Membership)
		s.members[m.Region] = rows
	}
	rows[m.Account] = m
}

func (s *Store) putRole(r RoleAssignment) {
	rows, ok := s.roles[r.Region]
	if !ok {
		rows = make(map[core.AccountID]RoleAssignment)
		s.roles[r.Region] = rows
	}
	rows[r.Account] = r
}

func (s *Store) deleteRole(id core.RegionID, account core.AccountID) bool {
	rows := s.roles[id]
	if _, ok := rows[account]; !ok {
		return false
	}
	delete(rows, account)
	return true
}

func (s *Store) recordLeave(id core.RegionID, account core.AccountID, at time.Time) {
	rows, ok := s.leaves[id]
	if !ok {
		rows = make(map[core.AccountID]time.Time)
		s.leaves[id] = rows
	}
	rows[account] = at
}
