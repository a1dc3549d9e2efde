// Package settings holds the runtime-mutable configuration read by the ledger and governance
// engines. Values are integers keyed by the setting names the contracts used ("bio.fee", ...);
// only the configuration authority account may change them.
package settings

import (
	"fmt"
	"sort"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/canopy-network/regionledger/pkg/core"
)

const (
	// KeyRegionFee is the region creation fee in base units of the ledger symbol.
	KeyRegionFee = "bio.fee"
	// KeyTxLimitMin is the outgoing transfer allowance per window without a planted balance.
	KeyTxLimitMin = "txlimit.min"
	// KeyTxLimitPlanted is the allowance when the planted balance is positive.
	KeyTxLimitPlanted = "txlimit.planted"
	// KeyRejoinDelay is the re-join delay after leaving a region, in seconds.
	KeyRejoinDelay = "bio.vote.del"
	// KeyBatchSize bounds the rate windows cleared per weekly reset call.
	KeyBatchSize = "batchsize"
)

// Defaults are the initial values, read from the environment.
type Defaults struct {
	Authority          string `env:"SETTINGS_AUTHORITY" envDefault:"settings"`
	RegionFee          int64  `env:"BIO_FEE" envDefault:"10000"`
	TxLimitMin         int64  `env:"TXLIMIT_MIN" envDefault:"7"`
	TxLimitPlanted     int64  `env:"TXLIMIT_PLANTED" envDefault:"21"`
	RejoinDelaySeconds int64  `env:"BIO_VOTE_DEL" envDefault:"86400"`
	BatchSize          int64  `env:"BATCHSIZE" envDefault:"100"`
}

// LoadDefaults parses Defaults from the environment.
func LoadDefaults() (Defaults, error) {
	var d Defaults
	if err := env.Parse(&d); err != nil {
		return Defaults{}, fmt.Errorf("parse settings env: %w", err)
	}
	return d, nil
}

type rule struct {
	min  int64
	desc string
}

var rules = map[string]rule{
	KeyRegionFee:      {min: 0, desc: "region creation fee"},
	KeyTxLimitMin:     {min: 1, desc: "lower transfer tier"},
	KeyTxLimitPlanted: {min: 1, desc: "planted transfer tier"},
	KeyRejoinDelay:    {min: 0, desc: "re-join delay"},
	KeyBatchSize:      {min: 1, desc: "reset batch size"},
}

// Settings is safe for concurrent use.
type Settings struct {
	authority core.AccountID
	values    *xsync.Map[string, int64]
	logger    *zap.Logger
}

// New validates d and returns the settings it describes.
func New(d Defaults, logger *zap.Logger) (*Settings, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	authority := core.AccountID(d.Authority)
	if err := authority.Validate(); err != nil {
		return nil, fmt.Errorf("settings authority: %w", err)
	}

	initial := map[string]int64{
		KeyRegionFee:      d.RegionFee,
		KeyTxLimitMin:     d.TxLimitMin,
		KeyTxLimitPlanted: d.TxLimitPlanted,
		KeyRejoinDelay:    d.RejoinDelaySeconds,
		KeyBatchSize:      d.BatchSize,
	}

	s := &Settings{
		authority: authority,
		values:    xsync.NewMap[string, int64](),
		logger:    logger,
	}
	for key, value := range initial {
		if err := check(key, value); err != nil {
			return nil, err
		}
		s.values.Store(key, value)
	}
	return s, nil
}

// Authority is the account allowed to call Set.
func (s *Settings) Authority() core.AccountID { return s.authority }

// Set changes one key. Callers other than the authority get core.ErrNotAuthorized.
func (s *Settings) Set(caller core.AccountID, key string, value int64) error {
	if caller != s.authority {
		return fmt.Errorf("%w: %s cannot change settings", core.ErrNotAuthorized, caller)
	}
	if err := check(key, value); err != nil {
		return err
	}
	prev, _ := s.values.Load(key)
	s.values.Store(key, value)
	s.logger.Info("Setting changed",
		zap.String("key", key),
		zap.Int64("previous", prev),
		zap.Int64("value", value))
	return nil
}

// Get returns the raw value of key.
func (s *Settings) Get(key string) (int64, bool) {
	return s.values.Load(key)
}

func (s *Settings) RegionFee() int64 { return s.mustGet(KeyRegionFee) }

// TxLimits returns the lower and the planted transfer allowance.
func (s *Settings) TxLimits() (lower, planted int64) {
	return s.mustGet(KeyTxLimitMin), s.mustGet(KeyTxLimitPlanted)
}

func (s *Settings) RejoinDelay() time.Duration {
	return time.Duration(s.mustGet(KeyRejoinDelay)) * time.Second
}

func (s *Settings) BatchSize() int { return int(s.mustGet(KeyBatchSize)) }

// Snapshot copies every key, for the read surface.
func (s *Settings) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(rules))
	s.values.Range(func(k string, v int64) bool {
		out[k] = v
		return true
	})
	return out
}

// Keys lists the known keys in order.
func Keys() []string {
	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Settings) mustGet(key string) int64 {
	v, ok := s.values.Load(key)
	if !ok {
		// every key is stored by New
		panic("settings: missing key " + key)
	}
	return v
}

func check(key string, value int64) error {
	r, ok := rules[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", core.ErrInvalidInput, key)
	}
	if value < r.min {
		return fmt.Errorf("%w: %s (%s) must be >= %d, got %d", core.ErrInvalidInput, r.desc, key, r.min, value)
	}
	return nil
}
