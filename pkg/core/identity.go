package core

import (
	"fmt"
	"strings"
)

// AccountID is an opaque, pre-authenticated account name.
type AccountID string

// RegionID names a region. Region ids share the account namespace.
type RegionID string

func (a AccountID) String() string { return string(a) }
func (r RegionID) String() string  { return string(r) }

// Validate rejects empty or whitespace-padded identifiers.
func (a AccountID) Validate() error {
	return validateName("account", string(a))
}

func (r RegionID) Validate() error {
	return validateName("region", string(r))
}

func validateName(kind, v string) error {
	if v == "" {
		return fmt.Errorf("%w: empty %s id", ErrInvalidInput, kind)
	}
	if strings.TrimSpace(v) != v {
		return fmt.Errorf("%w: %s id %q has surrounding whitespace", ErrInvalidInput, kind, v)
	}
	return nil
}
