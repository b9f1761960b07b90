package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/nyalabs/nyax/pkg/util"
)

// GrantState is the lifecycle of a delegate authorization.
type GrantState uint8

const (
	GrantNone GrantState = iota
	GrantPending
	GrantActive
)

func (s GrantState) String() string {
	switch s {
	case GrantNone:
		return "none"
	case GrantPending:
		return "pending"
	case GrantActive:
		return "active"
	default:
		return "unknown"
	}
}

// Grant records a principal's authorization of one delegate.
type Grant struct {
	State       GrantState `json:"state"`
	RequestedAt int64      `json:"requestedAt"` // unix seconds, set on request
}

// GrantStore persists authorization grants.
type GrantStore interface {
	PutGrant(principal, delegate common.Address, g Grant) error
	DeleteGrant(principal, delegate common.Address) error
	LoadGrants() (map[common.Address]map[common.Address]Grant, error)
}

var (
	ErrGrantExists     = errors.New("grant already requested or active")
	ErrGrantNotPending = errors.New("grant is not pending")
	ErrGrantDelay      = errors.New("grant delay has not elapsed")
)

// AuthRegistry is the time-delayed authorization registry. A principal
// requests a grant for a delegate, waits out the delay, then finalizes;
// revocation is immediate from any state. The delay bounds the blast radius
// of a freshly deployed or compromised engine: nothing can move a user's
// assets inside the window, and the user can revoke at any point.
//
// Mutations are valid only when issued by the owning principal; the engine
// and API layer pass the authenticated principal explicitly.
type AuthRegistry struct {
	mu     sync.RWMutex
	grants map[common.Address]map[common.Address]Grant
	delay  time.Duration
	clock  util.Clock
	store  GrantStore // optional
	log    *zap.Logger
}

func NewAuthRegistry(delay time.Duration, clock util.Clock, store GrantStore, log *zap.Logger) (*AuthRegistry, error) {
	grants := make(map[common.Address]map[common.Address]Grant)
	if store != nil {
		loaded, err := store.LoadGrants()
		if err != nil {
			return nil, fmt.Errorf("failed to load grants: %w", err)
		}
		grants = loaded
	}
	return &AuthRegistry{
		grants: grants,
		delay:  delay,
		clock:  clock,
		store:  store,
		log:    log,
	}, nil
}

// Request opens a pending grant from principal to delegate.
func (a *AuthRegistry) Request(principal, delegate common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if g := a.grants[principal][delegate]; g.State != GrantNone {
		return ErrGrantExists
	}

	g := Grant{State: GrantPending, RequestedAt: a.clock.Now().Unix()}
	if err := a.putLocked(principal, delegate, g); err != nil {
		return err
	}
	a.log.Info("authorization requested",
		zap.String("principal", principal.Hex()),
		zap.String("delegate", delegate.Hex()))
	return nil
}

// Finalize activates a pending grant once the minimum delay has elapsed.
func (a *AuthRegistry) Finalize(principal, delegate common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	g := a.grants[principal][delegate]
	if g.State != GrantPending {
		return ErrGrantNotPending
	}
	if a.clock.Now().Sub(time.Unix(g.RequestedAt, 0)) < a.delay {
		return ErrGrantDelay
	}

	g.State = GrantActive
	if err := a.putLocked(principal, delegate, g); err != nil {
		return err
	}
	a.log.Info("authorization active",
		zap.String("principal", principal.Hex()),
		zap.String("delegate", delegate.Hex()))
	return nil
}

// Revoke drops a grant immediately, from any state.
func (a *AuthRegistry) Revoke(principal, delegate common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store != nil {
		if err := a.store.DeleteGrant(principal, delegate); err != nil {
			return fmt.Errorf("failed to persist revocation: %w", err)
		}
	}
	delete(a.grants[principal], delegate)
	a.log.Info("authorization revoked",
		zap.String("principal", principal.Hex()),
		zap.String("delegate", delegate.Hex()))
	return nil
}

// State returns the grant state for (principal, delegate).
func (a *AuthRegistry) State(principal, delegate common.Address) GrantState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.grants[principal][delegate].State
}

// IsActive reports whether delegate may move principal's assets.
func (a *AuthRegistry) IsActive(principal, delegate common.Address) bool {
	return a.State(principal, delegate) == GrantActive
}

func (a *AuthRegistry) putLocked(principal, delegate common.Address, g Grant) error {
	if a.store != nil {
		if err := a.store.PutGrant(principal, delegate, g); err != nil {
			return fmt.Errorf("failed to persist grant: %w", err)
		}
	}
	if a.grants[principal] == nil {
		a.grants[principal] = make(map[common.Address]Grant)
	}
	a.grants[principal][delegate] = g
	return nil
}
