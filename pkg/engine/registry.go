package engine

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// StatusStore persists finalized order hashes. The flag is monotone: a hash
// only ever goes from open to spent, so the store needs no delete.
type StatusStore interface {
	PutFinalized(h common.Hash) error
	LoadFinalized() ([]common.Hash, error)
}

// StatusRegistry tracks which order hashes are cancelled or finalized.
// The check-then-set inside MarkFinalized is the engine's sole
// mutual-exclusion mechanism for competing settlement attempts: whichever
// attempt commits first wins, the loser observes ErrAlreadyFinalized.
type StatusRegistry struct {
	mu    sync.Mutex
	spent map[common.Hash]bool
	store StatusStore // optional; nil keeps the registry memory-only
}

// NewStatusRegistry builds a registry, warm-loading spent hashes from the
// store when one is given.
func NewStatusRegistry(store StatusStore) (*StatusRegistry, error) {
	r := &StatusRegistry{
		spent: make(map[common.Hash]bool),
		store: store,
	}
	if store != nil {
		hashes, err := store.LoadFinalized()
		if err != nil {
			return nil, fmt.Errorf("failed to load order status: %w", err)
		}
		for _, h := range hashes {
			r.spent[h] = true
		}
	}
	return r, nil
}

// IsFinalized reports whether the hash is permanently spent.
func (r *StatusRegistry) IsFinalized(h common.Hash) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spent[h]
}

// MarkFinalized atomically checks and sets the spent flag.
func (r *StatusRegistry) MarkFinalized(h common.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.markLocked(h)
}

// MarkPairFinalized spends both hashes or neither.
func (r *StatusRegistry) MarkPairFinalized(a, b common.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spent[a] || r.spent[b] {
		return ErrAlreadyFinalized
	}
	if err := r.markLocked(a); err != nil {
		return err
	}
	if err := r.markLocked(b); err != nil {
		delete(r.spent, a)
		return err
	}
	return nil
}

func (r *StatusRegistry) markLocked(h common.Hash) error {
	if r.spent[h] {
		return ErrAlreadyFinalized
	}
	if r.store != nil {
		if err := r.store.PutFinalized(h); err != nil {
			return fmt.Errorf("failed to persist order status: %w", err)
		}
	}
	r.spent[h] = true
	return nil
}
