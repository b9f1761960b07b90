package ledger

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/nyalabs/nyax/pkg/engine"
)

// snapshotter is implemented by targets that can roll back state, which
// MultiSend needs to keep a partially failed batch all-or-nothing.
type snapshotter interface {
	Snapshot() any
	Restore(any)
}

// MultiSend is an aggregating call target: one payload carries a batch of
// sub-calls, each dispatched to a registered endpoint with the original
// caller identity preserved. A failing sub-call rolls the whole batch back.
type MultiSend struct {
	mu      sync.RWMutex
	targets map[common.Address]engine.Target
}

func NewMultiSend() *MultiSend {
	return &MultiSend{targets: make(map[common.Address]engine.Target)}
}

// Register makes an endpoint reachable from sub-calls.
func (m *MultiSend) Register(addr common.Address, t engine.Target) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets[addr] = t
}

func (m *MultiSend) Call(caller common.Address, data []byte) error {
	subs, err := decodeMultiSend(data)
	if err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Snapshot every endpoint the batch touches before executing anything.
	snaps := make(map[common.Address]any)
	for _, sub := range subs {
		t, ok := m.targets[sub.Target]
		if !ok {
			return fmt.Errorf("multisend: unknown sub-target %s", sub.Target.Hex())
		}
		if _, done := snaps[sub.Target]; done {
			continue
		}
		if s, ok := t.(snapshotter); ok {
			snaps[sub.Target] = s.Snapshot()
		}
	}

	for i, sub := range subs {
		if err := m.targets[sub.Target].Call(caller, sub.Data); err != nil {
			for addr, snap := range snaps {
				m.targets[addr].(snapshotter).Restore(snap)
			}
			return fmt.Errorf("multisend: sub-call %d: %w", i, err)
		}
	}
	return nil
}

// StateDigest combines the digests of all registered endpoints.
func (m *MultiSend) StateDigest() common.Hash {
	m.mu.RLock()
	defer m.mu.RUnlock()

	addrs := make([]common.Address, 0, len(m.targets))
	for a := range m.targets {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})

	var buf []byte
	for _, a := range addrs {
		d := m.targets[a].StateDigest()
		buf = append(buf, a[:]...)
		buf = append(buf, d[:]...)
	}
	return gethcrypto.Keccak256Hash(buf)
}

var _ engine.Target = (*MultiSend)(nil)
var _ engine.Target = (*AssetToken)(nil)
