package ledger

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AssetToken is a non-fungible asset registry exposing the transferFrom
// call convention. Ownership moves only through Call, which demands the
// caller be the current owner or an approved operator.
type AssetToken struct {
	mu        sync.RWMutex
	name      string
	owners    map[common.Hash]common.Address
	operators map[common.Address]map[common.Address]bool
}

func NewAssetToken(name string) *AssetToken {
	return &AssetToken{
		name:      name,
		owners:    make(map[common.Hash]common.Address),
		operators: make(map[common.Address]map[common.Address]bool),
	}
}

func (a *AssetToken) Mint(to common.Address, id *big.Int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.owners[idKey(id)] = to
}

func (a *AssetToken) OwnerOf(id *big.Int) (common.Address, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	owner, ok := a.owners[idKey(id)]
	return owner, ok
}

// SetApprovalForAll lets operator move any of owner's assets.
func (a *AssetToken) SetApprovalForAll(owner, operator common.Address, approved bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.operators[owner] == nil {
		a.operators[owner] = make(map[common.Address]bool)
	}
	a.operators[owner][operator] = approved
}

// Call executes a transferFrom payload. Validation happens before any
// mutation, so a failed call leaves ownership untouched.
func (a *AssetToken) Call(caller common.Address, data []byte) error {
	from, to, id, err := decodeTransferFrom(data)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	owner, ok := a.owners[id]
	if !ok {
		return fmt.Errorf("%s: unknown asset %s", a.name, id.Hex())
	}
	if owner != from {
		return fmt.Errorf("%s: %s does not own %s", a.name, from.Hex(), id.Hex())
	}
	if caller != from && !a.operators[from][caller] {
		return fmt.Errorf("%s: caller %s not approved by %s", a.name, caller.Hex(), from.Hex())
	}
	if to == (common.Address{}) {
		return fmt.Errorf("%s: transfer to zero address", a.name)
	}

	a.owners[id] = to
	return nil
}

// StateDigest hashes the full ownership table. The settlement engine
// compares digests around the asset leg to prove ownership actually moved.
func (a *AssetToken) StateDigest() common.Hash {
	a.mu.RLock()
	defer a.mu.RUnlock()

	keys := make([]common.Hash, 0, len(a.owners))
	for k := range a.owners {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})

	var buf []byte
	for _, k := range keys {
		owner := a.owners[k]
		buf = append(buf, k[:]...)
		buf = append(buf, owner[:]...)
	}
	return gethcrypto.Keccak256Hash(buf)
}

// Snapshot and Restore let a bundling endpoint roll back a partially
// executed batch.
func (a *AssetToken) Snapshot() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	owners := make(map[common.Hash]common.Address, len(a.owners))
	for k, v := range a.owners {
		owners[k] = v
	}
	return owners
}

func (a *AssetToken) Restore(snap any) {
	owners, ok := snap.(map[common.Hash]common.Address)
	if !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.owners = make(map[common.Hash]common.Address, len(owners))
	for k, v := range owners {
		a.owners[k] = v
	}
}

func idKey(id *big.Int) common.Hash {
	var k common.Hash
	id.FillBytes(k[:])
	return k
}
