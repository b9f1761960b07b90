package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/nyalabs/nyax/pkg/engine"
)

// PebbleStore persists the engine's durable state: spent order hashes and
// authorization grants. Both survive restarts; spent hashes in particular
// must, or a restart would reopen every settled order for replay.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// keys: os:<32-byte-hash>, g:<20-byte-principal><20-byte-delegate>
func kStatus(h common.Hash) []byte { return append([]byte("os:"), h[:]...) }
func kGrant(principal, delegate common.Address) []byte {
	k := append([]byte("g:"), principal[:]...)
	return append(k, delegate[:]...)
}

// PutFinalized durably marks an order hash as spent.
func (s *PebbleStore) PutFinalized(h common.Hash) error {
	if err := s.db.Set(kStatus(h), []byte{1}, pebble.Sync); err != nil {
		return fmt.Errorf("failed to persist order status: %w", err)
	}
	return nil
}

// LoadFinalized returns every spent order hash.
func (s *PebbleStore) LoadFinalized() ([]common.Hash, error) {
	prefix := []byte("os:")
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var hashes []common.Hash
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) != len(prefix)+common.HashLength {
			continue
		}
		var h common.Hash
		copy(h[:], key[len(prefix):])
		hashes = append(hashes, h)
	}
	return hashes, nil
}

// PutGrant persists an authorization grant.
func (s *PebbleStore) PutGrant(principal, delegate common.Address, g engine.Grant) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal grant: %w", err)
	}
	if err := s.db.Set(kGrant(principal, delegate), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save grant: %w", err)
	}
	return nil
}

// DeleteGrant removes a revoked grant.
func (s *PebbleStore) DeleteGrant(principal, delegate common.Address) error {
	if err := s.db.Delete(kGrant(principal, delegate), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}
	return nil
}

// LoadGrants returns all persisted grants keyed principal then delegate.
func (s *PebbleStore) LoadGrants() (map[common.Address]map[common.Address]engine.Grant, error) {
	prefix := []byte("g:")
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	grants := make(map[common.Address]map[common.Address]engine.Grant)
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) != len(prefix)+2*common.AddressLength {
			continue
		}
		var principal, delegate common.Address
		copy(principal[:], key[len(prefix):len(prefix)+common.AddressLength])
		copy(delegate[:], key[len(prefix)+common.AddressLength:])

		var g engine.Grant
		if err := json.Unmarshal(iter.Value(), &g); err != nil {
			continue // Skip invalid entries
		}
		if grants[principal] == nil {
			grants[principal] = make(map[common.Address]engine.Grant)
		}
		grants[principal][delegate] = g
	}
	return grants, nil
}

func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

var _ engine.StatusStore = (*PebbleStore)(nil)
var _ engine.GrantStore = (*PebbleStore)(nil)
