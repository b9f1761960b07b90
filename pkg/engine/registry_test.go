package engine

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

// recordingStore is a StatusStore that records puts and can fail on demand.
type recordingStore struct {
	put    []common.Hash
	seed   []common.Hash
	failOn map[common.Hash]bool
}

func (s *recordingStore) PutFinalized(h common.Hash) error {
	if s.failOn[h] {
		return errors.New("disk full")
	}
	s.put = append(s.put, h)
	return nil
}

func (s *recordingStore) LoadFinalized() ([]common.Hash, error) { return s.seed, nil }

func h(b byte) common.Hash { return common.Hash{31: b} }

func TestStatusRegistryMarkFinalized(t *testing.T) {
	r, err := NewStatusRegistry(nil)
	if err != nil {
		t.Fatal(err)
	}

	if r.IsFinalized(h(1)) {
		t.Error("fresh hash should be open")
	}
	if err := r.MarkFinalized(h(1)); err != nil {
		t.Fatal(err)
	}
	if !r.IsFinalized(h(1)) {
		t.Error("marked hash should be spent")
	}
	if err := r.MarkFinalized(h(1)); !errors.Is(err, ErrAlreadyFinalized) {
		t.Errorf("second mark: got %v, want ErrAlreadyFinalized", err)
	}
}

func TestStatusRegistryWarmLoad(t *testing.T) {
	store := &recordingStore{seed: []common.Hash{h(1), h(2)}}
	r, err := NewStatusRegistry(store)
	if err != nil {
		t.Fatal(err)
	}

	if !r.IsFinalized(h(1)) || !r.IsFinalized(h(2)) {
		t.Error("seeded hashes should load as spent")
	}
	if r.IsFinalized(h(3)) {
		t.Error("unseeded hash should be open")
	}
}

func TestStatusRegistryPersistsBeforeMarking(t *testing.T) {
	store := &recordingStore{failOn: map[common.Hash]bool{h(1): true}}
	r, err := NewStatusRegistry(store)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.MarkFinalized(h(1)); err == nil {
		t.Fatal("expected persistence failure")
	}
	if r.IsFinalized(h(1)) {
		t.Error("hash must stay open when the store write fails")
	}
}

func TestMarkPairFinalized(t *testing.T) {
	r, _ := NewStatusRegistry(nil)

	if err := r.MarkPairFinalized(h(1), h(2)); err != nil {
		t.Fatal(err)
	}
	if !r.IsFinalized(h(1)) || !r.IsFinalized(h(2)) {
		t.Error("both hashes should be spent")
	}

	// Any overlap with a spent hash rejects the whole pair.
	if err := r.MarkPairFinalized(h(2), h(3)); !errors.Is(err, ErrAlreadyFinalized) {
		t.Errorf("got %v, want ErrAlreadyFinalized", err)
	}
	if r.IsFinalized(h(3)) {
		t.Error("rejected pair must not spend the fresh hash")
	}
}

func TestMarkPairFinalizedRollsBackOnStoreFailure(t *testing.T) {
	store := &recordingStore{failOn: map[common.Hash]bool{h(2): true}}
	r, err := NewStatusRegistry(store)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.MarkPairFinalized(h(1), h(2)); err == nil {
		t.Fatal("expected persistence failure")
	}
	if r.IsFinalized(h(1)) || r.IsFinalized(h(2)) {
		t.Error("pair must be all-or-nothing in memory")
	}
}
