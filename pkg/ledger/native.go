package ledger

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nyalabs/nyax/pkg/engine"
)

// NativeBank tracks balances of the ledger's native unit.
type NativeBank struct {
	mu       sync.RWMutex
	balances map[common.Address]*big.Int
}

func NewNativeBank() *NativeBank {
	return &NativeBank{balances: make(map[common.Address]*big.Int)}
}

func (n *NativeBank) Deposit(to common.Address, amount *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if b, ok := n.balances[to]; ok {
		b.Add(b, amount)
		return
	}
	n.balances[to] = new(big.Int).Set(amount)
}

func (n *NativeBank) BalanceOf(owner common.Address) *big.Int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if b, ok := n.balances[owner]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (n *NativeBank) Transfer(from, to common.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	balance := n.balances[from]
	if balance == nil || balance.Cmp(amount) < 0 {
		return fmt.Errorf("native: balance of %s below %s", from.Hex(), amount)
	}
	balance.Sub(balance, amount)
	if b, ok := n.balances[to]; ok {
		b.Add(b, amount)
	} else {
		n.balances[to] = new(big.Int).Set(amount)
	}
	return nil
}

var _ engine.NativeLedger = (*NativeBank)(nil)
