package ledger

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nyalabs/nyax/pkg/engine"
)

// FungibleToken is a balance-and-allowance ledger for payment assets.
// TransferFrom pulls on behalf of the configured operator (the settlement
// engine), consuming the payer's allowance.
type FungibleToken struct {
	mu         sync.RWMutex
	name       string
	operator   common.Address
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

func NewFungibleToken(name string, operator common.Address) *FungibleToken {
	return &FungibleToken{
		name:       name,
		operator:   operator,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (f *FungibleToken) Mint(to common.Address, amount *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creditLocked(to, amount)
}

// Approve sets spender's allowance over owner's balance.
func (f *FungibleToken) Approve(owner, spender common.Address, amount *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allowances[owner] == nil {
		f.allowances[owner] = make(map[common.Address]*big.Int)
	}
	f.allowances[owner][spender] = new(big.Int).Set(amount)
}

func (f *FungibleToken) BalanceOf(owner common.Address) *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if b, ok := f.balances[owner]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (f *FungibleToken) Allowance(owner, spender common.Address) *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if a, ok := f.allowances[owner][spender]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

// TransferFrom moves amount from payer to payee against the operator's
// allowance. Balance and allowance are verified before either side mutates.
func (f *FungibleToken) TransferFrom(payer, payee common.Address, amount *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	balance := f.balances[payer]
	if balance == nil || balance.Cmp(amount) < 0 {
		return fmt.Errorf("%s: balance of %s below %s", f.name, payer.Hex(), amount)
	}
	allowance := f.allowances[payer][f.operator]
	if allowance == nil || allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%s: allowance of %s below %s", f.name, payer.Hex(), amount)
	}

	allowance.Sub(allowance, amount)
	balance.Sub(balance, amount)
	f.creditLocked(payee, amount)
	return nil
}

func (f *FungibleToken) creditLocked(to common.Address, amount *big.Int) {
	if b, ok := f.balances[to]; ok {
		b.Add(b, amount)
		return
	}
	f.balances[to] = new(big.Int).Set(amount)
}

var _ engine.TokenLedger = (*FungibleToken)(nil)
