package ledger

import (
	"math/big"
	"testing"
)

func TestFungibleTransferFrom(t *testing.T) {
	token := NewFungibleToken("test", operator)
	token.Mint(alice, big.NewInt(1000))
	token.Approve(alice, operator, big.NewInt(600))

	if err := token.TransferFrom(alice, bob, big.NewInt(400)); err != nil {
		t.Fatal(err)
	}

	if got := token.BalanceOf(alice); got.Cmp(big.NewInt(600)) != 0 {
		t.Errorf("alice balance = %s, want 600", got)
	}
	if got := token.BalanceOf(bob); got.Cmp(big.NewInt(400)) != 0 {
		t.Errorf("bob balance = %s, want 400", got)
	}
	if got := token.Allowance(alice, operator); got.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("allowance = %s, want 200", got)
	}
}

func TestFungibleTransferFromLimits(t *testing.T) {
	token := NewFungibleToken("test", operator)
	token.Mint(alice, big.NewInt(100))
	token.Approve(alice, operator, big.NewInt(1000))

	// Balance is the binding constraint here.
	if err := token.TransferFrom(alice, bob, big.NewInt(101)); err == nil {
		t.Fatal("transfer above balance should fail")
	}

	// And allowance here.
	token.Mint(alice, big.NewInt(10_000))
	token.Approve(alice, operator, big.NewInt(50))
	if err := token.TransferFrom(alice, bob, big.NewInt(51)); err == nil {
		t.Fatal("transfer above allowance should fail")
	}

	// Failed transfers must leave balances untouched.
	if got := token.BalanceOf(bob); got.Sign() != 0 {
		t.Errorf("bob balance = %s, want 0", got)
	}
}

func TestFungibleBalanceCopies(t *testing.T) {
	token := NewFungibleToken("test", operator)
	token.Mint(alice, big.NewInt(100))

	// Mutating a returned balance must not touch the ledger.
	token.BalanceOf(alice).SetInt64(0)
	if got := token.BalanceOf(alice); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("balance = %s, want 100", got)
	}
}

func TestNativeBankTransfer(t *testing.T) {
	bank := NewNativeBank()
	bank.Deposit(alice, big.NewInt(500))

	if err := bank.Transfer(alice, bob, big.NewInt(200)); err != nil {
		t.Fatal(err)
	}
	if got := bank.BalanceOf(alice); got.Cmp(big.NewInt(300)) != 0 {
		t.Errorf("alice balance = %s, want 300", got)
	}
	if got := bank.BalanceOf(bob); got.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("bob balance = %s, want 200", got)
	}

	if err := bank.Transfer(alice, bob, big.NewInt(301)); err == nil {
		t.Fatal("transfer above balance should fail")
	}
}
