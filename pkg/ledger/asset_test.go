package ledger

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	alice    = common.HexToAddress("0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa")
	bob      = common.HexToAddress("0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB")
	operator = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func TestAssetTokenTransfer(t *testing.T) {
	asset := NewAssetToken("test")
	asset.Mint(alice, big.NewInt(1))

	// Owner moves their own asset.
	if err := asset.Call(alice, EncodeTransferFrom(alice, bob, big.NewInt(1))); err != nil {
		t.Fatal(err)
	}
	owner, ok := asset.OwnerOf(big.NewInt(1))
	if !ok || owner != bob {
		t.Fatalf("owner = %s, want %s", owner.Hex(), bob.Hex())
	}
}

func TestAssetTokenOperatorApproval(t *testing.T) {
	asset := NewAssetToken("test")
	asset.Mint(alice, big.NewInt(1))

	data := EncodeTransferFrom(alice, bob, big.NewInt(1))

	// Unapproved operator is rejected and nothing moves.
	if err := asset.Call(operator, data); err == nil {
		t.Fatal("unapproved operator should be rejected")
	}
	if owner, _ := asset.OwnerOf(big.NewInt(1)); owner != alice {
		t.Fatal("failed call must not move the asset")
	}

	asset.SetApprovalForAll(alice, operator, true)
	if err := asset.Call(operator, data); err != nil {
		t.Fatal(err)
	}
	if owner, _ := asset.OwnerOf(big.NewInt(1)); owner != bob {
		t.Fatal("approved operator transfer should move the asset")
	}
}

func TestAssetTokenCallValidation(t *testing.T) {
	asset := NewAssetToken("test")
	asset.Mint(alice, big.NewInt(1))

	tests := []struct {
		name string
		data []byte
	}{
		{"unknown asset", EncodeTransferFrom(alice, bob, big.NewInt(99))},
		{"from is not the owner", EncodeTransferFrom(bob, alice, big.NewInt(1))},
		{"transfer to zero address", EncodeTransferFrom(alice, common.Address{}, big.NewInt(1))},
		{"truncated payload", EncodeTransferFrom(alice, bob, big.NewInt(1))[:50]},
		{"wrong selector", append([]byte{1, 2, 3, 4}, EncodeTransferFrom(alice, bob, big.NewInt(1))[4:]...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := asset.StateDigest()
			if err := asset.Call(alice, tt.data); err == nil {
				t.Fatal("expected rejection")
			}
			if asset.StateDigest() != before {
				t.Error("rejected call changed state")
			}
		})
	}
}

func TestAssetTokenStateDigest(t *testing.T) {
	asset := NewAssetToken("test")
	asset.Mint(alice, big.NewInt(1))

	before := asset.StateDigest()
	if asset.StateDigest() != before {
		t.Fatal("digest should be stable without mutation")
	}

	if err := asset.Call(alice, EncodeTransferFrom(alice, bob, big.NewInt(1))); err != nil {
		t.Fatal(err)
	}
	if asset.StateDigest() == before {
		t.Error("ownership change must perturb the digest")
	}
}

func TestAssetTokenSnapshotRestore(t *testing.T) {
	asset := NewAssetToken("test")
	asset.Mint(alice, big.NewInt(1))
	asset.Mint(alice, big.NewInt(2))

	snap := asset.Snapshot()
	if err := asset.Call(alice, EncodeTransferFrom(alice, bob, big.NewInt(1))); err != nil {
		t.Fatal(err)
	}

	asset.Restore(snap)
	if owner, _ := asset.OwnerOf(big.NewInt(1)); owner != alice {
		t.Error("restore should undo the transfer")
	}
}
