package engine

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	nyacrypto "github.com/nyalabs/nyax/pkg/crypto"
)

var testExchange = common.HexToAddress("0x0000000000000000000000000000000000001337")

func testHasher() *OrderHasher {
	return NewOrderHasher("NyaMarketplace", "1.0.0", 1337, testExchange)
}

func baseOrder() *Order {
	return &Order{
		Exchange:           testExchange,
		Maker:              common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Taker:              common.Address{},
		FeeRecipient:       common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Target:             common.HexToAddress("0x3333333333333333333333333333333333333333"),
		PaymentToken:       common.HexToAddress("0x4444444444444444444444444444444444444444"),
		BasePrice:          big.NewInt(1000),
		EndPrice:           big.NewInt(0),
		ListingTime:        1_700_000_000,
		ExpirationTime:     1_700_100_000,
		Salt:               big.NewInt(12345),
		Side:               SideSell,
		SaleKind:           SaleKindFixed,
		CallKind:           CallDirect,
		CallData:           []byte{0xde, 0xad, 0xbe, 0xef},
		ReplacementPattern: []byte{0, 0, 0, 0xff},
	}
}

func TestHashOrderDeterministic(t *testing.T) {
	h := testHasher()
	a := h.HashOrder(baseOrder())
	b := h.HashOrder(baseOrder())
	if a != b {
		t.Fatalf("same order hashed differently: %s vs %s", a.Hex(), b.Hex())
	}
}

func TestHashOrderFieldSensitivity(t *testing.T) {
	h := testHasher()
	base := h.HashOrder(baseOrder())

	mutations := map[string]func(*Order){
		"exchange":           func(o *Order) { o.Exchange = common.HexToAddress("0x9999999999999999999999999999999999999999") },
		"maker":              func(o *Order) { o.Maker = common.HexToAddress("0x9999999999999999999999999999999999999999") },
		"taker":              func(o *Order) { o.Taker = common.HexToAddress("0x9999999999999999999999999999999999999999") },
		"feeRecipient":       func(o *Order) { o.FeeRecipient = common.Address{} },
		"target":             func(o *Order) { o.Target = common.HexToAddress("0x9999999999999999999999999999999999999999") },
		"paymentToken":       func(o *Order) { o.PaymentToken = common.Address{} },
		"basePrice":          func(o *Order) { o.BasePrice = big.NewInt(1001) },
		"endPrice":           func(o *Order) { o.EndPrice = big.NewInt(1) },
		"listingTime":        func(o *Order) { o.ListingTime++ },
		"expirationTime":     func(o *Order) { o.ExpirationTime++ },
		"salt":               func(o *Order) { o.Salt = big.NewInt(54321) },
		"side":               func(o *Order) { o.Side = SideBuy },
		"saleKind":           func(o *Order) { o.SaleKind = SaleKindTimeDecay },
		"callKind":           func(o *Order) { o.CallKind = CallThroughAgent },
		"callData":           func(o *Order) { o.CallData = []byte{0xde, 0xad, 0xbe, 0xee} },
		"replacementPattern": func(o *Order) { o.ReplacementPattern = []byte{0, 0, 0xff, 0xff} },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			o := baseOrder()
			mutate(o)
			if h.HashOrder(o) == base {
				t.Errorf("changing %s did not change the hash", name)
			}
		})
	}
}

func TestHashOrderNilBigInts(t *testing.T) {
	h := testHasher()
	o := baseOrder()
	o.BasePrice = nil
	o.EndPrice = nil
	o.Salt = nil

	zeroed := baseOrder()
	zeroed.BasePrice = big.NewInt(0)
	zeroed.EndPrice = big.NewInt(0)
	zeroed.Salt = big.NewInt(0)

	if h.HashOrder(o) != h.HashOrder(zeroed) {
		t.Error("nil big.Int fields should hash like zero")
	}
}

func TestHashToSignDomainSeparation(t *testing.T) {
	o := baseOrder()

	a, err := testHasher().HashToSign(o)
	if err != nil {
		t.Fatal(err)
	}

	for name, other := range map[string]*OrderHasher{
		"different name":     NewOrderHasher("OtherMarket", "1.0.0", 1337, testExchange),
		"different version":  NewOrderHasher("NyaMarketplace", "2.0.0", 1337, testExchange),
		"different chain":    NewOrderHasher("NyaMarketplace", "1.0.0", 1, testExchange),
		"different exchange": NewOrderHasher("NyaMarketplace", "1.0.0", 1337, common.HexToAddress("0x9999999999999999999999999999999999999999")),
	} {
		b, err := other.HashToSign(o)
		if err != nil {
			t.Fatal(err)
		}
		if a == b {
			t.Errorf("%s: signing digest did not separate", name)
		}
	}

	// The envelope must differ from the raw order hash.
	if a == testHasher().HashOrder(o) {
		t.Error("signing digest equals raw order hash")
	}
}

func TestSignAndRecover(t *testing.T) {
	h := testHasher()
	signer, err := nyacrypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	o := baseOrder()
	o.Maker = signer.Address()

	digest, err := h.HashToSign(o)
	if err != nil {
		t.Fatal(err)
	}
	sig, err := signer.Sign(digest.Bytes())
	if err != nil {
		t.Fatal(err)
	}

	recovered, err := h.RecoverSigner(o, sig)
	if err != nil {
		t.Fatal(err)
	}
	if recovered != signer.Address() {
		t.Fatalf("recovered %s, want %s", recovered.Hex(), signer.Address().Hex())
	}

	if !h.VerifyOrderSignature(o, sig) {
		t.Error("maker signature should verify")
	}

	// Flip one signature byte: verification must fail.
	bad := append([]byte{}, sig...)
	bad[10] ^= 0xff
	if h.VerifyOrderSignature(o, bad) {
		t.Error("corrupted signature should not verify")
	}
}

func TestVerifyOrderSignatureTaker(t *testing.T) {
	h := testHasher()
	maker, _ := nyacrypto.GenerateKey()
	taker, _ := nyacrypto.GenerateKey()
	stranger, _ := nyacrypto.GenerateKey()

	o := baseOrder()
	o.Maker = maker.Address()
	o.Taker = taker.Address()

	digest, err := h.HashToSign(o)
	if err != nil {
		t.Fatal(err)
	}

	takerSig, _ := taker.Sign(digest.Bytes())
	if !h.VerifyOrderSignature(o, takerSig) {
		t.Error("named taker's signature should verify")
	}

	strangerSig, _ := stranger.Sign(digest.Bytes())
	if h.VerifyOrderSignature(o, strangerSig) {
		t.Error("third-party signature should not verify")
	}

	// With a wildcard taker only the maker's signature counts.
	o.Taker = common.Address{}
	digest, err = h.HashToSign(o)
	if err != nil {
		t.Fatal(err)
	}
	takerSig, _ = taker.Sign(digest.Bytes())
	if h.VerifyOrderSignature(o, takerSig) {
		t.Error("non-maker signature should not verify for a wildcard-taker order")
	}
}
